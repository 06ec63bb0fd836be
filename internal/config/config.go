// Package config loads chatlai settings from an optional YAML file, an
// optional .env file and CHATLAI_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ZaguanLabs/chatlai"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config mirrors chatlai.yaml.
type Config struct {
	Cache       CacheConfig       `mapstructure:"cache"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	Provider    ProviderConfig    `mapstructure:"provider"`
	Translator  TranslatorConfig  `mapstructure:"translator"`
	Log         LogConfig         `mapstructure:"log"`
	Server      ServerConfig      `mapstructure:"server"`
}

// CacheConfig holds the translation cache policy.
type CacheConfig struct {
	TTLSeconds             int `mapstructure:"ttl_seconds"`
	MaxEntries             int `mapstructure:"max_entries"`
	JanitorIntervalSeconds int `mapstructure:"janitor_interval_seconds"`
}

// RedisConfig enables the shared second-level cache when URL is set.
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// PreferencesConfig selects the preference store.
type PreferencesConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ProviderConfig configures the translation engine.
type ProviderConfig struct {
	Kind              string `mapstructure:"kind"`
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	Model             string `mapstructure:"model"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	MaxRetries        int    `mapstructure:"max_retries"`
}

// TranslatorConfig holds request-path settings.
type TranslatorConfig struct {
	DefaultTarget string `mapstructure:"default_target"`
	Concurrency   int    `mapstructure:"concurrency"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

var defaults = map[string]any{
	"cache.ttl_seconds":              3600,
	"cache.max_entries":              10000,
	"cache.janitor_interval_seconds": 60,
	"redis.url":                      "",
	"redis.key_prefix":               "chatlai:",
	"preferences.driver":             "memory",
	"preferences.dsn":                "",
	"provider.kind":                  "mock",
	"provider.api_key":               "",
	"provider.base_url":              "",
	"provider.model":                 "",
	"provider.requests_per_minute":   60,
	"provider.max_retries":           3,
	"translator.default_target":      "",
	"translator.concurrency":         4,
	"log.level":                      "info",
	"log.format":                     "json",
	"server.addr":                    ":8080",
	"server.mode":                    "release",
}

// Load reads configuration. An empty path looks for chatlai.yaml in the
// working directory; a missing default file is not an error. Values in a
// .env file are exported to the environment first without overriding
// variables that are already set.
func Load(path string) (*Config, error) {
	// .env is optional when the environment is provided by the runtime.
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("chatlai")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("chatlai")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and required combinations.
func (c *Config) Validate() error {
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("config: cache.ttl_seconds must be >= 0")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("config: cache.max_entries must be >= 0")
	}

	switch c.Preferences.Driver {
	case "memory", "sqlite":
	case "postgres":
		if strings.TrimSpace(c.Preferences.DSN) == "" {
			return fmt.Errorf("config: preferences.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown preferences.driver %q", c.Preferences.Driver)
	}

	switch strings.ToLower(c.Provider.Kind) {
	case "mock", "libretranslate":
	case "openai":
		if strings.TrimSpace(c.Provider.APIKey) == "" {
			return fmt.Errorf("config: provider.api_key is required for the openai provider")
		}
	default:
		return fmt.Errorf("config: unknown provider.kind %q", c.Provider.Kind)
	}
	if c.Provider.MaxRetries < 0 {
		return fmt.Errorf("config: provider.max_retries must be >= 0")
	}

	if c.Translator.DefaultTarget != "" {
		canonical, err := chatlai.ParseLanguageCode(c.Translator.DefaultTarget)
		if err != nil {
			return fmt.Errorf("config: translator.default_target: %w", err)
		}
		c.Translator.DefaultTarget = canonical
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format must be json or console, got %q", c.Log.Format)
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode must be debug, release or test, got %q", c.Server.Mode)
	}

	return nil
}

// TTL returns the cache time to live.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// JanitorInterval returns the period between expiry sweeps.
func (c CacheConfig) JanitorInterval() time.Duration {
	return time.Duration(c.JanitorIntervalSeconds) * time.Second
}
