package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZaguanLabs/chatlai"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatlai.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Cache.TTL() != time.Hour {
		t.Errorf("TTL = %v, want 1h", cfg.Cache.TTL())
	}
	if cfg.Cache.MaxEntries != 10000 {
		t.Errorf("MaxEntries = %d", cfg.Cache.MaxEntries)
	}
	if cfg.Cache.JanitorInterval() != time.Minute {
		t.Errorf("JanitorInterval = %v", cfg.Cache.JanitorInterval())
	}
	if cfg.Redis.KeyPrefix != "chatlai:" {
		t.Errorf("KeyPrefix = %q", cfg.Redis.KeyPrefix)
	}
	if cfg.Preferences.Driver != "memory" || cfg.Provider.Kind != "mock" {
		t.Errorf("unexpected drivers: %+v %+v", cfg.Preferences, cfg.Provider)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
cache:
  ttl_seconds: 120
  max_entries: 50
preferences:
  driver: sqlite
  dsn: /tmp/prefs.db
provider:
  kind: libretranslate
  base_url: http://localhost:5000
translator:
  default_target: pt_br
log:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Cache.TTLSeconds != 120 || cfg.Cache.MaxEntries != 50 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Preferences.Driver != "sqlite" || cfg.Preferences.DSN != "/tmp/prefs.db" {
		t.Errorf("preferences = %+v", cfg.Preferences)
	}
	if cfg.Provider.Kind != "libretranslate" || cfg.Provider.BaseURL != "http://localhost:5000" {
		t.Errorf("provider = %+v", cfg.Provider)
	}
	if cfg.Translator.DefaultTarget != "pt-BR" {
		t.Errorf("DefaultTarget = %q, want canonical pt-BR", cfg.Translator.DefaultTarget)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "cache:\n  ttl_seconds: 120\n")
	t.Setenv("CHATLAI_CACHE_TTL_SECONDS", "30")
	t.Setenv("CHATLAI_REDIS_URL", "redis://localhost:6379/1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cache.TTLSeconds != 30 {
		t.Errorf("TTLSeconds = %d, want env value 30", cfg.Cache.TTLSeconds)
	}
	if cfg.Redis.URL != "redis://localhost:6379/1" {
		t.Errorf("Redis.URL = %q", cfg.Redis.URL)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CHATLAI_CACHE_MAX_ENTRIES=7\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("CHATLAI_CACHE_MAX_ENTRIES") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cache.MaxEntries != 7 {
		t.Errorf("MaxEntries = %d, want 7 from .env", cfg.Cache.MaxEntries)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Preferences: PreferencesConfig{Driver: "memory"},
			Provider:    ProviderConfig{Kind: "mock"},
			Log:         LogConfig{Format: "json"},
			Server:      ServerConfig{Mode: "release"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative ttl", func(c *Config) { c.Cache.TTLSeconds = -1 }},
		{"negative capacity", func(c *Config) { c.Cache.MaxEntries = -1 }},
		{"unknown driver", func(c *Config) { c.Preferences.Driver = "mongo" }},
		{"postgres without dsn", func(c *Config) { c.Preferences.Driver = "postgres" }},
		{"unknown provider", func(c *Config) { c.Provider.Kind = "deepl" }},
		{"openai without key", func(c *Config) { c.Provider.Kind = "openai" }},
		{"negative retries", func(c *Config) { c.Provider.MaxRetries = -1 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad server mode", func(c *Config) { c.Server.Mode = "prod" }},
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_DefaultTarget(t *testing.T) {
	cfg := Config{
		Preferences: PreferencesConfig{Driver: "memory"},
		Provider:    ProviderConfig{Kind: "mock"},
		Translator:  TranslatorConfig{DefaultTarget: "not a code!"},
		Log:         LogConfig{Format: "json"},
		Server:      ServerConfig{Mode: "release"},
	}

	err := cfg.Validate()
	if !errors.Is(err, chatlai.ErrInvalidLanguageCode) {
		t.Errorf("Validate = %v, want ErrInvalidLanguageCode", err)
	}
}
