// Package provider contains chatlai.Fetcher implementations backed by
// external translation engines.
package provider

import (
	"fmt"
	"strings"

	"github.com/ZaguanLabs/chatlai"
)

// Config selects and configures a provider.
type Config struct {
	Kind    string // "openai", "libretranslate" or "mock"
	APIKey  string
	BaseURL string
	Model   string
}

// New builds the Fetcher for cfg.Kind.
func New(cfg Config) (chatlai.Fetcher, error) {
	switch strings.ToLower(cfg.Kind) {
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		}), nil
	case "libretranslate":
		return NewLibreTranslateProvider(LibreTranslateConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
		}), nil
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}

// retryableStatus reports whether an HTTP status is worth retrying.
func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}
