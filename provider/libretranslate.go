package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZaguanLabs/chatlai"
	"github.com/go-resty/resty/v2"
)

// LibreTranslateProvider translates through a LibreTranslate-compatible
// HTTP API.
type LibreTranslateProvider struct {
	apiKey  string
	baseURL string
	http    *resty.Client
}

// LibreTranslateConfig holds configuration for the LibreTranslate provider.
type LibreTranslateConfig struct {
	APIKey  string        // Optional API key
	BaseURL string        // Server URL (default: "http://localhost:5000")
	Timeout time.Duration // Request timeout (default: 20s)
}

// NewLibreTranslateProvider creates a new LibreTranslate provider.
func NewLibreTranslateProvider(cfg LibreTranslateConfig) *LibreTranslateProvider {
	base := cfg.BaseURL
	if base == "" {
		base = "http://localhost:5000"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &LibreTranslateProvider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(base, "/"),
		http:    resty.New().SetTimeout(timeout).SetHeader("User-Agent", chatlai.UserAgent()),
	}
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
}

type libreError struct {
	Error string `json:"error"`
}

// Fetch translates text into target. An unset source is sent as "auto".
func (p *LibreTranslateProvider) Fetch(ctx context.Context, text string, source chatlai.Lang, target string) (string, error) {
	var (
		resp    libreResponse
		errResp libreError
	)

	r, err := p.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(libreRequest{
			Q:      text,
			Source: source.Or("auto"),
			Target: target,
			Format: "text",
			APIKey: p.apiKey,
		}).
		SetResult(&resp).
		SetError(&errResp).
		Post(p.baseURL + "/translate")
	if err != nil {
		return "", &chatlai.ProviderError{
			Message:   "LibreTranslate request failed",
			Cause:     err,
			Retryable: ctx.Err() == nil,
		}
	}

	if r.IsError() {
		msg := errResp.Error
		if msg == "" {
			msg = r.String()
		}
		return "", &chatlai.ProviderError{
			Message:   fmt.Sprintf("LibreTranslate returned %s: %s", r.Status(), msg),
			Retryable: retryableStatus(r.StatusCode()),
		}
	}

	return resp.TranslatedText, nil
}

var _ chatlai.Fetcher = (*LibreTranslateProvider)(nil)
