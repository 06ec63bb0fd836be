package chatlai

import (
	"context"
	"errors"
	"time"
)

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts
	BaseDelay  time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum delay between retries
}

// DefaultRetryConfig returns sensible defaults for retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// backoff returns the delay before retry number attempt+1.
func (c RetryConfig) backoff(attempt int) time.Duration {
	delay := c.BaseDelay * time.Duration(1<<attempt)
	if delay > c.MaxDelay || delay <= 0 {
		delay = c.MaxDelay
	}
	return delay
}

// RetryFunc is a function that can be retried.
type RetryFunc[T any] func() (T, error)

// WithRetry executes fn with exponential backoff while it fails with a
// retryable error. The last error is returned once retries are exhausted.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn RetryFunc[T]) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == cfg.MaxRetries {
			break
		}

		timer := time.NewTimer(cfg.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// IsRetryable reports whether err is a provider error flagged as retryable.
// Context cancellation and deadline errors are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}
	return false
}

// RetryingFetcher wraps a Fetcher with retry logic. It belongs to the provider
// client side: the cache itself never retries.
type RetryingFetcher struct {
	fetcher Fetcher
	config  RetryConfig
}

// NewRetryingFetcher creates a new fetcher with retry logic.
func NewRetryingFetcher(fetcher Fetcher, cfg RetryConfig) *RetryingFetcher {
	return &RetryingFetcher{
		fetcher: fetcher,
		config:  cfg,
	}
}

// Fetch implements Fetcher with retry logic.
func (f *RetryingFetcher) Fetch(ctx context.Context, text string, source Lang, target string) (string, error) {
	return WithRetry(ctx, f.config, func() (string, error) {
		return f.fetcher.Fetch(ctx, text, source, target)
	})
}

var _ Fetcher = (*RetryingFetcher)(nil)
