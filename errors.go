package chatlai

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when neither a chat-scoped nor a global
	// preference exists for a user. Callers apply their own default policy.
	ErrNotFound = errors.New("language preference not found")

	// ErrCacheMiss signals that no live entry exists for a key.
	// It is a control signal, not a failure.
	ErrCacheMiss = errors.New("translation cache miss")

	// ErrInvalidLanguageCode matches every *InvalidLanguageCodeError.
	ErrInvalidLanguageCode = errors.New("invalid language code")
)

// InvalidLanguageCodeError rejects a malformed or empty language tag.
type InvalidLanguageCodeError struct {
	Code  string
	Cause error
}

func (e *InvalidLanguageCodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid language code %q: %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("invalid language code %q", e.Code)
}

func (e *InvalidLanguageCodeError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrInvalidLanguageCode) true.
func (e *InvalidLanguageCodeError) Is(target error) bool {
	return target == ErrInvalidLanguageCode
}

// ProviderError indicates a translation provider failure (API error, rate
// limit, cancelled fetch, etc.). Provider errors are never cached.
type ProviderError struct {
	Message   string
	Cause     error
	Retryable bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsProviderError reports whether err is or wraps a *ProviderError.
func IsProviderError(err error) bool {
	var providerErr *ProviderError
	return errors.As(err, &providerErr)
}

// AsProviderError returns err unchanged when it already carries a
// *ProviderError, and wraps it otherwise.
func AsProviderError(err error) error {
	if err == nil || IsProviderError(err) {
		return err
	}
	return &ProviderError{Message: "fetch failed", Cause: err}
}

// CacheError indicates a cache backend failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// ProcessorError indicates a content processing failure (parse error, etc.).
type ProcessorError struct {
	Message     string
	Cause       error
	ContentType string // The type of content that failed to process
}

func (e *ProcessorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("processor error (%s): %s: %v", e.ContentType, e.Message, e.Cause)
	}
	return fmt.Sprintf("processor error (%s): %s", e.ContentType, e.Message)
}

func (e *ProcessorError) Unwrap() error {
	return e.Cause
}
