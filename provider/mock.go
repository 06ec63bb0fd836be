package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/ZaguanLabs/chatlai"
)

// MockProvider is a deterministic provider for tests and local runs.
// It is safe for concurrent use.
type MockProvider struct {
	mu           sync.Mutex
	translations map[string]string
	err          error
	calls        int
	lastText     string
	lastSource   chatlai.Lang
	lastTarget   string
}

// NewMockProvider creates a new mock provider with default translations.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		translations: map[string]string{
			"Hello":                "Hola",
			"World":                "Mundo",
			"Hello World":          "Hola Mundo",
			"Welcome to our chat.": "Bienvenido a nuestro chat.",
		},
	}
}

// Fetch returns the configured translation, or the text in brackets.
func (m *MockProvider) Fetch(ctx context.Context, text string, source chatlai.Lang, target string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.lastText, m.lastSource, m.lastTarget = text, source, target

	if m.err != nil {
		return "", m.err
	}
	if translation, ok := m.translations[text]; ok {
		return translation, nil
	}
	return fmt.Sprintf("[%s]", text), nil
}

// SetTranslation registers a canned translation.
func (m *MockProvider) SetTranslation(text, translated string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.translations[text] = translated
}

// SetError makes every following Fetch fail with err (nil restores success).
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the number of Fetch calls.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the arguments of the most recent Fetch.
func (m *MockProvider) LastRequest() (text string, source chatlai.Lang, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastText, m.lastSource, m.lastTarget
}

// Reset clears the call count and last request.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.lastText, m.lastSource, m.lastTarget = "", chatlai.Lang{}, ""
}

var _ chatlai.Fetcher = (*MockProvider)(nil)
