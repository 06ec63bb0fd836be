package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ZaguanLabs/chatlai"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider translates single texts with OpenAI chat completions.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  // OpenAI API key
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Custom base URL (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Fetch translates text into target. An unset source asks the model to
// detect the language.
func (p *OpenAIProvider) Fetch(ctx context.Context, text string, source chatlai.Lang, target string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(source, target)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", &chatlai.ProviderError{
			Message:   "OpenAI API call failed",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return "", &chatlai.ProviderError{
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	return p.parseResponse(resp.Choices[0].Message.Content)
}

func (p *OpenAIProvider) buildSystemPrompt(source chatlai.Lang, target string) string {
	targetName := chatlai.GetLanguageName(target)

	from := "Detect the language of the message."
	if code, ok := source.Get(); ok {
		from = fmt.Sprintf("The message is written in %s.", chatlai.GetLanguageName(code))
	}

	return fmt.Sprintf(`# Role
You translate chat messages into %s with the fluency of a native speaker.

# Task
%s Translate it into idiomatic %s.

# Style Guide
- **Register**: Keep the tone of the original. Chat messages are often informal.
- **Idioms**: Never translate idioms literally.
- **Do not translate**: URLs, @mentions, #channels, emoji, code in backticks, placeholders such as {name} or %%s.
- **Formatting**: Preserve line breaks and meaningful whitespace.
- If the message is already in %s, return it unchanged.

# Format
Return a valid JSON object with a single key "translation" holding the translated string.
Example: { "translation": "translated message" }
- Do NOT wrap in Markdown code blocks.`, targetName, from, targetName, targetName)
}

func (p *OpenAIProvider) parseResponse(content string) (string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var result struct {
		Translation *string `json:"translation"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &result); err != nil || result.Translation == nil {
		return "", &chatlai.ProviderError{
			Message:   "invalid response format from OpenAI",
			Cause:     err,
			Retryable: false,
		}
	}
	return *result.Translation, nil
}

func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

var _ chatlai.Fetcher = (*OpenAIProvider)(nil)
