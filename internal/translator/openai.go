package translator

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenAIModel = "gpt-4o-mini"

	// OpenRouterBaseURL speaks the same chat completions protocol.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAITranslator talks to any OpenAI-compatible chat completions API.
type OpenAITranslator struct {
	client *openai.Client
	apiKey string
	model  string
}

func NewOpenAITranslator(cfg ServiceConfig) (*OpenAITranslator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAITranslator{
		client: openai.NewClientWithConfig(clientCfg),
		apiKey: cfg.APIKey,
		model:  model,
	}, nil
}

func (s *OpenAITranslator) Name() string {
	return "openai"
}

func (s *OpenAITranslator) Translate(ctx context.Context, req Request) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", s.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", ErrEncoding)
	}

	return cleanOutput(resp.Choices[0].Message.Content)
}

// wrapError turns go-openai API errors into StatusError so callers can
// classify them without importing the SDK. Transport errors pass through.
func (s *OpenAITranslator) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Service: s.Name(), Code: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{Service: s.Name(), Code: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return fmt.Errorf("openai request failed: %w", err)
}

func (s *OpenAITranslator) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("OpenAI API key not configured")
	}
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("OpenAI not available: %w", s.wrapError(err))
	}
	return nil
}
