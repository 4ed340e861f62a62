package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"newsbias/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	noResponse     = "No response."
)

// StatusError carries the upstream HTTP status of a failed completion so
// callers can tell throttling apart from other failures.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openai: status %d: %v", e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }

type invokerConfig struct {
	baseURL string
	apiKey  string
}

type Option func(*invokerConfig)

func WithBaseURL(baseURL string) Option {
	return func(c *invokerConfig) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithAPIKey(key string) Option {
	return func(c *invokerConfig) {
		c.apiKey = key
	}
}

// Invoker sends the composed prompt to an OpenAI-compatible chat endpoint as
// a single user message.
type Invoker struct {
	client *openai.Client
	model  string
	gen    domain.GenerationConfig
}

func NewInvoker(model string, gen domain.GenerationConfig, opts ...Option) (*Invoker, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("openai: model must not be empty")
	}
	cfg := &invokerConfig{baseURL: defaultBaseURL, apiKey: "not-needed"}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.baseURL == "" {
		cfg.baseURL = defaultBaseURL
	}

	config := openai.DefaultConfig(cfg.apiKey)
	config.BaseURL = cfg.baseURL

	return &Invoker{
		client: openai.NewClientWithConfig(config),
		model:  model,
		gen:    gen,
	}, nil
}

func (i *Invoker) ModelID() string { return i.model }

func (i *Invoker) Invoke(ctx context.Context, prompt string) (string, error) {
	resp, err := i.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: i.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(i.gen.Temperature),
		TopP:        float32(i.gen.TopP),
		MaxTokens:   i.gen.MaxTokenCount,
	})
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return noResponse, nil
	}
	return resp.Choices[0].Message.Content, nil
}

func wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return fmt.Errorf("openai: chat completion failed: %w", err)
}
