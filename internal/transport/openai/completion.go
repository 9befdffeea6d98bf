package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/stackmint/docqa/internal/domain"
)

// Completer generates answers via the OpenAI-compatible chat completion API.
type Completer struct {
	client       *openai.Client
	defaultModel string
	logger       *zap.Logger
}

// CompleterConfig holds the chat provider settings.
type CompleterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Logger       *zap.Logger
}

// NewCompleter creates an OpenAI-compatible chat completion provider.
func NewCompleter(cfg *CompleterConfig) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Completer{
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.DefaultModel,
		logger:       cfg.Logger,
	}
}

// Complete sends one chat turn and returns the model's reply.
// Temperature is pinned to 0 so identical prompts produce stable answers.
func (c *Completer) Complete(ctx context.Context, model, systemPrompt, contextBlock, question string) (string, error) {
	if model == "" {
		model = c.defaultModel
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleSystem, Content: contextBlock},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", parseCompletionError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrModelProviderError)
	}

	return resp.Choices[0].Message.Content, nil
}

// DefaultModel reports the model used when a request does not name one.
func (c *Completer) DefaultModel() string {
	return c.defaultModel
}

func parseCompletionError(err error) error {
	wrap := domain.ErrModelProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("completion request failed: %w", wrap)
}
