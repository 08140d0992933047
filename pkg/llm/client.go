package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"dsa-copilot/internal/config"
)

// Client is the inference backend boundary: send ordered messages, receive a
// single assistant choice that carries either final text or tool-invocation
// requests. No state is retained between calls.
type Client interface {
	Complete(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentChoice, error)
}

// OpenAI talks to any OpenAI-compatible endpoint through langchaingo.
type OpenAI struct {
	model     llms.Model
	maxTokens int
}

func New(cfg config.ModelConfig) (*OpenAI, error) {
	opts := []openai.Option{openai.WithModel(cfg.Name)}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}
	return &OpenAI{model: model, maxTokens: cfg.MaxTokens}, nil
}

func (c *OpenAI) Complete(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentChoice, error) {
	callOpts := make([]llms.CallOption, 0, len(opts)+1)
	if c.maxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(c.maxTokens))
	}
	callOpts = append(callOpts, opts...)

	resp, err := c.model.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("inference backend returned no choices")
	}
	return resp.Choices[0], nil
}
