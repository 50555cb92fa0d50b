// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider implements Provider for the OpenAI chat completions API.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// OpenAIOption configures the OpenAI provider.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	model   string
	reqOpts []option.RequestOption
}

// WithOpenAIModel sets the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *openAIConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithOpenAIBaseURL sets a custom base URL (for Azure OpenAI or proxies).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) {
		if url != "" {
			c.reqOpts = append(c.reqOpts, option.WithBaseURL(url))
		}
	}
}

// WithOpenAIAPIKey sets the API key. Without it the client reads
// OPENAI_API_KEY from the environment.
func WithOpenAIAPIKey(key string) OpenAIOption {
	return func(c *openAIConfig) {
		if key != "" {
			c.reqOpts = append(c.reqOpts, option.WithAPIKey(key))
		}
	}
}

// NewOpenAI creates a new OpenAI provider.
func NewOpenAI(opts ...OpenAIOption) *OpenAIProvider {
	cfg := &openAIConfig{model: defaultOpenAIModel}
	for _, opt := range opts {
		opt(cfg)
	}
	// Retries are owned by the orchestrator.
	cfg.reqOpts = append(cfg.reqOpts, option.WithMaxRetries(0))
	return &OpenAIProvider{
		client: openai.NewClient(cfg.reqOpts...),
		model:  cfg.model,
	}
}

// Chat implements Provider.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if stderrors.As(err, &apiErr) {
			return nil, &StatusError{Provider: "openai", StatusCode: apiErr.StatusCode, Err: err}
		}
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}

	resp := &ChatResponse{
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	if len(completion.Choices) > 0 {
		resp.Content = completion.Choices[0].Message.Content
	}
	return resp, nil
}
