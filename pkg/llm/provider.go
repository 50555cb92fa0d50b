// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm defines the model service boundary and its provider adapters.
package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single unit of communication.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest encapsulates the input for the LLM. A nil Temperature leaves
// the backend default in place; zero is sent as zero.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Temperature returns a pointer to t for ChatRequest.Temperature.
func Temperature(t float64) *float64 { return &t }

// ChatResponse encapsulates the output from the LLM.
type ChatResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider defines the interface for interacting with LLM backends.
type Provider interface {
	// Chat sends a chat request to the LLM and returns the response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)

// Chat implements Provider.
func (f ProviderFunc) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return f(ctx, req)
}

// WithLogging wraps p so each call logs its model, latency and token usage.
// A nil logger returns p unchanged.
func WithLogging(p Provider, log *slog.Logger) Provider {
	if log == nil {
		return p
	}
	return ProviderFunc(func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
		start := time.Now()
		resp, err := p.Chat(ctx, req)
		attrs := []slog.Attr{
			slog.String("model", req.Model),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			log.LogAttrs(ctx, slog.LevelWarn, "llm.chat.failed", attrs...)
			return nil, err
		}
		if resp != nil {
			attrs = append(attrs, slog.Int("tokens", resp.Usage.TotalTokens))
		}
		log.LogAttrs(ctx, slog.LevelDebug, "llm.chat", attrs...)
		return resp, nil
	})
}

// StatusError is returned by providers when the backend answered with an
// HTTP error status.
type StatusError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.Err }

// StatusCode extracts the backend status from err, if any.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if stderrors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}
