// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Options selects and configures a live provider.
type Options struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	// Logger, when set, logs every chat call.
	Logger *slog.Logger
}

// New builds the provider named by opts.Provider: openai, ollama or gemini.
func New(ctx context.Context, opts Options) (Provider, error) {
	var p Provider
	switch strings.ToLower(opts.Provider) {
	case "", "openai":
		p = NewOpenAI(
			WithOpenAIModel(opts.Model),
			WithOpenAIBaseURL(opts.BaseURL),
			WithOpenAIAPIKey(opts.APIKey),
		)
	case "ollama":
		p = NewOllama(opts.BaseURL, opts.Model)
	case "gemini":
		g, err := NewGemini(ctx, opts.APIKey, opts.Model)
		if err != nil {
			return nil, err
		}
		p = g
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
	return WithLogging(p, opts.Logger), nil
}
