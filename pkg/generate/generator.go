// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package generate produces participant content, either deterministically
// from canned text or by calling a live language model.
package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jllopis/colloquy/pkg/citation"
	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/errors"
	"github.com/jllopis/colloquy/pkg/llm"
	"github.com/jllopis/colloquy/pkg/memory"
	"github.com/jllopis/colloquy/pkg/persona"
	"github.com/jllopis/colloquy/pkg/resilience"
)

// Mode selects the generator variant.
type Mode string

const (
	ModeMock Mode = "mock"
	ModeLive Mode = "live"
)

// Request is everything a participant may see when it speaks. Prior and
// Memory only hold turns and entries with a smaller sequence index.
type Request struct {
	Participant   persona.Participant
	Query         string
	Prior         []core.Turn
	Memory        []memory.Entry
	Samples       []persona.CorpusEntry
	Prompt        string
	SequenceIndex int
	Failures      []string
}

// Output is a generated contribution. Citations are set only when the
// generator attaches them itself; otherwise they are extracted from Content.
type Output struct {
	Content   string
	Citations []citation.Citation
	Model     string
	Usage     llm.Usage
}

// Generator produces the content of one turn.
type Generator interface {
	Generate(ctx context.Context, req Request) (Output, error)
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, req Request) (Output, error)

// Generate implements Generator.
func (f Func) Generate(ctx context.Context, req Request) (Output, error) { return f(ctx, req) }

// Config configures generator construction.
type Config struct {
	Mode                 Mode
	Model                string
	Temperature          float64
	ModeratorTemperature float64
	Timeout              time.Duration
	Breaker              resilience.CircuitBreakerConfig
}

// New picks the generator variant once. Live mode needs a provider.
func New(cfg Config, provider llm.Provider) (Generator, error) {
	switch Mode(strings.ToLower(string(cfg.Mode))) {
	case "", ModeMock:
		return NewMock(), nil
	case ModeLive:
		if provider == nil {
			return nil, errors.NewConfigurationError("live generation needs an llm provider", nil)
		}
		return NewLive(provider,
			WithModel(cfg.Model),
			WithTemperature(cfg.Temperature, cfg.ModeratorTemperature),
			WithTimeout(cfg.Timeout),
			WithBreaker(cfg.Breaker),
		), nil
	default:
		return nil, errors.NewConfigurationError(fmt.Sprintf("unknown generation mode %q", cfg.Mode), nil)
	}
}
