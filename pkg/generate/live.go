// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jllopis/colloquy/pkg/errors"
	"github.com/jllopis/colloquy/pkg/llm"
	"github.com/jllopis/colloquy/pkg/resilience"
)

const defaultTimeout = 30 * time.Second

// Live calls a language model through an llm.Provider. Every call runs under
// a timeout and a circuit breaker shared by all sessions using this value.
type Live struct {
	provider             llm.Provider
	model                string
	temperature          float64
	moderatorTemperature float64
	timeout              time.Duration
	breaker              *resilience.CircuitBreaker
}

// LiveOption configures a Live generator.
type LiveOption func(*Live)

// WithModel overrides the provider's default model.
func WithModel(model string) LiveOption {
	return func(l *Live) { l.model = model }
}

// WithTemperature sets the sampling temperature for personas and moderator.
func WithTemperature(persona, moderator float64) LiveOption {
	return func(l *Live) {
		l.temperature = persona
		l.moderatorTemperature = moderator
	}
}

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) LiveOption {
	return func(l *Live) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithBreaker configures the circuit breaker. Only transient failures trip it.
func WithBreaker(cfg resilience.CircuitBreakerConfig) LiveOption {
	return func(l *Live) {
		if cfg.Name == "" {
			cfg.Name = "llm"
		}
		cfg.ShouldTrip = errors.IsTransient
		l.breaker = resilience.NewCircuitBreaker(cfg)
	}
}

// NewLive creates a live generator.
func NewLive(provider llm.Provider, opts ...LiveOption) *Live {
	l := &Live{
		provider:             provider,
		temperature:          0.7,
		moderatorTemperature: 0.3,
		timeout:              defaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.breaker == nil {
		WithBreaker(resilience.CircuitBreakerConfig{})(l)
	}
	return l
}

// Breaker exposes the breaker for health reporting.
func (l *Live) Breaker() *resilience.CircuitBreaker { return l.breaker }

// Generate implements Generator. The rendered prompt is the system message
// and the query the user message. Citations are left to the extractor.
func (l *Live) Generate(ctx context.Context, req Request) (Output, error) {
	temp := l.temperature
	if req.Participant.IsModerator() {
		temp = l.moderatorTemperature
	}
	chat := llm.ChatRequest{
		Model: l.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: req.Prompt},
			{Role: llm.RoleUser, Content: req.Query},
		},
		Temperature: llm.Temperature(temp),
	}

	var resp *llm.ChatResponse
	err := l.breaker.Call(ctx, func(ctx context.Context) error {
		r, err := resilience.WithTimeout(ctx, l.timeout, func(ctx context.Context) (*llm.ChatResponse, error) {
			return l.provider.Chat(ctx, chat)
		})
		if err != nil {
			return Classify(req.Participant.ID, err)
		}
		if r == nil || strings.TrimSpace(r.Content) == "" {
			return errors.NewGenerationError(req.Participant.ID, false, stderrors.New("empty completion"))
		}
		resp = r
		return nil
	})
	if err != nil {
		if !errors.HasCode(err, errors.CodeGeneration) {
			err = Classify(req.Participant.ID, err)
		} else {
			errors.AsColloquyError(err).WithContext("participant", req.Participant.ID)
		}
		return Output{}, err
	}
	return Output{Content: resp.Content, Model: l.model, Usage: resp.Usage}, nil
}

// Classify maps a provider failure to a transient or permanent generation
// error. Timeouts, rate limiting, server errors and network failures are
// transient; everything else is permanent.
func Classify(participantID string, err error) error {
	if err == nil {
		return nil
	}
	if errors.HasCode(err, errors.CodeGeneration) {
		return err
	}
	return errors.NewGenerationError(participantID, transient(err), err)
}

func transient(err error) bool {
	switch {
	case errors.HasCode(err, errors.CodeTimeout), errors.HasCode(err, errors.CodeRateLimit):
		return true
	case errors.HasCode(err, errors.CodeContextLost), stderrors.Is(err, context.Canceled):
		return false
	case stderrors.Is(err, context.DeadlineExceeded):
		return true
	}
	if code, ok := llm.StatusCode(err); ok {
		return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
	}
	var netErr net.Error
	return stderrors.As(err, &netErr)
}
