// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jllopis/colloquy/pkg/citation"
	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/errors"
	"github.com/jllopis/colloquy/pkg/llm"
	"github.com/jllopis/colloquy/pkg/memory"
	"github.com/jllopis/colloquy/pkg/persona"
	"github.com/jllopis/colloquy/pkg/resilience"
)

func analystRequest() Request {
	r := persona.Default()
	p, _ := r.Get("analyst")
	return Request{
		Participant:   p,
		Query:         "How do movie characters develop through their conversations?",
		Samples:       r.Corpus("analyst"),
		Prompt:        "system prompt",
		SequenceIndex: 1,
	}
}

func TestMockIsDeterministic(t *testing.T) {
	g := NewMock()
	a, err := g.Generate(context.Background(), analystRequest())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	b, _ := g.Generate(context.Background(), analystRequest())
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("mock output differs (-first +second):\n%s", diff)
	}
	want := []citation.Citation{{Work: "10 Things I Hate About You", Entity: "BIANCA", Locator: "L870"}}
	if diff := cmp.Diff(want, a.Citations); diff != "" {
		t.Fatalf("unexpected citations (-want +got):\n%s", diff)
	}
	if !strings.Contains(a.Content, "Analyst") || !strings.Contains(a.Content, "[10 Things I Hate About You, BIANCA, L870]") {
		t.Fatalf("unexpected content %q", a.Content)
	}
}

func TestMockModeratorReferencesContributors(t *testing.T) {
	mod := persona.Default().Moderator()
	cite := citation.Citation{Work: "w", Entity: "e", Locator: "l"}
	out, err := NewMock().Generate(context.Background(), Request{
		Participant: mod,
		Query:       "q",
		Prior: []core.Turn{
			{DisplayName: "Analyst", SequenceIndex: 1, Status: core.TurnOK, Citations: []citation.Citation{cite}},
			{DisplayName: "Mentor", SequenceIndex: 2, Status: core.TurnOK},
			{DisplayName: "Comic", SequenceIndex: 3, Status: core.TurnDegraded},
		},
		Memory: []memory.Entry{
			{ContributorID: "analyst", Citations: []citation.Citation{cite}, SequenceIndex: 1},
			{ContributorID: "mentor", Citations: []citation.Citation{cite}, SequenceIndex: 2},
		},
		Failures: []string{"Comic"},
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	for _, want := range []string{"Analyst (turn 1) drew on [w, e, l]", "Mentor (turn 2)", "Gap: Comic could not contribute."} {
		if !strings.Contains(out.Content, want) {
			t.Errorf("expected %q in %q", want, out.Content)
		}
	}
	if strings.Count(out.Content, "Gap: Comic") != 1 {
		t.Errorf("failure must be reported once: %q", out.Content)
	}
	if len(out.Citations) != 1 {
		t.Errorf("expected deduplicated memory citations, got %v", out.Citations)
	}
}

func TestMockHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMock().Generate(ctx, analystRequest()); err == nil {
		t.Fatalf("expected error on cancelled context")
	}
}

func TestNewSelectsVariant(t *testing.T) {
	g, err := New(Config{Mode: ModeMock}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := g.(*Mock); !ok {
		t.Fatalf("expected mock, got %T", g)
	}
	if _, err := New(Config{Mode: ModeLive}, nil); !errors.HasCode(err, errors.CodeConfiguration) {
		t.Fatalf("expected configuration error without provider, got %v", err)
	}
	if _, err := New(Config{Mode: "psychic"}, nil); !errors.HasCode(err, errors.CodeConfiguration) {
		t.Fatalf("expected configuration error for unknown mode, got %v", err)
	}
	g, err = New(Config{Mode: "LIVE"}, llm.ProviderFunc(func(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Content: "x"}, nil
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := g.(*Live); !ok {
		t.Fatalf("expected live, got %T", g)
	}
}

func TestLiveSendsPromptAndTemperature(t *testing.T) {
	var got []llm.ChatRequest
	provider := llm.ProviderFunc(func(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		got = append(got, req)
		return &llm.ChatResponse{
			Content: "answer [10 Things I Hate About You, BIANCA, L870]",
			Usage:   llm.Usage{PromptTokens: 9, CompletionTokens: 3, TotalTokens: 12},
		}, nil
	})
	g := NewLive(provider, WithModel("gpt-4o-mini"), WithTemperature(0.7, 0.3))

	out, err := g.Generate(context.Background(), analystRequest())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if out.Citations != nil {
		t.Fatalf("live generator must leave citations to the extractor")
	}
	modReq := analystRequest()
	modReq.Participant = persona.Default().Moderator()
	if _, err := g.Generate(context.Background(), modReq); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(got))
	}
	if got[0].Model != "gpt-4o-mini" || *got[0].Temperature != 0.7 || *got[1].Temperature != 0.3 {
		t.Fatalf("unexpected requests %+v", got)
	}
	if out.Model != "gpt-4o-mini" || out.Usage.TotalTokens != 12 {
		t.Fatalf("expected model and usage on the output, got %+v", out)
	}
	if got[0].Messages[0].Role != llm.RoleSystem || got[0].Messages[0].Content != "system prompt" ||
		got[0].Messages[1].Content != analystRequest().Query {
		t.Fatalf("unexpected messages %+v", got[0].Messages)
	}
}

type timeoutNetErr struct{}

func (timeoutNetErr) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutNetErr) Timeout() bool   { return true }
func (timeoutNetErr) Temporary() bool { return true }

var _ net.Error = timeoutNetErr{}

func TestLiveClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		content   string
		transient bool
	}{
		{"rate limited", &llm.StatusError{Provider: "openai", StatusCode: 429}, "", true},
		{"server error", fmt.Errorf("wrap: %w", &llm.StatusError{Provider: "ollama", StatusCode: 503}), "", true},
		{"bad request", &llm.StatusError{Provider: "openai", StatusCode: 400}, "", false},
		{"unauthorized", &llm.StatusError{Provider: "gemini", StatusCode: 401}, "", false},
		{"network", fmt.Errorf("openai chat completion failed: %w", timeoutNetErr{}), "", true},
		{"deadline", context.DeadlineExceeded, "", true},
		{"unknown", stderrors.New("decode failure"), "", false},
		{"empty completion", nil, "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := llm.ProviderFunc(func(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return &llm.ChatResponse{Content: tt.content}, nil
			})
			_, err := NewLive(provider).Generate(context.Background(), analystRequest())
			if !errors.HasCode(err, errors.CodeGeneration) {
				t.Fatalf("expected generation error, got %v", err)
			}
			if got := errors.IsTransient(err); got != tt.transient {
				t.Fatalf("expected transient=%v, got %v (%v)", tt.transient, got, err)
			}
			if errors.AsColloquyError(err).Context["participant"] != "analyst" {
				t.Fatalf("expected participant context, got %v", errors.AsColloquyError(err).Context)
			}
		})
	}
}

func TestLiveTimeoutIsTransient(t *testing.T) {
	provider := llm.ProviderFunc(func(ctx context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	g := NewLive(provider, WithTimeout(10*time.Millisecond))
	_, err := g.Generate(context.Background(), analystRequest())
	if !errors.HasCode(err, errors.CodeGeneration) || !errors.IsTransient(err) {
		t.Fatalf("expected transient generation error, got %v", err)
	}
}

func TestLiveBreakerOpensOnTransientFailures(t *testing.T) {
	calls := 0
	provider := llm.ProviderFunc(func(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
		calls++
		return nil, &llm.StatusError{Provider: "openai", StatusCode: 502}
	})
	g := NewLive(provider, WithBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 2, Timeout: time.Hour}))
	for i := 0; i < 2; i++ {
		_, _ = g.Generate(context.Background(), analystRequest())
	}
	if g.Breaker().State() != resilience.StateOpen {
		t.Fatalf("expected open breaker, got %s", g.Breaker().State())
	}
	_, err := g.Generate(context.Background(), analystRequest())
	if calls != 2 {
		t.Fatalf("open breaker must not call the provider, calls=%d", calls)
	}
	if !errors.IsTransient(err) {
		t.Fatalf("open breaker must be transient, got %v", err)
	}
}

func TestLiveBreakerIgnoresPermanentFailures(t *testing.T) {
	provider := llm.ProviderFunc(func(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
		return nil, &llm.StatusError{Provider: "openai", StatusCode: 400}
	})
	g := NewLive(provider, WithBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 1}))
	for i := 0; i < 3; i++ {
		_, _ = g.Generate(context.Background(), analystRequest())
	}
	if g.Breaker().State() != resilience.StateClosed {
		t.Fatalf("permanent failures must not open the breaker")
	}
}

func TestLiveSendsZeroTemperature(t *testing.T) {
	var got *float64
	provider := llm.ProviderFunc(func(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		got = req.Temperature
		return &llm.ChatResponse{Content: "deterministic"}, nil
	})
	if _, err := NewLive(provider, WithTemperature(0, 0)).Generate(context.Background(), analystRequest()); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if got == nil || *got != 0 {
		t.Fatalf("expected an explicit zero temperature, got %v", got)
	}
}
