// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package collab

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/jllopis/colloquy/pkg/citation"
	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/errors"
	"github.com/jllopis/colloquy/pkg/generate"
	"github.com/jllopis/colloquy/pkg/llm"
	"github.com/jllopis/colloquy/pkg/persona"
	"github.com/jllopis/colloquy/pkg/resilience"
	"github.com/jllopis/colloquy/pkg/telemetry"
)

const scenarioQuery = "How do movie characters develop through their conversations?"

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fastRetry() resilience.RetryConfig {
	return resilience.DefaultRetryConfig().
		WithInitialDelay(time.Millisecond).
		WithMaxDelay(2 * time.Millisecond)
}

func newOrchestrator(t *testing.T, gen generate.Generator, opts ...Option) *Orchestrator {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time { return fixedTime }),
		WithIDGenerator(func() string { return "session-1" }),
		WithLogger(telemetry.Discard()),
		WithRetry(fastRetry()),
	}
	o, err := New(persona.Default(), gen, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return o
}

// capture records every request a generator receives.
type capture struct {
	next generate.Generator
	mu   sync.Mutex
	reqs []generate.Request
}

func (c *capture) Generate(ctx context.Context, req generate.Request) (generate.Output, error) {
	c.mu.Lock()
	c.reqs = append(c.reqs, req)
	c.mu.Unlock()
	return c.next.Generate(ctx, req)
}

func TestConcreteScenario(t *testing.T) {
	o := newOrchestrator(t, generate.NewMock())
	s, err := o.Run(context.Background(), scenarioQuery)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if s.State != core.StateDone {
		t.Fatalf("expected DONE, got %s", s.State)
	}
	if len(s.Turns) != 4 || len(s.Memory) != 3 {
		t.Fatalf("expected 4 turns and 3 memory entries, got %d and %d", len(s.Turns), len(s.Memory))
	}

	const work = "10 Things I Hate About You"
	want := []struct {
		name string
		cite citation.Citation
	}{
		{"Analyst", citation.Citation{Work: work, Entity: "BIANCA", Locator: "L870"}},
		{"Mentor", citation.Citation{Work: work, Entity: "BIANCA", Locator: "L872"}},
		{"Comic", citation.Citation{Work: work, Entity: "BIANCA", Locator: "L869"}},
	}
	for i, w := range want {
		turn := s.Turns[i]
		if turn.DisplayName != w.name {
			t.Errorf("turn %d: expected %s, got %s", i, w.name, turn.DisplayName)
		}
		if diff := cmp.Diff([]citation.Citation{w.cite}, turn.Citations); diff != "" {
			t.Errorf("turn %d citations (-want +got):\n%s", i, diff)
		}
		if !strings.Contains(turn.Content, w.cite.String()) {
			t.Errorf("turn %d content lacks %s: %q", i, w.cite, turn.Content)
		}
		if len(turn.Warnings) != 0 {
			t.Errorf("turn %d: unexpected warnings %v", i, turn.Warnings)
		}
	}

	mod := s.Turns[3]
	if mod.Kind != persona.KindModerator || mod.SequenceIndex != 4 {
		t.Fatalf("expected moderator last with index 4, got %+v", mod)
	}
	if !s.ModeratorGrounded || s.ModeratorSummary != mod.Content {
		t.Fatalf("expected grounded moderator summary, got %q", s.ModeratorSummary)
	}
	mentions := 0
	for _, w := range want {
		if strings.Contains(mod.Content, w.name) {
			mentions++
		}
	}
	if mentions == 0 {
		t.Fatalf("moderator must reference a prior contribution: %q", mod.Content)
	}
}

func TestDeterministicUnderMock(t *testing.T) {
	o := newOrchestrator(t, generate.NewMock())
	a, err := o.Run(context.Background(), scenarioQuery)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	b, err := o.Run(context.Background(), scenarioQuery)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("sessions differ (-first +second):\n%s", diff)
	}
}

func TestOrderingAndAttribution(t *testing.T) {
	o := newOrchestrator(t, generate.NewMock())
	s, err := o.Run(context.Background(), "What makes a good movie dialogue?")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for i := 1; i < len(s.Turns); i++ {
		if s.Turns[i].SequenceIndex <= s.Turns[i-1].SequenceIndex {
			t.Fatalf("sequence not strictly increasing at %d", i)
		}
	}
	last := s.Turns[len(s.Turns)-1]
	for _, turn := range s.Turns[:len(s.Turns)-1] {
		if turn.SequenceIndex >= last.SequenceIndex {
			t.Fatalf("moderator must hold the highest index")
		}
	}
	for i, e := range s.Memory {
		turn := s.Turns[i]
		if e.ContributorID != turn.ParticipantID || e.SequenceIndex != turn.SequenceIndex {
			t.Fatalf("memory entry %d attributed to %s/%d, turn is %s/%d",
				i, e.ContributorID, e.SequenceIndex, turn.ParticipantID, turn.SequenceIndex)
		}
		if e.Content != turn.Content {
			t.Fatalf("memory entry %d content differs from its turn", i)
		}
	}
}

func TestCausality(t *testing.T) {
	c := &capture{next: generate.NewMock()}
	o := newOrchestrator(t, c)
	if _, err := o.Run(context.Background(), scenarioQuery); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(c.reqs) != 4 {
		t.Fatalf("expected 4 generation requests, got %d", len(c.reqs))
	}
	for _, req := range c.reqs {
		if len(req.Prior) != req.SequenceIndex-1 || len(req.Memory) != req.SequenceIndex-1 {
			t.Errorf("turn %d saw %d turns and %d entries", req.SequenceIndex, len(req.Prior), len(req.Memory))
		}
		for _, p := range req.Prior {
			if p.SequenceIndex >= req.SequenceIndex {
				t.Errorf("turn %d saw later turn %d", req.SequenceIndex, p.SequenceIndex)
			}
		}
		for _, e := range req.Memory {
			if e.SequenceIndex >= req.SequenceIndex {
				t.Errorf("turn %d saw later memory %d", req.SequenceIndex, e.SequenceIndex)
			}
		}
	}
	mod := c.reqs[3]
	if !mod.Participant.IsModerator() || len(mod.Memory) != 3 {
		t.Fatalf("moderator must read the complete memory log, got %d entries", len(mod.Memory))
	}
	if !strings.Contains(mod.Prompt, "Analyst") || !strings.Contains(mod.Prompt, "[1] analyst") {
		t.Fatalf("moderator prompt lacks the transcript:\n%s", mod.Prompt)
	}
}

func failFor(id string, err error, next generate.Generator) generate.Generator {
	return generate.Func(func(ctx context.Context, req generate.Request) (generate.Output, error) {
		if req.Participant.ID == id {
			return generate.Output{}, err
		}
		return next.Generate(ctx, req)
	})
}

func TestPermanentFailureDegradesTurn(t *testing.T) {
	cause := errors.NewGenerationError("mentor", false, stderrors.New("prompt rejected"))
	c := &capture{next: failFor("mentor", cause, generate.NewMock())}
	o := newOrchestrator(t, c)

	s, err := o.Run(context.Background(), scenarioQuery)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if s.State != core.StateDone || len(s.Turns) != 4 {
		t.Fatalf("expected completed session with 4 turns, got %s/%d", s.State, len(s.Turns))
	}
	mentor := s.Turns[1]
	if !mentor.Degraded() || mentor.Attempts != 1 {
		t.Fatalf("expected degraded mentor turn after one attempt, got %+v", mentor)
	}
	if mentor.Content != "[generation failed: Mentor: prompt rejected]" {
		t.Fatalf("unexpected failure marker %q", mentor.Content)
	}
	if !s.Memory[1].Degraded || s.Memory[1].ContributorID != "mentor" {
		t.Fatalf("expected degraded memory entry for mentor, got %+v", s.Memory[1])
	}
	if got := s.DegradedTurns(); len(got) != 1 {
		t.Fatalf("expected exactly one degraded turn, got %d", len(got))
	}

	comic := c.reqs[2]
	if diff := cmp.Diff([]string{"Mentor"}, comic.Failures); diff != "" {
		t.Fatalf("later participants must learn about the failure (-want +got):\n%s", diff)
	}
	mod, _ := s.ModeratorTurn()
	if !strings.Contains(mod.Content, "Mentor could not contribute") {
		t.Fatalf("moderator must reference the failure: %q", mod.Content)
	}
	if !strings.Contains(c.reqs[3].Prompt, "Mentor") {
		t.Fatalf("moderator prompt must name the failed participant")
	}
}

func TestTransientFailureIsRetried(t *testing.T) {
	calls := 0
	flaky := generate.Func(func(ctx context.Context, req generate.Request) (generate.Output, error) {
		if req.Participant.ID == "analyst" {
			calls++
			if calls < 3 {
				return generate.Output{}, errors.NewGenerationError("analyst", true, stderrors.New("503"))
			}
		}
		return generate.NewMock().Generate(ctx, req)
	})
	o := newOrchestrator(t, flaky)
	s, err := o.Run(context.Background(), scenarioQuery)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if s.Turns[0].Degraded() || s.Turns[0].Attempts != 3 {
		t.Fatalf("expected success on third attempt, got %+v", s.Turns[0])
	}
}

func TestExhaustedRetriesDegrade(t *testing.T) {
	gen := failFor("comic", errors.NewGenerationError("comic", true, stderrors.New("rate limited")), generate.NewMock())
	o := newOrchestrator(t, gen, WithRetry(fastRetry().WithMaxAttempts(2)))
	s, err := o.Run(context.Background(), scenarioQuery)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	comic := s.Turns[2]
	if !comic.Degraded() || comic.Attempts != 2 {
		t.Fatalf("expected degraded comic after 2 attempts, got %+v", comic)
	}
	if !strings.Contains(comic.Content, "rate limited") {
		t.Fatalf("marker must carry the reason: %q", comic.Content)
	}
}

func TestUnparseablePromptDegrades(t *testing.T) {
	ps := persona.DefaultParticipants()
	ps[0].PromptTemplate = "{{.Query}} {{index .Failures 5}}"
	reg, err := persona.NewRegistry(ps, persona.DefaultCorpus())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	o, err := New(reg, generate.NewMock(), WithLogger(telemetry.Discard()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s, err := o.Run(context.Background(), scenarioQuery)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !s.Turns[0].Degraded() || s.Turns[0].Attempts != 0 {
		t.Fatalf("expected render failure to degrade the turn, got %+v", s.Turns[0])
	}
	if s.State != core.StateDone {
		t.Fatalf("expected DONE, got %s", s.State)
	}
}

func TestCancellationBetweenTurns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	em := core.EventEmitterFunc(func(_ context.Context, ev core.Event) {
		if ev.Type == core.EventTurnCompleted && ev.ParticipantID == "analyst" {
			cancel()
		}
	})
	o := newOrchestrator(t, generate.NewMock(), WithEmitter(em))
	s, err := o.Run(ctx, scenarioQuery)
	if !errors.HasCode(err, errors.CodeContextLost) {
		t.Fatalf("expected CONTEXT_LOST, got %v", err)
	}
	if s == nil || s.State != core.StateError {
		t.Fatalf("expected partial session in ERROR state, got %+v", s)
	}
	if len(s.Turns) != 1 || len(s.Memory) != 1 {
		t.Fatalf("expected the completed turn and its memory entry, got %d/%d", len(s.Turns), len(s.Memory))
	}
	if s.Err == "" || s.ModeratorSummary != "" {
		t.Fatalf("expected error recorded and no summary, got %+v", s)
	}
}

func TestCancellationDuringGenerationKeepsMemoryConsistent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := generate.Func(func(ctx context.Context, req generate.Request) (generate.Output, error) {
		if req.Participant.ID == "mentor" {
			cancel()
			<-ctx.Done()
			return generate.Output{}, ctx.Err()
		}
		return generate.NewMock().Generate(ctx, req)
	})
	o := newOrchestrator(t, gen)
	s, err := o.Run(ctx, scenarioQuery)
	if err == nil || s.State != core.StateError {
		t.Fatalf("expected aborted session, got %v", err)
	}
	if len(s.Turns) != 1 || len(s.Memory) != 1 {
		t.Fatalf("interrupted turn must leave no trace, got %d turns and %d entries", len(s.Turns), len(s.Memory))
	}
}

func TestEmptyQuery(t *testing.T) {
	o := newOrchestrator(t, generate.NewMock())
	s, err := o.Run(context.Background(), "   ")
	if !errors.HasCode(err, errors.CodeInvalidInput) || s != nil {
		t.Fatalf("expected invalid input before any turn, got %v %v", s, err)
	}
}

func TestEmptyRegistry(t *testing.T) {
	reg, err := persona.NewRegistry(nil, nil)
	if !errors.HasCode(err, errors.CodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := New(reg, generate.NewMock()); !errors.HasCode(err, errors.CodeConfiguration) {
		t.Fatalf("expected configuration error from New, got %v", err)
	}
	if _, err := New(persona.Default(), nil); !errors.HasCode(err, errors.CodeConfiguration) {
		t.Fatalf("expected configuration error without generator, got %v", err)
	}
	if _, err := New(persona.Default(), generate.NewMock(), WithRetry(resilience.RetryConfig{})); !errors.HasCode(err, errors.CodeConfiguration) {
		t.Fatalf("expected configuration error for zero retry attempts, got %v", err)
	}
}

func TestUngroundedModeratorIsFlagged(t *testing.T) {
	gen := generate.Func(func(ctx context.Context, req generate.Request) (generate.Output, error) {
		if req.Participant.IsModerator() {
			return generate.Output{Content: "Nothing to add."}, nil
		}
		return generate.NewMock().Generate(ctx, req)
	})
	o := newOrchestrator(t, gen)
	s, err := o.Run(context.Background(), scenarioQuery)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if s.State != core.StateDone || s.ModeratorGrounded {
		t.Fatalf("expected completed but ungrounded session, got %s grounded=%v", s.State, s.ModeratorGrounded)
	}
	mod, _ := s.ModeratorTurn()
	if len(mod.Warnings) == 0 {
		t.Fatalf("expected warning on moderator turn")
	}
}

func TestLiveGeneratorCitationsAreExtracted(t *testing.T) {
	provider := llm.ProviderFunc(func(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		if strings.Contains(req.Messages[0].Content, "You are the Comic") {
			return &llm.ChatResponse{Content: "No sources, just vibes."}, nil
		}
		return &llm.ChatResponse{Content: "See [10 Things I Hate About You, BIANCA, L870] and [Casablanca, RICK, L1]."}, nil
	})
	o := newOrchestrator(t, generate.NewLive(provider))
	s, err := o.Run(context.Background(), scenarioQuery)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	analyst := s.Turns[0]
	want := []citation.Citation{{Work: "10 Things I Hate About You", Entity: "BIANCA", Locator: "L870"}}
	if diff := cmp.Diff(want, analyst.Citations); diff != "" {
		t.Fatalf("analyst citations (-want +got):\n%s", diff)
	}
	if len(analyst.Warnings) != 1 {
		t.Fatalf("expected a warning for the fabricated citation, got %v", analyst.Warnings)
	}
	mentor := s.Turns[1]
	if len(mentor.Citations) != 1 || len(mentor.Warnings) != 1 {
		t.Fatalf("citations are matched on work and entity, got %+v", mentor)
	}
	comic := s.Turns[2]
	if comic.Degraded() || len(comic.Citations) != 0 || len(comic.Warnings) != 1 {
		t.Fatalf("missing citations must only warn, got %+v", comic)
	}
}

func TestTurnsCarryTokenUsage(t *testing.T) {
	provider := llm.ProviderFunc(func(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{
			Content: "Analyst, Mentor and Comic agree [10 Things I Hate About You, BIANCA, L870].",
			Usage:   llm.Usage{PromptTokens: 40, CompletionTokens: 10, TotalTokens: 50},
		}, nil
	})
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := telemetry.NewCollabMetricsWithMeter(mp.Meter("test"))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	o := newOrchestrator(t, generate.NewLive(provider, generate.WithModel("gpt-4o-mini")),
		WithTracer(tp.Tracer("test")), WithMetrics(metrics))
	s, err := o.Run(context.Background(), scenarioQuery)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := core.TokenUsage{Model: "gpt-4o-mini", InputTokens: 40, OutputTokens: 10}
	for _, turn := range s.Turns {
		if diff := cmp.Diff(want, turn.Usage); diff != "" {
			t.Fatalf("%s usage (-want +got):\n%s", turn.ParticipantID, diff)
		}
	}

	turnSpans := 0
	for _, sp := range spans.Ended() {
		if sp.Name() != "Collab.Turn" {
			continue
		}
		turnSpans++
		var total int64
		for _, kv := range sp.Attributes() {
			if kv.Key == attribute.Key(telemetry.AttrLLMTokensTotal) {
				total = kv.Value.AsInt64()
			}
		}
		if total != 50 {
			t.Fatalf("expected token total on turn span, got %v", sp.Attributes())
		}
	}
	if turnSpans != 4 {
		t.Fatalf("expected 4 turn spans, got %d", turnSpans)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var tokens int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "colloquy.generation.tokens" {
				for _, dp := range sum.DataPoints {
					tokens += dp.Value
				}
			}
		}
	}
	if tokens != 4*50 {
		t.Fatalf("expected %d tokens recorded, got %d", 4*50, tokens)
	}
}

func TestEventsFollowLifecycle(t *testing.T) {
	var mu sync.Mutex
	var got []string
	em := core.EventEmitterFunc(func(_ context.Context, ev core.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, fmt.Sprintf("%s:%s", ev.Type, ev.ParticipantID))
	})
	o := newOrchestrator(t, generate.NewMock(), WithEmitter(em))
	if _, err := o.Run(context.Background(), scenarioQuery); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := []string{
		"session.started:",
		"turn.started:analyst", "turn.completed:analyst", "memory.appended:analyst",
		"turn.started:mentor", "turn.completed:mentor", "memory.appended:mentor",
		"turn.started:comic", "turn.completed:comic", "memory.appended:comic",
		"turn.started:moderator", "turn.completed:moderator",
		"session.completed:",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
}
