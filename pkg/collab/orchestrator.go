// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package collab drives a collaboration session: every persona speaks once in
// registry order, each contribution is recorded in the shared memory log, and
// the moderator closes the session with a synthesis.
package collab

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/errors"
	"github.com/jllopis/colloquy/pkg/generate"
	"github.com/jllopis/colloquy/pkg/memory"
	"github.com/jllopis/colloquy/pkg/persona"
	"github.com/jllopis/colloquy/pkg/resilience"
	"github.com/jllopis/colloquy/pkg/telemetry"
)

const defaultSamples = 2

// Orchestrator runs collaboration sessions. It holds no per-session state,
// so one value can serve concurrent sessions.
type Orchestrator struct {
	registry *persona.Registry
	gen      generate.Generator
	retry    resilience.RetryConfig
	now      func() time.Time
	newID    func() string
	log      *slog.Logger
	emitter  core.EventEmitter
	metrics  *telemetry.CollabMetrics
	tracer   trace.Tracer
	samples  int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithRetry sets the retry policy applied to transient generation failures.
func WithRetry(rc resilience.RetryConfig) Option {
	return func(o *Orchestrator) error {
		if rc.MaxAttempts < 1 {
			return errors.NewConfigurationError("retry max attempts must be at least 1", nil)
		}
		o.retry = rc
		return nil
	}
}

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) error {
		if now == nil {
			return errors.NewConfigurationError("clock is nil", nil)
		}
		o.now = now
		return nil
	}
}

// WithIDGenerator sets the session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) error {
		if fn == nil {
			return errors.NewConfigurationError("id generator is nil", nil)
		}
		o.newID = fn
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if log != nil {
			o.log = log
		}
		return nil
	}
}

// WithEmitter sets the lifecycle event sink.
func WithEmitter(em core.EventEmitter) Option {
	return func(o *Orchestrator) error {
		if em != nil {
			o.emitter = em
		}
		return nil
	}
}

// WithMetrics enables metric recording.
func WithMetrics(m *telemetry.CollabMetrics) Option {
	return func(o *Orchestrator) error {
		o.metrics = m
		return nil
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tr trace.Tracer) Option {
	return func(o *Orchestrator) error {
		if tr != nil {
			o.tracer = tr
		}
		return nil
	}
}

// WithSamples sets how many corpus samples each prompt receives.
func WithSamples(n int) Option {
	return func(o *Orchestrator) error {
		if n < 1 {
			return errors.NewConfigurationError("samples must be at least 1", nil)
		}
		o.samples = n
		return nil
	}
}

// New creates an orchestrator over a validated registry and a generator.
func New(registry *persona.Registry, gen generate.Generator, opts ...Option) (*Orchestrator, error) {
	if registry == nil || len(registry.Personas()) == 0 {
		return nil, errors.NewConfigurationError("persona registry is empty", nil)
	}
	if gen == nil {
		return nil, errors.NewConfigurationError("response generator is required", nil)
	}
	o := &Orchestrator{
		registry: registry,
		gen:      gen,
		retry:    resilience.DefaultRetryConfig(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		log:      slog.Default(),
		emitter:  core.NoopEventEmitter{},
		tracer:   otel.Tracer(telemetry.InstrumentationName),
		samples:  defaultSamples,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Registry returns the participants this orchestrator runs.
func (o *Orchestrator) Registry() *persona.Registry { return o.registry }

// Run executes one session for query. Per-turn failures never abort the
// session; they surface as degraded turns. Run only fails for an empty query
// or when ctx ends, in which case the partial session is returned in the
// ERROR state alongside the error.
func (o *Orchestrator) Run(ctx context.Context, query string) (*core.Session, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.NewInvalidInputError("query is empty")
	}

	s := &core.Session{
		ID:        o.newID(),
		Query:     query,
		State:     core.StateInit,
		StartedAt: o.now(),
	}
	ctx = core.WithSessionID(ctx, s.ID)
	ctx, span := o.tracer.Start(ctx, "Collab.Session",
		trace.WithAttributes(telemetry.SessionAttributes(s.ID, query)...))
	defer span.End()

	log := o.log.With(slog.String("session_id", s.ID))
	log.InfoContext(ctx, "collab.session.started", slog.Int("personas", len(o.registry.Personas())))
	o.emit(ctx, core.NewEvent(core.EventSessionStarted, s.ID, s.StartedAt, map[string]any{"query": query}))

	mem := memory.NewLog()
	var failures []string
	seq := 0

	for _, p := range o.registry.Personas() {
		if err := ctx.Err(); err != nil {
			return o.abort(ctx, span, log, s, mem, err)
		}
		s.State = core.StateParticipantTurn
		seq++
		turn, err := o.takeTurn(ctx, log, s, mem, p, seq, failures)
		if err != nil {
			return o.abort(ctx, span, log, s, mem, err)
		}
		s.Turns = append(s.Turns, turn)

		entry := memory.Entry{
			ContributorID: turn.ParticipantID,
			Content:       turn.Content,
			Citations:     turn.Citations,
			SequenceIndex: turn.SequenceIndex,
			Timestamp:     turn.Timestamp,
			Degraded:      turn.Degraded(),
		}
		if err := mem.Append(entry); err != nil {
			return o.abort(ctx, span, log, s, mem, err)
		}
		ev := core.NewEvent(core.EventMemoryAppended, s.ID, entry.Timestamp, nil)
		ev.ParticipantID, ev.SequenceIndex = entry.ContributorID, entry.SequenceIndex
		o.emit(ctx, ev)

		if turn.Degraded() {
			failures = append(failures, p.DisplayName)
		}
	}

	if err := ctx.Err(); err != nil {
		return o.abort(ctx, span, log, s, mem, err)
	}
	s.State = core.StateModeratorTurn
	seq++
	mod := o.registry.Moderator()
	turn, err := o.takeTurn(ctx, log, s, mem, mod, seq, failures)
	if err != nil {
		return o.abort(ctx, span, log, s, mem, err)
	}

	s.Memory = mem.Snapshot()
	s.ModeratorGrounded = Grounded(turn.Content, s.Turns, s.Memory)
	if !s.ModeratorGrounded {
		turn.Warnings = append(turn.Warnings, "moderator summary does not reference any contribution")
		log.WarnContext(ctx, "collab.moderator.ungrounded", slog.Int("sequence_index", turn.SequenceIndex))
	}
	s.Turns = append(s.Turns, turn)
	s.ModeratorSummary = turn.Content
	s.State = core.StateDone
	s.CompletedAt = o.now()

	o.metrics.RecordSession(ctx, string(s.State))
	log.InfoContext(ctx, "collab.session.completed",
		slog.Int("turns", len(s.Turns)),
		slog.Int("degraded", len(failures)),
		slog.Bool("moderator_grounded", s.ModeratorGrounded),
	)
	o.emit(ctx, core.NewEvent(core.EventSessionCompleted, s.ID, s.CompletedAt, map[string]any{
		"turns":    len(s.Turns),
		"degraded": len(failures),
	}))
	return s, nil
}

// abort moves the session to ERROR. Turns and memory written so far are kept.
func (o *Orchestrator) abort(ctx context.Context, span trace.Span, log *slog.Logger, s *core.Session, mem *memory.Log, cause error) (*core.Session, error) {
	err := cause
	if ce := errors.AsColloquyError(cause); ce.Code == errors.CodeInternal {
		if ctx.Err() != nil {
			err = errors.New(errors.CodeContextLost, "session aborted", cause).
				WithContext("session_id", s.ID).
				WithContext("turns", len(s.Turns))
		}
	}
	s.State = core.StateError
	s.Memory = mem.Snapshot()
	s.Err = err.Error()
	s.CompletedAt = o.now()

	span.RecordError(err)
	span.SetStatus(codes.Error, "session aborted")
	o.metrics.RecordSession(ctx, string(s.State))
	o.metrics.RecordError(ctx, err, "collab")
	log.ErrorContext(ctx, "collab.session.aborted",
		slog.String("error", err.Error()),
		slog.Int("turns", len(s.Turns)),
	)
	o.emit(ctx, core.NewEvent(core.EventSessionFailed, s.ID, s.CompletedAt, map[string]any{"error": err.Error()}))
	return s, err
}

func (o *Orchestrator) emit(ctx context.Context, ev core.Event) {
	o.emitter.Emit(context.WithoutCancel(ctx), ev)
}
