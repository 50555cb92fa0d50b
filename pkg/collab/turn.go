// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package collab

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/colloquy/pkg/citation"
	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/errors"
	"github.com/jllopis/colloquy/pkg/generate"
	"github.com/jllopis/colloquy/pkg/memory"
	"github.com/jllopis/colloquy/pkg/persona"
	"github.com/jllopis/colloquy/pkg/telemetry"
)

// FailureMarker is the content of a turn whose generation failed.
func FailureMarker(displayName, reason string) string {
	return fmt.Sprintf("[generation failed: %s: %s]", displayName, reason)
}

// takeTurn produces one turn. The participant sees only turns and memory
// entries with a smaller sequence index. A generation failure yields a
// degraded turn; an error is returned only when ctx ended mid-turn, in which
// case nothing of the turn is kept.
func (o *Orchestrator) takeTurn(ctx context.Context, log *slog.Logger, s *core.Session, mem *memory.Log, p persona.Participant, seq int, failures []string) (core.Turn, error) {
	ctx, span := o.tracer.Start(ctx, "Collab.Turn",
		trace.WithAttributes(telemetry.TurnAttributes(p.ID, string(p.Kind), seq)...))
	defer span.End()

	log = log.With(slog.String("participant", p.ID), slog.Int("sequence_index", seq))
	ev := core.NewEvent(core.EventTurnStarted, s.ID, o.now(), nil)
	ev.ParticipantID, ev.SequenceIndex = p.ID, seq
	o.emit(ctx, ev)

	prior := (&core.Session{Turns: s.Turns}).Clone().Turns
	entries := mem.Before(seq)
	corpus := o.registry.Corpus(p.ID)
	samples := citation.Relevant(s.Query, corpus, o.samples)
	if p.IsModerator() {
		samples = nil
	}
	failed := append([]string(nil), failures...)

	turn := core.Turn{
		ParticipantID: p.ID,
		DisplayName:   p.DisplayName,
		Kind:          p.Kind,
		SequenceIndex: seq,
		Status:        core.TurnOK,
	}
	start := time.Now()

	prompt, err := p.Render(persona.PromptData{
		Query:      s.Query,
		PriorTurns: formatTurns(prior),
		Memory:     formatMemory(entries),
		Samples:    citation.Samples(samples),
		Failures:   failed,
	})
	if err != nil {
		o.degrade(ctx, log, span, &turn, p, errors.NewGenerationError(p.ID, false, err).
			WithContext("stage", "prompt"))
	} else {
		req := generate.Request{
			Participant:   p,
			Query:         s.Query,
			Prior:         prior,
			Memory:        entries,
			Samples:       samples,
			Prompt:        prompt,
			SequenceIndex: seq,
			Failures:      failed,
		}
		var out generate.Output
		rc := o.retry.WithOnRetry(func(attempt int, err error) {
			o.metrics.RecordRetry(ctx, p.ID)
			log.WarnContext(ctx, "collab.turn.retry",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		})
		turn.Attempts, err = rc.Do(ctx, func(ctx context.Context) error {
			res, err := o.gen.Generate(ctx, req)
			if err != nil {
				return err
			}
			out = res
			return nil
		})
		switch {
		case ctx.Err() != nil:
			span.RecordError(ctx.Err())
			return core.Turn{}, ctx.Err()
		case err != nil:
			o.degrade(ctx, log, span, &turn, p, err)
		default:
			turn.Content = out.Content
			turn.Citations, turn.Warnings = resolveCitations(out, corpus)
			turn.Usage = core.TokenUsage{
				Model:        out.Model,
				InputTokens:  out.Usage.PromptTokens,
				OutputTokens: out.Usage.CompletionTokens,
			}
			span.SetAttributes(telemetry.LLMUsageAttributes(out.Model, out.Usage.PromptTokens, out.Usage.CompletionTokens)...)
			o.metrics.RecordTokens(ctx, p.ID, out.Usage.PromptTokens, out.Usage.CompletionTokens)
		}
	}
	turn.Timestamp = o.now()

	span.SetAttributes(telemetry.TurnResultAttributes(string(turn.Status), turn.Attempts, len(turn.Citations))...)
	o.metrics.RecordTurn(ctx, p.ID, string(turn.Status), len(turn.Citations),
		float64(time.Since(start).Microseconds())/1000)

	ev = core.NewEvent(core.EventTurnCompleted, s.ID, turn.Timestamp, map[string]any{
		"status":    string(turn.Status),
		"citations": len(turn.Citations),
	})
	if turn.Degraded() {
		ev.Type = core.EventTurnDegraded
		ev.Payload["failure"] = turn.Failure
	}
	ev.ParticipantID, ev.SequenceIndex = p.ID, seq
	o.emit(ctx, ev)

	log.DebugContext(ctx, "collab.turn.completed",
		slog.String("status", string(turn.Status)),
		slog.Int("attempts", turn.Attempts),
		slog.Int("citations", len(turn.Citations)),
	)
	return turn, nil
}

func (o *Orchestrator) degrade(ctx context.Context, log *slog.Logger, span trace.Span, turn *core.Turn, p persona.Participant, err error) {
	reason := failureReason(err)
	turn.Status = core.TurnDegraded
	turn.Failure = err.Error()
	turn.Content = FailureMarker(p.DisplayName, reason)
	turn.Citations = nil

	span.RecordError(err)
	span.SetStatus(codes.Error, "generation failed")
	o.metrics.RecordError(ctx, err, "generate")
	log.WarnContext(ctx, "collab.turn.degraded",
		slog.String("error", err.Error()),
		slog.Bool("transient", errors.IsTransient(err)),
		slog.Int("attempts", turn.Attempts),
	)
}

// resolveCitations validates citations attached by the generator or extracts
// them from the content. Parse problems become turn warnings.
func resolveCitations(out generate.Output, corpus []persona.CorpusEntry) ([]citation.Citation, []string) {
	var (
		cites []citation.Citation
		err   error
	)
	if out.Citations != nil {
		cites, err = citation.Validate(out.Citations, corpus)
	} else {
		cites, err = citation.Extract(out.Content, corpus)
	}
	if err != nil {
		return cites, []string{err.Error()}
	}
	return cites, nil
}

// failureReason digs out the innermost cause for the failure marker.
func failureReason(err error) string {
	var ce *errors.ColloquyError
	for stderrors.As(err, &ce) {
		if ce.Err == nil {
			return ce.Message
		}
		err = ce.Err
	}
	return err.Error()
}
