// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jllopis/colloquy/pkg/errors"
)

// CollabMetrics counts sessions, turns, retries and citations. A nil
// *CollabMetrics is valid and records nothing.
type CollabMetrics struct {
	sessions   metric.Int64Counter
	turns      metric.Int64Counter
	retries    metric.Int64Counter
	citations  metric.Int64Counter
	errors     metric.Int64Counter
	tokens     metric.Int64Counter
	generation metric.Float64Histogram
}

// NewCollabMetrics creates the instruments on the global meter provider.
func NewCollabMetrics() (*CollabMetrics, error) {
	return NewCollabMetricsWithMeter(otel.Meter(InstrumentationName))
}

// NewCollabMetricsWithMeter creates the instruments on meter.
func NewCollabMetricsWithMeter(meter metric.Meter) (*CollabMetrics, error) {
	var (
		m   CollabMetrics
		err error
	)
	if m.sessions, err = meter.Int64Counter(
		"colloquy.sessions.total",
		metric.WithDescription("Collaboration sessions by final state"),
	); err != nil {
		return nil, err
	}
	if m.turns, err = meter.Int64Counter(
		"colloquy.turns.total",
		metric.WithDescription("Turns by participant and status"),
	); err != nil {
		return nil, err
	}
	if m.retries, err = meter.Int64Counter(
		"colloquy.generation.retries",
		metric.WithDescription("Generation retries after transient failures"),
	); err != nil {
		return nil, err
	}
	if m.citations, err = meter.Int64Counter(
		"colloquy.citations.total",
		metric.WithDescription("Citations attached to turns"),
	); err != nil {
		return nil, err
	}
	if m.errors, err = meter.Int64Counter(
		"colloquy.errors.total",
		metric.WithDescription("Errors by code and component"),
	); err != nil {
		return nil, err
	}
	if m.tokens, err = meter.Int64Counter(
		"colloquy.generation.tokens",
		metric.WithDescription("Model tokens consumed by participant and token type"),
	); err != nil {
		return nil, err
	}
	if m.generation, err = meter.Float64Histogram(
		"colloquy.generation.duration_ms",
		metric.WithDescription("Time spent generating a turn, retries included"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordSession counts a finished session.
func (m *CollabMetrics) RecordSession(ctx context.Context, state string) {
	if m == nil {
		return
	}
	m.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrSessionState, state)))
}

// RecordTurn counts a finished turn and its citations.
func (m *CollabMetrics) RecordTurn(ctx context.Context, participantID, status string, citations int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrParticipantID, participantID),
		attribute.String(AttrTurnStatus, status),
	)
	m.turns.Add(ctx, 1, attrs)
	m.generation.Record(ctx, durationMs, attrs)
	if citations > 0 {
		m.citations.Add(ctx, int64(citations),
			metric.WithAttributes(attribute.String(AttrParticipantID, participantID)))
	}
}

// RecordTokens adds the model tokens one turn consumed. Zero counts are
// skipped.
func (m *CollabMetrics) RecordTokens(ctx context.Context, participantID string, input, output int) {
	if m == nil {
		return
	}
	for _, c := range []struct {
		kind string
		n    int
	}{{"input", input}, {"output", output}} {
		if c.n <= 0 {
			continue
		}
		m.tokens.Add(ctx, int64(c.n), metric.WithAttributes(
			attribute.String(AttrParticipantID, participantID),
			attribute.String(AttrLLMTokenType, c.kind),
		))
	}
}

// RecordRetry counts one retry of a participant's generation.
func (m *CollabMetrics) RecordRetry(ctx context.Context, participantID string) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrParticipantID, participantID)))
}

// RecordError counts an error by code, component and recoverability.
func (m *CollabMetrics) RecordError(ctx context.Context, err error, component string) {
	if m == nil || err == nil {
		return
	}
	code, recoverable := "UNKNOWN", "unknown"
	if ce := errors.AsColloquyError(err); ce != nil && ce.Code != errors.CodeInternal {
		code, recoverable = string(ce.Code), ce.RecoverableString()
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrErrorCode, code),
		attribute.String(AttrComponent, component),
		attribute.String(AttrErrorRecoverable, recoverable),
	))
}
