// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"time"
)

// EventType identifies a session lifecycle event.
type EventType string

const (
	EventSessionStarted   EventType = "session.started"
	EventTurnStarted      EventType = "turn.started"
	EventTurnCompleted    EventType = "turn.completed"
	EventTurnDegraded     EventType = "turn.degraded"
	EventMemoryAppended   EventType = "memory.appended"
	EventSessionCompleted EventType = "session.completed"
	EventSessionFailed    EventType = "session.failed"
)

// Event captures a lifecycle event of a session.
type Event struct {
	Type          EventType      `json:"type"`
	SessionID     string         `json:"session_id"`
	ParticipantID string         `json:"participant_id,omitempty"`
	SequenceIndex int            `json:"sequence_index,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// EventEmitter receives lifecycle events.
type EventEmitter interface {
	Emit(ctx context.Context, event Event)
}

// NoopEventEmitter is a default no-op implementation.
type NoopEventEmitter struct{}

// Emit implements EventEmitter.
func (NoopEventEmitter) Emit(_ context.Context, _ Event) {}

// EventEmitterFunc adapts a function to EventEmitter.
type EventEmitterFunc func(ctx context.Context, event Event)

// Emit implements EventEmitter.
func (f EventEmitterFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

// NewEvent builds an event stamped with the given time.
func NewEvent(eventType EventType, sessionID string, at time.Time, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}
