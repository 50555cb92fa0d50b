// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package core defines the session value produced by a collaboration run,
// together with lifecycle events and health checks.
package core

import (
	"time"

	"github.com/jllopis/colloquy/pkg/citation"
	"github.com/jllopis/colloquy/pkg/memory"
	"github.com/jllopis/colloquy/pkg/persona"
)

// State is the orchestrator state of a session.
type State string

const (
	StateInit            State = "INIT"
	StateParticipantTurn State = "PARTICIPANT_TURN"
	StateModeratorTurn   State = "MODERATOR_TURN"
	StateDone            State = "DONE"
	StateError           State = "ERROR"
)

// TurnStatus tells a successful turn apart from a degraded one.
type TurnStatus string

const (
	TurnOK       TurnStatus = "ok"
	TurnDegraded TurnStatus = "degraded"
)

// Turn is one participant's contribution. It is never modified after the
// orchestrator appends it to the session.
type Turn struct {
	ParticipantID string              `json:"participant_id"`
	DisplayName   string              `json:"display_name"`
	Kind          persona.RoleKind    `json:"kind"`
	Content       string              `json:"content"`
	Citations     []citation.Citation `json:"citations,omitempty"`
	SequenceIndex int                 `json:"sequence_index"`
	Timestamp     time.Time           `json:"timestamp"`
	Status        TurnStatus          `json:"status"`
	Attempts      int                 `json:"attempts"`
	Failure       string              `json:"failure,omitempty"`
	Warnings      []string            `json:"warnings,omitempty"`
	Usage         TokenUsage          `json:"usage,omitzero"`
}

// TokenUsage is the model token consumption of a turn. It stays zero for
// canned content.
type TokenUsage struct {
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int { return u.InputTokens + u.OutputTokens }

// Degraded reports whether the turn carries a failure marker instead of
// generated content.
func (t Turn) Degraded() bool { return t.Status == TurnDegraded }

// Session is the result of one collaboration run.
type Session struct {
	ID                string         `json:"id"`
	Query             string         `json:"query"`
	State             State          `json:"state"`
	Turns             []Turn         `json:"turns"`
	Memory            []memory.Entry `json:"memory"`
	ModeratorSummary  string         `json:"moderator_summary,omitempty"`
	ModeratorGrounded bool           `json:"moderator_grounded"`
	StartedAt         time.Time      `json:"started_at"`
	CompletedAt       time.Time      `json:"completed_at,omitempty"`
	Err               string         `json:"error,omitempty"`
}

// DegradedTurns returns the turns that failed to generate.
func (s *Session) DegradedTurns() []Turn {
	var out []Turn
	for _, t := range s.Turns {
		if t.Degraded() {
			out = append(out, t)
		}
	}
	return out
}

// ModeratorTurn returns the moderator's turn once the session is done.
func (s *Session) ModeratorTurn() (Turn, bool) {
	if n := len(s.Turns); n > 0 && s.Turns[n-1].Kind == persona.KindModerator {
		return s.Turns[n-1], true
	}
	return Turn{}, false
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Turns != nil {
		out.Turns = make([]Turn, len(s.Turns))
	}
	for i, t := range s.Turns {
		t.Citations = append([]citation.Citation(nil), t.Citations...)
		t.Warnings = append([]string(nil), t.Warnings...)
		out.Turns[i] = t
	}
	if s.Memory != nil {
		out.Memory = make([]memory.Entry, len(s.Memory))
	}
	for i, e := range s.Memory {
		e.Citations = append([]citation.Citation(nil), e.Citations...)
		out.Memory[i] = e
	}
	return &out
}

// Summary is the listing view of an archived session.
type Summary struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	State       State     `json:"state"`
	Turns       int       `json:"turns"`
	Degraded    int       `json:"degraded"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Summarize builds the listing view of a session.
func (s *Session) Summarize() Summary {
	return Summary{
		ID:          s.ID,
		Query:       s.Query,
		State:       s.State,
		Turns:       len(s.Turns),
		Degraded:    len(s.DegradedTurns()),
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}
}
