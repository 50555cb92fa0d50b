// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"strings"
	"testing"

	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/llm"
)

// Assertions provides fluent assertion helpers.
type Assertions struct {
	t *testing.T
}

// Assert creates a new assertions helper.
func Assert(t *testing.T) *Assertions {
	return &Assertions{t: t}
}

// Request returns assertions for a captured model request.
func (a *Assertions) Request(req *llm.ChatRequest) *RequestAssertions {
	a.t.Helper()
	if req == nil {
		a.t.Fatal("request is nil")
	}
	return &RequestAssertions{t: a.t, req: req}
}

// Session returns assertions for a collaboration session.
func (a *Assertions) Session(s *core.Session) *SessionAssertions {
	a.t.Helper()
	if s == nil {
		a.t.Fatal("session is nil")
	}
	return &SessionAssertions{t: a.t, s: s}
}

// RequestAssertions provides assertions for model requests.
type RequestAssertions struct {
	t   *testing.T
	req *llm.ChatRequest
}

// HasModel asserts the request uses the specified model.
func (r *RequestAssertions) HasModel(model string) *RequestAssertions {
	r.t.Helper()
	if r.req.Model != model {
		r.t.Errorf("expected model %q, got %q", model, r.req.Model)
	}
	return r
}

// HasTemperature asserts the request sampling temperature.
func (r *RequestAssertions) HasTemperature(temp float64) *RequestAssertions {
	r.t.Helper()
	switch {
	case r.req.Temperature == nil:
		r.t.Errorf("expected temperature %v, got none", temp)
	case *r.req.Temperature != temp:
		r.t.Errorf("expected temperature %v, got %v", temp, *r.req.Temperature)
	}
	return r
}

// HasMessageCount asserts the number of messages.
func (r *RequestAssertions) HasMessageCount(count int) *RequestAssertions {
	r.t.Helper()
	if len(r.req.Messages) != count {
		r.t.Errorf("expected %d messages, got %d", count, len(r.req.Messages))
	}
	return r
}

// HasSystemMessage asserts a system message contains the substring.
func (r *RequestAssertions) HasSystemMessage(contains string) *RequestAssertions {
	r.t.Helper()
	return r.hasMessage(llm.RoleSystem, contains)
}

// HasUserMessage asserts a user message contains the substring.
func (r *RequestAssertions) HasUserMessage(contains string) *RequestAssertions {
	r.t.Helper()
	return r.hasMessage(llm.RoleUser, contains)
}

func (r *RequestAssertions) hasMessage(role llm.Role, contains string) *RequestAssertions {
	r.t.Helper()
	for _, msg := range r.req.Messages {
		if msg.Role == role && strings.Contains(msg.Content, contains) {
			return r
		}
	}
	r.t.Errorf("expected %s message containing %q", role, contains)
	return r
}

// SessionAssertions provides assertions for collaboration sessions.
type SessionAssertions struct {
	t *testing.T
	s *core.Session
}

// HasState asserts the final orchestrator state.
func (a *SessionAssertions) HasState(state core.State) *SessionAssertions {
	a.t.Helper()
	if a.s.State != state {
		a.t.Errorf("expected state %s, got %s (error %q)", state, a.s.State, a.s.Err)
	}
	return a
}

// HasTurns asserts the participant order of the session.
func (a *SessionAssertions) HasTurns(ids ...string) *SessionAssertions {
	a.t.Helper()
	if len(a.s.Turns) != len(ids) {
		a.t.Errorf("expected %d turns, got %d", len(ids), len(a.s.Turns))
		return a
	}
	for i, turn := range a.s.Turns {
		if turn.ParticipantID != ids[i] {
			a.t.Errorf("turn %d: expected %s, got %s", i+1, ids[i], turn.ParticipantID)
		}
	}
	return a
}

// HasMemoryEntries asserts the number of shared memory entries.
func (a *SessionAssertions) HasMemoryEntries(n int) *SessionAssertions {
	a.t.Helper()
	if len(a.s.Memory) != n {
		a.t.Errorf("expected %d memory entries, got %d", n, len(a.s.Memory))
	}
	return a
}

// TurnCites asserts the participant's turn cites locator.
func (a *SessionAssertions) TurnCites(participantID, locator string) *SessionAssertions {
	a.t.Helper()
	turn, ok := a.turn(participantID)
	if !ok {
		return a
	}
	for _, c := range turn.Citations {
		if c.Locator == locator {
			return a
		}
	}
	a.t.Errorf("%s does not cite %s: %v", participantID, locator, turn.Citations)
	return a
}

// TurnDegraded asserts the participant's turn failed to generate.
func (a *SessionAssertions) TurnDegraded(participantID string) *SessionAssertions {
	a.t.Helper()
	if turn, ok := a.turn(participantID); ok && !turn.Degraded() {
		a.t.Errorf("expected %s to be degraded", participantID)
	}
	return a
}

// SummaryContains asserts the moderator summary contains the substring.
func (a *SessionAssertions) SummaryContains(substr string) *SessionAssertions {
	a.t.Helper()
	if !strings.Contains(a.s.ModeratorSummary, substr) {
		a.t.Errorf("expected summary to contain %q, got %q", substr, a.s.ModeratorSummary)
	}
	return a
}

// IsGrounded asserts the moderator summary references earlier turns.
func (a *SessionAssertions) IsGrounded() *SessionAssertions {
	a.t.Helper()
	if !a.s.ModeratorGrounded {
		a.t.Errorf("expected a grounded moderator summary")
	}
	return a
}

func (a *SessionAssertions) turn(participantID string) (core.Turn, bool) {
	a.t.Helper()
	for _, turn := range a.s.Turns {
		if turn.ParticipantID == participantID {
			return turn, true
		}
	}
	a.t.Errorf("%s did not take a turn", participantID)
	return core.Turn{}, false
}
