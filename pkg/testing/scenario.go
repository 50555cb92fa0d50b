// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package testing provides utilities for testing collaboration sessions.
//
// This package includes:
//   - Scenario definitions for declarative session testing
//   - A scripted llm.Provider with request capture
//   - Assertion helpers for sessions and model requests
//   - An event collector usable as a core.EventEmitter
//
// Example usage:
//
//	scenario := testing.NewScenario("character development").
//	    WithQuery("How do movie characters develop through their conversations?").
//	    ExpectState(core.StateDone).
//	    ExpectSummary(testing.Contains("Analyst"))
//
//	result := scenario.Run(t, orchestrator)
//	result.Assert(t, scenario)
package testing

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jllopis/colloquy/pkg/core"
)

// SessionRunner runs one collaboration session.
type SessionRunner interface {
	Run(ctx context.Context, query string) (*core.Session, error)
}

// Scenario defines a test scenario for one session.
type Scenario struct {
	name         string
	query        string
	context      context.Context
	timeout      time.Duration
	events       *EventCollector
	expectations []Expectation
}

// Expectation defines a condition to verify after running a scenario.
type Expectation interface {
	Check(result *ScenarioResult) error
	Description() string
}

// ScenarioResult contains the outcome of running a scenario.
type ScenarioResult struct {
	Session  *core.Session
	Error    error
	Events   []core.Event
	Duration time.Duration
}

// NewScenario creates a new test scenario with the given name.
func NewScenario(name string) *Scenario {
	return &Scenario{
		name:    name,
		timeout: 30 * time.Second,
		context: context.Background(),
	}
}

// WithQuery sets the user query.
func (s *Scenario) WithQuery(q string) *Scenario {
	s.query = q
	return s
}

// WithContext sets the parent context.
func (s *Scenario) WithContext(ctx context.Context) *Scenario {
	s.context = ctx
	return s
}

// WithTimeout sets the timeout for the scenario.
func (s *Scenario) WithTimeout(d time.Duration) *Scenario {
	s.timeout = d
	return s
}

// WithEvents attaches the collector the runner emits into, so event
// expectations can be checked.
func (s *Scenario) WithEvents(c *EventCollector) *Scenario {
	s.events = c
	return s
}

// Expect adds an expectation to the scenario.
func (s *Scenario) Expect(exp Expectation) *Scenario {
	s.expectations = append(s.expectations, exp)
	return s
}

// ExpectNoError expects the session to complete.
func (s *Scenario) ExpectNoError() *Scenario {
	return s.Expect(&noErrorExpectation{})
}

// ExpectError expects an error matching the given pattern.
func (s *Scenario) ExpectError(matcher StringMatcher) *Scenario {
	return s.Expect(&errorExpectation{matcher: matcher})
}

// ExpectState expects the session to end in state.
func (s *Scenario) ExpectState(state core.State) *Scenario {
	return s.Expect(&stateExpectation{state: state})
}

// ExpectSummary expects the moderator summary to match.
func (s *Scenario) ExpectSummary(matcher StringMatcher) *Scenario {
	return s.Expect(&summaryExpectation{matcher: matcher})
}

// ExpectDegraded expects the participant's turn to be degraded.
func (s *Scenario) ExpectDegraded(participantID string) *Scenario {
	return s.Expect(&degradedExpectation{id: participantID})
}

// ExpectEvent expects an event of the given type.
func (s *Scenario) ExpectEvent(eventType core.EventType) *Scenario {
	return s.Expect(&eventExpectation{eventType: eventType})
}

// ExpectMaxDuration expects the scenario to complete within the given duration.
func (s *Scenario) ExpectMaxDuration(d time.Duration) *Scenario {
	return s.Expect(&maxDurationExpectation{max: d})
}

// Run executes the scenario against runner.
func (s *Scenario) Run(t *testing.T, runner SessionRunner) *ScenarioResult {
	t.Helper()
	if s.events != nil {
		s.events.Reset()
	}

	ctx, cancel := context.WithTimeout(s.context, s.timeout)
	defer cancel()

	start := time.Now()
	sess, err := runner.Run(ctx, s.query)
	result := &ScenarioResult{
		Session:  sess,
		Error:    err,
		Duration: time.Since(start),
	}
	if s.events != nil {
		result.Events = s.events.Events()
	}
	return result
}

// Assert checks all expectations and reports failures to the test.
func (r *ScenarioResult) Assert(t *testing.T, scenario *Scenario) {
	t.Helper()
	for _, exp := range scenario.expectations {
		if err := exp.Check(r); err != nil {
			t.Errorf("scenario %q: expectation %q failed: %v", scenario.name, exp.Description(), err)
		}
	}
}

// StringMatcher defines how to match strings in expectations.
type StringMatcher interface {
	Match(s string) bool
	Description() string
}

// Contains returns a matcher that checks if the string contains the substring.
func Contains(substr string) StringMatcher {
	return &containsMatcher{substr: substr}
}

// Equals returns a matcher that checks exact string equality.
func Equals(expected string) StringMatcher {
	return &equalsMatcher{expected: expected}
}

// Regex returns a matcher that checks against a regular expression.
func Regex(pattern string) StringMatcher {
	return &regexMatcher{re: regexp.MustCompile(pattern)}
}

type containsMatcher struct{ substr string }

func (m *containsMatcher) Match(s string) bool { return strings.Contains(s, m.substr) }

func (m *containsMatcher) Description() string { return fmt.Sprintf("contains %q", m.substr) }

type equalsMatcher struct{ expected string }

func (m *equalsMatcher) Match(s string) bool { return s == m.expected }

func (m *equalsMatcher) Description() string { return fmt.Sprintf("equals %q", m.expected) }

type regexMatcher struct{ re *regexp.Regexp }

func (m *regexMatcher) Match(s string) bool { return m.re.MatchString(s) }

func (m *regexMatcher) Description() string { return fmt.Sprintf("matches regex %q", m.re) }

type noErrorExpectation struct{}

func (e *noErrorExpectation) Check(r *ScenarioResult) error {
	if r.Error != nil {
		return fmt.Errorf("expected no error, got: %v", r.Error)
	}
	return nil
}

func (e *noErrorExpectation) Description() string { return "no error" }

type errorExpectation struct{ matcher StringMatcher }

func (e *errorExpectation) Check(r *ScenarioResult) error {
	if r.Error == nil {
		return fmt.Errorf("expected error matching %s, got nil", e.matcher.Description())
	}
	if !e.matcher.Match(r.Error.Error()) {
		return fmt.Errorf("error %q does not match: %s", r.Error.Error(), e.matcher.Description())
	}
	return nil
}

func (e *errorExpectation) Description() string {
	return fmt.Sprintf("error %s", e.matcher.Description())
}

type stateExpectation struct{ state core.State }

func (e *stateExpectation) Check(r *ScenarioResult) error {
	if r.Session == nil {
		return fmt.Errorf("no session returned")
	}
	if r.Session.State != e.state {
		return fmt.Errorf("state is %s", r.Session.State)
	}
	return nil
}

func (e *stateExpectation) Description() string { return fmt.Sprintf("state %s", e.state) }

type summaryExpectation struct{ matcher StringMatcher }

func (e *summaryExpectation) Check(r *ScenarioResult) error {
	if r.Session == nil {
		return fmt.Errorf("no session returned")
	}
	if !e.matcher.Match(r.Session.ModeratorSummary) {
		return fmt.Errorf("summary %q does not match: %s", r.Session.ModeratorSummary, e.matcher.Description())
	}
	return nil
}

func (e *summaryExpectation) Description() string {
	return fmt.Sprintf("summary %s", e.matcher.Description())
}

type degradedExpectation struct{ id string }

func (e *degradedExpectation) Check(r *ScenarioResult) error {
	if r.Session == nil {
		return fmt.Errorf("no session returned")
	}
	for _, t := range r.Session.Turns {
		if t.ParticipantID == e.id {
			if !t.Degraded() {
				return fmt.Errorf("turn of %s succeeded", e.id)
			}
			return nil
		}
	}
	return fmt.Errorf("%s did not take a turn", e.id)
}

func (e *degradedExpectation) Description() string { return fmt.Sprintf("%s degraded", e.id) }

type eventExpectation struct{ eventType core.EventType }

func (e *eventExpectation) Check(r *ScenarioResult) error {
	for _, ev := range r.Events {
		if ev.Type == e.eventType {
			return nil
		}
	}
	return fmt.Errorf("event type %q was not emitted", e.eventType)
}

func (e *eventExpectation) Description() string {
	return fmt.Sprintf("event %q emitted", e.eventType)
}

type maxDurationExpectation struct{ max time.Duration }

func (e *maxDurationExpectation) Check(r *ScenarioResult) error {
	if r.Duration > e.max {
		return fmt.Errorf("duration %v exceeds maximum %v", r.Duration, e.max)
	}
	return nil
}

func (e *maxDurationExpectation) Description() string {
	return fmt.Sprintf("duration <= %v", e.max)
}

// EventCollector collects lifecycle events. It implements core.EventEmitter.
type EventCollector struct {
	mu     sync.RWMutex
	events []core.Event
}

// NewEventCollector creates a new event collector.
func NewEventCollector() *EventCollector {
	return &EventCollector{}
}

// Emit implements core.EventEmitter.
func (c *EventCollector) Emit(_ context.Context, event core.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

// Events returns all collected events.
func (c *EventCollector) Events() []core.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]core.Event(nil), c.events...)
}

// EventTypes returns the types of all collected events.
func (c *EventCollector) EventTypes() []core.EventType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := make([]core.EventType, len(c.events))
	for i, ev := range c.events {
		types[i] = ev.Type
	}
	return types
}

// HasEvent checks if an event of the given type was collected.
func (c *EventCollector) HasEvent(eventType core.EventType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ev := range c.events {
		if ev.Type == eventType {
			return true
		}
	}
	return false
}

// Reset clears all collected events.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
