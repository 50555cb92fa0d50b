// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package collab

import (
	"context"
	"testing"

	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/errors"
	"github.com/jllopis/colloquy/pkg/generate"
	"github.com/jllopis/colloquy/pkg/memory"
	"github.com/jllopis/colloquy/pkg/persona"
)

func TestRunManyKeepsOrder(t *testing.T) {
	o, err := New(persona.Default(), generate.NewMock())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	queries := []string{
		"What makes a good movie dialogue?",
		"",
		"How do movie characters develop through their conversations?",
		"What role does humor play in drama?",
	}
	results := o.RunMany(context.Background(), queries, 2)
	if len(results) != len(queries) {
		t.Fatalf("expected %d results, got %d", len(queries), len(results))
	}
	for i, r := range results {
		if r.Query != queries[i] {
			t.Fatalf("result %d out of order: %q", i, r.Query)
		}
	}
	if !errors.HasCode(results[1].Err, errors.CodeInvalidInput) {
		t.Fatalf("expected invalid input for empty query, got %v", results[1].Err)
	}
	ids := map[string]bool{}
	for _, i := range []int{0, 2, 3} {
		r := results[i]
		if r.Err != nil || r.Session.State != core.StateDone {
			t.Fatalf("query %d failed: %v", i, r.Err)
		}
		if ids[r.Session.ID] {
			t.Fatalf("sessions must have distinct ids")
		}
		ids[r.Session.ID] = true
	}
}

func TestGrounded(t *testing.T) {
	turns := []core.Turn{
		{ParticipantID: "analyst", DisplayName: "Analyst", Kind: persona.KindPersona},
		{ParticipantID: "comic", DisplayName: "Comic", Kind: persona.KindPersona},
	}
	entries := []memory.Entry{{ContributorID: "analyst", Content: "Identity is performed.", SequenceIndex: 1}}

	tests := []struct {
		name    string
		summary string
		want    bool
	}{
		{"names participant", "The Analyst framed it well.", true},
		{"names participant at start", "Analyst: identity comes first.", true},
		{"quotes memory", "We heard that identity is performed.", true},
		{"unrelated", "Nothing to add.", false},
		{"name inside a word", "A comical Analystic take.", false},
		{"common noun", "As an analyst would say, it depends.", false},
		{"indefinite article", "Spoken like an Analyst.", false},
		{"empty", "  ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Grounded(tt.summary, turns, entries); got != tt.want {
				t.Fatalf("Grounded(%q) = %v, want %v", tt.summary, got, tt.want)
			}
		})
	}
}
