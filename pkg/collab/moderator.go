// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package collab

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/memory"
	"github.com/jllopis/colloquy/pkg/persona"
)

// Grounded reports whether a moderator summary refers back to the session: it
// names an earlier participant, cites a memory entry or quotes one. A
// participant is named by its display name as a whole word, so "comical" or
// "an analyst would say" do not count.
func Grounded(summary string, turns []core.Turn, entries []memory.Entry) bool {
	if strings.TrimSpace(summary) == "" {
		return false
	}
	text := strings.ToLower(summary)
	for _, t := range turns {
		if t.Kind == persona.KindModerator {
			continue
		}
		name := t.DisplayName
		if name == "" {
			name = t.ParticipantID
		}
		if namesParticipant(summary, name) {
			return true
		}
	}
	for _, e := range entries {
		for _, c := range e.Citations {
			if strings.Contains(text, strings.ToLower(c.String())) {
				return true
			}
		}
		if content := strings.TrimSpace(e.Content); content != "" && strings.Contains(text, strings.ToLower(content)) {
			return true
		}
	}
	return false
}

// indefinite matches an article right before a name, which makes the name a
// common noun rather than a reference to a participant.
var indefinite = regexp.MustCompile(`(?i)\ban?\s+$`)

func namesParticipant(summary, name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(name) + `\b`)
	if err != nil {
		return false
	}
	for _, loc := range re.FindAllStringIndex(summary, -1) {
		if !indefinite.MatchString(summary[:loc[0]]) {
			return true
		}
	}
	return false
}

func formatTurns(turns []core.Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		label := t.DisplayName
		if t.Degraded() {
			label += " (failed)"
		}
		fmt.Fprintf(&b, "%d. %s: %s", t.SequenceIndex, label, t.Content)
	}
	return b.String()
}

func formatMemory(entries []memory.Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- [%d] %s", e.SequenceIndex, e.ContributorID)
		if e.Degraded {
			b.WriteString(" (failed)")
		}
		fmt.Fprintf(&b, ": %s", e.Content)
		for _, c := range e.Citations {
			b.WriteByte(' ')
			b.WriteString(c.String())
		}
	}
	return b.String()
}
