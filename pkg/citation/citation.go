// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package citation parses, validates and selects the source references that
// ground a participant's contribution.
package citation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jllopis/colloquy/pkg/errors"
	"github.com/jllopis/colloquy/pkg/persona"
)

// Citation is a structured reference to a line of source material.
type Citation struct {
	Work    string `json:"work"`
	Entity  string `json:"entity"`
	Locator string `json:"locator"`
}

// String renders the citation in its textual form.
func (c Citation) String() string {
	return fmt.Sprintf("[%s, %s, %s]", c.Work, c.Entity, c.Locator)
}

// FromEntry builds the citation pointing at a corpus entry.
func FromEntry(e persona.CorpusEntry) Citation {
	return Citation{Work: e.Work, Entity: e.Entity, Locator: e.Locator}
}

// pattern matches [Work, Entity, Locator] with three non-blank fields. Fields
// may not contain brackets or commas.
var pattern = regexp.MustCompile(`\[\s*([^\[\],\s][^\[\],]*?)\s*,\s*([^\[\],\s][^\[\],]*?)\s*,\s*([^\[\],\s][^\[\],]*?)\s*\]`)

// Extract parses citations embedded in generated text. Results keep their
// order of appearance and are deduplicated. Citations naming a work or entity
// outside corpus are dropped. A CitationParseWarning is returned alongside the
// usable citations when none were found or some were dropped; it is never a
// reason to fail the turn.
func Extract(text string, corpus []persona.CorpusEntry) ([]Citation, error) {
	matches := pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, parseWarning("no citations found", 0)
	}
	found := make([]Citation, 0, len(matches))
	for _, m := range matches {
		found = append(found, Citation{Work: m[1], Entity: m[2], Locator: m[3]})
	}
	return Validate(found, corpus)
}

// Validate keeps the citations that reference the corpus, removing duplicates.
// It is the pass-through path for citations attached by the generator.
func Validate(cites []Citation, corpus []persona.CorpusEntry) ([]Citation, error) {
	known := make(map[string]struct{}, len(corpus))
	for _, e := range corpus {
		known[key(e.Work, e.Entity)] = struct{}{}
	}
	seen := make(map[Citation]struct{}, len(cites))
	out := make([]Citation, 0, len(cites))
	dropped := 0
	for _, c := range cites {
		if _, ok := known[key(c.Work, c.Entity)]; !ok {
			dropped++
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	switch {
	case len(out) == 0 && len(cites) > 0:
		return nil, parseWarning("no citation matched the corpus", dropped)
	case dropped > 0:
		return out, parseWarning("citations outside the corpus were dropped", dropped)
	case len(out) == 0:
		return nil, nil
	}
	return out, nil
}

func key(work, entity string) string {
	return strings.ToLower(strings.TrimSpace(work)) + "\x00" + strings.ToLower(strings.TrimSpace(entity))
}

func parseWarning(msg string, dropped int) error {
	return errors.New(errors.CodeCitationParse, msg, nil).
		WithContext("dropped", dropped).
		WithRecoverable(true)
}
