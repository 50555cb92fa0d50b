// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package citation

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jllopis/colloquy/pkg/persona"
)

// minKeywordLen drops short words ("the", "how") from keyword matching.
const minKeywordLen = 4

// Relevant picks up to max corpus entries whose line shares keywords with the
// query. Ties keep corpus order. When nothing matches, the first entries are
// returned so every participant always has samples to draw from.
func Relevant(query string, corpus []persona.CorpusEntry, max int) []persona.CorpusEntry {
	if max <= 0 || len(corpus) == 0 {
		return nil
	}
	words := keywords(query)

	type scored struct {
		entry persona.CorpusEntry
		score int
	}
	var hits []scored
	for _, e := range corpus {
		line := keywords(e.Line)
		score := 0
		for w := range words {
			if _, ok := line[w]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{entry: e, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]persona.CorpusEntry, 0, max)
	for _, h := range hits {
		if len(out) == max {
			return out
		}
		out = append(out, h.entry)
	}
	if len(out) > 0 {
		return out
	}
	if max > len(corpus) {
		max = len(corpus)
	}
	return append(out, corpus[:max]...)
}

// Samples formats entries as citation-prefixed lines for a prompt.
func Samples(entries []persona.CorpusEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(FromEntry(e).String())
		b.WriteByte(' ')
		b.WriteString(e.Line)
	}
	return b.String()
}

func keywords(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if len(f) >= minKeywordLen {
			out[f] = struct{}{}
		}
	}
	return out
}
