// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/jllopis/colloquy/pkg/citation"
)

// Mock generates canned content. Persona output depends only on the
// participant and the query; moderator output also folds in the transcript it
// is handed. It never touches the network.
type Mock struct{}

// NewMock returns the deterministic generator.
func NewMock() *Mock { return &Mock{} }

// Generate implements Generator.
func (m *Mock) Generate(ctx context.Context, req Request) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	if req.Participant.IsModerator() {
		return m.moderate(req), nil
	}

	p := req.Participant
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %q: ", p.DisplayName, req.Query)
	if p.Approach != "" {
		fmt.Fprintf(&b, "my approach %s.", p.Approach)
	} else {
		b.WriteString("here is my take.")
	}

	out := Output{}
	if len(req.Samples) > 0 {
		s := req.Samples[0]
		c := citation.FromEntry(s)
		fmt.Fprintf(&b, " Consider %s's line %q %s.", s.Entity, s.Line, c)
		out.Citations = []citation.Citation{c}
	}
	out.Content = b.String()
	return out, nil
}

func (m *Mock) moderate(req Request) Output {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary for %q.", req.Query)

	var spoke, failed []string
	for _, t := range req.Prior {
		if t.Degraded() {
			failed = append(failed, t.DisplayName)
			continue
		}
		spoke = append(spoke, t.DisplayName)
		if len(t.Citations) == 0 {
			fmt.Fprintf(&b, " %s (turn %d) spoke without a citation.", t.DisplayName, t.SequenceIndex)
			continue
		}
		refs := make([]string, len(t.Citations))
		for i, c := range t.Citations {
			refs[i] = c.String()
		}
		fmt.Fprintf(&b, " %s (turn %d) drew on %s.", t.DisplayName, t.SequenceIndex, strings.Join(refs, " "))
	}
	if len(spoke) > 1 {
		fmt.Fprintf(&b, " Consensus: %s agree the dialogue itself carries the development.", strings.Join(spoke, ", "))
	}
	for _, name := range mergeNames(failed, req.Failures) {
		fmt.Fprintf(&b, " Gap: %s could not contribute.", name)
	}

	var cites []citation.Citation
	seen := make(map[citation.Citation]struct{})
	for _, e := range req.Memory {
		for _, c := range e.Citations {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			cites = append(cites, c)
		}
	}
	return Output{Content: b.String(), Citations: cites}
}

func mergeNames(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, n := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

var _ Generator = (*Mock)(nil)
