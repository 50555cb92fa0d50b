// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package persona

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jllopis/colloquy/pkg/errors"
)

func TestDefaultRegistryOrder(t *testing.T) {
	r := Default()
	got := r.Participants()
	want := []string{"analyst", "mentor", "comic", "moderator"}
	if len(got) != len(want) {
		t.Fatalf("expected %d participants, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
	if !r.Moderator().IsModerator() {
		t.Errorf("expected moderator kind")
	}
	if len(r.Personas()) != 3 {
		t.Errorf("expected 3 personas, got %d", len(r.Personas()))
	}
}

func TestModeratorListedFirstStillSpeaksLast(t *testing.T) {
	ps := DefaultParticipants()
	ps = append([]Participant{ps[3]}, ps[:3]...)
	r, err := NewRegistry(ps, DefaultCorpus())
	if err != nil {
		t.Fatalf("registry failed: %v", err)
	}
	order := r.Participants()
	if order[len(order)-1].ID != "moderator" {
		t.Fatalf("expected moderator last, got %s", order[len(order)-1].ID)
	}
	if order[0].ID != "analyst" {
		t.Fatalf("expected persona order preserved, got %s first", order[0].ID)
	}
}

func TestRegistryValidation(t *testing.T) {
	base := DefaultParticipants
	tests := []struct {
		name   string
		ps     func() []Participant
		corpus func() Corpus
	}{
		{"empty", func() []Participant { return nil }, DefaultCorpus},
		{"missing id", func() []Participant { ps := base(); ps[0].ID = ""; return ps }, DefaultCorpus},
		{"missing display name", func() []Participant { ps := base(); ps[1].DisplayName = " "; return ps }, DefaultCorpus},
		{"missing template", func() []Participant { ps := base(); ps[2].PromptTemplate = ""; return ps }, DefaultCorpus},
		{"bad template", func() []Participant { ps := base(); ps[2].PromptTemplate = "{{.Query"; return ps }, DefaultCorpus},
		{"unknown kind", func() []Participant { ps := base(); ps[0].Kind = "judge"; return ps }, DefaultCorpus},
		{"duplicate id", func() []Participant { ps := base(); ps[1].ID = "analyst"; return ps }, DefaultCorpus},
		{"no moderator", func() []Participant { return base()[:3] }, DefaultCorpus},
		{"two moderators", func() []Participant {
			ps := base()
			ps[0].Kind = KindModerator
			return ps
		}, DefaultCorpus},
		{"only moderator", func() []Participant { return base()[3:] }, func() Corpus { return nil }},
		{"persona without corpus", base, func() Corpus { c := DefaultCorpus(); delete(c, "comic"); return c }},
		{"corpus entry without locator", base, func() Corpus {
			c := DefaultCorpus()
			c["mentor"][0].Locator = ""
			return c
		}},
		{"corpus for unknown participant", base, func() Corpus {
			c := DefaultCorpus()
			c["ghost"] = []CorpusEntry{{Work: "w", Entity: "e", Locator: "l"}}
			return c
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.ps(), tt.corpus())
			if err == nil {
				t.Fatalf("expected configuration error")
			}
			if !errors.HasCode(err, errors.CodeConfiguration) {
				t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
			}
		})
	}
}

func TestCorpusIsCopied(t *testing.T) {
	r := Default()
	c := r.Corpus("analyst")
	c[0].Work = "mutated"
	if r.Corpus("analyst")[0].Work == "mutated" {
		t.Fatalf("corpus must not be mutable through returned slices")
	}
}

func TestModeratorCorpusIsUnion(t *testing.T) {
	r := Default()
	union := r.Corpus("moderator")
	want := len(r.Corpus("analyst")) + len(r.Corpus("mentor")) + len(r.Corpus("comic"))
	if len(union) != want {
		t.Fatalf("expected %d union entries, got %d", want, len(union))
	}
}

func TestRender(t *testing.T) {
	r := Default()
	p, _ := r.Get("analyst")
	out, err := p.Render(PromptData{
		Query:      "What makes a good movie dialogue?",
		Samples:    "[10 Things I Hate About You, CAMERON, L868] The \"real you\".",
		PriorTurns: "",
		Failures:   []string{"Comic"},
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for _, want := range []string{"You are the Analyst.", "Question: What makes a good movie dialogue?", "could not respond: Comic", "L868"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected prompt to contain %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Earlier contributions") {
		t.Errorf("empty prior turns must not render their section")
	}
}

func TestLoadExampleFile(t *testing.T) {
	r, err := LoadFile(filepath.Join("..", "..", "configs", "personas.example.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	var ids []string
	for _, p := range r.Participants() {
		ids = append(ids, p.ID)
	}
	if got := strings.Join(ids, ","); got != "analyst,responder,storyteller,moderator" {
		t.Fatalf("unexpected order %s", got)
	}
	p, _ := r.Get("responder")
	if p.Kind != KindPersona {
		t.Errorf("expected default kind persona, got %s", p.Kind)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); !errors.HasCode(err, errors.CodeConfiguration) {
		t.Fatalf("expected configuration error for missing file, got %v", err)
	}

	path := filepath.Join(dir, "typo.yaml")
	doc := "participants:\n  - id: a\n    display_nam: A\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := LoadFile(path); !errors.HasCode(err, errors.CodeConfiguration) {
		t.Fatalf("expected configuration error for unknown field, got %v", err)
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("participants: []\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := LoadFile(empty); !errors.HasCode(err, errors.CodeConfiguration) {
		t.Fatalf("expected configuration error for empty registry, got %v", err)
	}
}
