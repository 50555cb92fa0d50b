// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package persona

import (
	"fmt"
	"strings"

	"github.com/jllopis/colloquy/pkg/errors"
)

// Registry holds the validated participants in speaking order.
type Registry struct {
	personas  []Participant
	moderator Participant
	byID      map[string]Participant
	corpus    Corpus
}

// NewRegistry validates participants and corpus. Personas keep their relative
// order; the moderator always speaks last regardless of where it is listed.
// Any violation is a configuration error.
func NewRegistry(participants []Participant, corpus Corpus) (*Registry, error) {
	if len(participants) == 0 {
		return nil, errors.NewConfigurationError("persona registry is empty", nil)
	}

	r := &Registry{
		byID:   make(map[string]Participant, len(participants)),
		corpus: make(Corpus, len(corpus)),
	}
	moderators := 0
	for i, p := range participants {
		if err := validateParticipant(i, p); err != nil {
			return nil, err
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, errors.NewConfigurationError("duplicate participant id", nil).
				WithContext("participant", p.ID)
		}
		tmpl, err := parseTemplate(p)
		if err != nil {
			return nil, errors.NewConfigurationError("invalid prompt template", err).
				WithContext("participant", p.ID)
		}
		p.tmpl = tmpl
		p.Strengths = append([]string(nil), p.Strengths...)
		r.byID[p.ID] = p

		switch p.Kind {
		case KindModerator:
			moderators++
			r.moderator = p
		default:
			r.personas = append(r.personas, p)
		}
	}

	if moderators != 1 {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("registry needs exactly one moderator, found %d", moderators), nil)
	}
	if len(r.personas) == 0 {
		return nil, errors.NewConfigurationError("registry has no personas", nil)
	}

	for id := range corpus {
		if _, ok := r.byID[id]; !ok {
			return nil, errors.NewConfigurationError("corpus references unknown participant", nil).
				WithContext("participant", id)
		}
	}
	for _, p := range r.personas {
		entries := corpus[p.ID]
		if len(entries) == 0 {
			return nil, errors.NewConfigurationError("persona has no corpus samples", nil).
				WithContext("participant", p.ID)
		}
		for i, e := range entries {
			if strings.TrimSpace(e.Work) == "" || strings.TrimSpace(e.Entity) == "" || strings.TrimSpace(e.Locator) == "" {
				return nil, errors.NewConfigurationError("corpus entry missing work, entity or locator", nil).
					WithContext("participant", p.ID).
					WithContext("index", i)
			}
		}
		r.corpus[p.ID] = append([]CorpusEntry(nil), entries...)
	}

	return r, nil
}

func validateParticipant(index int, p Participant) error {
	missing := func(field string) error {
		return errors.NewConfigurationError("participant missing "+field, nil).
			WithContext("index", index).
			WithContext("participant", p.ID)
	}
	switch {
	case strings.TrimSpace(p.ID) == "":
		return missing("id")
	case strings.TrimSpace(p.DisplayName) == "":
		return missing("display_name")
	case strings.TrimSpace(p.PromptTemplate) == "":
		return missing("prompt_template")
	}
	switch p.Kind {
	case KindPersona, KindModerator:
		return nil
	default:
		return errors.NewConfigurationError(fmt.Sprintf("unknown role kind %q", p.Kind), nil).
			WithContext("participant", p.ID)
	}
}

// Participants returns the speaking order: personas first, moderator last.
func (r *Registry) Participants() []Participant {
	out := make([]Participant, 0, len(r.personas)+1)
	out = append(out, r.personas...)
	return append(out, r.moderator)
}

// Personas returns the non-moderator participants in speaking order.
func (r *Registry) Personas() []Participant {
	return append([]Participant(nil), r.personas...)
}

// Moderator returns the moderator participant.
func (r *Registry) Moderator() Participant { return r.moderator }

// Get looks up a participant by id.
func (r *Registry) Get(id string) (Participant, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Corpus returns the sample lines for a participant. The moderator's corpus is
// the union of all persona corpora in speaking order.
func (r *Registry) Corpus(id string) []CorpusEntry {
	if id == r.moderator.ID {
		return r.ModeratorCorpus()
	}
	return append([]CorpusEntry(nil), r.corpus[id]...)
}

// ModeratorCorpus returns the union of every persona's corpus.
func (r *Registry) ModeratorCorpus() []CorpusEntry {
	var out []CorpusEntry
	for _, p := range r.personas {
		out = append(out, r.corpus[p.ID]...)
	}
	return out
}
