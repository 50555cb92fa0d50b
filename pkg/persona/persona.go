// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package persona defines the fixed set of collaboration participants and the
// corpus samples that ground their citations.
package persona

import (
	"bytes"
	"fmt"
	"text/template"
)

// RoleKind tags a participant as a speaking persona or the moderator.
type RoleKind string

const (
	KindPersona   RoleKind = "persona"
	KindModerator RoleKind = "moderator"
)

// Participant is an immutable descriptor of one speaker.
type Participant struct {
	ID             string   `yaml:"id" json:"id"`
	DisplayName    string   `yaml:"display_name" json:"display_name"`
	Kind           RoleKind `yaml:"kind" json:"kind"`
	Style          string   `yaml:"style,omitempty" json:"style,omitempty"`
	Description    string   `yaml:"description,omitempty" json:"description,omitempty"`
	Approach       string   `yaml:"approach,omitempty" json:"approach,omitempty"`
	Strengths      []string `yaml:"strengths,omitempty" json:"strengths,omitempty"`
	PromptTemplate string   `yaml:"prompt_template" json:"-"`

	tmpl *template.Template
}

// CorpusEntry is one sample line of a persona's source material.
type CorpusEntry struct {
	Work    string `yaml:"work" json:"work"`
	Entity  string `yaml:"entity" json:"entity"`
	Locator string `yaml:"locator" json:"locator"`
	Line    string `yaml:"line" json:"line"`
}

// Corpus maps a participant id to its sample lines.
type Corpus map[string][]CorpusEntry

// PromptData is the value a prompt template is executed against.
type PromptData struct {
	Participant Participant
	Query       string
	PriorTurns  string
	Memory      string
	Samples     string
	Failures    []string
}

// IsModerator reports whether the participant is the moderator.
func (p Participant) IsModerator() bool { return p.Kind == KindModerator }

// Render executes the participant's prompt template.
func (p Participant) Render(data PromptData) (string, error) {
	tmpl := p.tmpl
	if tmpl == nil {
		var err error
		tmpl, err = parseTemplate(p)
		if err != nil {
			return "", err
		}
	}
	data.Participant = p
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt for %s: %w", p.ID, err)
	}
	return buf.String(), nil
}

func parseTemplate(p Participant) (*template.Template, error) {
	tmpl, err := template.New(p.ID).Option("missingkey=error").Parse(p.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template for %s: %w", p.ID, err)
	}
	return tmpl, nil
}
