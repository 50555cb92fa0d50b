// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package render turns sessions and listings into text for terminals.
package render

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/persona"
)

const sessionTemplate = `# {{ .Query }}

_Session {{ .ID }} · {{ .State }}{{ if .Degraded }} · {{ .Degraded }} degraded turn(s){{ end }}_
{{ range .Contributions }}
## {{ .SequenceIndex }}. {{ .DisplayName }}
{{ if .Degraded }}
> **Failed:** {{ .Failure }}
{{ end }}
{{ .Content }}
{{ if .Citations }}
Sources:
{{ range .Citations }}
- {{ .Work }}, {{ .Entity }} ({{ .Locator }})
{{- end }}
{{ end }}{{ range .Warnings }}
> {{ . }}
{{ end }}{{ end }}
{{- if .Summary }}
## Moderator summary
{{ if not .Grounded }}
> The summary does not reference any contribution.
{{ end }}
{{ .Summary }}
{{ end }}
{{- if .Err }}
## Session aborted

{{ .Err }}
{{ end }}`

var sessionTmpl = template.Must(template.New("session").Parse(sessionTemplate))

type sessionView struct {
	ID            string
	Query         string
	State         core.State
	Degraded      int
	Contributions []core.Turn
	Summary       string
	Grounded      bool
	Err           string
}

// Markdown renders a session as Markdown: every persona contribution with
// its sources, then the moderator summary.
func Markdown(s *core.Session) (string, error) {
	v := sessionView{
		ID:       s.ID,
		Query:    strings.TrimSpace(s.Query),
		State:    s.State,
		Degraded: len(s.DegradedTurns()),
		Summary:  s.ModeratorSummary,
		Grounded: s.ModeratorGrounded,
		Err:      s.Err,
	}
	for _, t := range s.Turns {
		if t.Kind != persona.KindModerator {
			v.Contributions = append(v.Contributions, t)
		}
	}
	var buf bytes.Buffer
	if err := sessionTmpl.Execute(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
