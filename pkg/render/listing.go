// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/persona"
	"github.com/jllopis/colloquy/pkg/scenario"
)

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	name    lipgloss.Style
	detail  lipgloss.Style
	warning lipgloss.Style
	section lipgloss.Style
	empty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		name:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section: lipgloss.NewStyle().MarginTop(1),
		empty:   lipgloss.NewStyle().Faint(true),
	}
}

// Personas lists the participants of a registry in speaking order.
func Personas(reg *persona.Registry) string {
	s := newStyles()
	ps := reg.Participants()
	lines := []string{
		s.title.Render("Participants"),
		s.header.Render(fmt.Sprintf("speakers: %d", len(ps))),
	}
	for _, p := range ps {
		parts := []string{s.name.Render(fmt.Sprintf("%s (%s)", p.DisplayName, p.ID))}
		if p.Description != "" {
			parts = append(parts, s.detail.Render(p.Description))
		}
		meta := []string{"kind: " + string(p.Kind)}
		if p.Style != "" {
			meta = append(meta, "style: "+p.Style)
		}
		parts = append(parts, s.header.Render(strings.Join(meta, " · ")))
		if len(p.Strengths) > 0 {
			parts = append(parts, s.detail.Render("strengths: "+strings.Join(p.Strengths, ", ")))
		}
		if n := len(reg.Corpus(p.ID)); n > 0 && !p.IsModerator() {
			parts = append(parts, s.header.Render(fmt.Sprintf("corpus lines: %d", n)))
		}
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, parts...)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Scenarios lists collaboration scenarios.
func Scenarios(list []scenario.Scenario) string {
	s := newStyles()
	lines := []string{s.title.Render("Collaboration scenarios")}
	if len(list) == 0 {
		lines = append(lines, s.empty.Render("No scenarios available."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}
	for _, sc := range list {
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left,
			s.name.Render(fmt.Sprintf("%s [%s]", sc.Name, sc.Slug)),
			s.detail.Render(sc.Description),
			s.header.Render("query: "+sc.Query),
			s.header.Render("expect: "+sc.ExpectedCollaboration),
		)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Sessions lists archived session summaries.
func Sessions(list []core.Summary) string {
	s := newStyles()
	lines := []string{
		s.title.Render("Archived sessions"),
		s.header.Render(fmt.Sprintf("sessions: %d", len(list))),
	}
	if len(list) == 0 {
		lines = append(lines, s.empty.Render("No sessions archived yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}
	for _, sum := range list {
		state := string(sum.State)
		if sum.State != core.StateDone || sum.Degraded > 0 {
			state = s.warning.Render(fmt.Sprintf("%s (%d degraded)", state, sum.Degraded))
		}
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left,
			s.name.Render(sum.ID)+" "+state,
			s.detail.Render(sum.Query),
			s.header.Render(fmt.Sprintf("%d turns · started %s", sum.Turns, sum.StartedAt.Format(time.RFC3339))),
		)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
