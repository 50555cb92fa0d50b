// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package scenario lists the built-in collaboration scenarios.
package scenario

import "strings"

// Scenario is a canned query with the collaboration it is meant to show.
type Scenario struct {
	Slug                  string `json:"slug"`
	Name                  string `json:"name"`
	Description           string `json:"description"`
	Query                 string `json:"query"`
	ExpectedCollaboration string `json:"expected_collaboration"`
}

var builtin = []Scenario{
	{
		Slug:                  "dialogue-analysis",
		Name:                  "Dialogue Analysis",
		Description:           "Analyze what makes movie dialogues effective",
		Query:                 "What makes a good movie dialogue?",
		ExpectedCollaboration: "Analyst asks probing questions, Mentor turns them into advice, Comic reframes with a quick example",
	},
	{
		Slug:                  "emotional-expression",
		Name:                  "Emotional Expression",
		Description:           "Understand how characters express emotions in movies",
		Query:                 "How do characters express emotions in movies?",
		ExpectedCollaboration: "Analyst analyzes patterns, Mentor highlights key moments, Comic finds the humour in them",
	},
	{
		Slug:                  "conversation-patterns",
		Name:                  "Conversation Patterns",
		Description:           "Identify recurring dialogue structures",
		Query:                 "What are some common conversation patterns in films?",
		ExpectedCollaboration: "Analyst maps structures, Mentor identifies turning points, Comic plays with the rhythm",
	},
	{
		Slug:                  "character-development",
		Name:                  "Character Development",
		Description:           "Explore how characters evolve through dialogue",
		Query:                 "How do movie characters develop through their conversations?",
		ExpectedCollaboration: "Analyst tracks development patterns, Mentor notes key changes, Comic riffs on the characters",
	},
}

// Builtin returns the built-in scenarios.
func Builtin() []Scenario {
	return append([]Scenario(nil), builtin...)
}

// Find looks a scenario up by slug or name, ignoring case.
func Find(name string) (Scenario, bool) {
	name = strings.TrimSpace(name)
	for _, s := range builtin {
		if strings.EqualFold(s.Slug, name) || strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Scenario{}, false
}
