// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package persona

// PersonaTemplate is the prompt shared by the built-in personas. The persona
// specific voice comes from the participant fields.
const PersonaTemplate = `You are the {{.Participant.DisplayName}}. {{.Participant.Description}}
Your collaboration approach: {{.Participant.Approach}}.

Relevant dialogue samples from your corpus:
{{.Samples}}
{{- if .PriorTurns}}

Earlier contributions in this discussion:
{{.PriorTurns}}
{{- end}}
{{- if .Memory}}

Shared memory:
{{.Memory}}
{{- end}}
{{- if .Failures}}

These participants could not respond:{{range .Failures}} {{.}}{{end}}
{{- end}}

Answer the question in your own voice and build on what others said.
Cite every dialogue line you rely on as [Work, Character, LineID].

Question: {{.Query}}`

// ModeratorTemplate is the built-in moderator prompt.
const ModeratorTemplate = `You are the {{.Participant.DisplayName}}. Review all contributions and the shared memory.
Summarize the main points, highlight consensus or disagreement and resolve conflicts.
Refer to each contributor by name and cite memory entries where you use them.

Question: {{.Query}}

Contributions:
{{.PriorTurns}}

Shared memory:
{{.Memory}}
{{- if .Failures}}

Note the gap left by participants that failed:{{range .Failures}} {{.}}{{end}}
{{- end}}`

const cornellTitle = "10 Things I Hate About You"

// Default returns the built-in registry: Analyst, Mentor and Comic followed by
// the Moderator, grounded in lines from the Cornell movie-dialogs corpus.
func Default() *Registry {
	r, err := NewRegistry(DefaultParticipants(), DefaultCorpus())
	if err != nil {
		panic("persona: built-in registry is invalid: " + err.Error())
	}
	return r
}

// DefaultParticipants returns the built-in participant definitions.
func DefaultParticipants() []Participant {
	return []Participant{
		{
			ID:             "analyst",
			DisplayName:    "Analyst",
			Kind:           KindPersona,
			Style:          "analytical",
			Description:    "You drive the conversation with direct questions, observations and planning.",
			Approach:       "seeks understanding through questions",
			Strengths:      []string{"pattern recognition", "critical thinking", "questioning"},
			PromptTemplate: PersonaTemplate,
		},
		{
			ID:             "mentor",
			DisplayName:    "Mentor",
			Kind:           KindPersona,
			Style:          "supportive",
			Description:    "You guide others with patient advice and connect ideas to lived experience.",
			Approach:       "turns observations into practical guidance",
			Strengths:      []string{"synthesis", "encouragement", "context building"},
			PromptTemplate: PersonaTemplate,
		},
		{
			ID:             "comic",
			DisplayName:    "Comic",
			Kind:           KindPersona,
			Style:          "playful",
			Description:    "You keep things light, react quickly and find the joke in every exchange.",
			Approach:       "reframes the discussion with humour",
			Strengths:      []string{"quick responses", "reframing", "timing"},
			PromptTemplate: PersonaTemplate,
		},
		{
			ID:             "moderator",
			DisplayName:    "Moderator",
			Kind:           KindModerator,
			Style:          "synthesis",
			Description:    "Summarizes contributions and notes consensus and disagreement.",
			PromptTemplate: ModeratorTemplate,
		},
	}
}

// DefaultCorpus returns the sample lines used by the built-in personas.
func DefaultCorpus() Corpus {
	return Corpus{
		"analyst": {
			{Work: cornellTitle, Entity: "BIANCA", Locator: "L870", Line: `You know how sometimes you just become this "persona"? And you don't know how to quit?`},
			{Work: cornellTitle, Entity: "CAMERON", Locator: "L868", Line: `The "real you".`},
		},
		"mentor": {
			{Work: cornellTitle, Entity: "BIANCA", Locator: "L872", Line: "Okay -- you're gonna need to learn how to lie."},
			{Work: cornellTitle, Entity: "BIANCA", Locator: "L985", Line: "I hope so."},
		},
		"comic": {
			{Work: cornellTitle, Entity: "BIANCA", Locator: "L869", Line: "Like my fear of wearing pastels?"},
			{Work: cornellTitle, Entity: "BIANCA", Locator: "L1045", Line: "They do not!"},
			{Work: cornellTitle, Entity: "CAMERON", Locator: "L1044", Line: "They do to!"},
		},
	}
}
