// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for collaboration spans and metrics.
const (
	AttrSessionID    = "colloquy.session.id"
	AttrSessionQuery = "colloquy.session.query"
	AttrSessionState = "colloquy.session.state"
	AttrSessionTurns = "colloquy.session.turns"

	AttrParticipantID   = "colloquy.participant.id"
	AttrParticipantKind = "colloquy.participant.kind"
	AttrTurnIndex       = "colloquy.turn.sequence_index"
	AttrTurnStatus      = "colloquy.turn.status"
	AttrTurnAttempts    = "colloquy.turn.attempts"
	AttrTurnCitations   = "colloquy.turn.citations"

	AttrMemoryEntries = "colloquy.memory.entries"

	AttrErrorCode        = "error.code"
	AttrErrorRecoverable = "error.recoverable"
	AttrComponent        = "component"

	// LLM attributes follow the gen_ai conventions.
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMProvider     = "gen_ai.system"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal  = "gen_ai.usage.total_tokens"
	AttrLLMTokenType    = "gen_ai.token.type"
)

const maxQueryAttrLen = 200

// SessionAttributes returns attributes for a session span.
func SessionAttributes(sessionID, query string) []attribute.KeyValue {
	if len(query) > maxQueryAttrLen {
		query = query[:maxQueryAttrLen] + "..."
	}
	attrs := []attribute.KeyValue{attribute.String(AttrSessionQuery, query)}
	if sessionID != "" {
		attrs = append(attrs, attribute.String(AttrSessionID, sessionID))
	}
	return attrs
}

// TurnAttributes returns attributes for a turn span.
func TurnAttributes(participantID, kind string, sequenceIndex int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrParticipantID, participantID),
		attribute.String(AttrParticipantKind, kind),
		attribute.Int(AttrTurnIndex, sequenceIndex),
	}
}

// TurnResultAttributes describes how a turn ended.
func TurnResultAttributes(status string, attempts, citations int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrTurnStatus, status),
		attribute.Int(AttrTurnAttempts, attempts),
		attribute.Int(AttrTurnCitations, citations),
	}
}

// LLMUsageAttributes returns token usage attributes.
func LLMUsageAttributes(model string, inputTokens, outputTokens int) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if model != "" {
		attrs = append(attrs, attribute.String(AttrLLMModel, model))
	}
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
	}
	if inputTokens > 0 || outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensTotal, inputTokens+outputTokens))
	}
	return attrs
}
