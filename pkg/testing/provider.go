// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jllopis/colloquy/pkg/llm"
)

// ScenarioProvider is a scripted llm.Provider. Responses are consumed in
// order; a response with a Condition is only used for a request it matches.
// Every request is captured.
type ScenarioProvider struct {
	mu           sync.Mutex
	responses    []ScriptedResponse
	used         []bool
	requests     []llm.ChatRequest
	defaultError error
	onChat       func(req llm.ChatRequest) (*llm.ChatResponse, error)
}

// ScriptedResponse defines a response for the scenario provider.
type ScriptedResponse struct {
	Content string
	Error   error
	Usage   llm.Usage
	// Condition restricts the response to matching requests.
	Condition func(req llm.ChatRequest) bool
}

// NewScenarioProvider creates a new scenario provider.
func NewScenarioProvider() *ScenarioProvider {
	return &ScenarioProvider{}
}

// AddResponse queues a response to be returned.
func (p *ScenarioProvider) AddResponse(content string) *ScenarioProvider {
	return p.AddScriptedResponse(ScriptedResponse{Content: content})
}

// AddErrorResponse queues an error response.
func (p *ScenarioProvider) AddErrorResponse(err error) *ScenarioProvider {
	return p.AddScriptedResponse(ScriptedResponse{Error: err})
}

// AddParticipantResponse queues content for the participant whose prompt
// introduces them by displayName.
func (p *ScenarioProvider) AddParticipantResponse(displayName, content string) *ScenarioProvider {
	return p.AddScriptedResponse(ScriptedResponse{Content: content, Condition: ForParticipant(displayName)})
}

// AddParticipantError queues an error for the participant named displayName.
func (p *ScenarioProvider) AddParticipantError(displayName string, err error) *ScenarioProvider {
	return p.AddScriptedResponse(ScriptedResponse{Error: err, Condition: ForParticipant(displayName)})
}

// AddScriptedResponse adds a fully configured response.
func (p *ScenarioProvider) AddScriptedResponse(resp ScriptedResponse) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, resp)
	p.used = append(p.used, false)
	return p
}

// WithDefaultError sets the error to return when no response matches.
func (p *ScenarioProvider) WithDefaultError(err error) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defaultError = err
	return p
}

// WithChatFunc sets a custom function for handling chat requests.
func (p *ScenarioProvider) WithChatFunc(fn func(req llm.ChatRequest) (*llm.ChatResponse, error)) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChat = fn
	return p
}

// ForParticipant matches requests whose system prompt starts with
// "You are the <displayName>.".
func ForParticipant(displayName string) func(llm.ChatRequest) bool {
	prefix := "You are the " + displayName + "."
	return func(req llm.ChatRequest) bool {
		for _, m := range req.Messages {
			if m.Role == llm.RoleSystem && strings.HasPrefix(m.Content, prefix) {
				return true
			}
		}
		return false
	}
}

// Chat implements llm.Provider.
func (p *ScenarioProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.onChat != nil {
		return p.onChat(req)
	}

	for i, resp := range p.responses {
		if p.used[i] || (resp.Condition != nil && !resp.Condition(req)) {
			continue
		}
		p.used[i] = true
		if resp.Error != nil {
			return nil, resp.Error
		}
		return &llm.ChatResponse{Content: resp.Content, Usage: resp.Usage}, nil
	}

	if p.defaultError != nil {
		return nil, p.defaultError
	}
	return nil, fmt.Errorf("no scripted response matches call %d", len(p.requests))
}

// Requests returns all captured requests.
func (p *ScenarioProvider) Requests() []llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.ChatRequest(nil), p.requests...)
}

// LastRequest returns the most recent request.
func (p *ScenarioProvider) LastRequest() *llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	req := p.requests[len(p.requests)-1]
	return &req
}

// CallCount returns the number of Chat calls made.
func (p *ScenarioProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Reset makes every scripted response available again and drops captured
// requests.
func (p *ScenarioProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.used {
		p.used[i] = false
	}
	p.requests = nil
}
