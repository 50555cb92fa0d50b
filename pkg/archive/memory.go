// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"context"
	"sync"

	"github.com/jllopis/colloquy/pkg/core"
)

// MemoryStore keeps sessions in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions []*core.Session
	byID     map[string]*core.Session
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*core.Session)}
}

// Save stores a copy of s.
func (m *MemoryStore) Save(_ context.Context, s *core.Session) error {
	if err := validate(s); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[s.ID]; ok {
		return duplicateError(s.ID)
	}
	c := s.Clone()
	m.sessions = append(m.sessions, c)
	m.byID[c.ID] = c
	return nil
}

// Get returns a copy of the stored session.
func (m *MemoryStore) Get(_ context.Context, id string) (*core.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, notFound(id)
	}
	return s.Clone(), nil
}

// List returns filtered summaries.
func (m *MemoryStore) List(_ context.Context, filter Filter) ([]core.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Summary, 0, len(m.sessions))
	for i := len(m.sessions) - 1; i >= 0; i-- {
		sum := m.sessions[i].Summarize()
		if !filter.match(sum) {
			continue
		}
		out = append(out, sum)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
