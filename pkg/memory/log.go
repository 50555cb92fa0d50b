// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory provides the shared, attributed memory log of a session.
package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/jllopis/colloquy/pkg/citation"
	"github.com/jllopis/colloquy/pkg/errors"
)

// Entry is one attributed insight written after a participant's turn.
type Entry struct {
	ContributorID string              `json:"contributor_id"`
	Content       string              `json:"content"`
	Citations     []citation.Citation `json:"citations,omitempty"`
	SequenceIndex int                 `json:"sequence_index"`
	Timestamp     time.Time           `json:"timestamp"`
	Degraded      bool                `json:"degraded,omitempty"`
}

// Log is an append-only sequence of entries. There is no way to edit or
// remove an entry once appended.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds an entry. Entries need a contributor and a sequence index
// greater than the last one appended.
func (l *Log) Append(e Entry) error {
	if strings.TrimSpace(e.ContributorID) == "" {
		return errors.NewInvalidInputError("memory entry without contributor").
			WithContext("sequence_index", e.SequenceIndex)
	}
	e.Citations = append([]citation.Citation(nil), e.Citations...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.entries); n > 0 && e.SequenceIndex <= l.entries[n-1].SequenceIndex {
		return errors.NewInvalidInputError("memory entry out of order").
			WithContext("contributor", e.ContributorID).
			WithContext("sequence_index", e.SequenceIndex).
			WithContext("last_index", l.entries[n-1].SequenceIndex)
	}
	l.entries = append(l.entries, e)
	return nil
}

// Snapshot returns a copy of the entries as of the call.
func (l *Log) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		e.Citations = append([]citation.Citation(nil), e.Citations...)
		out[i] = e
	}
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Before returns the entries written by turns with an index below seq.
func (l *Log) Before(seq int) []Entry {
	all := l.Snapshot()
	for i, e := range all {
		if e.SequenceIndex >= seq {
			return all[:i]
		}
	}
	return all
}
