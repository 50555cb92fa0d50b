// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive stores finished sessions for later listing and replay.
// Stores are append-only: a session id can be saved once.
package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/errors"
)

// Store persists sessions.
type Store interface {
	Save(ctx context.Context, s *core.Session) error
	// Get returns the session with id or a NOT_FOUND error.
	Get(ctx context.Context, id string) (*core.Session, error)
	// List returns summaries, most recently saved first.
	List(ctx context.Context, filter Filter) ([]core.Summary, error)
	Close() error
}

// Filter limits List results.
type Filter struct {
	State core.State
	Limit int
}

func (f Filter) match(s core.Summary) bool {
	return f.State == "" || s.State == f.State
}

// Open returns the store for driver. The none driver keeps sessions in
// memory for the life of the process.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "none", "memory":
		return NewMemoryStore(), nil
	case "jsonl":
		return NewFileStore(path), nil
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, errors.NewConfigurationError(fmt.Sprintf("unknown archive driver %q", driver), nil)
	}
}

func archiveError(op string, err error) *errors.ColloquyError {
	return errors.New(errors.CodeArchive, "archive "+op+" failed", err)
}

func duplicateError(id string) *errors.ColloquyError {
	return errors.New(errors.CodeArchive, "session already archived", nil).
		WithContext("session_id", id)
}

func notFound(id string) *errors.ColloquyError {
	return errors.NewNotFoundError("session", id)
}

func validate(s *core.Session) error {
	if s == nil || strings.TrimSpace(s.ID) == "" {
		return errors.NewInvalidInputError("session without id")
	}
	return nil
}
