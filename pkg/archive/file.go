// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/jllopis/colloquy/pkg/core"
)

// FileStore persists sessions as JSON lines in a file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed store. The file is created on the first
// Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save appends a JSON-encoded session to the file.
func (f *FileStore) Save(_ context.Context, s *core.Session) error {
	if err := validate(s); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	found := false
	if err := f.scan(func(got *core.Session) bool {
		found = got.ID == s.ID
		return !found
	}); err != nil {
		return err
	}
	if found {
		return duplicateError(s.ID)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return archiveError("save", err)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return archiveError("save", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(s); err != nil {
		return archiveError("save", err)
	}
	return nil
}

// Get returns the session with id.
func (f *FileStore) Get(_ context.Context, id string) (*core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var hit *core.Session
	if err := f.scan(func(s *core.Session) bool {
		if s.ID == id {
			hit = s
			return false
		}
		return true
	}); err != nil {
		return nil, err
	}
	if hit == nil {
		return nil, notFound(id)
	}
	return hit, nil
}

// List returns filtered summaries.
func (f *FileStore) List(_ context.Context, filter Filter) ([]core.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []core.Summary
	if err := f.scan(func(s *core.Session) bool {
		all = append(all, s.Summarize())
		return true
	}); err != nil {
		return nil, err
	}
	out := make([]core.Summary, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if !filter.match(all[i]) {
			continue
		}
		out = append(out, all[i])
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op; the file is opened per call.
func (f *FileStore) Close() error { return nil }

// scan decodes sessions in file order until fn returns false. A missing file
// is an empty archive.
func (f *FileStore) scan(fn func(*core.Session) bool) error {
	file, err := os.Open(f.path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil
		}
		return archiveError("read", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var s core.Session
		if err := json.Unmarshal(scanner.Bytes(), &s); err != nil {
			return archiveError("decode", err).WithContext("path", f.path)
		}
		if !fn(&s) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return archiveError("read", err)
	}
	return nil
}
