// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jllopis/colloquy/pkg/citation"
	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/errors"
	"github.com/jllopis/colloquy/pkg/memory"
	"github.com/jllopis/colloquy/pkg/persona"
)

var started = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleSession(id string, state core.State) *core.Session {
	cite := citation.Citation{Work: "10 Things I Hate About You", Entity: "BIANCA", Locator: "L870"}
	return &core.Session{
		ID:    id,
		Query: "What makes a good movie dialogue?",
		State: state,
		Turns: []core.Turn{
			{ParticipantID: "analyst", DisplayName: "Analyst", Kind: persona.KindPersona, Content: "a", Citations: []citation.Citation{cite}, SequenceIndex: 1, Timestamp: started, Status: core.TurnOK, Attempts: 1},
			{ParticipantID: "comic", DisplayName: "Comic", Kind: persona.KindPersona, Content: "[generation failed: Comic: down]", SequenceIndex: 2, Timestamp: started, Status: core.TurnDegraded, Attempts: 3, Failure: "down"},
		},
		Memory: []memory.Entry{
			{ContributorID: "analyst", Content: "a", Citations: []citation.Citation{cite}, SequenceIndex: 1, Timestamp: started},
			{ContributorID: "comic", Content: "[generation failed: Comic: down]", SequenceIndex: 2, Timestamp: started, Degraded: true},
		},
		StartedAt:   started,
		CompletedAt: started.Add(time.Second),
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	sqlite, err := OpenSQLite(filepath.Join(dir, "sessions.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"jsonl":  NewFileStore(filepath.Join(dir, "nested", "sessions.jsonl")),
		"sqlite": sqlite,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			in := sampleSession("s-1", core.StateDone)
			if err := store.Save(ctx, in); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := store.Get(ctx, "s-1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if diff := cmp.Diff(in, got); diff != "" {
				t.Fatalf("session mismatch (-want +got):\n%s", diff)
			}

			got.Turns[0].Content = "mutated"
			again, _ := store.Get(ctx, "s-1")
			if again.Turns[0].Content != "a" {
				t.Fatalf("stored session must not be affected by callers")
			}
		})
	}
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(ctx, "missing"); !errors.HasCode(err, errors.CodeNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}
			if err := store.Save(ctx, &core.Session{}); !errors.HasCode(err, errors.CodeInvalidInput) {
				t.Fatalf("expected invalid input for session without id, got %v", err)
			}
			if err := store.Save(ctx, sampleSession("dup", core.StateDone)); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := store.Save(ctx, sampleSession("dup", core.StateError)); !errors.HasCode(err, errors.CodeArchive) {
				t.Fatalf("expected archive error for duplicate id, got %v", err)
			}
		})
	}
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			list, err := store.List(ctx, Filter{})
			if err != nil || len(list) != 0 {
				t.Fatalf("expected empty listing, got %v %v", list, err)
			}
			states := []core.State{core.StateDone, core.StateError, core.StateDone}
			for i, st := range states {
				if err := store.Save(ctx, sampleSession(fmt.Sprintf("s-%d", i), st)); err != nil {
					t.Fatalf("save: %v", err)
				}
			}

			list, err = store.List(ctx, Filter{})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			var ids []string
			for _, s := range list {
				ids = append(ids, s.ID)
			}
			if diff := cmp.Diff([]string{"s-2", "s-1", "s-0"}, ids); diff != "" {
				t.Fatalf("listing order (-want +got):\n%s", diff)
			}
			first := list[0]
			if first.Turns != 2 || first.Degraded != 1 || !first.StartedAt.Equal(started) {
				t.Fatalf("unexpected summary %+v", first)
			}

			done, err := store.List(ctx, Filter{State: core.StateDone, Limit: 1})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(done) != 1 || done[0].ID != "s-2" {
				t.Fatalf("unexpected filtered listing %+v", done)
			}
		})
	}
}

func TestFileStoreCorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.jsonl")
	if err := os.WriteFile(path, []byte("{not json}\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := NewFileStore(path)
	if _, err := store.List(context.Background(), Filter{}); !errors.HasCode(err, errors.CodeArchive) {
		t.Fatalf("expected archive error, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		driver string
		want   string
	}{
		{"none", "*archive.MemoryStore"},
		{"", "*archive.MemoryStore"},
		{"jsonl", "*archive.FileStore"},
		{"SQLite", "*archive.SQLiteStore"},
	}
	for _, tt := range tests {
		store, err := Open(tt.driver, filepath.Join(dir, "archive-"+tt.driver))
		if err != nil {
			t.Fatalf("open %q: %v", tt.driver, err)
		}
		if got := fmt.Sprintf("%T", store); got != tt.want {
			t.Errorf("Open(%q) = %s, want %s", tt.driver, got, tt.want)
		}
		_ = store.Close()
	}
	if _, err := Open("postgres", ""); !errors.HasCode(err, errors.CodeConfiguration) {
		t.Fatalf("expected configuration error for unknown driver, got %v", err)
	}
	if _, err := OpenSQLite(" "); !errors.HasCode(err, errors.CodeConfiguration) {
		t.Fatalf("expected configuration error for empty path, got %v", err)
	}
}
