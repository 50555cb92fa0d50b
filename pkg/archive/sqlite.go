// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/jllopis/colloquy/pkg/core"
	"github.com/jllopis/colloquy/pkg/errors"
)

// SQLiteStore persists sessions in SQLite.
type SQLiteStore struct {
	db    *sql.DB
	owned bool
}

// OpenSQLite opens the database at path and ensures the schema. The returned
// store closes the database on Close.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.NewConfigurationError("sqlite archive path is empty", nil)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, archiveError("open", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	s, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLiteStore creates a SQLite-backed store on db and ensures schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.NewConfigurationError("db is nil", nil)
	}
	if err := ensureSessionSchema(db); err != nil {
		return nil, archiveError("migrate", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save stores a single session.
func (s *SQLiteStore) Save(ctx context.Context, sess *core.Session) error {
	if err := validate(sess); err != nil {
		return err
	}
	body, err := json.Marshal(sess)
	if err != nil {
		return archiveError("encode", err)
	}
	sum := sess.Summarize()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO colloquy_sessions (
			id, query, state, turns, degraded, started_at, completed_at, session_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sum.ID,
		sum.Query,
		string(sum.State),
		sum.Turns,
		sum.Degraded,
		sum.StartedAt.UTC(),
		sum.CompletedAt.UTC(),
		string(body),
	)
	if err != nil {
		return archiveError("save", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return duplicateError(sess.ID)
	}
	return nil
}

// Get returns the session with id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*core.Session, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT session_json FROM colloquy_sessions WHERE id = ?`, id).Scan(&body)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, archiveError("get", err)
	}
	var sess core.Session
	if err := json.Unmarshal([]byte(body), &sess); err != nil {
		return nil, archiveError("decode", err).WithContext("session_id", id)
	}
	return &sess, nil
}

// List returns summaries matching the filter.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]core.Summary, error) {
	query := `
		SELECT id, query, state, turns, degraded, started_at, completed_at
		FROM colloquy_sessions
	`
	var args []any
	if filter.State != "" {
		query += " WHERE state = ?"
		args = append(args, string(filter.State))
	}
	query += " ORDER BY rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, archiveError("list", err)
	}
	defer rows.Close()

	out := []core.Summary{}
	for rows.Next() {
		var (
			sum       core.Summary
			state     string
			started   sql.NullTime
			completed sql.NullTime
		)
		if err := rows.Scan(&sum.ID, &sum.Query, &state, &sum.Turns, &sum.Degraded, &started, &completed); err != nil {
			return nil, archiveError("list", err)
		}
		sum.State = core.State(state)
		if started.Valid {
			sum.StartedAt = started.Time.UTC()
		}
		if completed.Valid {
			sum.CompletedAt = completed.Time.UTC()
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, archiveError("list", err)
	}
	return out, nil
}

// Close closes the database when the store opened it.
func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func ensureSessionSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS colloquy_sessions (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			state TEXT NOT NULL,
			turns INTEGER NOT NULL,
			degraded INTEGER NOT NULL,
			started_at TIMESTAMP,
			completed_at TIMESTAMP,
			session_json TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_colloquy_sessions_state ON colloquy_sessions(state);
	`)
	return err
}
