// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analysis runs AI analysis over case evidence and keeps every
// session in a local sqlite database, so conclusions can be audited
// against the exact prompt and model that produced them.
package analysis

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Session is one stored analysis run.
type Session struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id,omitempty"`
	CaseRef   string    `json:"case_ref"`
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS analysis_sessions (
	id         TEXT PRIMARY KEY,
	group_id   TEXT NOT NULL DEFAULT '',
	case_ref   TEXT NOT NULL,
	model      TEXT NOT NULL,
	prompt     TEXT NOT NULL,
	response   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_case ON analysis_sessions(case_ref);
CREATE INDEX IF NOT EXISTS idx_sessions_group ON analysis_sessions(group_id);
`

// Store persists analysis sessions in sqlite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) the session database at path. Use
// ":memory:" for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("analysis: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("analysis: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Save inserts a session.
func (s *Store) Save(ctx context.Context, session Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_sessions (id, group_id, case_ref, model, prompt, response, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.GroupID, session.CaseRef, session.Model,
		session.Prompt, session.Response, session.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("analysis: save session %s: %w", session.ID, err)
	}
	return nil
}

// Get returns one session by id.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, case_ref, model, prompt, response, created_at
		 FROM analysis_sessions WHERE id = ?`, id)
	return scanSession(row)
}

// ByCase returns a case's sessions, newest first.
func (s *Store) ByCase(ctx context.Context, caseRef string) ([]Session, error) {
	return s.query(ctx,
		`SELECT id, group_id, case_ref, model, prompt, response, created_at
		 FROM analysis_sessions WHERE case_ref = ? ORDER BY created_at DESC`, caseRef)
}

// ByGroup returns the sessions of one comparative run, insertion order.
func (s *Store) ByGroup(ctx context.Context, groupID string) ([]Session, error) {
	return s.query(ctx,
		`SELECT id, group_id, case_ref, model, prompt, response, created_at
		 FROM analysis_sessions WHERE group_id = ? ORDER BY created_at ASC`, groupID)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("analysis: query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var session Session
	err := row.Scan(&session.ID, &session.GroupID, &session.CaseRef,
		&session.Model, &session.Prompt, &session.Response, &session.CreatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("analysis: scan session: %w", err)
	}
	return session, nil
}
