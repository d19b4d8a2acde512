// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package postgres implements pkg/store.Store against a shared Postgres
// table, for multi-instance deployments where several weave processes
// serve the same set of sessions.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/hollowmark/weave/internal/message"
	"github.com/hollowmark/weave/internal/session"
)

// Store is a Postgres-backed pkg/store.Store.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and ensures the sessions table exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS weave_sessions (
			id TEXT PRIMARY KEY,
			updated_at BIGINT NOT NULL,
			created_at BIGINT NOT NULL,
			name TEXT NOT NULL,
			message_count INTEGER NOT NULL,
			total_usage JSONB NOT NULL,
			last_usage JSONB NOT NULL,
			body JSONB NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create weave_sessions table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Save upserts sess, deriving usage totals the same way FileStore does.
func (s *Store) Save(ctx context.Context, sess session.ChatSession) error {
	body, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	var total, last session.Usage
	for _, m := range sess.Messages {
		total = total.Add(session.Usage(m.Usage))
		if m.Role == message.Assistant {
			last = session.Usage(m.Usage)
		}
	}
	totalJSON, _ := json.Marshal(total)
	lastJSON, _ := json.Marshal(last)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO weave_sessions (id, updated_at, created_at, name, message_count, total_usage, last_usage, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			name = EXCLUDED.name,
			message_count = EXCLUDED.message_count,
			total_usage = EXCLUDED.total_usage,
			last_usage = EXCLUDED.last_usage,
			body = EXCLUDED.body`,
		sess.ID, sess.UpdatedAt, sess.CreatedAt, sess.Name, len(sess.Messages), totalJSON, lastJSON, body)
	return err
}

// Load returns the full session for id.
func (s *Store) Load(ctx context.Context, id string) (session.ChatSession, bool, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM weave_sessions WHERE id = $1`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return session.ChatSession{}, false, nil
	}
	if err != nil {
		return session.ChatSession{}, false, err
	}
	var sess session.ChatSession
	if err := json.Unmarshal(body, &sess); err != nil {
		return session.ChatSession{}, false, err
	}
	return sess, true, nil
}

// List returns every session's metadata, newest first.
func (s *Store) List(ctx context.Context) ([]session.ChatMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at, message_count, total_usage, last_usage
		FROM weave_sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.ChatMetadata
	for rows.Next() {
		var m session.ChatMetadata
		var totalJSON, lastJSON []byte
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt, &m.UpdatedAt, &m.MessageCount, &totalJSON, &lastJSON); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(totalJSON, &m.TotalUsage)
		_ = json.Unmarshal(lastJSON, &m.LastUsage)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes the session row for id.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM weave_sessions WHERE id = $1`, id)
	return err
}

// Latest returns the most recently updated session's id.
func (s *Store) Latest(ctx context.Context) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM weave_sessions ORDER BY updated_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}
