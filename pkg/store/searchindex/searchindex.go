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

// Package searchindex maintains a full-text search index over session
// history, derived from (and rebuildable from) the canonical JSON files
// the file-based store owns. The index is disposable: it accelerates
// "find the session where I discussed X" queries but is never the
// source of truth.
package searchindex

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/hollowmark/weave/internal/session"
)

// Index is a SQLite FTS5-backed search index over session messages.
type Index struct {
	db *sql.DB
}

// Open opens (creating if absent) the FTS index at path.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
			session_id UNINDEXED,
			message_id UNINDEXED,
			role UNINDEXED,
			content
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create fts5 table: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database handle.
func (i *Index) Close() error { return i.db.Close() }

// IndexSession replaces every indexed row for sess.ID with its current
// messages, so re-indexing after an edit never leaves stale rows behind.
func (i *Index) IndexSession(ctx context.Context, sess session.ChatSession) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages_fts WHERE session_id = ?`, sess.ID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO messages_fts (session_id, message_id, role, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range sess.Messages {
		text := m.Content().Text
		if text == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, sess.ID, m.ID, string(m.Role), text); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RemoveSession deletes every indexed row for sessionID, e.g. after store Delete.
func (i *Index) RemoveSession(ctx context.Context, sessionID string) error {
	_, err := i.db.ExecContext(ctx, `DELETE FROM messages_fts WHERE session_id = ?`, sessionID)
	return err
}

// Hit is one full-text match.
type Hit struct {
	SessionID string
	MessageID string
	Role      string
	Snippet   string
}

// Search runs an FTS5 MATCH query, returning up to limit hits ranked by
// relevance (bm25).
func (i *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := i.db.QueryContext(ctx, `
		SELECT session_id, message_id, role, snippet(messages_fts, 3, '[', ']', '...', 12)
		FROM messages_fts
		WHERE messages_fts MATCH ?
		ORDER BY bm25(messages_fts)
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.SessionID, &h.MessageID, &h.Role, &h.Snippet); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
