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

package searchindex

import (
	"database/sql"
	"fmt"

	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// OpenEncrypted opens the search index through the sqlcipher driver
// instead of the plain sqlite one, keyed with the key its caller passes.
// Schema and queries are identical to the unencrypted Index; only the
// driver and the PRAGMA key differ. Nothing in this repository reads a
// WEAVE_SESSION_ENCRYPTION_KEY variable or calls OpenEncrypted.
func OpenEncrypted(path, key string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA key = '%s'", key)); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying sqlcipher key: %w", err)
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
