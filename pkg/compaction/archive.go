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

package compaction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/hollowmark/weave/internal/message"
)

// ArchiveStore writes the raw, pre-compaction message turns to disk as a
// gzip-compressed JSON blob, one file per compaction event, so the audit
// trail spec.md §4.9 requires doesn't bloat every future read of the live
// session file. The session's own Messages slice still carries these
// messages (the store is a space optimization for archival tooling, not a
// replacement for the documented in-session retention).
type ArchiveStore struct {
	dir string
}

// NewArchiveStore constructs a store rooted at dir, creating it if needed.
func NewArchiveStore(dir string) (*ArchiveStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ArchiveStore{dir: dir}, nil
}

func (a *ArchiveStore) path(sessionID string, compactionNumber int) string {
	return filepath.Join(a.dir, fmt.Sprintf("%s-compaction-%d.json.gz", sessionID, compactionNumber))
}

// Write compresses messages and writes them under (sessionID, compactionNumber).
func (a *ArchiveStore) Write(sessionID string, compactionNumber int, messages []message.Message) error {
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal archived messages: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return fmt.Errorf("compress archived messages: %w", err)
	}
	if err := gz.Close(); err != nil {
		return err
	}

	tmp := a.path(sessionID, compactionNumber) + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, a.path(sessionID, compactionNumber))
}

// Read decompresses and returns the archived messages for one compaction
// event, or (nil, false, nil) if no such archive exists.
func (a *ArchiveStore) Read(sessionID string, compactionNumber int) ([]message.Message, bool, error) {
	f, err := os.Open(a.path(sessionID, compactionNumber))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, false, fmt.Errorf("decompress archive: %w", err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, false, err
	}
	var messages []message.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, false, fmt.Errorf("unmarshal archived messages: %w", err)
	}
	return messages, true, nil
}
