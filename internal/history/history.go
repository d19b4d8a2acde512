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

// Package history snapshots file content on every mutating workspace
// operation, keyed by (session, path, version), so a session can
// reconstruct what a file looked like before the agent's last edits. It is
// pure bookkeeping: it never changes the contract of the operation that
// triggered the snapshot.
package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"

	"github.com/hollowmark/weave/internal/pubsub"
)

// Entry is a listing-weight reference to one snapshot.
type Entry struct {
	ID        string
	SessionID string
	Path      string
	CreatedAt int64
}

// File is a full snapshot: one version of one path within one session.
type File struct {
	ID        string
	SessionID string
	Path      string
	CreatedAt int64
	Version   int
	Content   string
}

// Service records and lists file snapshots.
type Service interface {
	// Record stores content as the next version of (sessionID, path) and
	// returns the resulting entry. Every call appends a new version;
	// identical content is stored once and shared between versions.
	Record(ctx context.Context, sessionID, path, content string, createdAt int64) (Entry, error)
	List(ctx context.Context, sessionID string) ([]Entry, error)
	ListBySession(ctx context.Context, sessionID string) ([]File, error)
	Subscribe(ctx context.Context) <-chan pubsub.Event[Entry]
}

// InMemoryService is the default Service: content-addressed, process-local.
// A real deployment persists this alongside the session store; nothing in
// spec.md requires it to survive a restart, since the live filesystem
// remains authoritative.
type InMemoryService struct {
	mu       sync.Mutex
	byHash   map[string]string // content hash -> content, deduplicated across all sessions
	versions map[string][]File // "sessionID\x00path" -> versions in order
	subs     []chan pubsub.Event[Entry]
}

// NewInMemoryService constructs an empty history service.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		byHash:   make(map[string]string),
		versions: make(map[string][]File),
	}
}

func key(sessionID, path string) string { return sessionID + "\x00" + path }

// Record stores content as the next version for (sessionID, path).
func (s *InMemoryService) Record(ctx context.Context, sessionID, path, content string, createdAt int64) (Entry, error) {
	sum := sha256.Sum256([]byte(content))
	hash := hex.EncodeToString(sum[:])

	s.mu.Lock()
	s.byHash[hash] = content
	k := key(sessionID, path)
	version := len(s.versions[k]) + 1
	f := File{
		ID:        hash,
		SessionID: sessionID,
		Path:      path,
		CreatedAt: createdAt,
		Version:   version,
		Content:   content,
	}
	s.versions[k] = append(s.versions[k], f)
	subs := append([]chan pubsub.Event[Entry]{}, s.subs...)
	s.mu.Unlock()

	entry := Entry{ID: f.ID, SessionID: sessionID, Path: path, CreatedAt: createdAt}
	ev := pubsub.NewCreatedEvent(entry)
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return entry, nil
}

// List returns every snapshot entry recorded for sessionID, oldest first.
func (s *InMemoryService) List(ctx context.Context, sessionID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry
	prefix := sessionID + "\x00"
	for k, files := range s.versions {
		if len(k) < len(prefix) || k[:len(prefix)] != prefix {
			continue
		}
		for _, f := range files {
			out = append(out, Entry{ID: f.ID, SessionID: f.SessionID, Path: f.Path, CreatedAt: f.CreatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// ListBySession returns every full snapshot recorded for sessionID.
func (s *InMemoryService) ListBySession(ctx context.Context, sessionID string) ([]File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []File
	prefix := sessionID + "\x00"
	for k, files := range s.versions {
		if len(k) < len(prefix) || k[:len(prefix)] != prefix {
			continue
		}
		out = append(out, files...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// Subscribe returns a channel of snapshot-created events.
func (s *InMemoryService) Subscribe(ctx context.Context) <-chan pubsub.Event[Entry] {
	ch := make(chan pubsub.Event[Entry], 16)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, c := range s.subs {
			if c == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(ch)
	}()
	return ch
}

// NoopService discards every snapshot; used by the MCP server's null
// working-memory tool context where no session exists to attach history to.
type NoopService struct{}

func (s *NoopService) Record(ctx context.Context, sessionID, path, content string, createdAt int64) (Entry, error) {
	return Entry{}, nil
}

func (s *NoopService) List(ctx context.Context, sessionID string) ([]Entry, error) {
	return nil, nil
}

func (s *NoopService) ListBySession(ctx context.Context, sessionID string) ([]File, error) {
	return nil, nil
}

func (s *NoopService) Subscribe(ctx context.Context) <-chan pubsub.Event[Entry] {
	ch := make(chan pubsub.Event[Entry])
	close(ch)
	return ch
}
