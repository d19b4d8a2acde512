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

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hollowmark/weave/internal/pubsub"
	"github.com/hollowmark/weave/internal/session"
)

// SessionService is the default session.Service: a thin, subscribable
// wrapper over a Store. It lives here rather than in internal/session so
// it can depend on Store directly without an import cycle (Store already
// depends on internal/session).
type SessionService struct {
	store Store

	mu   sync.Mutex
	subs []chan pubsub.Event[session.ChatMetadata]
}

// NewSessionService wraps store as a session.Service.
func NewSessionService(store Store) *SessionService {
	return &SessionService{store: store}
}

// Create mints a new, empty session named name and persists it.
func (s *SessionService) Create(ctx context.Context, name string) (session.ChatSession, error) {
	now := time.Now()
	sess := session.ChatSession{
		ID:         NewSessionID(now),
		Name:       name,
		CreatedAt:  now.Unix(),
		UpdatedAt:  now.Unix(),
		ToolSyntax: session.ToolSyntaxNative,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return session.ChatSession{}, fmt.Errorf("store: create session: %w", err)
	}
	s.broadcast(pubsub.NewCreatedEvent(deriveMetadata(sess)))
	return sess, nil
}

// Get loads the full session record for id.
func (s *SessionService) Get(ctx context.Context, id string) (session.ChatSession, error) {
	sess, ok, err := s.store.Load(ctx, id)
	if err != nil {
		return session.ChatSession{}, err
	}
	if !ok {
		return session.ChatSession{}, fmt.Errorf("store: session %q not found", id)
	}
	return sess, nil
}

// List returns every session's listing metadata.
func (s *SessionService) List(ctx context.Context) ([]session.ChatMetadata, error) {
	return s.store.List(ctx)
}

// Delete removes a session and notifies subscribers.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.broadcast(pubsub.NewDeletedEvent(session.ChatMetadata{ID: id}))
	return nil
}

// Subscribe returns a channel of create/update/delete events, closed when
// ctx is done.
func (s *SessionService) Subscribe(ctx context.Context) <-chan pubsub.Event[session.ChatMetadata] {
	ch := make(chan pubsub.Event[session.ChatMetadata], 16)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, c := range s.subs {
			if c == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch
}

func (s *SessionService) broadcast(ev pubsub.Event[session.ChatMetadata]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

var _ session.Service = (*SessionService)(nil)
