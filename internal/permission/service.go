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

package permission

import (
	"context"
	"sync"

	"github.com/hollowmark/weave/internal/pubsub"
)

// pendingRequest tracks one outstanding permission ask: Request blocks on
// resolved until a front-end calls Grant/Deny for the same ToolCallID.
type pendingRequest struct {
	resolved chan bool
}

// service is the default Service: an in-process broker between the turn
// loop (which asks) and whichever front-end is attached (which answers),
// plus a per-session "auto approve" set satisfying every future ask
// without a round trip.
type service struct {
	mu       sync.Mutex
	pending  map[string]*pendingRequest // ToolCallID -> outstanding ask
	granted  map[string]bool            // ToolCallID -> last decision, for IsGranted after the fact
	autoYes  map[string]bool            // SessionID -> auto-approve
	skip     bool

	reqSubs   []chan pubsub.Event[PermissionRequest]
	notifSubs []chan pubsub.Event[PermissionNotification]
}

// NewService constructs an empty permission broker.
func NewService() Service {
	return &service{
		pending: make(map[string]*pendingRequest),
		granted: make(map[string]bool),
		autoYes: make(map[string]bool),
	}
}

func (s *service) SetSkipRequests(skip bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skip = skip
}

func (s *service) SkipRequests() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skip
}

// Request publishes perm to every subscriber and blocks until Grant/Deny
// is called for perm.ToolCallID, the session has auto-approval, skip mode
// is active, or ctx is cancelled (treated as a denial). The turn loop
// calls this before dispatching a mutating tool (spec.md §4.4 supplement).
func (s *service) Request(ctx context.Context, perm PermissionRequest) bool {
	s.mu.Lock()
	if s.skip || s.autoYes[perm.SessionID] {
		s.mu.Unlock()
		return true
	}
	pr := &pendingRequest{resolved: make(chan bool, 1)}
	s.pending[perm.ToolCallID] = pr
	subs := append([]chan pubsub.Event[PermissionRequest]{}, s.reqSubs...)
	s.mu.Unlock()

	ev := pubsub.NewCreatedEvent(perm)
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}

	select {
	case granted := <-pr.resolved:
		return granted
	case <-ctx.Done():
		return false
	}
}

func (s *service) Grant(perm PermissionRequest) { s.resolve(perm.ToolCallID, true) }
func (s *service) Deny(perm PermissionRequest)  { s.resolve(perm.ToolCallID, false) }

func (s *service) GrantPersistent(perm PermissionRequest) {
	s.mu.Lock()
	s.autoYes[perm.SessionID] = true
	s.mu.Unlock()
	s.resolve(perm.ToolCallID, true)
}

func (s *service) resolve(toolCallID string, granted bool) {
	s.mu.Lock()
	pr, ok := s.pending[toolCallID]
	if ok {
		delete(s.pending, toolCallID)
	}
	s.granted[toolCallID] = granted
	subs := append([]chan pubsub.Event[PermissionNotification]{}, s.notifSubs...)
	s.mu.Unlock()

	if ok {
		pr.resolved <- granted
	}

	ev := pubsub.NewCreatedEvent(PermissionNotification{ToolCallID: toolCallID, Granted: granted})
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *service) IsGranted(toolCallID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.granted[toolCallID]
}

func (s *service) AutoApproveSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoYes[sessionID] = true
}

func (s *service) Subscribe(ctx context.Context) <-chan pubsub.Event[PermissionRequest] {
	ch := make(chan pubsub.Event[PermissionRequest], 16)
	s.mu.Lock()
	s.reqSubs = append(s.reqSubs, ch)
	s.mu.Unlock()
	go s.unsubscribeReqOnDone(ctx, ch)
	return ch
}

func (s *service) unsubscribeReqOnDone(ctx context.Context, ch chan pubsub.Event[PermissionRequest]) {
	<-ctx.Done()
	s.mu.Lock()
	for i, c := range s.reqSubs {
		if c == ch {
			s.reqSubs = append(s.reqSubs[:i], s.reqSubs[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	close(ch)
}

func (s *service) SubscribeNotifications(ctx context.Context) <-chan pubsub.Event[PermissionNotification] {
	ch := make(chan pubsub.Event[PermissionNotification], 16)
	s.mu.Lock()
	s.notifSubs = append(s.notifSubs, ch)
	s.mu.Unlock()
	go s.unsubscribeNotifOnDone(ctx, ch)
	return ch
}

func (s *service) unsubscribeNotifOnDone(ctx context.Context, ch chan pubsub.Event[PermissionNotification]) {
	<-ctx.Done()
	s.mu.Lock()
	for i, c := range s.notifSubs {
		if c == ch {
			s.notifSubs = append(s.notifSubs[:i], s.notifSubs[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	close(ch)
}
