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

// Package eventbus implements the UI Event Bus (C12): a uniform sink for
// streaming fragments, tool status transitions, rate-limit notices and
// plan updates, fanned out to every subscribed front-end (TUI, ACP,
// MCP) without the turn loop knowing which front-ends are attached.
package eventbus

import (
	"sync"

	"github.com/hollowmark/weave/pkg/stream"
)

// ToolStatus is the lifecycle state of one dispatched tool invocation.
type ToolStatus int

const (
	ToolRunning ToolStatus = iota
	ToolSuccess
	ToolError
)

// Event is one notification delivered to every subscriber, in emission order.
type Event struct {
	Fragment    *stream.Fragment // display_fragment
	ToolStatus  *ToolStatusEvent
	RateLimit   *RateLimitEvent
	PlanUpdate  *PlanUpdateEvent
	Compaction  *CompactionEvent
	Error       *ErrorEvent
}

// ErrorEvent reports a turn-ending failure (spec.md §7 "DisplayError"):
// a fatal provider error, an exhausted retry budget, or a configuration
// problem. Cancellation is never represented this way.
type ErrorEvent struct {
	Message string
}

// ToolStatusEvent reports a tool's lifecycle transition.
type ToolStatusEvent struct {
	ToolID string
	Status ToolStatus
}

// RateLimitEvent carries a provider's retry-after hint, or a zero value
// to signal notify_rate_limit(0) == clear_rate_limit.
type RateLimitEvent struct {
	RetryAfterSeconds int
}

// PlanUpdateEvent reports a new plan rendered by update_plan.
type PlanUpdateEvent struct {
	Markdown string
}

// CompactionEvent reports a compaction divider to render inline.
type CompactionEvent struct {
	MessagesArchived int
	ContextSizeBefore int
}

// Bus fans out Events to every subscriber, dropping delivery to a
// subscriber whose channel is full rather than blocking the turn loop.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new receiver with the given buffer depth and
// returns the channel plus an unsubscribe function.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, buffer)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish delivers ev to every current subscriber, non-blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Fragment publishes one display fragment.
func (b *Bus) Fragment(f stream.Fragment) { b.Publish(Event{Fragment: &f}) }

// SetToolStatus publishes a tool's lifecycle transition.
func (b *Bus) SetToolStatus(toolID string, status ToolStatus) {
	b.Publish(Event{ToolStatus: &ToolStatusEvent{ToolID: toolID, Status: status}})
}

// NotifyRateLimit publishes a retry-after hint; seconds==0 clears it.
func (b *Bus) NotifyRateLimit(seconds int) {
	b.Publish(Event{RateLimit: &RateLimitEvent{RetryAfterSeconds: seconds}})
}

// ClearRateLimit is notify_rate_limit(0) under its documented name.
func (b *Bus) ClearRateLimit() { b.NotifyRateLimit(0) }

// UpdatePlan publishes a new plan rendering.
func (b *Bus) UpdatePlan(markdown string) { b.Publish(Event{PlanUpdate: &PlanUpdateEvent{Markdown: markdown}}) }

// Compaction publishes a compaction divider.
func (b *Bus) Compaction(archived, before int) {
	b.Publish(Event{Compaction: &CompactionEvent{MessagesArchived: archived, ContextSizeBefore: before}})
}

// DisplayError publishes a turn-ending failure.
func (b *Bus) DisplayError(message string) {
	b.Publish(Event{Error: &ErrorEvent{Message: message}})
}
