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

// Package session defines the persisted chat-session shape (ChatSession,
// ChatMetadata) and the working-memory/plan types carried inside it.
package session

import (
	"context"

	"github.com/hollowmark/weave/internal/message"
	"github.com/hollowmark/weave/internal/pubsub"
)

// ToolSyntax selects how tool invocations are encoded in the assistant's
// stream: Native provider function-calling, or one of the two text-embedded
// syntaxes the streaming parser must scan for.
type ToolSyntax string

const (
	ToolSyntaxNative ToolSyntax = "native"
	ToolSyntaxXML    ToolSyntax = "xml"
	ToolSyntaxCaret  ToolSyntax = "caret"
)

// LLMConfig pins the provider/model a session was started with.
type LLMConfig struct {
	Provider string
	Model    string
}

// ToolExecutionRecord pairs a dispatched tool invocation with its result,
// as stored in ChatSession.ToolExecutions.
type ToolExecutionRecord struct {
	ToolRequestID string
	ToolName      string
	Input         string // raw JSON input
	ResultJSON    string
	IsError       bool
}

// ChatSession is the full persisted record for one conversation.
type ChatSession struct {
	ID              string
	Name            string
	CreatedAt       int64
	UpdatedAt       int64
	Messages        []message.Message
	ToolExecutions  []ToolExecutionRecord
	WorkingMemory   WorkingMemorySnapshot
	InitPath        string
	InitialProject  string
	ToolSyntax      ToolSyntax
	UseDiffBlocks   bool
	NextRequestID   uint64
	LLMConfig       LLMConfig
	CompactionCount int
}

// WorkingMemorySnapshot is the serializable form of a session's working
// memory (see pkg/memory for the live, mutation-guarded type).
type WorkingMemorySnapshot struct {
	LoadedResources     map[string]string // "project\x00path" -> rendered content
	Summaries           map[string]string // same key space, mutually exclusive with LoadedResources
	ExpandedDirectories map[string][]string
	AvailableProjects   []string
	Plan                string
	PlanItems           []PlanItem
}

// PlanItem is one line of the session's plan, as produced by update_plan.
type PlanItem struct {
	Text     string
	Priority PlanPriority
	Status   PlanStatus
}

// PlanPriority ranks a plan item.
type PlanPriority string

const (
	PlanPriorityHigh   PlanPriority = "high"
	PlanPriorityMedium PlanPriority = "medium"
	PlanPriorityLow    PlanPriority = "low"
)

// PlanStatus is the completion state of a plan item.
type PlanStatus string

const (
	PlanStatusPending    PlanStatus = "pending"
	PlanStatusInProgress PlanStatus = "in_progress"
	PlanStatusCompleted  PlanStatus = "completed"
)

// Usage is a running token/cost total.
type Usage struct {
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// Add returns the field-wise sum of two Usage values.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		CostUSD:      u.CostUSD + o.CostUSD,
	}
}

// ChatMetadata is the lightweight listing record kept alongside each
// ChatSession in metadata.json.
type ChatMetadata struct {
	ID           string
	Name         string
	CreatedAt    int64
	UpdatedAt    int64
	MessageCount int
	TotalUsage   Usage
	LastUsage    Usage
	TokensLimit  int // 0 means unknown
}

// Merge returns a copy of m with non-zero fields from update applied,
// preserving fields the update left zero-valued (e.g. Name on a
// usage-only update).
func (m ChatMetadata) Merge(update ChatMetadata) ChatMetadata {
	result := m
	if update.Name != "" {
		result.Name = update.Name
	}
	if update.UpdatedAt > 0 {
		result.UpdatedAt = update.UpdatedAt
	}
	if update.MessageCount > 0 {
		result.MessageCount = update.MessageCount
	}
	if update.TotalUsage != (Usage{}) {
		result.TotalUsage = update.TotalUsage
	}
	if update.LastUsage != (Usage{}) {
		result.LastUsage = update.LastUsage
	}
	if update.TokensLimit > 0 {
		result.TokensLimit = update.TokensLimit
	}
	return result
}

// Service is the live, subscribable session accessor used by front-ends;
// pkg/store.Store is the durable backend it sits on top of.
type Service interface {
	Create(ctx context.Context, name string) (ChatSession, error)
	Get(ctx context.Context, id string) (ChatSession, error)
	List(ctx context.Context) ([]ChatMetadata, error)
	Delete(ctx context.Context, id string) error
	Subscribe(ctx context.Context) <-chan pubsub.Event[ChatMetadata]
}
