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

package message

import (
	"encoding/json"
	"fmt"
)

// partKind tags a ContentPart's concrete type in its JSON encoding, since
// the session store round-trips Message through encoding/json (spec.md
// §8 "Session round-trip") and ContentPart carries no exported fields of
// its own to dispatch on.
type partKind string

const (
	kindText       partKind = "text"
	kindThinking   partKind = "thinking"
	kindRedacted   partKind = "redacted_thinking"
	kindImage      partKind = "image"
	kindCompaction partKind = "context_compaction"
	kindToolCall   partKind = "tool_call"
	kindToolResult partKind = "tool_result"
)

// jsonPart is the on-the-wire shape of one ContentPart: a kind tag plus
// whichever variant's fields are populated.
type jsonPart struct {
	Kind partKind `json:"kind"`

	Text *ContentText `json:"text,omitempty"`

	Thinking *ReasoningContent `json:"thinking,omitempty"`

	Redacted *RedactedThinking `json:"redacted,omitempty"`

	Image *Image `json:"image,omitempty"`

	Compaction *ContextCompaction `json:"compaction,omitempty"`

	ToolCall *ToolCall `json:"tool_call,omitempty"`

	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

func encodePart(p ContentPart) (jsonPart, error) {
	switch v := p.(type) {
	case ContentText:
		return jsonPart{Kind: kindText, Text: &v}, nil
	case ReasoningContent:
		return jsonPart{Kind: kindThinking, Thinking: &v}, nil
	case RedactedThinking:
		return jsonPart{Kind: kindRedacted, Redacted: &v}, nil
	case Image:
		return jsonPart{Kind: kindImage, Image: &v}, nil
	case ContextCompaction:
		return jsonPart{Kind: kindCompaction, Compaction: &v}, nil
	case ToolCall:
		return jsonPart{Kind: kindToolCall, ToolCall: &v}, nil
	case ToolResult:
		return jsonPart{Kind: kindToolResult, ToolResult: &v}, nil
	default:
		return jsonPart{}, fmt.Errorf("message: unknown ContentPart %T", p)
	}
}

func (jp jsonPart) decode() (ContentPart, error) {
	switch jp.Kind {
	case kindText:
		if jp.Text == nil {
			return nil, fmt.Errorf("message: text part missing payload")
		}
		return *jp.Text, nil
	case kindThinking:
		if jp.Thinking == nil {
			return nil, fmt.Errorf("message: thinking part missing payload")
		}
		return *jp.Thinking, nil
	case kindRedacted:
		if jp.Redacted == nil {
			return nil, fmt.Errorf("message: redacted part missing payload")
		}
		return *jp.Redacted, nil
	case kindImage:
		if jp.Image == nil {
			return nil, fmt.Errorf("message: image part missing payload")
		}
		return *jp.Image, nil
	case kindCompaction:
		if jp.Compaction == nil {
			return nil, fmt.Errorf("message: compaction part missing payload")
		}
		return *jp.Compaction, nil
	case kindToolCall:
		if jp.ToolCall == nil {
			return nil, fmt.Errorf("message: tool_call part missing payload")
		}
		return *jp.ToolCall, nil
	case kindToolResult:
		if jp.ToolResult == nil {
			return nil, fmt.Errorf("message: tool_result part missing payload")
		}
		return *jp.ToolResult, nil
	default:
		return nil, fmt.Errorf("message: unknown part kind %q", jp.Kind)
	}
}

// jsonMessage mirrors Message's exported shape plus its two unexported
// fields (parts, finish), which MarshalJSON/UnmarshalJSON below bridge
// into this package-private struct so the rest of the system can keep
// treating Message's fields as encapsulated.
type jsonMessage struct {
	ID        string
	SessionID string
	Role      Role
	CreatedAt int64
	Provider  string
	Model     string
	Usage     Usage
	RequestID uint64
	Parts     []jsonPart  `json:"Parts,omitempty"`
	Finish    *FinishPart `json:"Finish,omitempty"`
}

// MarshalJSON implements json.Marshaler so Message round-trips through the
// session store's JSON persistence (spec.md §4.7, §8).
func (m Message) MarshalJSON() ([]byte, error) {
	jm := jsonMessage{
		ID: m.ID, SessionID: m.SessionID, Role: m.Role, CreatedAt: m.CreatedAt,
		Provider: m.Provider, Model: m.Model, Usage: m.Usage, RequestID: m.RequestID,
		Finish: m.finish,
	}
	for _, p := range m.parts {
		jp, err := encodePart(p)
		if err != nil {
			return nil, err
		}
		jm.Parts = append(jm.Parts, jp)
	}
	return json.Marshal(jm)
}

// UnmarshalJSON implements json.Unmarshaler, the inverse of MarshalJSON.
func (m *Message) UnmarshalJSON(data []byte) error {
	var jm jsonMessage
	if err := json.Unmarshal(data, &jm); err != nil {
		return err
	}
	m.ID, m.SessionID, m.Role, m.CreatedAt = jm.ID, jm.SessionID, jm.Role, jm.CreatedAt
	m.Provider, m.Model, m.Usage, m.RequestID = jm.Provider, jm.Model, jm.Usage, jm.RequestID
	m.finish = jm.Finish
	m.parts = nil
	for _, jp := range jm.Parts {
		part, err := jp.decode()
		if err != nil {
			return err
		}
		m.parts = append(m.parts, part)
	}
	return nil
}
