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

package stream

import (
	"encoding/json"
	"sort"

	"github.com/hollowmark/weave/internal/session"
)

// nativeToolState accumulates one native tool call's raw JSON input and
// the last emitted snapshot per parameter key, so only changed keys
// produce a ToolParameter fragment.
type nativeToolState struct {
	name     string
	rawJSON  string
	lastSeen map[string]string // key -> last emitted JSON-encoded value
	order    []string          // first-seen key order, for deterministic diffing
}

// Parser is the C5 streaming parser: one instance per assistant turn.
type Parser struct {
	syntax session.ToolSyntax

	// Native mode state.
	nativeOrder []string // tool_id first-seen order
	native      map[string]*nativeToolState

	// XML/Caret mode state.
	scanner *tagScanner

	cancelled bool
}

// NewParser constructs a Parser for one assistant turn in the given
// syntax.
func NewParser(syntax session.ToolSyntax) *Parser {
	p := &Parser{syntax: syntax, native: make(map[string]*nativeToolState)}
	switch syntax {
	case session.ToolSyntaxXML:
		p.scanner = newTagScanner(xmlDelims)
	case session.ToolSyntaxCaret:
		p.scanner = newTagScanner(caretDelims)
	}
	return p
}

// Cancelled reports whether Cancel has been observed. Feed checks
// this at the start of every call; once set, Feed stops consuming and End
// closes every open tool.
func (p *Parser) Cancelled() bool { return p.cancelled }

// Cancel requests cooperative cancellation, per spec.md §4.5 and §5.
func (p *Parser) Cancel() { p.cancelled = true }

// Feed processes one provider chunk and returns the fragments it produced.
// Returns nil if cancellation was already requested.
func (p *Parser) Feed(chunk Chunk) []Fragment {
	if p.cancelled {
		return nil
	}

	var out []Fragment
	emit := func(f Fragment) { out = append(out, f) }

	switch chunk.Kind {
	case ChunkText:
		if p.syntax == session.ToolSyntaxNative {
			emit(Fragment{Kind: FragPlainText, Text: chunk.Text})
		} else {
			p.scanner.Feed(chunk.Text, emit)
		}
	case ChunkThinking:
		emit(Fragment{Kind: FragThinkingText, Text: chunk.Text})
	case ChunkInputJSON:
		p.feedNative(chunk, emit)
	case ChunkReasoningSummaryStart:
		emit(Fragment{Kind: FragReasoningSummaryStart})
	case ChunkReasoningSummaryDelta:
		emit(Fragment{Kind: FragReasoningSummaryDelta, Text: chunk.Text})
	case ChunkReasoningSummaryEnd:
		emit(Fragment{Kind: FragReasoningSummaryEnd})
	}
	return out
}

func (p *Parser) feedNative(chunk Chunk, emit func(Fragment)) {
	id := chunk.ToolID
	st, exists := p.native[id]
	if !exists {
		st = &nativeToolState{name: chunk.ToolName, lastSeen: make(map[string]string)}
		p.native[id] = st
		p.nativeOrder = append(p.nativeOrder, id)
		emit(Fragment{Kind: FragToolName, ToolID: id, ToolName: chunk.ToolName})
	}
	st.rawJSON += chunk.JSONContent

	parsed, ok := tryParsePartial(st.rawJSON)
	if !ok {
		return
	}

	keys := make([]string, 0, len(parsed))
	for k := range parsed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		encoded, _ := json.Marshal(parsed[k])
		val := string(encoded)
		if prev, seen := st.lastSeen[k]; seen && prev == val {
			continue
		}
		if _, seen := st.lastSeen[k]; !seen {
			st.order = append(st.order, k)
		}
		st.lastSeen[k] = val
		emit(Fragment{Kind: FragToolParameter, ToolID: id, ParamName: k, ParamValue: stringifyJSONValue(parsed[k])})
	}
}

func stringifyJSONValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// End finalizes the stream: emits ToolEnd for every still-open tool (XML
// mode) or every native tool seen (native mode doesn't emit ToolEnd until
// here either), and returns the trailing fragments plus the finalized
// tool-request list.
func (p *Parser) End() ([]Fragment, []ToolRequest) {
	var out []Fragment
	emit := func(f Fragment) { out = append(out, f) }

	if p.syntax == session.ToolSyntaxNative {
		for _, id := range p.nativeOrder {
			emit(Fragment{Kind: FragToolEnd, ToolID: id})
		}
	} else if p.scanner != nil {
		p.scanner.Close(emit)
	}

	return out, p.ToolRequests()
}

// ToolRequests returns the finalized tool-call list built so far. In
// native mode this is derived from the accumulated raw JSON per tool_id;
// in XML/Caret mode it is reconstructed by replaying buffered params --
// callers typically use the fragment stream directly for those modes, but
// ToolRequests is exposed for dispatch-time canonicalization either way
// via the registry's own XML/Caret input parsing (pkg/tools).
func (p *Parser) ToolRequests() []ToolRequest {
	if p.syntax == session.ToolSyntaxNative {
		var out []ToolRequest
		for _, id := range p.nativeOrder {
			st := p.native[id]
			canonical := closePartialJSON(st.rawJSON)
			if canonical == "" {
				canonical = "{}"
			}
			out = append(out, ToolRequest{ID: id, Name: st.name, Input: canonical, Syntax: session.ToolSyntaxNative})
		}
		return out
	}

	var out []ToolRequest
	for _, tc := range p.scanner.ToolCalls() {
		out = append(out, ToolRequest{ID: tc.ID, Name: tc.Name, Input: encodeRawParams(tc.Params), Syntax: p.syntax})
	}
	return out
}

// encodeRawParams renders tag-scanned (name, value) pairs, with repeated
// names collapsed into a JSON array, into the same canonical JSON shape
// C4's native-input path produces. Schema-driven typing (bool/int/array
// singular-vs-plural) happens later, in pkg/tools, which has the target
// tool's JSON Schema to consult.
func encodeRawParams(params []rawParam) string {
	order := make([]string, 0, len(params))
	values := make(map[string][]string)
	for _, p := range params {
		if _, ok := values[p.Name]; !ok {
			order = append(order, p.Name)
		}
		values[p.Name] = append(values[p.Name], p.Value)
	}

	obj := make(map[string]any, len(order))
	for _, name := range order {
		vs := values[name]
		if len(vs) == 1 {
			obj[name] = vs[0]
		} else {
			obj[name] = vs
		}
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "{}"
	}
	return string(b)
}
