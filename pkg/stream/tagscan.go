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
	"fmt"
	"strings"
)

// delimiters parameterizes the tag tokenizer so XML and Caret mode share
// one scanner implementation, per spec.md §4.5's "isomorphic to XML mode
// with different delimiters" note.
type delimiters struct {
	open  byte // '<' for XML, '^' for Caret
	close byte // '>' for XML, '^' for Caret
}

var xmlDelims = delimiters{open: '<', close: '>'}
var caretDelims = delimiters{open: '^', close: '^'}

// tagScanner tokenizes assistant text for embedded tool/param tags. It is
// fed incrementally (one provider Text chunk at a time) and emits
// PlainText / ToolName / ToolParameter fragments through emit, buffering
// any trailing incomplete tag-open sequence until the next Feed call (or
// stream end) resolves it.
type tagScanner struct {
	d delimiters

	pending string // buffered incomplete tag text, starting at an open delim

	inTool      bool
	toolName    string
	toolID      string
	toolCounter int

	inParam   bool
	paramName string
	paramBuf  strings.Builder

	curParams []rawParam
	finished  []rawToolCall
}

// rawParam is one (name, value) pair accumulated for the in-progress
// tool; repeats are preserved in order since a schema array property may
// be encoded as repeated singular tags.
type rawParam struct {
	Name  string
	Value string
}

// rawToolCall is a fully-closed tool invocation as tokenized from text,
// before C4's schema-driven coercion to canonical JSON.
type rawToolCall struct {
	ID     string
	Name   string
	Params []rawParam
}

func newTagScanner(d delimiters) *tagScanner {
	return &tagScanner{d: d}
}

// Feed scans text, which may continue a previously-buffered partial tag.
func (s *tagScanner) Feed(text string, emit func(Fragment)) {
	buf := s.pending + text
	s.pending = ""

	i := 0
	var plain strings.Builder
	flushPlain := func() {
		if plain.Len() == 0 {
			return
		}
		if s.inParam {
			s.paramBuf.WriteString(plain.String())
		} else if !s.inTool {
			emit(Fragment{Kind: FragPlainText, Text: plain.String()})
		}
		plain.Reset()
	}

	for i < len(buf) {
		c := buf[i]
		if c != s.d.open {
			plain.WriteByte(c)
			i++
			continue
		}
		// Look for the matching close delimiter.
		end := indexCloseFrom(buf, i+1, s.d.close)
		if end < 0 {
			// Incomplete tag: buffer from here and stop. Never emit a
			// partial open bracket to the UI.
			s.pending = buf[i:]
			flushPlain()
			return
		}
		tag := buf[i+1 : end]
		flushPlain()
		s.handleTag(tag, emit)
		i = end + 1
	}
	flushPlain()
}

func indexCloseFrom(s string, from int, close byte) int {
	for i := from; i < len(s); i++ {
		if s[i] == close {
			return i
		}
	}
	return -1
}

func (s *tagScanner) handleTag(tag string, emit func(Fragment)) {
	closing := strings.HasPrefix(tag, "/")
	body := strings.TrimPrefix(tag, "/")

	switch {
	case strings.HasPrefix(body, "tool:"):
		name := strings.TrimPrefix(body, "tool:")
		if closing {
			if s.inTool {
				s.finished = append(s.finished, rawToolCall{ID: s.toolID, Name: s.toolName, Params: s.curParams})
				emit(Fragment{Kind: FragToolEnd, ToolID: s.toolID})
			}
			s.inTool = false
			s.toolName = ""
			s.toolID = ""
			s.curParams = nil
			return
		}
		s.inTool = true
		s.toolName = name
		s.toolID = fmt.Sprintf("tool-%s-%d", name, s.toolCounter)
		s.toolCounter++
		s.curParams = nil
		emit(Fragment{Kind: FragToolName, ToolID: s.toolID, ToolName: name})

	case strings.HasPrefix(body, "param:"):
		name := strings.TrimPrefix(body, "param:")
		if closing {
			if s.inParam {
				emit(Fragment{Kind: FragToolParameter, ToolID: s.toolID, ParamName: s.paramName, ParamValue: s.paramBuf.String()})
				s.curParams = append(s.curParams, rawParam{Name: s.paramName, Value: s.paramBuf.String()})
			}
			s.inParam = false
			s.paramName = ""
			s.paramBuf.Reset()
			return
		}
		s.inParam = true
		s.paramName = name
		s.paramBuf.Reset()

	default:
		// Unrecognized tag syntax: treat verbatim as plain text.
		literal := string(s.d.open) + tag + string(s.d.close)
		if s.inParam {
			s.paramBuf.WriteString(literal)
		} else if !s.inTool {
			emit(Fragment{Kind: FragPlainText, Text: literal})
		}
	}
}

// Close flushes any unclosed tool at stream end, per spec.md §4.5's "on
// stream end any unclosed tool is closed with ToolEnd".
func (s *tagScanner) Close(emit func(Fragment)) {
	if s.pending != "" {
		if s.inParam {
			s.paramBuf.WriteString(s.pending)
		} else if !s.inTool {
			emit(Fragment{Kind: FragPlainText, Text: s.pending})
		}
		s.pending = ""
	}
	if s.inParam {
		emit(Fragment{Kind: FragToolParameter, ToolID: s.toolID, ParamName: s.paramName, ParamValue: s.paramBuf.String()})
		s.curParams = append(s.curParams, rawParam{Name: s.paramName, Value: s.paramBuf.String()})
		s.inParam = false
	}
	if s.inTool {
		s.finished = append(s.finished, rawToolCall{ID: s.toolID, Name: s.toolName, Params: s.curParams})
		emit(Fragment{Kind: FragToolEnd, ToolID: s.toolID})
		s.inTool = false
	}
}

// ToolCalls returns every tool call tokenized so far, closed or not
// (Close must have been called first for an unclosed trailing tool to be
// included).
func (s *tagScanner) ToolCalls() []rawToolCall {
	return s.finished
}
