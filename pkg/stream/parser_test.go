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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowmark/weave/internal/session"
)

// feedNativeInput runs rawJSON through a fresh Parser, split at the given
// byte offsets, and returns the finalized tool request.
func feedNativeInput(t *testing.T, rawJSON string, splits []int) ToolRequest {
	t.Helper()
	p := NewParser(session.ToolSyntaxNative)
	prev := 0
	for _, at := range splits {
		p.Feed(Chunk{Kind: ChunkInputJSON, ToolID: "call-1", ToolName: "write_file", JSONContent: rawJSON[prev:at]})
		prev = at
	}
	p.Feed(Chunk{Kind: ChunkInputJSON, ToolID: "call-1", ToolName: "write_file", JSONContent: rawJSON[prev:]})

	reqs := p.ToolRequests()
	require.Len(t, reqs, 1)
	return reqs[0]
}

// TestNativeInputJSON_ChunkBoundaryDeterminism is spec.md scenario 2's
// property: InputJson delivered in arbitrarily different chunk boundaries
// must reconstruct the identical final tool input.
func TestNativeInputJSON_ChunkBoundaryDeterminism(t *testing.T) {
	rawJSON := `{"project":"p","path":"a.txt","content":"hello\nworld\n"}`

	wholeChunk := feedNativeInput(t, rawJSON, nil)
	byteByByte := feedNativeInput(t, rawJSON, allOffsets(rawJSON))
	arbitrary := feedNativeInput(t, rawJSON, []int{1, 5, 5, 30, 40})

	assert.Equal(t, rawJSON, wholeChunk.Input)
	assert.Equal(t, wholeChunk.Input, byteByByte.Input)
	assert.Equal(t, wholeChunk.Input, arbitrary.Input)
}

func allOffsets(s string) []int {
	out := make([]int, 0, len(s))
	for i := 1; i < len(s); i++ {
		out = append(out, i)
	}
	return out
}

func TestNativeInputJSON_OnlyChangedParametersEmitFragments(t *testing.T) {
	p := NewParser(session.ToolSyntaxNative)

	frags := p.Feed(Chunk{Kind: ChunkInputJSON, ToolID: "c1", ToolName: "edit", JSONContent: `{"path":"a`})
	// Incomplete JSON: no parameter fragment yet, but the tool name fires
	// once, on first sight of the id.
	require.Len(t, frags, 1)
	assert.Equal(t, FragToolName, frags[0].Kind)

	frags = p.Feed(Chunk{Kind: ChunkInputJSON, ToolID: "c1", JSONContent: `.txt"}`})
	require.Len(t, frags, 1)
	assert.Equal(t, FragToolParameter, frags[0].Kind)
	assert.Equal(t, "path", frags[0].ParamName)
	assert.Equal(t, "a.txt", frags[0].ParamValue)

	// Feeding the exact same complete value again must not re-emit it.
	frags = p.Feed(Chunk{Kind: ChunkInputJSON, ToolID: "c1", JSONContent: ``})
	assert.Empty(t, frags)
}

// TestCancel_NativeFlushesToolEndOnEnd is spec.md scenario 7: a
// cancellation mid-stream must still produce a ToolEnd fragment for every
// tool call that was open when cancellation happened, in native mode.
func TestCancel_NativeFlushesToolEndOnEnd(t *testing.T) {
	p := NewParser(session.ToolSyntaxNative)
	p.Feed(Chunk{Kind: ChunkInputJSON, ToolID: "c1", ToolName: "read_files", JSONContent: `{"path":"a.txt"`})
	p.Feed(Chunk{Kind: ChunkInputJSON, ToolID: "c2", ToolName: "read_files", JSONContent: `{"path":"b.txt"`})

	p.Cancel()
	assert.True(t, p.Cancelled())

	// Feed is a no-op once cancelled.
	frags := p.Feed(Chunk{Kind: ChunkText, Text: "more text"})
	assert.Nil(t, frags)

	trailing, _ := p.End()
	var endedIDs []string
	for _, f := range trailing {
		if f.Kind == FragToolEnd {
			endedIDs = append(endedIDs, f.ToolID)
		}
	}
	assert.ElementsMatch(t, []string{"c1", "c2"}, endedIDs)
}

func TestCancel_XMLFlushesToolEndForUnclosedTag(t *testing.T) {
	p := NewParser(session.ToolSyntaxXML)
	p.Feed(Chunk{Kind: ChunkText, Text: "<tool:read_files><param:path>a.txt</param:path>"})

	p.Cancel()
	frags := p.Feed(Chunk{Kind: ChunkText, Text: "<tool:read_files>"})
	assert.Nil(t, frags)

	trailing, reqs := p.End()
	var sawEnd bool
	for _, f := range trailing {
		if f.Kind == FragToolEnd {
			sawEnd = true
		}
	}
	assert.True(t, sawEnd, "unclosed XML tool must still emit ToolEnd at stream end")
	require.Len(t, reqs, 1)
	assert.Equal(t, "read_files", reqs[0].Name)
}

func TestXML_DeterministicToolIDGeneration(t *testing.T) {
	p1 := NewParser(session.ToolSyntaxXML)
	p1.Feed(Chunk{Kind: ChunkText, Text: "<tool:read_files><param:path>a.txt</param:path></tool:read_files>"})
	_, reqs1 := p1.End()

	p2 := NewParser(session.ToolSyntaxXML)
	p2.Feed(Chunk{Kind: ChunkText, Text: "<tool:read_files><param:path>a.txt</param:path></tool:read_files>"})
	_, reqs2 := p2.End()

	require.Len(t, reqs1, 1)
	require.Len(t, reqs2, 1)
	assert.Equal(t, reqs1[0].ID, reqs2[0].ID, "two identical streams must generate the same tool-call id deterministically")
}
