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

package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseTagged_SingularToPluralNormalization covers spec.md scenario 3:
// a model emitting repeated <param:path> tags against a tool whose schema
// declares a "paths" array must land in that array, not be dropped or
// rejected as an unknown field.
func TestParseTagged_SingularToPluralNormalization(t *testing.T) {
	r := NewRegistry()

	// Single repeated-tag occurrence: the tag scanner collapses a lone
	// repetition to a bare string, not a one-element array.
	parsed, err := r.ParseTagged("delete_files", `{"project":"p","path":"a.txt"}`)
	require.NoError(t, err)
	assert.Equal(t, []any{"a.txt"}, parsed.Args["paths"])
	_, hasSingular := parsed.Args["path"]
	assert.False(t, hasSingular, "singular key must not survive alongside the normalized plural key")

	// Two repeated tags: the XML/Caret tag scanner already joins these
	// into a []any before ParseTagged runs.
	parsed, err = r.ParseTagged("delete_files", `{"project":"p","path":["a.txt","b.txt"]}`)
	require.NoError(t, err)
	assert.Equal(t, []any{"a.txt", "b.txt"}, parsed.Args["paths"])
}

func TestParseTagged_ExactPluralNameTakesPrecedence(t *testing.T) {
	r := NewRegistry()
	parsed, err := r.ParseTagged("delete_files", `{"project":"p","paths":["a.txt"]}`)
	require.NoError(t, err)
	assert.Equal(t, []any{"a.txt"}, parsed.Args["paths"])
}

func TestParseTagged_BooleanCoercion(t *testing.T) {
	r := NewRegistry()
	parsed, err := r.ParseTagged("execute_command", `{"project":"p","command":"ls","bypass_sandbox":"true"}`)
	require.NoError(t, err)
	assert.Equal(t, true, parsed.Args["bypass_sandbox"])
}

func TestParseNative_EmptyInputIsEmptyMap(t *testing.T) {
	parsed, err := ParseNative("complete_task", "")
	require.NoError(t, err)
	assert.Empty(t, parsed.Args)
}
