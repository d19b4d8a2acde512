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

package edit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_SingleMatch(t *testing.T) {
	original := "func add(a, b int) int {\n\treturn a + b\n}\n"
	updated, err := Apply(original, []Replacement{
		{Search: "return a + b", Replace: "return a - b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "func add(a, b int) int {\n\treturn a - b\n}\n", updated)
}

func TestApply_MultipleMatches_Rejected(t *testing.T) {
	// spec.md scenario 4: old_text matches more than one location and
	// replace_all is not set -- the file is left unchanged and the error
	// names the block and match count.
	original := "if a > b {\n\tdo()\n}\nif a > b {\n\tdo2()\n}\n"
	_, err := Apply(original, []Replacement{
		{Search: "if a > b {", Replace: "if a >= b {"},
	})
	require.Error(t, err)
	var multi *MultipleMatchesError
	require.ErrorAs(t, err, &multi)
	assert.Equal(t, 2, multi.Count)
	assert.Equal(t, 0, multi.BlockIndex)
	assert.Contains(t, err.Error(), "Try enlarging")
}

func TestApply_MultipleMatches_LeavesOriginalUntouched(t *testing.T) {
	original := "x\nx\n"
	_, err := Apply(original, []Replacement{{Search: "x", Replace: "y"}})
	require.Error(t, err)
	// Apply returns "" on error; callers must not persist it -- verify the
	// input string itself was never mutated (strings are immutable in Go,
	// but this also guards against a future switch to []byte in place).
	assert.Equal(t, "x\nx\n", original)
}

func TestApply_ReplaceAll(t *testing.T) {
	original := "x\nx\nx\n"
	updated, err := Apply(original, []Replacement{{Search: "x", Replace: "y", ReplaceAll: true}})
	require.NoError(t, err)
	assert.Equal(t, "y\ny\ny\n", updated)
}

func TestApply_SearchNotFound(t *testing.T) {
	_, err := Apply("abc", []Replacement{{Search: "zzz", Replace: "y"}})
	require.Error(t, err)
	var notFound *SearchBlockNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestApply_OverlappingMatches_Rejected(t *testing.T) {
	original := "abcdef"
	_, err := Apply(original, []Replacement{
		{Search: "abcd", Replace: "X"},
		{Search: "cdef", Replace: "Y"},
	})
	require.Error(t, err)
	var overlap *OverlappingMatchesError
	require.ErrorAs(t, err, &overlap)
}

func TestApply_AdjacentMatches_Rejected(t *testing.T) {
	// Two blocks whose matched spans touch with zero characters between
	// them are rejected rather than silently applied in an order the
	// caller didn't control.
	original := "abcdef"
	_, err := Apply(original, []Replacement{
		{Search: "abc", Replace: "X"},
		{Search: "def", Replace: "Y"},
	})
	require.Error(t, err)
	var adjacent *AdjacentMatchesError
	require.ErrorAs(t, err, &adjacent)
}

func TestApply_NonOverlappingMultipleBlocks(t *testing.T) {
	original := "abc___def___ghi"
	updated, err := Apply(original, []Replacement{
		{Search: "abc", Replace: "ABC"},
		{Search: "ghi", Replace: "GHI"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ABC___def___GHI", updated)
}

func TestApply_EmptySearchRejected(t *testing.T) {
	_, err := Apply("abc", []Replacement{{Search: "", Replace: "x"}})
	require.Error(t, err)
	var other *OtherError
	require.ErrorAs(t, err, &other)
}

func TestHasConflicts(t *testing.T) {
	assert.True(t, HasConflicts("abcdef", []Replacement{
		{Search: "abc", Replace: "X"},
		{Search: "cde", Replace: "Y"},
	}))
	assert.False(t, HasConflicts("abcdef", []Replacement{
		{Search: "abc", Replace: "X"},
	}))
	// A plain not-found error is not a conflict -- HasConflicts is only
	// about the format-reconstruction skip condition in format.go.
	assert.False(t, HasConflicts("abcdef", []Replacement{
		{Search: "zzz", Replace: "X"},
	}))
}
