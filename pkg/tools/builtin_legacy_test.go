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

func TestParseLegacyDiffBlocks_Basic(t *testing.T) {
	diff := "<<<<<<< SEARCH\n" +
		"old line\n" +
		"=======\n" +
		"new line\n" +
		">>>>>>> REPLACE\n"
	blocks, err := parseLegacyDiffBlocks(diff)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "old line", blocks[0].Search)
	assert.Equal(t, "new line", blocks[0].Replace)
	assert.False(t, blocks[0].ReplaceAll)
}

// TestParseLegacyDiffBlocks_StraySeparatorBeforeEndMarker is spec.md
// scenario 5: a model emits a stray "=======" immediately before the end
// marker. That line must be discarded, not accumulated as replace content.
func TestParseLegacyDiffBlocks_StraySeparatorBeforeEndMarker(t *testing.T) {
	diff := "<<<<<<< SEARCH\n" +
		"if a > b {\n" +
		"=======\n" +
		"if a >= b {\n" +
		"=======\n" +
		">>>>>>> REPLACE\n"
	blocks, err := parseLegacyDiffBlocks(diff)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "if a > b {", blocks[0].Search)
	assert.Equal(t, "if a >= b {", blocks[0].Replace)
}

// A "=======" that is NOT immediately followed by the end marker is real
// replace content (e.g. a model reproducing a markdown horizontal rule)
// and must be kept.
func TestParseLegacyDiffBlocks_SeparatorNotBeforeEndMarkerIsKept(t *testing.T) {
	diff := "<<<<<<< SEARCH\n" +
		"old\n" +
		"=======\n" +
		"new\n" +
		"=======\n" +
		"more new\n" +
		">>>>>>> REPLACE\n"
	blocks, err := parseLegacyDiffBlocks(diff)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "new\n=======\nmore new", blocks[0].Replace)
}

func TestParseLegacyDiffBlocks_ReplaceAll(t *testing.T) {
	diff := "<<<<<<< SEARCH_ALL\n" +
		"x\n" +
		"=======\n" +
		"y\n" +
		">>>>>>> REPLACE_ALL\n"
	blocks, err := parseLegacyDiffBlocks(diff)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.True(t, blocks[0].ReplaceAll)
}

func TestParseLegacyDiffBlocks_MultipleBlocks(t *testing.T) {
	diff := "<<<<<<< SEARCH\n" +
		"a\n" +
		"=======\n" +
		"b\n" +
		">>>>>>> REPLACE\n" +
		"<<<<<<< SEARCH\n" +
		"c\n" +
		"=======\n" +
		"d\n" +
		">>>>>>> REPLACE\n"
	blocks, err := parseLegacyDiffBlocks(diff)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "a", blocks[0].Search)
	assert.Equal(t, "c", blocks[1].Search)
}

func TestParseLegacyDiffBlocks_UnterminatedSearchErrors(t *testing.T) {
	_, err := parseLegacyDiffBlocks("<<<<<<< SEARCH\nold\n")
	require.Error(t, err)
}

func TestParseLegacyDiffBlocks_UnterminatedReplaceErrors(t *testing.T) {
	_, err := parseLegacyDiffBlocks("<<<<<<< SEARCH\nold\n=======\nnew\n")
	require.Error(t, err)
}

func TestParseLegacyDiffBlocks_NoBlocksIsEmpty(t *testing.T) {
	blocks, err := parseLegacyDiffBlocks("just some prose, no markers\n")
	require.NoError(t, err)
	assert.Empty(t, blocks)
}
