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

package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExplorer(t *testing.T) *Explorer {
	t.Helper()
	root := t.TempDir()
	e, err := New(root)
	require.NoError(t, err)
	return e
}

// TestResolve_PathTraversalRejected is spec.md scenario 6: a path that
// escapes the project root (via "..") must be rejected before any bytes
// are read, with a PolicyError, not silently clamped.
func TestResolve_PathTraversalRejected(t *testing.T) {
	e := newTestExplorer(t)

	// Plant a real file just outside the project root to prove escaping
	// it would otherwise succeed.
	parent := filepath.Dir(e.RootDir())
	outside := filepath.Join(parent, "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))
	t.Cleanup(func() { os.Remove(outside) })

	_, err := e.ReadFile("../outside.txt")
	require.Error(t, err)
	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
}

func TestResolve_NestedTraversalRejected(t *testing.T) {
	e := newTestExplorer(t)
	require.NoError(t, os.MkdirAll(filepath.Join(e.RootDir(), "sub"), 0o755))

	_, err := e.ReadFile("sub/../../outside.txt")
	require.Error(t, err)
	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
}

func TestResolve_DeepTraversalRejected(t *testing.T) {
	e := newTestExplorer(t)
	_, err := e.ReadFile("../../../../../../etc/passwd")
	require.Error(t, err)
	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
}

func TestResolve_PathWithinRootSucceeds(t *testing.T) {
	e := newTestExplorer(t)
	require.NoError(t, os.WriteFile(filepath.Join(e.RootDir(), "a.txt"), []byte("hello\n"), 0o644))
	content, err := e.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", content)
}

// TestWriteFile_RoundTripsCRLF covers the C1 format round-trip property:
// a CRLF file read (and LF-normalized in memory), written back unchanged,
// restores its original line endings on disk.
func TestWriteFile_RoundTripsCRLF(t *testing.T) {
	e := newTestExplorer(t)
	path := filepath.Join(e.RootDir(), "crlf.txt")
	require.NoError(t, os.WriteFile(path, []byte("line one\r\nline two\r\n"), 0o644))

	normalized, err := e.ReadFile("crlf.txt")
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", normalized)

	_, err = e.WriteFile("crlf.txt", normalized, false)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line one\r\nline two\r\n", string(raw))
}

func TestDeleteFile_RemovesFile(t *testing.T) {
	e := newTestExplorer(t)
	path := filepath.Join(e.RootDir(), "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.NoError(t, e.DeleteFile("gone.txt"))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteFile_TraversalRejected(t *testing.T) {
	e := newTestExplorer(t)
	err := e.DeleteFile("../outside.txt")
	require.Error(t, err)
	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
}

func TestReadFileRange_BoundsClamp(t *testing.T) {
	e := newTestExplorer(t)
	require.NoError(t, os.WriteFile(filepath.Join(e.RootDir(), "f.txt"), []byte("a\nb\nc\nd\n"), 0o644))

	got, err := e.ReadFileRange("f.txt", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "b\nc", got)

	got, err = e.ReadFileRange("f.txt", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\nd\n", got)
}
