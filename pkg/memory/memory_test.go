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

package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExclusive_SummarizeMovesOutOfLoaded is the C6 invariant of spec.md
// §4.6: a (project, path) key is never simultaneously present in both
// loadedResources and summaries.
func TestExclusive_SummarizeMovesOutOfLoaded(t *testing.T) {
	m := New()
	m.LoadResource("p", "a.go", Resource{Kind: ResourceFile, Content: "package a"})
	assert.True(t, m.IsLoaded("p", "a.go"))
	assert.True(t, m.Exclusive())

	ok := m.Summarize("p", "a.go", "a short summary")
	require.True(t, ok)
	assert.False(t, m.IsLoaded("p", "a.go"))
	assert.True(t, m.Exclusive())

	snap := m.Snapshot()
	_, inLoaded := snap.LoadedResources["p\x00a.go"]
	_, inSummary := snap.Summaries["p\x00a.go"]
	assert.False(t, inLoaded)
	assert.True(t, inSummary)
}

// TestExclusive_ReloadingASummarizedResourceDropsTheSummary covers the
// other direction of the invariant: loading a resource that currently has
// a summary must remove that summary, not leave both present.
func TestExclusive_ReloadingASummarizedResourceDropsTheSummary(t *testing.T) {
	m := New()
	m.LoadResource("p", "a.go", Resource{Kind: ResourceFile, Content: "v1"})
	require.True(t, m.Summarize("p", "a.go", "summary of v1"))

	m.LoadResource("p", "a.go", Resource{Kind: ResourceFile, Content: "v2"})
	assert.True(t, m.IsLoaded("p", "a.go"))
	assert.True(t, m.Exclusive())

	snap := m.Snapshot()
	_, inSummary := snap.Summaries["p\x00a.go"]
	assert.False(t, inSummary)
	assert.Equal(t, "v2", snap.LoadedResources["p\x00a.go"])
}

func TestSummarize_UnloadedResourceFails(t *testing.T) {
	m := New()
	ok := m.Summarize("p", "never-loaded.go", "summary")
	assert.False(t, ok)
}

func TestForget_RemovesFromBoth(t *testing.T) {
	m := New()
	m.LoadResource("p", "a.go", Resource{Kind: ResourceFile, Content: "x"})
	m.Forget("p", "a.go")
	assert.False(t, m.IsLoaded("p", "a.go"))

	m.LoadResource("p", "b.go", Resource{Kind: ResourceFile, Content: "x"})
	m.Summarize("p", "b.go", "sum")
	m.Forget("p", "b.go")
	snap := m.Snapshot()
	_, inSummary := snap.Summaries["p\x00b.go"]
	assert.False(t, inSummary)
}

// TestLoadedOrder_IsInsertionOrder matters for prompt-cache stability: the
// working-memory prompt section must render in load order, not sorted
// order.
func TestLoadedOrder_IsInsertionOrder(t *testing.T) {
	m := New()
	m.LoadResource("p", "z.go", Resource{Kind: ResourceFile, Content: "z"})
	m.LoadResource("p", "a.go", Resource{Kind: ResourceFile, Content: "a"})
	m.LoadResource("p", "m.go", Resource{Kind: ResourceFile, Content: "m"})

	order := m.LoadedOrder()
	require.Len(t, order, 3)
	assert.Equal(t, []string{"p\x00z.go", "p\x00a.go", "p\x00m.go"}, order)
}

func TestRestore_RoundTripsSnapshot(t *testing.T) {
	m := New()
	m.LoadResource("p", "a.go", Resource{Kind: ResourceFile, Content: "a"})
	m.Summarize("p", "a.go", "sum-a")
	m.LoadResource("p", "b.go", Resource{Kind: ResourceFile, Content: "b"})
	m.SetPlan("- [ ] step one", nil)

	snap := m.Snapshot()
	restored := Restore(snap)

	assert.True(t, restored.Exclusive())
	assert.True(t, restored.IsLoaded("p", "b.go"))
	assert.False(t, restored.IsLoaded("p", "a.go"))
	plan, _ := restored.Plan()
	assert.Equal(t, "- [ ] step one", plan)
}

func TestAvailableProjects_SortedAndDeduped(t *testing.T) {
	m := New()
	m.RegisterProject("zeta")
	m.RegisterProject("alpha")
	m.RegisterProject("alpha")
	assert.Equal(t, []string{"alpha", "zeta"}, m.AvailableProjects())
}
