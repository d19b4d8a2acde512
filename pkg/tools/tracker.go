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
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// ResourcesTracker de-duplicates large payloads across serialized tool
// results within one turn: when a tool's render emits a file, it stamps
// (project, path, content_hash); a second render of the same fingerprint
// within the same tracker emits a placeholder instead. Turn-local; never
// shared across turns.
type ResourcesTracker struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewResourcesTracker constructs an empty, turn-local tracker.
func NewResourcesTracker() *ResourcesTracker {
	return &ResourcesTracker{seen: make(map[string]bool)}
}

const dedupPlaceholder = "(content shown in another tool invocation)"

// RenderFile returns content verbatim the first time (project, path,
// content) is seen in this tracker, and the placeholder on every
// subsequent call with the same fingerprint.
func (t *ResourcesTracker) RenderFile(project, path, content string) string {
	if t == nil {
		return content
	}
	sum := sha256.Sum256([]byte(content))
	key := project + "\x00" + path + "\x00" + hex.EncodeToString(sum[:])

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seen[key] {
		return dedupPlaceholder
	}
	t.seen[key] = true
	return content
}
