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

import "strings"

// RenderTree renders entry as an indented text tree, marking unexpanded
// directories with the "[...]" placeholder from spec.md §3.
func RenderTree(entry *FileTreeEntry) string {
	var b strings.Builder
	renderTree(&b, entry, 0)
	return b.String()
}

func renderTree(b *strings.Builder, entry *FileTreeEntry, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(entry.Name)
	if entry.IsDir {
		b.WriteString("/")
		if !entry.IsExpanded {
			b.WriteString(" [...]")
		}
		b.WriteString("\n")
		for _, name := range sortedKeys(entry.Children) {
			renderTree(b, entry.Children[name], depth+1)
		}
		return
	}
	b.WriteString("\n")
}
