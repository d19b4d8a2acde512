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
package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatMetadataMerge(t *testing.T) {
	tests := []struct {
		name     string
		existing ChatMetadata
		update   ChatMetadata
		want     ChatMetadata
	}{
		{
			name: "preserves existing Name when update has empty name",
			existing: ChatMetadata{
				ID:   "s1",
				Name: "My Session",
			},
			update: ChatMetadata{
				ID:         "s1",
				TotalUsage: Usage{InputTokens: 500, OutputTokens: 200, CostUSD: 1.23},
			},
			want: ChatMetadata{
				ID:         "s1",
				Name:       "My Session", // preserved
				TotalUsage: Usage{InputTokens: 500, OutputTokens: 200, CostUSD: 1.23},
			},
		},
		{
			name: "updates TotalUsage and LastUsage from a usage event",
			existing: ChatMetadata{
				ID:   "s1",
				Name: "My Session",
			},
			update: ChatMetadata{
				ID:         "s1",
				TotalUsage: Usage{InputTokens: 100, OutputTokens: 50, CostUSD: 0.05},
				LastUsage:  Usage{InputTokens: 100, OutputTokens: 50, CostUSD: 0.05},
			},
			want: ChatMetadata{
				ID:         "s1",
				Name:       "My Session",
				TotalUsage: Usage{InputTokens: 100, OutputTokens: 50, CostUSD: 0.05},
				LastUsage:  Usage{InputTokens: 100, OutputTokens: 50, CostUSD: 0.05},
			},
		},
		{
			name: "does not overwrite non-zero fields with zero values",
			existing: ChatMetadata{
				ID:           "s1",
				Name:         "Keep Me",
				MessageCount: 999,
				TotalUsage:   Usage{InputTokens: 888, OutputTokens: 111, CostUSD: 9.99},
				TokensLimit:  180_000,
			},
			update: ChatMetadata{
				ID: "s1",
				// all other fields zero
			},
			want: ChatMetadata{
				ID:           "s1",
				Name:         "Keep Me",
				MessageCount: 999,
				TotalUsage:   Usage{InputTokens: 888, OutputTokens: 111, CostUSD: 9.99},
				TokensLimit:  180_000,
			},
		},
		{
			name: "updates MessageCount when non-zero",
			existing: ChatMetadata{
				ID:   "s1",
				Name: "With Messages",
			},
			update: ChatMetadata{
				ID:           "s1",
				MessageCount: 12,
			},
			want: ChatMetadata{
				ID:           "s1",
				Name:         "With Messages",
				MessageCount: 12,
			},
		},
		{
			name: "updates Name when non-empty",
			existing: ChatMetadata{
				ID:   "s1",
				Name: "Old Name",
			},
			update: ChatMetadata{
				ID:   "s1",
				Name: "New Name",
			},
			want: ChatMetadata{
				ID:   "s1",
				Name: "New Name",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.existing.Merge(tc.update)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUsageAdd(t *testing.T) {
	a := Usage{InputTokens: 10, OutputTokens: 5, CostUSD: 0.25}
	b := Usage{InputTokens: 3, OutputTokens: 7, CostUSD: 0.5}

	got := a.Add(b)

	assert.Equal(t, Usage{InputTokens: 13, OutputTokens: 12, CostUSD: 0.75}, got)
}
