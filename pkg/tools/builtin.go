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

// builtinTools returns the registry's default tool catalog, per the
// table in spec.md §4.4.
func builtinTools() []Tool {
	return []Tool{
		&listProjectsTool{},
		&listFilesTool{},
		&readFilesTool{},
		&searchFilesTool{},
		&writeFileTool{},
		&editTool{},
		&replaceInFileTool{},
		&deleteFilesTool{},
		&summarizeTool{},
		&executeCommandTool{},
		&updatePlanTool{},
		&completeTaskTool{},
		&webSearchTool{},
		&webFetchTool{},
		&perplexityAskTool{},
		&delegateTaskTool{},
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asStringSlice(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, asString(e))
		}
		return out
	case []string:
		return t
	case string:
		return []string{t}
	default:
		return nil
	}
}
