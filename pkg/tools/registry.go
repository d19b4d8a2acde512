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
	"encoding/json"
	"fmt"
	"sort"
)

// Registry maps tool name to its implementation.
type Registry struct {
	byName map[string]Tool
}

// NewRegistry constructs a Registry pre-populated with every built-in
// tool from spec.md §4.4's surface table.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Tool)}
	for _, t := range builtinTools() {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool by name.
func (r *Registry) Register(t Tool) { r.byName[t.Spec().Name] = t }

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Specs returns every registered tool's Spec, filtered to scope, sorted
// by name.
func (r *Registry) Specs(scope Scope) []Spec {
	var out []Spec
	for _, t := range r.byName {
		spec := t.Spec()
		if spec.Hidden {
			continue
		}
		if !inScope(spec.SupportedScopes, scope) {
			continue
		}
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func inScope(scopes []Scope, want Scope) bool {
	if len(scopes) == 0 {
		return true
	}
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}

// ParsedInput is the result of parsing one tool-call's raw encoding (from
// any of the three syntaxes) into a canonical input ready for schema-based
// coercion and dispatch.
type ParsedInput struct {
	Name string
	Args map[string]any
}

// ParseNative parses a native provider tool-call's JSON input verbatim;
// it is already canonical.
func ParseNative(name, rawJSON string) (ParsedInput, error) {
	args := map[string]any{}
	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &args); err != nil {
			return ParsedInput{}, fmt.Errorf("parsing native tool input: %w", err)
		}
	}
	return ParsedInput{Name: name, Args: args}, nil
}

// ParseTagged parses the canonical JSON the streaming parser's XML/Caret
// tag scanner produced (string or []string leaf values per repeated tag)
// and schema-coerces it per spec.md §4.4: booleans, integers/numbers,
// arrays (accepting both the plural and a repeated singular form), and
// strings otherwise.
func (r *Registry) ParseTagged(name, rawJSON string) (ParsedInput, error) {
	tool, ok := r.Get(name)
	if !ok {
		return ParsedInput{}, fmt.Errorf("unknown tool %q", name)
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(rawJSON), &raw); err != nil {
		return ParsedInput{}, fmt.Errorf("parsing tagged tool input: %w", err)
	}
	coerced, err := coerceToSchema(tool.Spec().ParametersSchema, raw)
	if err != nil {
		return ParsedInput{}, err
	}
	return ParsedInput{Name: name, Args: coerced}, nil
}

func coerceToSchema(schema map[string]any, raw map[string]any) (map[string]any, error) {
	props, _ := schema["properties"].(map[string]any)
	out := make(map[string]any, len(raw))

	for key, value := range raw {
		propSchema, _ := props[key].(map[string]any)
		propType, _ := propSchema["type"].(string)

		// Accept a singular param name for a plural array schema property,
		// e.g. <param:path> repeated maps onto a "paths" array property.
		targetKey, targetType := key, propType
		if targetType == "" {
			if singular, pType := findPluralMatch(props, key); singular != "" {
				targetKey, targetType = singular, pType
			}
		}

		coerced, err := coerceValue(targetType, value, key)
		if err != nil {
			return nil, err
		}
		if existing, has := out[targetKey]; has {
			out[targetKey] = mergeArray(existing, coerced)
		} else {
			out[targetKey] = coerced
		}
	}
	return out, nil
}

// findPluralMatch looks for a schema property whose name is key+"s" (the
// common plural form) and is itself an array, so a repeated singular tag
// like <param:path> lands in a "paths" array property.
func findPluralMatch(props map[string]any, key string) (string, string) {
	plural := key + "s"
	if p, ok := props[plural].(map[string]any); ok {
		if t, _ := p["type"].(string); t == "array" {
			return plural, "array"
		}
	}
	return "", ""
}

func mergeArray(existing, next any) []any {
	arr, ok := existing.([]any)
	if !ok {
		arr = []any{existing}
	}
	if nextArr, ok := next.([]any); ok {
		return append(arr, nextArr...)
	}
	return append(arr, next)
}

func coerceValue(schemaType string, value any, fieldName string) (any, error) {
	s, isString := value.(string)
	switch schemaType {
	case "boolean":
		if !isString {
			return value, nil
		}
		return s == "true" || s == "True" || s == "TRUE", nil
	case "integer", "number":
		if !isString {
			return value, nil
		}
		var f float64
		if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
			return nil, fmt.Errorf("failed to parse %s as %s", fieldName, schemaType)
		}
		if schemaType == "integer" {
			return int64(f), nil
		}
		return f, nil
	case "array":
		switch v := value.(type) {
		case []any:
			return v, nil
		default:
			return []any{v}, nil
		}
	default:
		return value, nil
	}
}
