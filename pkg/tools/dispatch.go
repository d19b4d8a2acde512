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
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hollowmark/weave/internal/session"
	"github.com/hollowmark/weave/pkg/stream"
)

// Dispatch turns one finalized stream.ToolRequest into a Result: it looks
// up the tool, parses the request's raw encoding according to its
// syntax, validates the parsed input against the tool's JSON Schema, and
// invokes it. A parse or validation failure never panics or reaches the
// provider; it comes back as a failed Result so the turn loop can report
// it to the model as a normal tool error and let it retry.
func (r *Registry) Dispatch(tc *ToolContext, req stream.ToolRequest) Result {
	tool, ok := r.Get(req.Name)
	if !ok {
		return fail(fmt.Sprintf("unknown tool %q", req.Name), nil)
	}

	var parsed ParsedInput
	var err error
	switch req.Syntax {
	case session.ToolSyntaxNative:
		parsed, err = ParseNative(req.Name, req.Input)
	default:
		parsed, err = r.ParseTagged(req.Name, req.Input)
	}
	if err != nil {
		return fail(err.Error(), nil)
	}

	if msg := validateAgainstSchema(tool.Spec().ParametersSchema, parsed.Args); msg != "" {
		return fail(msg, nil)
	}

	tc.ToolID = req.ID
	result, err := tool.Invoke(tc, parsed.Args)
	if err != nil {
		return fail(err.Error(), nil)
	}
	return result
}

// validateAgainstSchema runs args through schema's JSON Schema document.
// Returns "" when valid, or a combined human-readable message of every
// violation otherwise.
func validateAgainstSchema(schema map[string]any, args map[string]any) string {
	if schema == nil {
		return ""
	}
	schemaLoader := gojsonschema.NewGoLoader(schema)
	docLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Sprintf("schema validation error: %v", err)
	}
	if result.Valid() {
		return ""
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return strings.Join(msgs, "; ")
}
