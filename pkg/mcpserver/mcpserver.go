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

// Package mcpserver implements the MCP stdio server surface of spec.md
// §6: newline-delimited JSON-RPC 2.0 on stdin/stdout, serving
// initialize, resources/*, tools/list, tools/call and prompts/list
// against the MCP-scoped subset of the C4 tool registry, with a null
// working memory. Grounded in the teacher's pkg/mcp/transport
// (StdioServerTransport's one-line-per-message read loop) and
// pkg/mcp/server (handlers.go's per-method dispatch table), collapsed
// into one small package since this spec carries no HTTP/SSE transport.
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hollowmark/weave/internal/session"
	"github.com/hollowmark/weave/pkg/stream"
	"github.com/hollowmark/weave/pkg/tools"
)

// JSON-RPC error codes spec.md §6 names explicitly.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeResourceNotFound = -32001
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ResourceReader exposes the handful of resource-oriented operations the
// MCP surface needs; Server's caller supplies one backed by a
// tools.ProjectResolver + workspace.Explorer (resources map 1:1 onto
// workspace files under "weave://<project>/<path>" URIs).
type ResourceReader interface {
	ListResources(ctx context.Context) ([]Resource, error)
	ReadResource(ctx context.Context, uri string) (string, error)
}

// Resource is one entry in resources/list.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Server serves the MCP methods of spec.md §6 over newline-delimited
// JSON-RPC 2.0.
type Server struct {
	Registry  *tools.Registry
	Projects  tools.ProjectResolver
	Resources ResourceReader

	subsMu        sync.Mutex
	subscriptions map[string]bool
}

// New constructs a Server. resources may be nil, in which case
// resources/list always returns an empty list and resources/read always
// errors with CodeResourceNotFound.
func New(registry *tools.Registry, projects tools.ProjectResolver, resources ResourceReader) *Server {
	return &Server{Registry: registry, Projects: projects, Resources: resources, subscriptions: map[string]bool{}}
}

// Serve reads one JSON-RPC request per line from r, writes one response
// per line to w, until r is exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	var writeMu sync.Mutex

	write := func(v any) {
		b, err := json.Marshal(v)
		if err != nil {
			zap.L().Error("mcpserver: marshal response", zap.Error(err))
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		w.Write(b)
		w.Write([]byte("\n"))
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(bytesTrimSpace(line)) == 0 {
			continue
		}
		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			write(response{JSONRPC: "2.0", Error: &rpcError{Code: CodeInvalidParams, Message: "invalid JSON-RPC request"}})
			continue
		}
		write(s.handle(ctx, req))
	}
	return scanner.Err()
}

func (s *Server) handle(ctx context.Context, req request) response {
	resp := response{JSONRPC: "2.0", ID: req.ID}

	var result any
	var err error
	switch req.Method {
	case "initialize":
		result = s.handleInitialize()
	case "tools/list":
		result = s.handleToolsList()
	case "tools/call":
		result, err = s.handleToolsCall(ctx, req.Params)
	case "resources/list":
		result, err = s.handleResourcesList(ctx)
	case "resources/read":
		result, err = s.handleResourcesRead(ctx, req.Params)
	case "resources/subscribe":
		result, err = s.handleSubscribe(req.Params, true)
	case "resources/unsubscribe":
		result, err = s.handleSubscribe(req.Params, false)
	case "prompts/list":
		result = map[string]any{"prompts": []any{}}
	default:
		resp.Error = &rpcError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
		return resp
	}

	if err != nil {
		resp.Error = toRPCError(err)
		return resp
	}
	resp.Result = result
	return resp
}

func (s *Server) handleInitialize() any {
	return map[string]any{
		"protocolVersion": "2024-11-05",
		"serverInfo":      map[string]any{"name": "weave", "version": "0.1.0"},
		"capabilities": map[string]any{
			"tools":     map[string]any{"listChanged": true},
			"resources": map[string]any{"subscribe": true, "listChanged": true},
			"prompts":   map[string]any{},
		},
	}
}

type mcpTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func (s *Server) handleToolsList() any {
	specs := s.Registry.Specs(tools.ScopeMCPServer)
	out := make([]mcpTool, 0, len(specs))
	for _, spec := range specs {
		out = append(out, mcpTool{Name: spec.Name, Description: spec.Description, InputSchema: spec.ParametersSchema})
	}
	return map[string]any{"tools": out}
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callToolResult struct {
	Content []toolContent `json:"content"`
	IsError bool          `json:"isError"`
}

func (s *Server) handleToolsCall(ctx context.Context, raw json.RawMessage) (any, error) {
	var params callToolParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &rpcTypedError{code: CodeInvalidParams, msg: fmt.Sprintf("invalid tool call params: %v", err)}
	}
	if params.Name == "" {
		return nil, &rpcTypedError{code: CodeInvalidParams, msg: "tool name is required"}
	}

	input := string(params.Arguments)
	if input == "" {
		input = "{}"
	}

	tc := &tools.ToolContext{
		Context:  ctx,
		Projects: s.Projects,
		Memory:   nil, // spec.md §4.4: tools/call dispatches "with a null working memory"
		ToolID:   uuid.New().String(),
	}
	result := s.Registry.Dispatch(tc, stream.ToolRequest{
		ID:     tc.ToolID,
		Name:   params.Name,
		Input:  input,
		Syntax: session.ToolSyntaxNative,
	})

	tracker := tools.NewResourcesTracker()
	return &callToolResult{
		Content: []toolContent{{Type: "text", Text: result.Render(tracker)}},
		IsError: !result.IsSuccess,
	}, nil
}

func (s *Server) handleResourcesList(ctx context.Context) (any, error) {
	if s.Resources == nil {
		return map[string]any{"resources": []Resource{}}, nil
	}
	resources, err := s.Resources.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"resources": resources}, nil
}

type readResourceParams struct {
	URI string `json:"uri"`
}

func (s *Server) handleResourcesRead(ctx context.Context, raw json.RawMessage) (any, error) {
	var params readResourceParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &rpcTypedError{code: CodeInvalidParams, msg: fmt.Sprintf("invalid resource read params: %v", err)}
	}
	if params.URI == "" {
		return nil, &rpcTypedError{code: CodeInvalidParams, msg: "resource URI is required"}
	}
	if s.Resources == nil {
		return nil, &rpcTypedError{code: CodeResourceNotFound, msg: fmt.Sprintf("resource not found: %s", params.URI)}
	}
	text, err := s.Resources.ReadResource(ctx, params.URI)
	if err != nil {
		return nil, &rpcTypedError{code: CodeResourceNotFound, msg: err.Error()}
	}
	return map[string]any{"contents": []map[string]any{{"uri": params.URI, "text": text}}}, nil
}

func (s *Server) handleSubscribe(raw json.RawMessage, subscribe bool) (any, error) {
	var params readResourceParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &rpcTypedError{code: CodeInvalidParams, msg: fmt.Sprintf("invalid subscribe params: %v", err)}
	}
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if subscribe {
		s.subscriptions[params.URI] = true
	} else {
		delete(s.subscriptions, params.URI)
	}
	return map[string]any{}, nil
}

type rpcTypedError struct {
	code int
	msg  string
}

func (e *rpcTypedError) Error() string { return e.msg }

func toRPCError(err error) *rpcError {
	if te, ok := err.(*rpcTypedError); ok {
		return &rpcError{Code: te.code, Message: te.msg}
	}
	return &rpcError{Code: CodeInvalidParams, Message: err.Error()}
}

func bytesTrimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }
