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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hollowmark/weave/pkg/memory"
)

// web_search, web_fetch and perplexity_ask are external collaborators:
// spec.md §4.4 treats them as black-box I/O returning text, with no
// required provider. This file wires each to one concrete HTTP-backed
// provider, following the environment-variable API key convention the
// teacher repo uses for its own web_search tool.

var collabClient = &http.Client{Timeout: 30 * time.Second}

// --- web_search ----------------------------------------------------------

type webSearchTool struct{}

func (t *webSearchTool) Spec() Spec {
	return Spec{
		Name:        "web_search",
		Description: "Search the web for current information; requires TAVILY_API_KEY.",
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":       map[string]any{"type": "string"},
				"max_results": map[string]any{"type": "integer"},
			},
			"required": []any{"query"},
		},
		SupportedScopes: []Scope{ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type tavilyResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

func (t *webSearchTool) Invoke(tc *ToolContext, input map[string]any) (Result, error) {
	apiKey := os.Getenv("TAVILY_API_KEY")
	if apiKey == "" {
		return fail("web_search requires TAVILY_API_KEY to be set", nil), nil
	}
	query := asString(input["query"])
	maxResults := 10
	if v, ok := input["max_results"].(int64); ok && v > 0 {
		maxResults = int(v)
	}

	body, err := json.Marshal(tavilyRequest{APIKey: apiKey, Query: query, MaxResults: maxResults})
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	raw, err := postJSON(tc.Context, "https://api.tavily.com/search", body)
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fail(fmt.Sprintf("parsing search response: %v", err), nil), nil
	}

	var b bytes.Buffer
	for _, r := range parsed.Results {
		fmt.Fprintf(&b, "- %s (%s)\n  %s\n", r.Title, r.URL, r.Content)
	}
	text := b.String()
	if tc.Memory != nil {
		tc.Memory.LoadResource("", "web_search:"+query, memory.Resource{Kind: memory.ResourceWebSearch, Query: query, Content: text})
	}
	return ok(fmt.Sprintf("found %d result(s)", len(parsed.Results)), func(*ResourcesTracker) string { return text }), nil
}

// --- web_fetch ----------------------------------------------------------

type webFetchTool struct{}

func (t *webFetchTool) Spec() Spec {
	return Spec{
		Name:        "web_fetch",
		Description: "Fetch a URL's content as text.",
		ParametersSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"url": map[string]any{"type": "string"}},
			"required":   []any{"url"},
		},
		SupportedScopes: []Scope{ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

func (t *webFetchTool) Invoke(tc *ToolContext, input map[string]any) (Result, error) {
	url := asString(input["url"])

	req, err := http.NewRequestWithContext(tc.Context, http.MethodGet, url, nil)
	if err != nil {
		return fail(err.Error(), nil), nil
	}
	resp, err := collabClient.Do(req)
	if err != nil {
		return fail(err.Error(), nil), nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fail(err.Error(), nil), nil
	}
	if resp.StatusCode >= 400 {
		return fail(fmt.Sprintf("fetch %s: HTTP %d", url, resp.StatusCode), nil), nil
	}

	text := string(raw)
	if tc.Memory != nil {
		tc.Memory.LoadResource("", "web_fetch:"+url, memory.Resource{Kind: memory.ResourceWebPage, Content: text})
	}
	return ok(fmt.Sprintf("fetched %d byte(s)", len(raw)), func(*ResourcesTracker) string { return text }), nil
}

// --- perplexity_ask ----------------------------------------------------------

type perplexityAskTool struct{}

func (t *perplexityAskTool) Spec() Spec {
	return Spec{
		Name:        "perplexity_ask",
		Description: "Ask Perplexity's online model a question; requires PERPLEXITY_API_KEY.",
		ParametersSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"question": map[string]any{"type": "string"}},
			"required":   []any{"question"},
		},
		SupportedScopes: []Scope{ScopeAgent, ScopeAgentWithDiffBlocks},
	}
}

type perplexityChatRequest struct {
	Model    string              `json:"model"`
	Messages []perplexityMessage `json:"messages"`
}

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityChoice struct {
	Message perplexityMessage `json:"message"`
}

type perplexityChatResponse struct {
	Choices []perplexityChoice `json:"choices"`
}

func (t *perplexityAskTool) Invoke(tc *ToolContext, input map[string]any) (Result, error) {
	apiKey := os.Getenv("PERPLEXITY_API_KEY")
	if apiKey == "" {
		return fail("perplexity_ask requires PERPLEXITY_API_KEY to be set", nil), nil
	}
	question := asString(input["question"])

	body, err := json.Marshal(perplexityChatRequest{
		Model:    "sonar",
		Messages: []perplexityMessage{{Role: "user", Content: question}},
	})
	if err != nil {
		return fail(err.Error(), nil), nil
	}

	req, err := http.NewRequestWithContext(tc.Context, http.MethodPost, "https://api.perplexity.ai/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fail(err.Error(), nil), nil
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := collabClient.Do(req)
	if err != nil {
		return fail(err.Error(), nil), nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fail(err.Error(), nil), nil
	}
	if resp.StatusCode >= 400 {
		return fail(fmt.Sprintf("perplexity_ask: HTTP %d: %s", resp.StatusCode, string(raw)), nil), nil
	}

	var parsed perplexityChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fail(fmt.Sprintf("parsing perplexity response: %v", err), nil), nil
	}
	text := ""
	if len(parsed.Choices) > 0 {
		text = parsed.Choices[0].Message.Content
	}
	return ok("answered", func(*ResourcesTracker) string { return text }), nil
}

func postJSON(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := collabClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
