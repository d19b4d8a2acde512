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

// Package factory builds a concrete llmprovider.Provider from a provider
// name and configuration, the way the teacher's pkg/llm/factory resolves
// its own provider zoo.
package factory

import (
	"context"
	"fmt"
	"os"

	"github.com/hollowmark/weave/pkg/llmprovider"
	"github.com/hollowmark/weave/pkg/llmprovider/anthropic"
	"github.com/hollowmark/weave/pkg/llmprovider/bedrock"
	"github.com/hollowmark/weave/pkg/llmprovider/openaicompat"
)

// Config holds every provider's connection settings; only the fields for
// the selected provider are consulted.
type Config struct {
	DefaultProvider string
	DefaultModel    string
	TokensLimit     int

	AnthropicAPIKey  string
	AnthropicBaseURL string

	BedrockRegion          string
	BedrockAccessKeyID     string
	BedrockSecretAccessKey string
	BedrockSessionToken    string
	BedrockProfile         string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	// OllamaBaseURL selects the OpenAI-compatible shim Ollama serves
	// locally; set Provider to "ollama" to use it with no API key.
	OllamaBaseURL string
}

// New builds the provider named by provider/model, falling back to
// cfg.DefaultProvider/DefaultModel when either is empty.
func New(cfg Config, provider, model string) (llmprovider.Provider, error) {
	if provider == "" {
		provider = cfg.DefaultProvider
	}
	if model == "" {
		model = cfg.DefaultModel
	}

	switch provider {
	case "anthropic", "":
		return newAnthropic(cfg, model)
	case "bedrock":
		return newBedrock(cfg, model)
	case "openai":
		return newOpenAI(cfg, model)
	case "ollama":
		return newOllama(cfg, model)
	default:
		return nil, fmt.Errorf("factory: unsupported provider %q", provider)
	}
}

func newAnthropic(cfg Config, model string) (llmprovider.Provider, error) {
	apiKey := cfg.AnthropicAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return anthropic.New(anthropic.Config{
		APIKey:      apiKey,
		BaseURL:     cfg.AnthropicBaseURL,
		Model:       model,
		TokensLimit: cfg.TokensLimit,
	})
}

func newBedrock(cfg Config, model string) (llmprovider.Provider, error) {
	return bedrock.New(context.Background(), bedrock.Config{
		ModelID:         model,
		Region:          cfg.BedrockRegion,
		AccessKeyID:     cfg.BedrockAccessKeyID,
		SecretAccessKey: cfg.BedrockSecretAccessKey,
		SessionToken:    cfg.BedrockSessionToken,
		Profile:         cfg.BedrockProfile,
		TokensLimit:     cfg.TokensLimit,
	})
}

func newOpenAI(cfg Config, model string) (llmprovider.Provider, error) {
	apiKey := cfg.OpenAIAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	baseURL := cfg.OpenAIBaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return openaicompat.New(openaicompat.Config{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       model,
		TokensLimit: cfg.TokensLimit,
	}), nil
}

func newOllama(cfg Config, model string) (llmprovider.Provider, error) {
	baseURL := cfg.OllamaBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	return openaicompat.New(openaicompat.Config{
		BaseURL:     baseURL,
		Model:       model,
		TokensLimit: cfg.TokensLimit,
	}), nil
}
