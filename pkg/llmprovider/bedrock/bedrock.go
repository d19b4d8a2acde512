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

// Package bedrock adapts Anthropic models served through AWS Bedrock to
// the llmprovider.Provider contract, using the Anthropic SDK's bedrock
// transport rather than calling bedrockruntime directly.
package bedrock

import (
	"context"
	"errors"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/hollowmark/weave/internal/message"
	"github.com/hollowmark/weave/pkg/llmprovider"
)

// DefaultModelID is used when Config.ModelID is empty.
const DefaultModelID = "anthropic.claude-sonnet-4-20250514-v1:0"

// Config configures a Provider.
type Config struct {
	ModelID   string
	Region    string
	MaxTokens int64

	// AccessKeyID/SecretAccessKey/SessionToken select static credentials;
	// Profile selects a named profile; leaving all empty falls back to
	// the default AWS credentials chain (env, IAM role).
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Profile         string

	TokensLimit int
}

// Provider implements llmprovider.Provider against Bedrock-hosted
// Anthropic models, reusing the same streaming-event shapes as
// pkg/llmprovider/anthropic since both ride the Anthropic SDK's
// MessageStream.
type Provider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	tokensLimit int
}

// New constructs a Provider, resolving AWS credentials per cfg the way
// the teacher's bedrock.NewSDKClient does: explicit keys, then a named
// profile, then the default chain.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Region == "" {
		return nil, errors.New("bedrock: Region is required")
	}
	model := cfg.ModelID
	if model == "" {
		model = DefaultModelID
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	var awsCfg aws.Config
	var err error
	switch {
	case cfg.AccessKeyID != "" && cfg.SecretAccessKey != "":
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		)
	case cfg.Profile != "":
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithSharedConfigProfile(cfg.Profile),
		)
	default:
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, errors.New("bedrock: loading AWS config: " + err.Error())
	}

	client := anthropic.NewClient(bedrock.WithConfig(awsCfg))
	return &Provider{client: client, model: model, maxTokens: maxTokens, tokensLimit: cfg.TokensLimit}, nil
}

// TokensLimit returns the configured context window size, or 0 if unknown.
func (p *Provider) TokensLimit() int { return p.tokensLimit }

// SendMessage implements llmprovider.Provider. Request/response shaping
// is identical to pkg/llmprovider/anthropic's; only the transport (direct
// HTTPS vs. AWS SigV4-signed Bedrock) differs, since both speak the same
// Anthropic Messages wire format.
func (p *Provider) SendMessage(ctx context.Context, req llmprovider.Request, callback llmprovider.StreamingCallback) (llmprovider.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages:  toAnthropicMessages(req.Messages),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	for _, s := range req.StopSequences {
		params.StopSequences = append(params.StopSequences, s)
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: toInputSchema(t.Parameters),
			},
		})
	}

	apiStream := p.client.Messages.NewStreaming(ctx, params)
	return processStream(apiStream, callback)
}
