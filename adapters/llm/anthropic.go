// Copyright (C) 2025 live-memory-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/live-memory-project/live-memory/pkg/errors"
)

const anthropicAPIVersion = "2023-06-01"

// AnthropicProvider implements Provider for Anthropic-style messages
// endpoints.
type AnthropicProvider struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// AnthropicConfig contains provider configuration.
type AnthropicConfig struct {
	// Endpoint is the base URL including the version path segment
	// (e.g. "https://api.anthropic.com/v1").
	Endpoint string

	// APIKey is the API key.
	APIKey string

	// Model is the default model name.
	Model string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *http.Client
}

// Anthropic creates a new Anthropic provider.
func Anthropic(cfg AnthropicConfig) *AnthropicProvider {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AnthropicProvider{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: httpClient,
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete generates a completion for the given request.
func (p *AnthropicProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req == nil {
		return nil, errors.ErrInvalidInput.WithMessage("completion request is nil")
	}

	anthropicReq := p.buildRequest(req)

	reqBody, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, errors.ErrInternal.WithMessage("marshal request").Wrap(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/messages", bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.ErrInternal.WithMessage("create request").Wrap(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.ErrLLMTimeout.Wrap(err)
		}
		return nil, errors.ErrLLMUnavailable.Wrap(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ErrLLMUnavailable.WithMessage("read response").Wrap(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, convertAnthropicError(resp.StatusCode, body)
	}

	var anthropicResp anthropicResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return nil, errors.ErrLLMInvalidResponse.WithMessage("parse response").Wrap(err)
	}

	var content string
	if len(anthropicResp.Content) > 0 {
		content = anthropicResp.Content[0].Text
	}

	return &CompletionResponse{
		ID:           anthropicResp.ID,
		Model:        anthropicResp.Model,
		Content:      content,
		FinishReason: anthropicResp.StopReason,
		Usage: &Usage{
			PromptTokens:     anthropicResp.Usage.InputTokens,
			CompletionTokens: anthropicResp.Usage.OutputTokens,
			TotalTokens:      anthropicResp.Usage.InputTokens + anthropicResp.Usage.OutputTokens,
		},
	}, nil
}

// buildRequest converts the standard request to Anthropic format. The
// messages API has no JSON response mode, so JSONMode tightens the
// system prompt instead.
func (p *AnthropicProvider) buildRequest(req *CompletionRequest) *anthropicRequest {
	var system string
	var messages []anthropicMessage

	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			system = msg.Content
		} else {
			messages = append(messages, anthropicMessage{
				Role:    string(msg.Role),
				Content: msg.Content,
			})
		}
	}

	if req.JSONMode {
		system += "\n\nRespond with a single valid JSON object and nothing else."
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	anthropicReq := &anthropicRequest{
		Model:    model,
		Messages: messages,
		System:   system,
	}

	if req.MaxTokens > 0 {
		anthropicReq.MaxTokens = req.MaxTokens
	} else {
		anthropicReq.MaxTokens = 4096 // the messages API requires max_tokens
	}
	if req.Temperature > 0 {
		anthropicReq.Temperature = req.Temperature
	}

	return anthropicReq
}

// convertAnthropicError converts API errors to structured errors.
func convertAnthropicError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &errResp)

	msg := errResp.Error.Message
	if msg == "" {
		msg = fmt.Sprintf("API error (status %d)", statusCode)
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return errors.ErrLLMUnavailable.WithMessage("invalid API key")
	case http.StatusTooManyRequests:
		return errors.ErrLLMUnavailable.WithMessage("rate limit exceeded")
	default:
		return errors.ErrLLMUnavailable.WithMessage(msg)
	}
}

// Anthropic API request/response types

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
