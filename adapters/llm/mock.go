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
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/live-memory-project/live-memory/pkg/errors"
)

// MockProvider is a mock language-model provider for testing.
type MockProvider struct {
	name      string
	responses []string
	index     int
	requests  []*CompletionRequest
	mu        sync.Mutex
}

// NewMockProvider creates a new mock provider with pre-defined responses.
func NewMockProvider(responses []string) *MockProvider {
	return &MockProvider{
		name:      "mock",
		responses: responses,
	}
}

// Name returns the provider name.
func (m *MockProvider) Name() string {
	return m.name
}

// Complete returns the next canned response and records the request.
func (m *MockProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.index >= len(m.responses) {
		return nil, errors.ErrLLMInvalidResponse.WithMessage("no more mock responses available")
	}

	content := m.responses[m.index]
	m.index++

	return &CompletionResponse{
		ID:           "mock-" + uuid.New().String(),
		Model:        req.Model,
		Content:      content,
		FinishReason: "stop",
		Usage: &Usage{
			PromptTokens:     100,
			CompletionTokens: 50,
			TotalTokens:      150,
		},
	}, nil
}

// Requests returns the requests received so far.
func (m *MockProvider) Requests() []*CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	reqs := make([]*CompletionRequest, len(m.requests))
	copy(reqs, m.requests)
	return reqs
}

// CallCount returns the number of Complete calls received.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
