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

package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/live-memory-project/live-memory/pkg/errors"
)

// Client speaks the remote knowledge-graph tool protocol: a
// handshake, then named tool calls returning a result-or-error
// envelope.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for one remote endpoint.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// rpcRequest is the wire request.
type rpcRequest struct {
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// rpcResponse is the wire envelope.
type rpcResponse struct {
	Result map[string]interface{} `json:"result,omitempty"`
	Error  *rpcError              `json:"error,omitempty"`
}

type rpcError struct {
	Message string `json:"message"`
}

// Handshake probes the remote endpoint.
func (c *Client) Handshake(ctx context.Context) error {
	_, err := c.call(ctx, "initialize", nil)
	return err
}

// CallTool invokes a named remote tool.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error) {
	return c.call(ctx, "tools/call", map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
}

func (c *Client) call(ctx context.Context, method string, params map[string]interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(rpcRequest{Method: method, Params: params})
	if err != nil {
		return nil, errors.ErrInternal.WithMessage("marshal graph request").Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.ErrInternal.WithMessage("create graph request").Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ErrGraphRemote.Wrap(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ErrGraphRemote.WithMessage("read response").Wrap(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.ErrGraphRemote.WithMessage(strings.TrimSpace(string(data))).WithDetail("status_code", resp.StatusCode)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errors.ErrGraphRemote.WithMessage("malformed envelope").Wrap(err)
	}
	if envelope.Error != nil {
		return nil, errors.ErrGraphRemote.WithMessage(envelope.Error.Message)
	}
	return envelope.Result, nil
}
