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

// Package tools binds domain operations to protocol-level tool names.
//
// Every tool resolves the request identity, applies its declared
// permission floor, runs the handler, and returns the standard result
// envelope. Nothing throws across the protocol boundary: panics are
// recovered into an error result and logged with a trace.
package tools

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/live-memory-project/live-memory/core/auth"
	"github.com/live-memory-project/live-memory/observability/logging"
	"github.com/live-memory-project/live-memory/observability/metrics"
	"github.com/live-memory-project/live-memory/pkg/types"
)

// Permission is the floor a tool declares.
type Permission string

const (
	PermPublic Permission = "public"
	PermRead   Permission = "read"
	PermWrite  Permission = "write"
	PermAdmin  Permission = "admin"
)

// Params is the decoded JSON argument object of one call.
type Params map[string]interface{}

// String returns a string parameter, or "" when absent.
func (p Params) String(key string) string {
	v, _ := p[key].(string)
	return v
}

// Bool returns a boolean parameter, or false when absent.
func (p Params) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

// Int returns an integer parameter, or 0 when absent. JSON numbers
// decode as float64.
func (p Params) Int(key string) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Strings returns a string-list parameter, or nil when absent.
func (p Params) Strings(key string) []string {
	raw, ok := p[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// HandlerFunc executes one tool. The identity has already passed the
// tool's permission floor; space scoping stays in the handler.
type HandlerFunc func(ctx context.Context, id *auth.Identity, params Params) *types.Result

// Tool is one protocol-level operation.
type Tool struct {
	Name        string
	Description string
	Permission  Permission
	Handler     HandlerFunc
}

// Registry holds every registered tool.
type Registry struct {
	tools   map[string]*Tool
	logger  logging.Logger
	metrics *metrics.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logging.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		tools:   make(map[string]*Tool),
		logger:  logger,
		metrics: m,
	}
}

// Register adds a tool. Registering a duplicate name panics: the tool
// table is wired once at startup and a collision is a programming
// error.
func (r *Registry) Register(tool *Tool) {
	if tool == nil || tool.Name == "" || tool.Handler == nil {
		panic("tools: invalid registration")
	}
	if _, exists := r.tools[tool.Name]; exists {
		panic("tools: duplicate tool " + tool.Name)
	}
	r.tools[tool.Name] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names lists the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.tools)
}

// Execute runs a tool: permission floor, handler, panic recovery,
// metrics. Public tools run without an identity.
func (r *Registry) Execute(ctx context.Context, name string, params Params) (result *types.Result) {
	tool, ok := r.tools[name]
	if !ok {
		return types.Failure(types.StatusNotFound, "unknown tool: "+name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(ctx, "tool panicked",
				logging.String("tool", name),
				logging.Any("panic", rec),
				logging.String("stack", string(debug.Stack())))
			result = types.Errorf(fmt.Sprintf("internal error in %s", name))
		}
		if r.metrics != nil && result != nil {
			r.metrics.ToolCalls.WithLabelValues(name, string(result.Status)).Inc()
		}
	}()

	var id *auth.Identity
	if tool.Permission != PermPublic {
		resolved, err := auth.IdentityFrom(ctx)
		if err != nil {
			return ResultFromError(err)
		}
		id = resolved

		var permErr error
		switch tool.Permission {
		case PermRead:
			permErr = id.CheckRead()
		case PermWrite:
			permErr = id.CheckWrite()
		case PermAdmin:
			permErr = id.CheckAdmin()
		}
		if permErr != nil {
			return ResultFromError(permErr)
		}
	}

	return tool.Handler(ctx, id, params)
}
