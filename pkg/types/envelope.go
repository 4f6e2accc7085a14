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

package types

import "encoding/json"

// Status is the mandatory discriminator of every tool result.
type Status string

const (
	StatusOK            Status = "ok"
	StatusCreated       Status = "created"
	StatusDeleted       Status = "deleted"
	StatusNotFound      Status = "not_found"
	StatusForbidden     Status = "forbidden"
	StatusConflict      Status = "conflict"
	StatusAlreadyExists Status = "already_exists"
	StatusError         Status = "error"
)

// Result is the envelope returned by every tool: a status plus
// operation-specific fields, serialized as one flat JSON object.
type Result struct {
	Status Status
	Fields map[string]interface{}
}

// NewResult creates a result with the given status and fields.
func NewResult(status Status, fields map[string]interface{}) *Result {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return &Result{Status: status, Fields: fields}
}

// OK creates a result with status "ok".
func OK(fields map[string]interface{}) *Result {
	return NewResult(StatusOK, fields)
}

// Created creates a result with status "created".
func Created(fields map[string]interface{}) *Result {
	return NewResult(StatusCreated, fields)
}

// Deleted creates a result with status "deleted".
func Deleted(fields map[string]interface{}) *Result {
	return NewResult(StatusDeleted, fields)
}

// Errorf creates a result with status "error" and a message.
func Errorf(message string) *Result {
	return NewResult(StatusError, map[string]interface{}{"message": message})
}

// Failure creates a result with the given non-success status and message.
func Failure(status Status, message string) *Result {
	return NewResult(status, map[string]interface{}{"message": message})
}

// Set adds a field and returns the result for chaining.
func (r *Result) Set(key string, value interface{}) *Result {
	r.Fields[key] = value
	return r
}

// Get returns a field value.
func (r *Result) Get(key string) (interface{}, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// Message returns the "message" field, if any.
func (r *Result) Message() string {
	if v, ok := r.Fields["message"].(string); ok {
		return v
	}
	return ""
}

// MarshalJSON flattens status and fields into one object.
func (r *Result) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(r.Fields)+1)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat["status"] = string(r.Status)
	return json.Marshal(flat)
}

// UnmarshalJSON rebuilds the envelope from a flat object.
func (r *Result) UnmarshalJSON(data []byte) error {
	var flat map[string]interface{}
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	if s, ok := flat["status"].(string); ok {
		r.Status = Status(s)
	}
	delete(flat, "status")
	r.Fields = flat
	return nil
}
