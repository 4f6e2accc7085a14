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

package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/live-memory-project/live-memory/pkg/errors"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key      string
	Size     int64
	Modified time.Time
}

// ObjectStore is the typed facade over the bucket.
//
// Absent keys are reported through the boolean return, never as an
// error. List paginates internally; callers always receive the full
// result set for a prefix.
type ObjectStore interface {
	// Get returns the object body, or found=false if the key is absent.
	Get(ctx context.Context, key string) (data []byte, found bool, err error)

	// Put writes an object, overwriting any existing one.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Delete removes an object. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Head returns object metadata without the body.
	Head(ctx context.Context, key string) (info *ObjectInfo, found bool, err error)

	// List returns every object under the prefix, in key order.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// GetJSON reads an object and unmarshals it into v.
func GetJSON(ctx context.Context, store ObjectStore, key string, v interface{}) (bool, error) {
	data, found, err := store.Get(ctx, key)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, errors.ErrMetaCorrupt.WithDetail("key", key).Wrap(err)
	}
	return true, nil
}

// PutJSON marshals v with indentation and writes it.
func PutJSON(ctx context.Context, store ObjectStore, key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.ErrInternal.WithMessage("marshal " + key).Wrap(err)
	}
	return store.Put(ctx, key, data, "application/json")
}
