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

// Package lock provides process-local named locks.
//
// One try-lock per space serializes consolidations (the second caller
// fails fast instead of queueing); one global mutex guards the
// read-modify-write cycle of the token registry. Cross-process
// coordination is out of scope: a single server process owns all
// domain state, and store-based locking is rejected as fragile under
// crashes.
package lock

import "sync"

// Registry owns every named lock in the process.
type Registry struct {
	mu     sync.Mutex
	spaces map[string]*sync.Mutex
	tokens sync.Mutex
}

// NewRegistry creates an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{spaces: make(map[string]*sync.Mutex)}
}

// TryConsolidation attempts to take the consolidation lock for a
// space. On success it returns a release function and true; if the
// lock is already held it returns false immediately.
func (r *Registry) TryConsolidation(spaceID string) (func(), bool) {
	r.mu.Lock()
	m, ok := r.spaces[spaceID]
	if !ok {
		m = &sync.Mutex{}
		r.spaces[spaceID] = m
	}
	r.mu.Unlock()

	if !m.TryLock() {
		return nil, false
	}
	return m.Unlock, true
}

// Tokens returns the global mutex guarding the token registry.
func (r *Registry) Tokens() *sync.Mutex {
	return &r.tokens
}
