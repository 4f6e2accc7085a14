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

import "time"

// SpaceMeta is the mutable metadata object at <space>/_meta.json.
type SpaceMeta struct {
	SpaceID             string     `json:"space_id"`
	Description         string     `json:"description"`
	Owner               string     `json:"owner"`
	CreatedAt           time.Time  `json:"created_at"`
	RulesSize           int64      `json:"rules_size"`
	LastConsolidation   *time.Time `json:"last_consolidation,omitempty"`
	ConsolidationCount  int        `json:"consolidation_count"`
	TotalNotesProcessed int        `json:"total_notes_processed"`
	Version             string     `json:"version"`

	GraphMemory *GraphMemoryConfig `json:"graph_memory,omitempty"`
}

// GraphMemoryConfig is the optional graph-bridge target stored on a
// space.
type GraphMemoryConfig struct {
	URL         string                 `json:"url"`
	Token       string                 `json:"token"`
	MemoryID    string                 `json:"memory_id"`
	Ontology    string                 `json:"ontology"`
	ConnectedAt time.Time              `json:"connected_at"`
	LastPushAt  *time.Time             `json:"last_push_at,omitempty"`
	PushCount   int                    `json:"push_count"`
	LastStats   map[string]interface{} `json:"last_stats,omitempty"`
}

// Object-store layout helpers. Keys are path-like strings under one
// bucket; these are the only places the layout is spelled out.

// MetaKey returns <space>/_meta.json.
func MetaKey(spaceID string) string { return spaceID + "/_meta.json" }

// RulesKey returns <space>/_rules.md.
func RulesKey(spaceID string) string { return spaceID + "/_rules.md" }

// SynthesisKey returns <space>/_synthesis.md.
func SynthesisKey(spaceID string) string { return spaceID + "/_synthesis.md" }

// SpacePrefix returns <space>/.
func SpacePrefix(spaceID string) string { return spaceID + "/" }

// LivePrefix returns <space>/live/.
func LivePrefix(spaceID string) string { return spaceID + "/live/" }

// LiveKeepKey returns the sentinel keeping the live prefix non-empty.
func LiveKeepKey(spaceID string) string { return LivePrefix(spaceID) + ".keep" }

// BankPrefix returns <space>/bank/.
func BankPrefix(spaceID string) string { return spaceID + "/bank/" }

// BankKeepKey returns the sentinel keeping the bank prefix non-empty.
func BankKeepKey(spaceID string) string { return BankPrefix(spaceID) + ".keep" }

// SystemPrefix is the reserved prefix for server state.
const SystemPrefix = "_system/"

// BackupsPrefix is the reserved prefix for snapshots.
const BackupsPrefix = "_backups/"

// ReservedPrefix reports whether a top-level name is reserved and can
// never be a space id prefix.
func ReservedPrefix(name string) bool {
	return name == "_system" || name == "_backups"
}
