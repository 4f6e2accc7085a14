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

package live

import (
	"strings"
	"testing"
	"time"
)

func TestComposeKey_Shape(t *testing.T) {
	ts := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	key, err := ComposeKey(ts, "agent-1", CategoryObservation)
	if err != nil {
		t.Fatalf("ComposeKey() error = %v", err)
	}
	if !strings.HasPrefix(key, "20250601T103000_agent-1_observation_") {
		t.Errorf("key = %q", key)
	}
	if !strings.HasSuffix(key, ".md") {
		t.Errorf("key %q missing .md suffix", key)
	}
	suffix := strings.TrimSuffix(key[strings.LastIndex(key, "_")+1:], ".md")
	if len(suffix) != 8 {
		t.Errorf("random suffix %q length = %d, want 8", suffix, len(suffix))
	}
}

func TestComposeKey_Unique(t *testing.T) {
	ts := time.Now().UTC()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		key, err := ComposeKey(ts, "agent", CategoryTodo)
		if err != nil {
			t.Fatal(err)
		}
		if seen[key] {
			t.Fatalf("duplicate key %q after %d compositions", key, i)
		}
		seen[key] = true
	}
}

func TestParseKey_RoundTrip(t *testing.T) {
	ts := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	key, err := ComposeKey(ts, "multi_part_agent", CategoryDecision)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseKey(key)
	if err != nil {
		t.Fatalf("ParseKey(%q) error = %v", key, err)
	}
	if !parsed.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", parsed.Timestamp, ts)
	}
	if parsed.Agent != "multi_part_agent" {
		t.Errorf("Agent = %q", parsed.Agent)
	}
	if parsed.Category != CategoryDecision {
		t.Errorf("Category = %q", parsed.Category)
	}
}

func TestParseKey_Rejects(t *testing.T) {
	for _, bad := range []string{
		"nodotmd",
		"20250601T103000_agent_observation_abcd1234",
		"garbage.md",
		"20250601T103000_agent_notacategory_abcd1234.md",
		"20250601T103000__observation_abcd1234.md",
	} {
		if _, err := ParseKey(bad); err == nil {
			t.Errorf("ParseKey(%q) accepted", bad)
		}
	}
}

func TestValidCategory(t *testing.T) {
	for _, c := range Categories {
		if !ValidCategory(c) {
			t.Errorf("ValidCategory(%q) = false", c)
		}
	}
	if ValidCategory("memo") {
		t.Error(`ValidCategory("memo") = true`)
	}
}
