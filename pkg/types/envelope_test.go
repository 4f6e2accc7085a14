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

import (
	"encoding/json"
	"testing"
)

func TestResult_MarshalFlattens(t *testing.T) {
	res := OK(map[string]interface{}{"notes_processed": 3})

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var flat map[string]interface{}
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if flat["status"] != "ok" {
		t.Errorf("status = %v, want ok", flat["status"])
	}
	if flat["notes_processed"] != float64(3) {
		t.Errorf("notes_processed = %v, want 3", flat["notes_processed"])
	}
	if _, nested := flat["Fields"]; nested {
		t.Error("envelope was not flattened")
	}
}

func TestResult_RoundTrip(t *testing.T) {
	res := Failure(StatusConflict, "consolidation already running")

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var back Result
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.Status != StatusConflict {
		t.Errorf("Status = %v, want conflict", back.Status)
	}
	if back.Message() != "consolidation already running" {
		t.Errorf("Message() = %q", back.Message())
	}
}

func TestResult_Set(t *testing.T) {
	res := OK(nil).Set("count", 2)
	if v, _ := res.Get("count"); v != 2 {
		t.Errorf("Get(count) = %v, want 2", v)
	}
}
