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
	"testing"
)

func TestMemoryStore_GetAbsent(t *testing.T) {
	store := NewMemoryStore()

	data, found, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("found = true for absent key")
	}
	if data != nil {
		t.Error("data returned for absent key")
	}
}

func TestMemoryStore_PutGetRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	body := []byte("hello")
	if err := store.Put(ctx, "a/b.md", body, "text/markdown"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	data, found, err := store.Get(ctx, "a/b.md")
	if err != nil || !found {
		t.Fatalf("Get() = %v, %v", found, err)
	}
	if string(data) != "hello" {
		t.Errorf("body = %q, want hello", data)
	}

	// the stored copy is isolated from the caller's buffer
	body[0] = 'X'
	data, _, _ = store.Get(ctx, "a/b.md")
	if string(data) != "hello" {
		t.Error("stored body aliases the caller's buffer")
	}
}

func TestMemoryStore_DeleteAbsentIsNoError(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Delete(context.Background(), "missing"); err != nil {
		t.Errorf("Delete(absent) error = %v", err)
	}
}

func TestMemoryStore_ListPrefix(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, key := range []string{"s/live/b.md", "s/live/a.md", "s/bank/j.md", "other/x"} {
		if err := store.Put(ctx, key, []byte("x"), ""); err != nil {
			t.Fatal(err)
		}
	}

	infos, err := store.List(ctx, "s/live/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List() returned %d objects, want 2", len(infos))
	}
	if infos[0].Key != "s/live/a.md" || infos[1].Key != "s/live/b.md" {
		t.Errorf("List() not in key order: %v, %v", infos[0].Key, infos[1].Key)
	}
}

func TestMemoryStore_Head(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, "k", []byte("12345"), ""); err != nil {
		t.Fatal(err)
	}

	info, found, err := store.Head(ctx, "k")
	if err != nil || !found {
		t.Fatalf("Head() = %v, %v", found, err)
	}
	if info.Size != 5 {
		t.Errorf("Size = %d, want 5", info.Size)
	}

	_, found, err = store.Head(ctx, "absent")
	if err != nil {
		t.Fatalf("Head(absent) error = %v", err)
	}
	if found {
		t.Error("Head(absent) found = true")
	}
}

func TestJSONHelpers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := PutJSON(ctx, store, "d.json", &doc{Name: "n", Count: 2}); err != nil {
		t.Fatalf("PutJSON() error = %v", err)
	}

	var out doc
	found, err := GetJSON(ctx, store, "d.json", &out)
	if err != nil || !found {
		t.Fatalf("GetJSON() = %v, %v", found, err)
	}
	if out.Name != "n" || out.Count != 2 {
		t.Errorf("GetJSON() = %+v", out)
	}

	found, err = GetJSON(ctx, store, "absent.json", &out)
	if err != nil {
		t.Fatalf("GetJSON(absent) error = %v", err)
	}
	if found {
		t.Error("GetJSON(absent) found = true")
	}
}

func TestGetJSON_Corrupt(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, "bad.json", []byte("{not json"), ""); err != nil {
		t.Fatal(err)
	}
	var out map[string]interface{}
	if _, err := GetJSON(ctx, store, "bad.json", &out); err == nil {
		t.Error("corrupt JSON did not surface an error")
	}
}
