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

package space

import (
	"context"
	"strings"
	"testing"

	"github.com/live-memory-project/live-memory/observability/logging"
	"github.com/live-memory-project/live-memory/pkg/errors"
	"github.com/live-memory-project/live-memory/pkg/types"
	"github.com/live-memory-project/live-memory/storage"
)

func newTestRepo() (*Repo, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return NewRepo(store, logging.NopLogger{}), store
}

func TestCreate_WritesLayout(t *testing.T) {
	repo, store := newTestRepo()
	ctx := context.Background()

	meta, err := repo.Create(ctx, "demo", "a demo space", "# Rules\n\n- journal.md", "alice")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if meta.SpaceID != "demo" || meta.Owner != "alice" {
		t.Errorf("meta = %+v", meta)
	}
	if meta.RulesSize == 0 {
		t.Error("rules_size not recorded")
	}

	for _, key := range []string{
		types.MetaKey("demo"),
		types.RulesKey("demo"),
		types.LiveKeepKey("demo"),
		types.BankKeepKey("demo"),
	} {
		if _, found, _ := store.Head(ctx, key); !found {
			t.Errorf("missing object %q after create", key)
		}
	}
}

func TestCreate_RejectsDuplicateAndKeepsRules(t *testing.T) {
	repo, store := newTestRepo()
	ctx := context.Background()

	if _, err := repo.Create(ctx, "demo", "", "original rules", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Create(ctx, "demo", "", "different rules", "bob"); !errors.Is(err, errors.ErrSpaceAlreadyExists) {
		t.Errorf("duplicate create error = %v, want already exists", err)
	}

	// rules are write-once
	data, _, _ := store.Get(ctx, types.RulesKey("demo"))
	if string(data) != "original rules" {
		t.Errorf("rules changed to %q", data)
	}
}

func TestCreate_Validation(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	if _, err := repo.Create(ctx, "_bad", "", "r", "o"); !errors.Is(err, errors.ErrInvalidSpaceID) {
		t.Errorf("leading underscore error = %v", err)
	}
	if _, err := repo.Create(ctx, "_system", "", "r", "o"); err == nil {
		t.Error("reserved prefix accepted")
	}
	if _, err := repo.Create(ctx, "demo", "", "", "o"); err == nil {
		t.Error("empty rules accepted")
	}
	if _, err := repo.Create(ctx, "demo", "", strings.Repeat("r", MaxRulesLength+1), "o"); err == nil {
		t.Error("oversized rules accepted")
	}
	if _, err := repo.Create(ctx, "demo", strings.Repeat("d", MaxDescriptionLength+1), "r", "o"); err == nil {
		t.Error("oversized description accepted")
	}

	long := "a" + strings.Repeat("b", 63)
	if _, err := repo.Create(ctx, long, "", "r", "o"); err != nil {
		t.Errorf("64-char space id rejected: %v", err)
	}
	if _, err := repo.Create(ctx, long+"c", "", "r", "o"); !errors.Is(err, errors.ErrInvalidSpaceID) {
		t.Error("65-char space id accepted")
	}
	if _, err := repo.Create(ctx, "1digit", "", "r", "o"); err != nil {
		t.Errorf("leading digit rejected: %v", err)
	}
}

func TestInfo_CountsAndBank(t *testing.T) {
	repo, store := newTestRepo()
	ctx := context.Background()

	if _, err := repo.Create(ctx, "demo", "", "rules", "o"); err != nil {
		t.Fatal(err)
	}
	mustPut := func(key, body string) {
		t.Helper()
		if err := store.Put(ctx, key, []byte(body), ""); err != nil {
			t.Fatal(err)
		}
	}
	mustPut(types.LivePrefix("demo")+"20250601T100000_alice_observation_aaaa1111.md", "n1")
	mustPut(types.LivePrefix("demo")+"20250602T100000_bob_todo_bbbb2222.md", "n2")
	mustPut(types.BankPrefix("demo")+"journal.md", "j")
	mustPut(types.SynthesisKey("demo"), "s")

	info, err := repo.Info(ctx, "demo")
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.NoteCount != 2 {
		t.Errorf("NoteCount = %d, want 2", info.NoteCount)
	}
	if len(info.BankFiles) != 1 || info.BankFiles[0] != "journal.md" {
		t.Errorf("BankFiles = %v", info.BankFiles)
	}
	if !info.SynthesisExists {
		t.Error("SynthesisExists = false")
	}
	if info.OldestNote == nil || info.NewestNote == nil {
		t.Fatal("note age bounds missing")
	}
	if !info.OldestNote.Before(*info.NewestNote) {
		t.Error("oldest/newest swapped")
	}
	if info.TotalSizeHuman == "" {
		t.Error("human-readable size missing")
	}
}

func TestList_ScopeFilter(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	for _, id := range []string{"alpha", "beta"} {
		if _, err := repo.Create(ctx, id, "", "r", "o"); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := repo.List(ctx, func(id string) bool { return id == "beta" })
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Meta.SpaceID != "beta" {
		t.Errorf("scope filter leak: %+v", entries)
	}
}

func TestDelete_Recursive(t *testing.T) {
	repo, store := newTestRepo()
	ctx := context.Background()

	if _, err := repo.Create(ctx, "demo", "", "r", "o"); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, types.BankPrefix("demo")+"j.md", []byte("x"), ""); err != nil {
		t.Fatal(err)
	}

	deleted, err := repo.Delete(ctx, "demo")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted != 5 {
		t.Errorf("deleted = %d, want 5", deleted)
	}

	infos, _ := store.List(ctx, types.SpacePrefix("demo"))
	if len(infos) != 0 {
		t.Errorf("%d objects left after delete", len(infos))
	}

	if _, err := repo.Meta(ctx, "demo"); !errors.IsNotFound(err) {
		t.Errorf("Meta(deleted) = %v, want not found", err)
	}
}

func TestExport_RoundTrip(t *testing.T) {
	repo, store := newTestRepo()
	ctx := context.Background()

	if _, err := repo.Create(ctx, "demo", "", "the rules", "o"); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, types.BankPrefix("demo")+"j.md", []byte("journal body"), ""); err != nil {
		t.Fatal(err)
	}

	archiveB64, count, err := repo.Export(ctx, "demo")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if count != 5 {
		t.Errorf("object count = %d, want 5", count)
	}

	archive, err := decodeB64(archiveB64)
	if err != nil {
		t.Fatal(err)
	}
	objects, err := ArchiveObjects(archive)
	if err != nil {
		t.Fatalf("ArchiveObjects() error = %v", err)
	}
	if string(objects[types.RulesKey("demo")]) != "the rules" {
		t.Error("rules body lost in the archive")
	}
	if string(objects[types.BankPrefix("demo")+"j.md"]) != "journal body" {
		t.Error("bank body lost in the archive")
	}
}
