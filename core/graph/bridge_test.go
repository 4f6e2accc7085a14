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
	"context"
	"strings"
	"testing"

	"github.com/live-memory-project/live-memory/core/space"
	"github.com/live-memory-project/live-memory/observability/logging"
	"github.com/live-memory-project/live-memory/pkg/errors"
	"github.com/live-memory-project/live-memory/pkg/types"
	"github.com/live-memory-project/live-memory/storage"
)

// fakeRemote records calls and simulates a remote graph memory.
type fakeRemote struct {
	documents map[string]string
	exists    bool
	calls     []string
}

func newFakeRemote(exists bool) *fakeRemote {
	return &fakeRemote{documents: map[string]string{}, exists: exists}
}

func (f *fakeRemote) Handshake(ctx context.Context) error { return nil }

func (f *fakeRemote) CallTool(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error) {
	filename, _ := args["filename"].(string)
	f.calls = append(f.calls, name+":"+filename)

	switch name {
	case "memory_stats":
		if !f.exists {
			return nil, errors.ErrGraphRemote.WithMessage("memory not found")
		}
		return map[string]interface{}{"documents": len(f.documents), "entities": 12}, nil
	case "memory_create":
		f.exists = true
		return map[string]interface{}{}, nil
	case "memory_ingest":
		content, _ := args["content"].(string)
		f.documents[filename] = content
		return map[string]interface{}{}, nil
	case "document_delete":
		if _, ok := f.documents[filename]; !ok {
			return nil, errors.ErrGraphRemote.WithMessage("no such document")
		}
		delete(f.documents, filename)
		return map[string]interface{}{}, nil
	case "document_list":
		names := make([]interface{}, 0, len(f.documents))
		for n := range f.documents {
			names = append(names, n)
		}
		return map[string]interface{}{"documents": names}, nil
	}
	return nil, errors.ErrGraphRemote.WithMessage("unknown tool " + name)
}

func newTestBridge(t *testing.T, remote *fakeRemote) (*Bridge, *space.Repo, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	spaces := space.NewRepo(store, logging.NopLogger{})
	bridge := NewBridge(spaces, func(url, token string) RemoteClient { return remote }, logging.NopLogger{}, nil)
	if _, err := spaces.Create(context.Background(), "demo", "", "rules", "o"); err != nil {
		t.Fatal(err)
	}
	return bridge, spaces, store
}

func putBankFile(t *testing.T, store *storage.MemoryStore, spaceID, name, content string) {
	t.Helper()
	if err := store.Put(context.Background(), types.BankPrefix(spaceID)+name, []byte(content), ""); err != nil {
		t.Fatal(err)
	}
}

func TestConnect_StoresConfigAndCreatesMemory(t *testing.T) {
	remote := newFakeRemote(false)
	bridge, spaces, _ := newTestBridge(t, remote)
	ctx := context.Background()

	cfg, err := bridge.Connect(ctx, "demo", "https://graph.example", "tok", "mem-1", "")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if cfg.Ontology != "general" {
		t.Errorf("default ontology = %q", cfg.Ontology)
	}
	if !remote.exists {
		t.Error("absent remote memory was not created")
	}

	meta, err := spaces.Meta(ctx, "demo")
	if err != nil {
		t.Fatal(err)
	}
	if meta.GraphMemory == nil || meta.GraphMemory.MemoryID != "mem-1" {
		t.Errorf("graph_memory = %+v", meta.GraphMemory)
	}
}

func TestConnect_RejectsUnknownOntology(t *testing.T) {
	bridge, _, _ := newTestBridge(t, newFakeRemote(true))
	if _, err := bridge.Connect(context.Background(), "demo", "u", "t", "m", "biotech"); err == nil {
		t.Error("unknown ontology accepted")
	}
}

func TestPush_DeleteThenIngestAndOrphanCleanup(t *testing.T) {
	remote := newFakeRemote(true)
	remote.documents["C.md"] = "stale"
	bridge, spaces, store := newTestBridge(t, remote)
	ctx := context.Background()

	if _, err := bridge.Connect(ctx, "demo", "u", "t", "mem-1", "general"); err != nil {
		t.Fatal(err)
	}
	putBankFile(t, store, "demo", "A.md", "alpha")
	putBankFile(t, store, "demo", "B.md", "beta")

	result, err := bridge.Push(ctx, "demo")
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if result.Pushed != 2 {
		t.Errorf("Pushed = %d, want 2", result.Pushed)
	}
	if result.OrphansRemoved != 1 {
		t.Errorf("OrphansRemoved = %d, want 1", result.OrphansRemoved)
	}

	// the remote ends with exactly the current bank
	if len(remote.documents) != 2 {
		t.Errorf("remote documents = %v", remote.documents)
	}
	if remote.documents["A.md"] != "alpha" || remote.documents["B.md"] != "beta" {
		t.Errorf("remote contents = %v", remote.documents)
	}

	// every ingest is preceded by a delete of the same name
	for _, name := range []string{"A.md", "B.md"} {
		deleteIdx, ingestIdx := -1, -1
		for i, call := range remote.calls {
			if call == "document_delete:"+name && deleteIdx < 0 {
				deleteIdx = i
			}
			if call == "memory_ingest:"+name {
				ingestIdx = i
			}
		}
		if deleteIdx < 0 || ingestIdx < 0 || deleteIdx > ingestIdx {
			t.Errorf("call order for %s: delete=%d ingest=%d (%v)", name, deleteIdx, ingestIdx, remote.calls)
		}
	}

	meta, err := spaces.Meta(ctx, "demo")
	if err != nil {
		t.Fatal(err)
	}
	if meta.GraphMemory.PushCount != 1 || meta.GraphMemory.LastPushAt == nil {
		t.Errorf("push bookkeeping = %+v", meta.GraphMemory)
	}
}

func TestPush_IdempotentRemoteState(t *testing.T) {
	remote := newFakeRemote(true)
	bridge, _, store := newTestBridge(t, remote)
	ctx := context.Background()

	if _, err := bridge.Connect(ctx, "demo", "u", "t", "mem-1", "general"); err != nil {
		t.Fatal(err)
	}
	putBankFile(t, store, "demo", "A.md", "alpha")

	for i := 0; i < 2; i++ {
		if _, err := bridge.Push(ctx, "demo"); err != nil {
			t.Fatalf("push %d error = %v", i, err)
		}
	}
	if len(remote.documents) != 1 {
		t.Errorf("remote documents after double push = %v", remote.documents)
	}
}

func TestPush_RequiresConnection(t *testing.T) {
	bridge, _, _ := newTestBridge(t, newFakeRemote(true))
	if _, err := bridge.Push(context.Background(), "demo"); !errors.Is(err, errors.ErrGraphNotConnected) {
		t.Errorf("Push(unconnected) = %v", err)
	}
}

func TestStatus_ReturnsConfigAndStats(t *testing.T) {
	remote := newFakeRemote(true)
	bridge, _, _ := newTestBridge(t, remote)
	ctx := context.Background()

	if _, err := bridge.Connect(ctx, "demo", "u", "t", "mem-1", "legal"); err != nil {
		t.Fatal(err)
	}
	cfg, stats, err := bridge.Status(ctx, "demo")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if cfg.Ontology != "legal" {
		t.Errorf("ontology = %q", cfg.Ontology)
	}
	if stats["entities"] != 12 {
		t.Errorf("stats = %v", stats)
	}
}

func TestDisconnect_LeavesRemoteIntact(t *testing.T) {
	remote := newFakeRemote(true)
	remote.documents["A.md"] = "alpha"
	bridge, spaces, _ := newTestBridge(t, remote)
	ctx := context.Background()

	if _, err := bridge.Connect(ctx, "demo", "u", "t", "mem-1", "general"); err != nil {
		t.Fatal(err)
	}
	if err := bridge.Disconnect(ctx, "demo"); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}

	meta, err := spaces.Meta(ctx, "demo")
	if err != nil {
		t.Fatal(err)
	}
	if meta.GraphMemory != nil {
		t.Error("graph_memory block still present")
	}
	if len(remote.documents) != 1 {
		t.Error("disconnect mutated remote data")
	}

	// disconnect leaves no way to push
	if _, err := bridge.Push(ctx, "demo"); err == nil {
		t.Error("push succeeded after disconnect")
	}
}

func TestPush_RemoteFailureSurfacesMessage(t *testing.T) {
	remote := newFakeRemote(true)
	bridge, _, store := newTestBridge(t, remote)
	ctx := context.Background()

	if _, err := bridge.Connect(ctx, "demo", "u", "t", "mem-1", "general"); err != nil {
		t.Fatal(err)
	}
	putBankFile(t, store, "demo", "A.md", "alpha")

	// make ingest fail
	broken := &failingRemote{fakeRemote: remote}
	bridge.factory = func(url, token string) RemoteClient { return broken }

	_, err := bridge.Push(ctx, "demo")
	if err == nil {
		t.Fatal("Push() succeeded against a broken remote")
	}
	if !strings.Contains(err.Error(), "ingest rejected") {
		t.Errorf("remote message lost: %v", err)
	}
}

type failingRemote struct {
	*fakeRemote
}

func (f *failingRemote) CallTool(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error) {
	if name == "memory_ingest" {
		return nil, errors.ErrGraphRemote.WithMessage("ingest rejected")
	}
	return f.fakeRemote.CallTool(ctx, name, args)
}
