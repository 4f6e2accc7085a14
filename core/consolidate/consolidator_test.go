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

package consolidate

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/live-memory-project/live-memory/adapters/llm"
	"github.com/live-memory-project/live-memory/core/live"
	"github.com/live-memory-project/live-memory/core/lock"
	"github.com/live-memory-project/live-memory/observability/logging"
	"github.com/live-memory-project/live-memory/pkg/errors"
	"github.com/live-memory-project/live-memory/pkg/types"
	"github.com/live-memory-project/live-memory/storage"
)

const validReply = `{"bank_files":[{"filename":"journal.md","content":"# Journal\n\nconsolidated","action":"created"}],"synthesis":"residual context"}`

// setupSpace writes the minimal space layout directly.
func setupSpace(t *testing.T, store storage.ObjectStore, spaceID string) {
	t.Helper()
	ctx := context.Background()
	meta := &types.SpaceMeta{SpaceID: spaceID, CreatedAt: time.Now().UTC(), Version: "1.0"}
	if err := storage.PutJSON(ctx, store, types.MetaKey(spaceID), meta); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, types.RulesKey(spaceID), []byte("# Rules\n\nKeep one file journal.md."), ""); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, types.LiveKeepKey(spaceID), nil, ""); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, types.BankKeepKey(spaceID), nil, ""); err != nil {
		t.Fatal(err)
	}
}

// putNote writes a note with a crafted key so tests control timestamps.
func putNote(t *testing.T, store storage.ObjectStore, spaceID string, ts time.Time, agent, content string, seq int) string {
	t.Helper()
	body, err := live.ComposeBody(&live.FrontMatter{
		Timestamp: ts,
		Agent:     agent,
		Category:  live.CategoryObservation,
		Space:     spaceID,
	}, content)
	if err != nil {
		t.Fatal(err)
	}
	key := types.LivePrefix(spaceID) + fmt.Sprintf("%s_%s_observation_%08x.md", ts.UTC().Format("20060102T150405"), agent, seq)
	if err := store.Put(context.Background(), key, body, ""); err != nil {
		t.Fatal(err)
	}
	return key
}

func newConsolidator(store storage.ObjectStore, provider llm.Provider, maxNotes int) (*Consolidator, *lock.Registry) {
	locks := lock.NewRegistry()
	c := New(store, locks, provider, Options{
		Model:    "test-model",
		MaxNotes: maxNotes,
		Timeout:  30 * time.Second,
	}, logging.NopLogger{}, nil)
	return c, locks
}

func liveNotes(t *testing.T, store storage.ObjectStore, spaceID string) []string {
	t.Helper()
	infos, err := store.List(context.Background(), types.LivePrefix(spaceID))
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, info := range infos {
		if !strings.HasSuffix(info.Key, "/.keep") {
			keys = append(keys, info.Key)
		}
	}
	return keys
}

func TestRun_HappyPath(t *testing.T) {
	store := storage.NewMemoryStore()
	setupSpace(t, store, "demo")
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	putNote(t, store, "demo", base, "alice", "build ok", 1)
	putNote(t, store, "demo", base.Add(time.Minute), "bob", "pick X", 2)
	putNote(t, store, "demo", base.Add(2*time.Minute), "alice", "write tests", 3)

	provider := llm.NewMockProvider([]string{validReply})
	c, _ := newConsolidator(store, provider, 0)

	result, err := c.Run(context.Background(), "demo", "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.NotesProcessed != 3 {
		t.Errorf("NotesProcessed = %d, want 3", result.NotesProcessed)
	}
	if result.BankFilesCreated != 1 || result.BankFilesUpdated != 0 {
		t.Errorf("bank counters = %d created, %d updated", result.BankFilesCreated, result.BankFilesUpdated)
	}

	ctx := context.Background()
	bank, found, _ := store.Get(ctx, types.BankPrefix("demo")+"journal.md")
	if !found || len(bank) == 0 {
		t.Error("bank/journal.md missing or empty")
	}
	synthesis, found, _ := store.Get(ctx, types.SynthesisKey("demo"))
	if !found || string(synthesis) != "residual context" {
		t.Errorf("synthesis = %q, found=%v", synthesis, found)
	}
	if keys := liveNotes(t, store, "demo"); len(keys) != 0 {
		t.Errorf("live notes left after consolidation: %v", keys)
	}

	var meta types.SpaceMeta
	if _, err := storage.GetJSON(ctx, store, types.MetaKey("demo"), &meta); err != nil {
		t.Fatal(err)
	}
	if meta.ConsolidationCount != 1 || meta.TotalNotesProcessed != 3 {
		t.Errorf("meta counters = %d, %d", meta.ConsolidationCount, meta.TotalNotesProcessed)
	}
	if meta.LastConsolidation == nil {
		t.Error("last_consolidation not set")
	}

	// the model saw rules, notes, and the empty-synthesis marker
	reqs := provider.Requests()
	if len(reqs) != 1 {
		t.Fatalf("provider calls = %d, want 1", len(reqs))
	}
	prompt := reqs[0].Messages[len(reqs[0].Messages)-1].Content
	for _, want := range []string{"journal.md", "build ok", "pick X", "write tests", "none"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !reqs[0].JSONMode {
		t.Error("JSON response mode not requested")
	}
}

func TestRun_EmptySetSkipsModel(t *testing.T) {
	store := storage.NewMemoryStore()
	setupSpace(t, store, "demo")

	provider := llm.NewMockProvider([]string{validReply})
	c, _ := newConsolidator(store, provider, 0)

	result, err := c.Run(context.Background(), "demo", "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.NotesProcessed != 0 {
		t.Errorf("NotesProcessed = %d, want 0", result.NotesProcessed)
	}
	if provider.CallCount() != 0 {
		t.Errorf("model called %d times for an empty set", provider.CallCount())
	}
}

func TestRun_ConflictFailsFast(t *testing.T) {
	store := storage.NewMemoryStore()
	setupSpace(t, store, "demo")

	c, locks := newConsolidator(store, llm.NewMockProvider(nil), 0)

	release, ok := locks.TryConsolidation("demo")
	if !ok {
		t.Fatal("setup lock failed")
	}
	defer release()

	_, err := c.Run(context.Background(), "demo", "")
	if !errors.Is(err, errors.ErrConsolidationRunning) {
		t.Errorf("Run() under held lock = %v, want conflict", err)
	}
}

func TestRun_MaxNotesOverflow(t *testing.T) {
	store := storage.NewMemoryStore()
	setupSpace(t, store, "demo")
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	oldest := putNote(t, store, "demo", base, "a", "one", 1)
	middle := putNote(t, store, "demo", base.Add(time.Minute), "a", "two", 2)
	newest := putNote(t, store, "demo", base.Add(2*time.Minute), "a", "three", 3)

	provider := llm.NewMockProvider([]string{validReply})
	c, _ := newConsolidator(store, provider, 2)

	result, err := c.Run(context.Background(), "demo", "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.NotesProcessed != 2 {
		t.Errorf("NotesProcessed = %d, want 2", result.NotesProcessed)
	}
	if result.NotesRemaining != 1 {
		t.Errorf("NotesRemaining = %d, want 1", result.NotesRemaining)
	}

	ctx := context.Background()
	for _, gone := range []string{oldest, middle} {
		if _, found, _ := store.Get(ctx, gone); found {
			t.Errorf("old note %q survived", gone)
		}
	}
	if _, found, _ := store.Get(ctx, newest); !found {
		t.Error("newest note was consumed beyond max_notes")
	}
}

// hookProvider runs a callback before answering, to mutate state
// mid-consolidation.
type hookProvider struct {
	inner llm.Provider
	hook  func()
}

func (h *hookProvider) Name() string { return "hook" }

func (h *hookProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if h.hook != nil {
		h.hook()
	}
	return h.inner.Complete(ctx, req)
}

func TestRun_LateNoteSurvivesDelete(t *testing.T) {
	store := storage.NewMemoryStore()
	setupSpace(t, store, "demo")
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	early := putNote(t, store, "demo", base, "a", "early", 1)

	var late string
	provider := &hookProvider{
		inner: llm.NewMockProvider([]string{validReply}),
		hook: func() {
			// a note lands while the model call is in flight
			late = putNote(t, store, "demo", time.Now().UTC(), "b", "late arrival", 99)
		},
	}
	c, _ := newConsolidator(store, provider, 0)

	result, err := c.Run(context.Background(), "demo", "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.NotesProcessed != 1 {
		t.Errorf("NotesProcessed = %d, want 1", result.NotesProcessed)
	}

	ctx := context.Background()
	if _, found, _ := store.Get(ctx, early); found {
		t.Error("snapshotted note survived")
	}
	if _, found, _ := store.Get(ctx, late); !found {
		t.Error("note written after the snapshot was deleted")
	}
}

// faultStore fails Put on keys containing a marker.
type faultStore struct {
	storage.ObjectStore
	failSubstring string
}

func (f *faultStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if strings.Contains(key, f.failSubstring) {
		return errors.ErrStorageUnavailable.WithDetail("key", key)
	}
	return f.ObjectStore.Put(ctx, key, data, contentType)
}

func TestRun_CommitFailureLeavesNotesIntact(t *testing.T) {
	inner := storage.NewMemoryStore()
	setupSpace(t, inner, "demo")
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	putNote(t, inner, "demo", base, "a", "n1", 1)
	putNote(t, inner, "demo", base.Add(time.Minute), "a", "n2", 2)

	var metaBefore types.SpaceMeta
	if _, err := storage.GetJSON(context.Background(), inner, types.MetaKey("demo"), &metaBefore); err != nil {
		t.Fatal(err)
	}

	// the reply writes two files; the second write fails
	reply := `{"bank_files":[` +
		`{"filename":"first.md","content":"a","action":"created"},` +
		`{"filename":"broken.md","content":"b","action":"created"}` +
		`],"synthesis":"s"}`
	store := &faultStore{ObjectStore: inner, failSubstring: "broken.md"}
	c, _ := newConsolidator(store, llm.NewMockProvider([]string{reply}), 0)

	if _, err := c.Run(context.Background(), "demo", ""); err == nil {
		t.Fatal("Run() succeeded despite a commit failure")
	}

	ctx := context.Background()
	if keys := liveNotes(t, inner, "demo"); len(keys) != 2 {
		t.Errorf("live notes after failed commit = %d, want 2", len(keys))
	}
	if _, found, _ := inner.Get(ctx, types.SynthesisKey("demo")); found {
		t.Error("synthesis written despite the failed commit")
	}
	var metaAfter types.SpaceMeta
	if _, err := storage.GetJSON(ctx, inner, types.MetaKey("demo"), &metaAfter); err != nil {
		t.Fatal(err)
	}
	if metaAfter.ConsolidationCount != metaBefore.ConsolidationCount {
		t.Error("meta mutated despite the failed commit")
	}
}

func TestRun_ParseRetrySucceeds(t *testing.T) {
	store := storage.NewMemoryStore()
	setupSpace(t, store, "demo")
	putNote(t, store, "demo", time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), "a", "n", 1)

	provider := llm.NewMockProvider([]string{"sorry, here is prose", validReply})
	c, _ := newConsolidator(store, provider, 0)

	result, err := c.Run(context.Background(), "demo", "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.NotesProcessed != 1 {
		t.Errorf("NotesProcessed = %d, want 1", result.NotesProcessed)
	}
	if provider.CallCount() != 2 {
		t.Errorf("provider calls = %d, want 2", provider.CallCount())
	}
}

func TestRun_DoubleParseFailureAborts(t *testing.T) {
	store := storage.NewMemoryStore()
	setupSpace(t, store, "demo")
	key := putNote(t, store, "demo", time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), "a", "n", 1)

	provider := llm.NewMockProvider([]string{"prose", "still prose"})
	c, _ := newConsolidator(store, provider, 0)

	if _, err := c.Run(context.Background(), "demo", ""); !errors.Is(err, errors.ErrLLMInvalidResponse) {
		t.Fatalf("Run() = %v, want invalid response", err)
	}
	if _, found, _ := store.Get(context.Background(), key); !found {
		t.Error("note deleted despite the aborted run")
	}
}

func TestRun_AgentFilter(t *testing.T) {
	store := storage.NewMemoryStore()
	setupSpace(t, store, "demo")
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	aliceKey := putNote(t, store, "demo", base, "alice", "mine", 1)
	bobKey := putNote(t, store, "demo", base.Add(time.Minute), "bob", "theirs", 2)

	provider := llm.NewMockProvider([]string{validReply})
	c, _ := newConsolidator(store, provider, 0)

	result, err := c.Run(context.Background(), "demo", "alice")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.NotesProcessed != 1 {
		t.Errorf("NotesProcessed = %d, want 1", result.NotesProcessed)
	}

	ctx := context.Background()
	if _, found, _ := store.Get(ctx, aliceKey); found {
		t.Error("alice's note survived her consolidation")
	}
	if _, found, _ := store.Get(ctx, bobKey); !found {
		t.Error("bob's note was consumed by alice's consolidation")
	}
}

func TestParseReply(t *testing.T) {
	if _, err := parseReply(validReply); err != nil {
		t.Errorf("valid reply rejected: %v", err)
	}
	if _, err := parseReply("```json\n" + validReply + "\n```"); err != nil {
		t.Errorf("fenced reply rejected: %v", err)
	}
	if _, err := parseReply(`{"bank_files":[{"filename":"../evil.md","content":"x","action":"created"}],"synthesis":""}`); err == nil {
		t.Error("traversal filename accepted")
	}
	if _, err := parseReply(`{"bank_files":[{"filename":"/abs.md","content":"x","action":"created"}],"synthesis":""}`); err == nil {
		t.Error("absolute filename accepted")
	}
	if _, err := parseReply(`{"bank_files":[{"filename":"a.md","content":"x","action":"replaced"}],"synthesis":""}`); err == nil {
		t.Error("unknown action accepted")
	}

	reply, err := parseReply(`{"bank_files":[{"filename":"a.md","content":"x"}],"synthesis":"s"}`)
	if err != nil {
		t.Fatalf("missing action rejected: %v", err)
	}
	if reply.BankFiles[0].Action != "updated" {
		t.Errorf("defaulted action = %q, want updated", reply.BankFiles[0].Action)
	}
}
