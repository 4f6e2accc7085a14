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

// Package consolidate drives the language model that folds live notes
// into the memory bank.
//
// A consolidation is logically all-or-nothing without distributed
// transactions: the selected note keys are snapshotted at entry, the
// bank, synthesis, and metadata are written first, and only after
// every write succeeds are exactly the snapshotted keys deleted.
// Notes written after the snapshot survive and are picked up by the
// next run.
package consolidate

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/live-memory-project/live-memory/adapters/llm"
	"github.com/live-memory-project/live-memory/core/live"
	"github.com/live-memory-project/live-memory/core/lock"
	"github.com/live-memory-project/live-memory/observability/logging"
	"github.com/live-memory-project/live-memory/observability/metrics"
	"github.com/live-memory-project/live-memory/pkg/errors"
	"github.com/live-memory-project/live-memory/pkg/types"
	"github.com/live-memory-project/live-memory/storage"
)

// Options bound a consolidation run.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	MaxNotes    int
}

// Consolidator owns the notes → bank + synthesis transformation.
type Consolidator struct {
	store    storage.ObjectStore
	locks    *lock.Registry
	provider llm.Provider
	opts     Options
	logger   logging.Logger
	metrics  *metrics.Metrics
}

// New creates a consolidator.
func New(store storage.ObjectStore, locks *lock.Registry, provider llm.Provider, opts Options, logger logging.Logger, m *metrics.Metrics) *Consolidator {
	if opts.MaxNotes <= 0 {
		opts.MaxNotes = 500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 600 * time.Second
	}
	return &Consolidator{
		store:    store,
		locks:    locks,
		provider: provider,
		opts:     opts,
		logger:   logger,
		metrics:  m,
	}
}

// Result reports one consolidation run.
type Result struct {
	NotesProcessed   int
	NotesRemaining   int
	BankFilesCreated int
	BankFilesUpdated int
	SynthesisSize    int
	DurationSeconds  float64
	PromptTokens     int
	CompletionTokens int
}

// noteInput is one note prepared for the prompt, chronological order.
type noteInput struct {
	key  string // full object key, snapshot member
	meta *live.FrontMatter
	body string
}

// Run executes the consolidation protocol for one space. If agent is
// non-empty, only notes authored by that agent are consumed; caller
// authorization is enforced at the tool surface.
func (c *Consolidator) Run(ctx context.Context, spaceID, agent string) (*Result, error) {
	release, ok := c.locks.TryConsolidation(spaceID)
	if !ok {
		return nil, errors.ErrConsolidationRunning.WithDetail("space_id", spaceID)
	}
	defer release()

	start := time.Now()
	result, err := c.run(ctx, spaceID, agent, start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.Consolidations.WithLabelValues(status).Inc()
		c.metrics.ConsolidationDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
		if result != nil {
			c.metrics.NotesProcessed.Add(float64(result.NotesProcessed))
			c.metrics.LLMTokens.WithLabelValues("prompt").Add(float64(result.PromptTokens))
			c.metrics.LLMTokens.WithLabelValues("completion").Add(float64(result.CompletionTokens))
		}
	}
	return result, err
}

func (c *Consolidator) run(ctx context.Context, spaceID, agent string, start time.Time) (*Result, error) {
	// load inputs
	rules, found, err := c.store.Get(ctx, types.RulesKey(spaceID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.ErrSpaceNotFound.WithDetail("space_id", spaceID)
	}

	synthesis, _, err := c.store.Get(ctx, types.SynthesisKey(spaceID))
	if err != nil {
		return nil, err
	}

	notes, err := c.loadNotes(ctx, spaceID, agent)
	if err != nil {
		return nil, err
	}

	if len(notes) == 0 {
		return &Result{DurationSeconds: time.Since(start).Seconds()}, nil
	}

	remaining := 0
	if len(notes) > c.opts.MaxNotes {
		remaining = len(notes) - c.opts.MaxNotes
		notes = notes[:c.opts.MaxNotes]
	}

	// snapshot: deletions later touch exactly these keys
	snapshot := make([]string, len(notes))
	for i, n := range notes {
		snapshot[i] = n.key
	}

	bank, err := c.loadBank(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	reply, usage, err := c.complete(ctx, string(rules), string(synthesis), notes, bank)
	if err != nil {
		return nil, err
	}

	// commit phase: bank files, synthesis, meta, then deletions
	created, updated := 0, 0
	for _, file := range reply.BankFiles {
		if err := c.store.Put(ctx, types.BankPrefix(spaceID)+file.Filename, []byte(file.Content), "text/markdown"); err != nil {
			return nil, err
		}
		if file.Action == "created" {
			created++
		} else {
			updated++
		}
	}

	if err := c.store.Put(ctx, types.SynthesisKey(spaceID), []byte(reply.Synthesis), "text/markdown"); err != nil {
		return nil, err
	}

	var meta types.SpaceMeta
	if _, err := storage.GetJSON(ctx, c.store, types.MetaKey(spaceID), &meta); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	meta.LastConsolidation = &now
	meta.ConsolidationCount++
	meta.TotalNotesProcessed += len(snapshot)
	if err := storage.PutJSON(ctx, c.store, types.MetaKey(spaceID), &meta); err != nil {
		return nil, err
	}

	for _, key := range snapshot {
		if err := c.store.Delete(ctx, key); err != nil {
			// bank and synthesis are already committed; the leftover
			// notes are re-consumed by the next run
			c.logger.Error(ctx, "failed to delete consumed note",
				logging.String("key", key), logging.Error(err))
			return nil, err
		}
	}

	c.logger.Info(ctx, "consolidation complete",
		logging.String("space", spaceID),
		logging.Int("notes_processed", len(snapshot)),
		logging.Int("bank_files", len(reply.BankFiles)))

	res := &Result{
		NotesProcessed:   len(snapshot),
		NotesRemaining:   remaining,
		BankFilesCreated: created,
		BankFilesUpdated: updated,
		SynthesisSize:    len(reply.Synthesis),
		DurationSeconds:  time.Since(start).Seconds(),
	}
	if usage != nil {
		res.PromptTokens = usage.PromptTokens
		res.CompletionTokens = usage.CompletionTokens
	}
	return res, nil
}

// loadNotes reads every live note, optionally restricted to one
// agent, sorted by timestamp ascending.
func (c *Consolidator) loadNotes(ctx context.Context, spaceID, agent string) ([]noteInput, error) {
	prefix := types.LivePrefix(spaceID)
	infos, err := c.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var notes []noteInput
	for _, info := range infos {
		name := strings.TrimPrefix(info.Key, prefix)
		if name == ".keep" || name == "" {
			continue
		}
		if _, err := live.ParseKey(name); err != nil {
			continue
		}

		body, found, err := c.store.Get(ctx, info.Key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		fm, content, err := live.ParseBody(body)
		if err != nil {
			c.logger.Warn(ctx, "skipping malformed note",
				logging.String("key", info.Key), logging.Error(err))
			continue
		}
		if agent != "" && fm.Agent != agent {
			continue
		}
		notes = append(notes, noteInput{key: info.Key, meta: fm, body: content})
	}

	sort.Slice(notes, func(i, j int) bool {
		if notes[i].meta.Timestamp.Equal(notes[j].meta.Timestamp) {
			return notes[i].key < notes[j].key
		}
		return notes[i].meta.Timestamp.Before(notes[j].meta.Timestamp)
	})
	return notes, nil
}

// bankFile is one current bank document handed to the model.
type bankFile struct {
	name    string
	content string
}

// loadBank reads the current bank files.
func (c *Consolidator) loadBank(ctx context.Context, spaceID string) ([]bankFile, error) {
	prefix := types.BankPrefix(spaceID)
	infos, err := c.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var files []bankFile
	for _, info := range infos {
		name := strings.TrimPrefix(info.Key, prefix)
		if name == ".keep" || name == "" {
			continue
		}
		data, found, err := c.store.Get(ctx, info.Key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		files = append(files, bankFile{name: name, content: string(data)})
	}
	return files, nil
}

// complete issues the model call under the hard timeout, with one
// stricter retry on an unparseable reply. Live notes are untouched on
// every failure path.
func (c *Consolidator) complete(ctx context.Context, rules, synthesis string, notes []noteInput, bank []bankFile) (*modelReply, *llm.Usage, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req := &llm.CompletionRequest{
		Model:       c.opts.Model,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
		JSONMode:    true,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: buildUserPrompt(rules, synthesis, notes, bank)},
		},
	}

	resp, err := c.provider.Complete(callCtx, req)
	if err != nil {
		return nil, nil, err
	}

	reply, parseErr := parseReply(resp.Content)
	if parseErr == nil {
		return reply, resp.Usage, nil
	}

	c.logger.Warn(ctx, "consolidation reply unparseable, retrying",
		logging.Error(parseErr))

	retryReq := *req
	retryReq.Messages = append(req.Messages,
		llm.Message{Role: llm.RoleAssistant, Content: resp.Content},
		llm.Message{Role: llm.RoleUser, Content: retryPrompt},
	)
	retryResp, err := c.provider.Complete(callCtx, &retryReq)
	if err != nil {
		return nil, nil, err
	}

	reply, parseErr = parseReply(retryResp.Content)
	if parseErr != nil {
		return nil, nil, parseErr
	}

	usage := retryResp.Usage
	if usage != nil && resp.Usage != nil {
		usage = &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens + retryResp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens + retryResp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens + retryResp.Usage.TotalTokens,
		}
	}
	return reply, usage, nil
}
