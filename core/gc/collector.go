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

// Package gc detects notes that outlived the consolidation cadence
// and either folds them into the bank or deletes them.
package gc

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/live-memory-project/live-memory/core/consolidate"
	"github.com/live-memory-project/live-memory/core/live"
	"github.com/live-memory-project/live-memory/core/space"
	"github.com/live-memory-project/live-memory/observability/logging"
	"github.com/live-memory-project/live-memory/observability/metrics"
	"github.com/live-memory-project/live-memory/pkg/types"
	"github.com/live-memory-project/live-memory/storage"
)

// Collector scans for orphaned notes.
type Collector struct {
	store        storage.ObjectStore
	spaces       *space.Repo
	notes        *live.Service
	consolidator *consolidate.Consolidator
	maxAge       time.Duration
	logger       logging.Logger
	metrics      *metrics.Metrics
}

// New creates a collector. maxAgeDays is the orphan threshold.
func New(store storage.ObjectStore, spaces *space.Repo, notes *live.Service, consolidator *consolidate.Consolidator, maxAgeDays int, logger logging.Logger, m *metrics.Metrics) *Collector {
	if maxAgeDays <= 0 {
		maxAgeDays = 7
	}
	return &Collector{
		store:        store,
		spaces:       spaces,
		notes:        notes,
		consolidator: consolidator,
		maxAge:       time.Duration(maxAgeDays) * 24 * time.Hour,
		logger:       logger,
		metrics:      m,
	}
}

// Report is the outcome of a collector run.
type Report struct {
	// Mode is "dry_run", "consolidate", or "delete".
	Mode string

	// Orphans maps space id → agent → orphan count.
	Orphans map[string]map[string]int

	// TotalOrphans is the sum over Orphans.
	TotalOrphans int

	// Consolidations maps "space/agent" to notes processed, in
	// consolidate mode.
	Consolidations map[string]int

	// Deleted is the number of notes removed in delete mode.
	Deleted int

	// Failures lists per-target errors that did not abort the run.
	Failures []string
}

// Run scans one space (or every space passing the accessible filter
// when spaceID is empty) for notes older than the threshold.
//
// confirm=false is a dry run. With confirm=true the orphans are
// consolidated through the language model unless deleteOnly is set,
// in which case they are deleted outright.
func (c *Collector) Run(ctx context.Context, spaceID string, confirm, deleteOnly bool, accessible func(string) bool) (*Report, error) {
	targets, err := c.targets(ctx, spaceID, accessible)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-c.maxAge)
	report := &Report{
		Mode:    "dry_run",
		Orphans: map[string]map[string]int{},
	}

	orphanKeys := map[string][]string{} // space → keys
	for _, id := range targets {
		keys, byAgent, err := c.scan(ctx, id, cutoff)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			continue
		}
		report.Orphans[id] = byAgent
		orphanKeys[id] = keys
		for _, n := range byAgent {
			report.TotalOrphans += n
		}
	}

	if !confirm || report.TotalOrphans == 0 {
		return report, nil
	}

	if deleteOnly {
		report.Mode = "delete"
		for _, keys := range orphanKeys {
			for _, key := range keys {
				if err := c.store.Delete(ctx, key); err != nil {
					return report, err
				}
				report.Deleted++
			}
		}
		if c.metrics != nil {
			c.metrics.GCDeleted.Add(float64(report.Deleted))
		}
		c.logger.Info(ctx, "gc deleted orphaned notes",
			logging.Int("deleted", report.Deleted))
		return report, nil
	}

	// consolidate mode: leave a trace note per (space, agent) so the
	// forced consolidation is visible in the bank, then consolidate
	// that agent's notes.
	report.Mode = "consolidate"
	report.Consolidations = map[string]int{}
	for _, id := range sortedKeys(report.Orphans) {
		for _, agent := range sortedKeys(report.Orphans[id]) {
			count := report.Orphans[id][agent]
			notice := fmt.Sprintf(
				"The garbage collector forced a consolidation of %d orphaned note(s) from agent %s older than %s.",
				count, agent, c.maxAge)
			if _, err := c.notes.Append(ctx, id, live.CategoryObservation, notice, agent, "gc"); err != nil {
				report.Failures = append(report.Failures, fmt.Sprintf("%s/%s: %v", id, agent, err))
				continue
			}
			res, err := c.consolidator.Run(ctx, id, agent)
			if err != nil {
				report.Failures = append(report.Failures, fmt.Sprintf("%s/%s: %v", id, agent, err))
				continue
			}
			report.Consolidations[id+"/"+agent] = res.NotesProcessed
		}
	}
	return report, nil
}

// targets resolves the spaces to scan.
func (c *Collector) targets(ctx context.Context, spaceID string, accessible func(string) bool) ([]string, error) {
	if spaceID != "" {
		if _, err := c.spaces.Meta(ctx, spaceID); err != nil {
			return nil, err
		}
		return []string{spaceID}, nil
	}
	entries, err := c.spaces.List(ctx, accessible)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Meta.SpaceID)
	}
	return ids, nil
}

// scan returns the orphaned note keys of one space and their count
// per agent.
func (c *Collector) scan(ctx context.Context, spaceID string, cutoff time.Time) ([]string, map[string]int, error) {
	prefix := types.LivePrefix(spaceID)
	infos, err := c.store.List(ctx, prefix)
	if err != nil {
		return nil, nil, err
	}

	var keys []string
	byAgent := map[string]int{}
	for _, info := range infos {
		name := strings.TrimPrefix(info.Key, prefix)
		if name == ".keep" || name == "" {
			continue
		}
		parsed, err := live.ParseKey(name)
		if err != nil {
			continue
		}
		if parsed.Timestamp.After(cutoff) {
			continue
		}
		keys = append(keys, info.Key)
		byAgent[parsed.Agent]++
	}
	return keys, byAgent, nil
}

// sortedKeys returns map keys in order for deterministic reports.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
