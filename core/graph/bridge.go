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

// Package graph republishes a space's bank into an external
// knowledge-graph service, one way, with delete-then-reingest
// semantics. The only local state it touches is the graph_memory
// block of the space metadata.
package graph

import (
	"context"
	"time"

	"github.com/live-memory-project/live-memory/core/space"
	"github.com/live-memory-project/live-memory/observability/logging"
	"github.com/live-memory-project/live-memory/observability/metrics"
	"github.com/live-memory-project/live-memory/pkg/errors"
	"github.com/live-memory-project/live-memory/pkg/types"
)

// Ontologies accepted by the remote extractor.
var Ontologies = []string{"general", "legal", "cloud", "managed-services", "presales"}

// ValidOntology reports whether o is an accepted ontology label.
func ValidOntology(o string) bool {
	for _, known := range Ontologies {
		if o == known {
			return true
		}
	}
	return false
}

// ClientFactory builds a protocol client for one target. Tests swap
// it for a fake.
type ClientFactory func(url, token string) RemoteClient

// RemoteClient is the protocol surface the bridge needs.
type RemoteClient interface {
	Handshake(ctx context.Context) error
	CallTool(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error)
}

// Bridge owns the graph_memory lifecycle of spaces.
type Bridge struct {
	spaces  *space.Repo
	factory ClientFactory
	logger  logging.Logger
	metrics *metrics.Metrics
}

// NewBridge creates a bridge. A nil factory uses the real client.
func NewBridge(spaces *space.Repo, factory ClientFactory, logger logging.Logger, m *metrics.Metrics) *Bridge {
	if factory == nil {
		factory = func(url, token string) RemoteClient { return NewClient(url, token) }
	}
	return &Bridge{spaces: spaces, factory: factory, logger: logger, metrics: m}
}

// Connect probes the remote, creates the remote memory if absent, and
// stores the graph_memory configuration on the space.
func (b *Bridge) Connect(ctx context.Context, spaceID, url, token, memoryID, ontology string) (*types.GraphMemoryConfig, error) {
	if url == "" || memoryID == "" {
		return nil, errors.ErrInvalidInput.WithMessage("url and memory_id are required")
	}
	if ontology == "" {
		ontology = "general"
	}
	if !ValidOntology(ontology) {
		return nil, errors.ErrInvalidInput.WithMessage("unknown ontology: " + ontology)
	}

	meta, err := b.spaces.Meta(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	client := b.factory(url, token)
	if err := client.Handshake(ctx); err != nil {
		return nil, err
	}

	// probe the target memory; create it when the remote reports it
	// missing
	if _, err := client.CallTool(ctx, "memory_stats", map[string]interface{}{"memory_id": memoryID}); err != nil {
		if _, err := client.CallTool(ctx, "memory_create", map[string]interface{}{
			"memory_id": memoryID,
			"ontology":  ontology,
		}); err != nil {
			return nil, err
		}
	}

	cfg := &types.GraphMemoryConfig{
		URL:         url,
		Token:       token,
		MemoryID:    memoryID,
		Ontology:    ontology,
		ConnectedAt: time.Now().UTC(),
	}
	meta.GraphMemory = cfg
	if err := b.spaces.PutMeta(ctx, meta); err != nil {
		return nil, err
	}

	b.logger.Info(ctx, "graph memory connected",
		logging.String("space", spaceID),
		logging.String("memory_id", memoryID),
		logging.String("ontology", ontology))
	return cfg, nil
}

// PushResult reports one push.
type PushResult struct {
	Pushed         int
	OrphansRemoved int
	Stats          map[string]interface{}
}

// Push republishes every bank file: delete-then-ingest per file, then
// removal of remote documents no longer present in the bank.
func (b *Bridge) Push(ctx context.Context, spaceID string) (*PushResult, error) {
	meta, err := b.spaces.Meta(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if meta.GraphMemory == nil {
		return nil, errors.ErrGraphNotConnected.WithDetail("space_id", spaceID)
	}
	cfg := meta.GraphMemory

	bank, err := b.spaces.Bank(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	client := b.factory(cfg.URL, cfg.Token)
	result := &PushResult{}
	current := map[string]bool{}

	status := "error"
	if b.metrics != nil {
		defer func() { b.metrics.GraphPushes.WithLabelValues(status).Inc() }()
	}

	for _, file := range bank {
		current[file.Filename] = true

		// absent documents fail the delete; a genuinely broken remote
		// fails the ingest right after
		_, _ = client.CallTool(ctx, "document_delete", map[string]interface{}{
			"memory_id": cfg.MemoryID,
			"filename":  file.Filename,
		})

		if _, err := client.CallTool(ctx, "memory_ingest", map[string]interface{}{
			"memory_id": cfg.MemoryID,
			"filename":  file.Filename,
			"content":   file.Content,
			"ontology":  cfg.Ontology,
		}); err != nil {
			return nil, err
		}
		result.Pushed++
	}

	// orphan cleanup: remote documents not in the current bank
	listReply, err := client.CallTool(ctx, "document_list", map[string]interface{}{
		"memory_id": cfg.MemoryID,
	})
	if err != nil {
		return nil, err
	}
	if docs, ok := listReply["documents"].([]interface{}); ok {
		for _, doc := range docs {
			name, ok := doc.(string)
			if !ok {
				if m, isMap := doc.(map[string]interface{}); isMap {
					name, _ = m["filename"].(string)
				}
			}
			if name == "" || current[name] {
				continue
			}
			if _, err := client.CallTool(ctx, "document_delete", map[string]interface{}{
				"memory_id": cfg.MemoryID,
				"filename":  name,
			}); err != nil {
				return nil, err
			}
			result.OrphansRemoved++
		}
	}

	stats, err := client.CallTool(ctx, "memory_stats", map[string]interface{}{
		"memory_id": cfg.MemoryID,
	})
	if err != nil {
		b.logger.Warn(ctx, "graph stats unavailable after push",
			logging.String("space", spaceID), logging.Error(err))
		stats = nil
	}
	result.Stats = stats

	now := time.Now().UTC()
	cfg.LastPushAt = &now
	cfg.PushCount++
	cfg.LastStats = stats
	if err := b.spaces.PutMeta(ctx, meta); err != nil {
		return nil, err
	}

	status = "ok"
	b.logger.Info(ctx, "graph push complete",
		logging.String("space", spaceID),
		logging.Int("pushed", result.Pushed),
		logging.Int("orphans_removed", result.OrphansRemoved))
	return result, nil
}

// Status returns the local configuration plus fresh remote stats.
func (b *Bridge) Status(ctx context.Context, spaceID string) (*types.GraphMemoryConfig, map[string]interface{}, error) {
	meta, err := b.spaces.Meta(ctx, spaceID)
	if err != nil {
		return nil, nil, err
	}
	if meta.GraphMemory == nil {
		return nil, nil, errors.ErrGraphNotConnected.WithDetail("space_id", spaceID)
	}
	cfg := meta.GraphMemory

	client := b.factory(cfg.URL, cfg.Token)
	stats, err := client.CallTool(ctx, "memory_stats", map[string]interface{}{
		"memory_id": cfg.MemoryID,
	})
	if err != nil {
		return cfg, nil, err
	}
	return cfg, stats, nil
}

// Disconnect removes the graph_memory block. Remote data stays.
func (b *Bridge) Disconnect(ctx context.Context, spaceID string) error {
	meta, err := b.spaces.Meta(ctx, spaceID)
	if err != nil {
		return err
	}
	if meta.GraphMemory == nil {
		return errors.ErrGraphNotConnected.WithDetail("space_id", spaceID)
	}
	meta.GraphMemory = nil
	return b.spaces.PutMeta(ctx, meta)
}
