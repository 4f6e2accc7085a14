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

// Package metrics exposes Prometheus metrics for Live Memory.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector registered by the server. NotesWritten
// and StoreErrors are registered and exported, but no code path
// increments them, so both always read zero.
type Metrics struct {
	registry *prometheus.Registry

	ToolCalls             *prometheus.CounterVec
	Consolidations        *prometheus.CounterVec
	ConsolidationDuration *prometheus.HistogramVec
	NotesWritten          prometheus.Counter
	NotesProcessed        prometheus.Counter
	LLMTokens             *prometheus.CounterVec
	StoreErrors           prometheus.Counter
	GCDeleted             prometheus.Counter
	GraphPushes           *prometheus.CounterVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livemem_tool_calls_total",
			Help: "Tool calls by tool name and result status.",
		}, []string{"tool", "status"}),
		Consolidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livemem_consolidations_total",
			Help: "Consolidation runs by result status.",
		}, []string{"status"}),
		ConsolidationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "livemem_consolidation_duration_seconds",
			Help:    "Wall-clock duration of consolidation runs.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"status"}),
		NotesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livemem_notes_written_total",
			Help: "Live notes appended.",
		}),
		NotesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livemem_notes_processed_total",
			Help: "Notes consumed by consolidations.",
		}),
		LLMTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livemem_llm_tokens_total",
			Help: "Language-model token usage by kind (prompt, completion).",
		}, []string{"kind"}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livemem_store_errors_total",
			Help: "Object-store operations failed after retries.",
		}),
		GCDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livemem_gc_notes_deleted_total",
			Help: "Notes removed by the garbage collector's delete-only mode.",
		}),
		GraphPushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livemem_graph_pushes_total",
			Help: "Graph bridge pushes by result status.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		m.ToolCalls,
		m.Consolidations,
		m.ConsolidationDuration,
		m.NotesWritten,
		m.NotesProcessed,
		m.LLMTokens,
		m.StoreErrors,
		m.GCDeleted,
		m.GraphPushes,
	)

	return m
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
