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

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/live-memory-project/live-memory/adapters/llm"
	"github.com/live-memory-project/live-memory/config"
	"github.com/live-memory-project/live-memory/core/auth"
	"github.com/live-memory-project/live-memory/core/backup"
	"github.com/live-memory-project/live-memory/core/consolidate"
	"github.com/live-memory-project/live-memory/core/gc"
	"github.com/live-memory-project/live-memory/core/graph"
	"github.com/live-memory-project/live-memory/core/live"
	"github.com/live-memory-project/live-memory/core/lock"
	"github.com/live-memory-project/live-memory/core/space"
	"github.com/live-memory-project/live-memory/core/token"
	"github.com/live-memory-project/live-memory/observability/health"
	"github.com/live-memory-project/live-memory/observability/logging"
	"github.com/live-memory-project/live-memory/observability/metrics"
	"github.com/live-memory-project/live-memory/pkg/types"
	"github.com/live-memory-project/live-memory/server"
	"github.com/live-memory-project/live-memory/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Live Memory server",
	Long: `Start the HTTP server exposing the tool catalogue.

Configuration comes from an optional config file (YAML or JSON) plus
LIVEMEM_* environment variables, which take precedence.`,
	RunE: runServe,
}

var serveConfigPath string

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to configuration file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}

	logger := logging.NewStructuredLogger(logging.Level(cfg.Logging.Level))
	m := metrics.New()

	store, err := storage.NewMinioStore(cfg.Store)
	if err != nil {
		return err
	}

	provider, err := llm.FromConfig(cfg.LLM)
	if err != nil {
		return err
	}

	locks := lock.NewRegistry()
	tokens := token.NewRegistry(store, locks)
	gate := auth.NewGate(tokens, cfg.Auth.BootstrapToken, logger)

	spaces := space.NewRepo(store, logger)
	notes := live.NewService(store, logger)
	consolidator := consolidate.New(store, locks, provider, consolidate.Options{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.Consolidation.Timeout,
		MaxNotes:    cfg.Consolidation.MaxNotes,
	}, logger, m)
	collector := gc.New(store, spaces, notes, consolidator, cfg.GC.MaxAgeDays, logger, m)
	backups := backup.NewService(store, cfg.Backup.RetentionCount, logger)
	bridge := graph.NewBridge(spaces, nil, logger, m)

	checker := health.NewChecker()
	checker.Register("object_store", func(ctx context.Context) error {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := store.List(probeCtx, types.SystemPrefix)
		return err
	})

	services := &server.Services{
		Spaces:       spaces,
		Notes:        notes,
		Consolidator: consolidator,
		GC:           collector,
		Backups:      backups,
		Graph:        bridge,
		Tokens:       tokens,
		Health:       checker,
		ServerName:   "live-memory",
		Version:      version,
		Model:        cfg.LLM.Model,
		Bucket:       cfg.Store.Bucket,
		StartedAt:    time.Now().UTC(),
	}

	srv := server.New(cfg, services, gate, logger, m)
	printBanner(cfg, srv.Registry().Count())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func printBanner(cfg *config.Config, toolCount int) {
	fmt.Printf("live-memory %s\n", version)
	fmt.Printf("  listen : %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  store  : %s (bucket %s)\n", cfg.Store.Endpoint, cfg.Store.Bucket)
	fmt.Printf("  model  : %s (%s)\n", cfg.LLM.Model, cfg.LLM.Provider)
	fmt.Printf("  tools  : %d\n", toolCount)
}
