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

// Package server binds the tool catalogue to an HTTP transport: a
// short POST channel for requests and a long-lived event-stream
// channel for responses, both gated by the Authorization header.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/live-memory-project/live-memory/config"
	"github.com/live-memory-project/live-memory/core/auth"
	"github.com/live-memory-project/live-memory/core/tools"
	"github.com/live-memory-project/live-memory/observability/logging"
	"github.com/live-memory-project/live-memory/observability/metrics"
	"github.com/live-memory-project/live-memory/pkg/types"
)

// Server is the HTTP transport for the tool surface.
type Server struct {
	cfg      *config.Config
	gate     *auth.Gate
	registry *tools.Registry
	services *Services
	logger   logging.Logger
	metrics  *metrics.Metrics
	hub      *sseHub
	httpSrv  *http.Server
}

// New assembles the transport. The tool table is registered here.
func New(cfg *config.Config, services *Services, gate *auth.Gate, logger logging.Logger, m *metrics.Metrics) *Server {
	registry := tools.NewRegistry(logger, m)
	registerTools(registry, services)

	s := &Server{
		cfg:      cfg,
		gate:     gate,
		registry: registry,
		services: services,
		logger:   logger,
		metrics:  m,
		hub:      newSSEHub(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/tools/call", s.handleToolCall).Methods(http.MethodPost)
	router.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/about", s.handleAbout).Methods(http.MethodGet)
	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, m.Handler()).Methods(http.MethodGet)
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(router)

	s.httpSrv = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     handler,
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout stays zero so the event stream can live
	}
	return s
}

// Registry exposes the tool registry, mainly for tests and the
// startup banner.
func (s *Server) Registry() *tools.Registry {
	return s.registry
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run serves until the context is cancelled, then drains within the
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "server listening",
			logging.String("addr", s.httpSrv.Addr),
			logging.Int("tools", s.registry.Count()))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// toolRequest is the POST body of one call.
type toolRequest struct {
	ID     string       `json:"id,omitempty"`
	Tool   string       `json:"tool"`
	Params tools.Params `json:"params,omitempty"`
}

// toolEvent is what the event stream carries.
type toolEvent struct {
	ID     string        `json:"id,omitempty"`
	Tool   string        `json:"tool"`
	Result *types.Result `json:"result"`
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResult(w, http.StatusBadRequest, types.Errorf("malformed request body"))
		return
	}
	if req.Tool == "" {
		s.writeResult(w, http.StatusBadRequest, types.Errorf("tool name is required"))
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	ctx := logging.WithFields(r.Context(), logging.String("request_id", req.ID))

	tool, known := s.registry.Get(req.Tool)
	if known && tool.Permission != tools.PermPublic {
		identity, err := s.gate.Resolve(ctx, r.Header.Get("Authorization"))
		if err != nil {
			s.writeResult(w, http.StatusUnauthorized, tools.ResultFromError(err))
			return
		}
		ctx = auth.WithIdentity(ctx, identity)
		ctx = logging.WithFields(ctx, logging.String("identity", identity.Name))
		s.gate.Audit(ctx, identity, req.Tool, req.Params.String("space_id"))
	}

	result := s.registry.Execute(ctx, req.Tool, req.Params)
	s.writeResult(w, http.StatusOK, result)

	if event, err := json.Marshal(&toolEvent{ID: req.ID, Tool: req.Tool, Result: result}); err == nil {
		s.hub.broadcast(event)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if _, err := s.gate.Resolve(r.Context(), r.Header.Get("Authorization")); err != nil {
		s.writeResult(w, http.StatusUnauthorized, tools.ResultFromError(err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeResult(w, http.StatusInternalServerError, types.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	keepalive := time.NewTicker(25 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-ch:
			fmt.Fprintf(w, "event: result\ndata: %s\n\n", event)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	result := s.registry.Execute(r.Context(), "system_health", nil)
	code := http.StatusOK
	if v, _ := result.Get("health"); v != nil && fmt.Sprint(v) != "healthy" {
		code = http.StatusServiceUnavailable
	}
	s.writeResult(w, code, result)
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, http.StatusOK, s.registry.Execute(r.Context(), "system_about", nil))
}

func (s *Server) writeResult(w http.ResponseWriter, code int, result *types.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Error(context.Background(), "failed to write response", logging.Error(err))
	}
}
