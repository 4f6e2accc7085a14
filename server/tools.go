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

package server

import (
	"context"
	"strings"
	"time"

	"github.com/live-memory-project/live-memory/core/auth"
	"github.com/live-memory-project/live-memory/core/backup"
	"github.com/live-memory-project/live-memory/core/consolidate"
	"github.com/live-memory-project/live-memory/core/gc"
	"github.com/live-memory-project/live-memory/core/graph"
	"github.com/live-memory-project/live-memory/core/live"
	"github.com/live-memory-project/live-memory/core/space"
	"github.com/live-memory-project/live-memory/core/token"
	"github.com/live-memory-project/live-memory/core/tools"
	"github.com/live-memory-project/live-memory/observability/health"
	"github.com/live-memory-project/live-memory/pkg/errors"
	"github.com/live-memory-project/live-memory/pkg/types"
)

// Services bundles the domain dependencies the tool table binds to.
type Services struct {
	Spaces       *space.Repo
	Notes        *live.Service
	Consolidator *consolidate.Consolidator
	GC           *gc.Collector
	Backups      *backup.Service
	Graph        *graph.Bridge
	Tokens       *token.Registry
	Health       *health.Checker

	ServerName string
	Version    string
	Model      string
	Bucket     string
	StartedAt  time.Time
}

// registerTools wires the complete tool catalogue into the registry.
func registerTools(reg *tools.Registry, s *Services) {
	// system
	reg.Register(&tools.Tool{
		Name:        "system_health",
		Description: "Report server and dependency health",
		Permission:  tools.PermPublic,
		Handler:     s.systemHealth,
	})
	reg.Register(&tools.Tool{
		Name:        "system_about",
		Description: "Describe this server",
		Permission:  tools.PermPublic,
		Handler: func(ctx context.Context, _ *auth.Identity, _ tools.Params) *types.Result {
			return types.OK(map[string]interface{}{
				"name":    s.ServerName,
				"version": s.Version,
				"model":   s.Model,
				"bucket":  s.Bucket,
				"tools":   reg.Count(),
				"uptime":  time.Since(s.StartedAt).Round(time.Second).String(),
			})
		},
	})

	// space
	reg.Register(&tools.Tool{Name: "space_create", Description: "Create a space", Permission: tools.PermWrite, Handler: s.spaceCreate})
	reg.Register(&tools.Tool{Name: "space_list", Description: "List accessible spaces", Permission: tools.PermRead, Handler: s.spaceList})
	reg.Register(&tools.Tool{Name: "space_info", Description: "Space metadata and counts", Permission: tools.PermRead, Handler: s.spaceInfo})
	reg.Register(&tools.Tool{Name: "space_rules", Description: "Raw rules document", Permission: tools.PermRead, Handler: s.spaceRules})
	reg.Register(&tools.Tool{Name: "space_summary", Description: "Info, rules, and full bank", Permission: tools.PermRead, Handler: s.spaceSummary})
	reg.Register(&tools.Tool{Name: "space_export", Description: "Export a space as tar.gz", Permission: tools.PermRead, Handler: s.spaceExport})
	reg.Register(&tools.Tool{Name: "space_delete", Description: "Delete a space recursively", Permission: tools.PermAdmin, Handler: s.spaceDelete})

	// live notes
	reg.Register(&tools.Tool{Name: "live_note", Description: "Append a note", Permission: tools.PermWrite, Handler: s.liveNote})
	reg.Register(&tools.Tool{Name: "live_read", Description: "Read notes, newest first", Permission: tools.PermRead, Handler: s.liveRead})
	reg.Register(&tools.Tool{Name: "live_search", Description: "Substring search over notes", Permission: tools.PermRead, Handler: s.liveSearch})

	// bank
	reg.Register(&tools.Tool{Name: "bank_read", Description: "Read one bank file", Permission: tools.PermRead, Handler: s.bankRead})
	reg.Register(&tools.Tool{Name: "bank_read_all", Description: "Read every bank file", Permission: tools.PermRead, Handler: s.bankReadAll})
	reg.Register(&tools.Tool{Name: "bank_list", Description: "List bank files", Permission: tools.PermRead, Handler: s.bankList})
	reg.Register(&tools.Tool{Name: "bank_consolidate", Description: "Fold notes into the bank", Permission: tools.PermWrite, Handler: s.bankConsolidate})

	// graph bridge
	reg.Register(&tools.Tool{Name: "graph_connect", Description: "Attach a graph memory target", Permission: tools.PermWrite, Handler: s.graphConnect})
	reg.Register(&tools.Tool{Name: "graph_push", Description: "Push the bank to the graph target", Permission: tools.PermWrite, Handler: s.graphPush})
	reg.Register(&tools.Tool{Name: "graph_status", Description: "Graph target status", Permission: tools.PermRead, Handler: s.graphStatus})
	reg.Register(&tools.Tool{Name: "graph_disconnect", Description: "Detach the graph target", Permission: tools.PermWrite, Handler: s.graphDisconnect})

	// backups
	reg.Register(&tools.Tool{Name: "backup_create", Description: "Snapshot a space", Permission: tools.PermWrite, Handler: s.backupCreate})
	reg.Register(&tools.Tool{Name: "backup_list", Description: "List snapshots", Permission: tools.PermRead, Handler: s.backupList})
	reg.Register(&tools.Tool{Name: "backup_download", Description: "Download a snapshot", Permission: tools.PermRead, Handler: s.backupDownload})
	reg.Register(&tools.Tool{Name: "backup_restore", Description: "Restore a snapshot", Permission: tools.PermAdmin, Handler: s.backupRestore})
	reg.Register(&tools.Tool{Name: "backup_delete", Description: "Delete a snapshot", Permission: tools.PermAdmin, Handler: s.backupDelete})

	// admin
	reg.Register(&tools.Tool{Name: "admin_create_token", Description: "Issue a token", Permission: tools.PermAdmin, Handler: s.adminCreateToken})
	reg.Register(&tools.Tool{Name: "admin_list_tokens", Description: "List tokens", Permission: tools.PermAdmin, Handler: s.adminListTokens})
	reg.Register(&tools.Tool{Name: "admin_revoke_token", Description: "Revoke a token", Permission: tools.PermAdmin, Handler: s.adminRevokeToken})
	reg.Register(&tools.Tool{Name: "admin_update_token", Description: "Update a token's scope", Permission: tools.PermAdmin, Handler: s.adminUpdateToken})
	reg.Register(&tools.Tool{Name: "admin_gc_notes", Description: "Collect orphaned notes", Permission: tools.PermAdmin, Handler: s.adminGCNotes})
}

// requireSpaceAccess runs the scope check for a space-bound tool.
func requireSpaceAccess(id *auth.Identity, spaceID string) *types.Result {
	if spaceID == "" {
		return types.Errorf("space_id is required")
	}
	if err := id.CheckAccess(spaceID); err != nil {
		return tools.ResultFromError(err)
	}
	return nil
}

func (s *Services) systemHealth(ctx context.Context, _ *auth.Identity, _ tools.Params) *types.Result {
	status, checks := s.Health.Run(ctx)
	res := types.OK(map[string]interface{}{
		"health":  status,
		"checks":  checks,
		"version": s.Version,
		"uptime":  time.Since(s.StartedAt).Round(time.Second).String(),
	})
	if status != health.StatusHealthy {
		res.Set("message", "one or more checks failed")
	}
	return res
}

func (s *Services) spaceCreate(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	meta, err := s.Spaces.Create(ctx, spaceID, p.String("description"), p.String("rules"), id.Name)
	if err != nil {
		return tools.ResultFromError(err)
	}
	return types.Created(map[string]interface{}{
		"space_id":   meta.SpaceID,
		"owner":      meta.Owner,
		"created_at": meta.CreatedAt.Format(time.RFC3339),
		"rules_size": meta.RulesSize,
	})
}

func (s *Services) spaceList(ctx context.Context, id *auth.Identity, _ tools.Params) *types.Result {
	entries, err := s.Spaces.List(ctx, id.InScope)
	if err != nil {
		return tools.ResultFromError(err)
	}
	list := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		list = append(list, map[string]interface{}{
			"space_id":            e.Meta.SpaceID,
			"description":         e.Meta.Description,
			"owner":               e.Meta.Owner,
			"created_at":          e.Meta.CreatedAt.Format(time.RFC3339),
			"note_count":          e.NoteCount,
			"bank_count":          e.BankCount,
			"total_size":          e.TotalSize,
			"consolidation_count": e.Meta.ConsolidationCount,
		})
	}
	return types.OK(map[string]interface{}{"spaces": list, "count": len(list)})
}

func (s *Services) spaceInfo(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	info, err := s.Spaces.Info(ctx, spaceID)
	if err != nil {
		return tools.ResultFromError(err)
	}

	fields := map[string]interface{}{
		"space_id":              info.Meta.SpaceID,
		"description":           info.Meta.Description,
		"owner":                 info.Meta.Owner,
		"created_at":            info.Meta.CreatedAt.Format(time.RFC3339),
		"note_count":            info.NoteCount,
		"bank_files":            info.BankFiles,
		"total_size":            info.TotalSize,
		"total_size_human":      info.TotalSizeHuman,
		"consolidation_count":   info.Meta.ConsolidationCount,
		"total_notes_processed": info.Meta.TotalNotesProcessed,
		"synthesis_exists":      info.SynthesisExists,
		"version":               info.Meta.Version,
	}
	if info.Meta.LastConsolidation != nil {
		fields["last_consolidation"] = info.Meta.LastConsolidation.Format(time.RFC3339)
	}
	if info.OldestNote != nil {
		fields["oldest_note"] = info.OldestNote.Format(time.RFC3339)
	}
	if info.NewestNote != nil {
		fields["newest_note"] = info.NewestNote.Format(time.RFC3339)
	}
	if info.Meta.GraphMemory != nil {
		fields["graph_memory_id"] = info.Meta.GraphMemory.MemoryID
	}
	return types.OK(fields)
}

func (s *Services) spaceRules(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	rules, err := s.Spaces.Rules(ctx, spaceID)
	if err != nil {
		return tools.ResultFromError(err)
	}
	return types.OK(map[string]interface{}{"space_id": spaceID, "rules": rules})
}

func (s *Services) spaceSummary(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	summary, err := s.Spaces.Summary(ctx, spaceID)
	if err != nil {
		return tools.ResultFromError(err)
	}

	bank := make([]map[string]interface{}, 0, len(summary.Bank))
	for _, f := range summary.Bank {
		bank = append(bank, map[string]interface{}{
			"filename": f.Filename,
			"content":  f.Content,
			"size":     f.Size,
		})
	}
	return types.OK(map[string]interface{}{
		"space_id":   spaceID,
		"note_count": summary.Info.NoteCount,
		"rules":      summary.Rules,
		"bank":       bank,
		"synthesis":  summary.Synthesis,
	})
}

func (s *Services) spaceExport(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	archive, count, err := s.Spaces.Export(ctx, spaceID)
	if err != nil {
		return tools.ResultFromError(err)
	}
	return types.OK(map[string]interface{}{
		"space_id":       spaceID,
		"archive_base64": archive,
		"object_count":   count,
		"format":         "tar.gz",
	})
}

func (s *Services) spaceDelete(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	if !p.Bool("confirm") {
		return tools.ResultFromError(errors.ErrConfirmRequired)
	}
	deleted, err := s.Spaces.Delete(ctx, spaceID)
	if err != nil {
		return tools.ResultFromError(err)
	}
	return types.Deleted(map[string]interface{}{"space_id": spaceID, "objects_deleted": deleted})
}

func (s *Services) liveNote(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	agent := p.String("agent")
	if agent == "" {
		agent = id.Name
	}
	receipt, err := s.Notes.Append(ctx, spaceID, live.Category(p.String("category")), p.String("content"), agent, p.String("tags"))
	if err != nil {
		return tools.ResultFromError(err)
	}
	return types.Created(map[string]interface{}{
		"filename":  receipt.Filename,
		"size":      receipt.Size,
		"timestamp": receipt.Timestamp.Format(time.RFC3339),
	})
}

func noteFields(notes []*live.Note) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(notes))
	for _, n := range notes {
		out = append(out, map[string]interface{}{
			"filename":  n.Filename,
			"timestamp": n.Timestamp.Format(time.RFC3339),
			"agent":     n.Agent,
			"category":  string(n.Category),
			"tags":      n.Tags,
			"content":   n.Content,
			"size":      n.Size,
		})
	}
	return out
}

func (s *Services) liveRead(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	notes, err := s.Notes.Read(ctx, spaceID, live.ReadFilter{
		Limit:    p.Int("limit"),
		Category: p.String("category"),
		Agent:    p.String("agent"),
		Since:    p.String("since"),
	})
	if err != nil {
		return tools.ResultFromError(err)
	}
	return types.OK(map[string]interface{}{"notes": noteFields(notes), "count": len(notes)})
}

func (s *Services) liveSearch(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	notes, err := s.Notes.Search(ctx, spaceID, p.String("query"), p.Int("limit"))
	if err != nil {
		return tools.ResultFromError(err)
	}
	return types.OK(map[string]interface{}{"notes": noteFields(notes), "count": len(notes)})
}

// validBankFilename rejects path traversal in bank file names.
func validBankFilename(name string) bool {
	return name != "" && !strings.Contains(name, "..") && !strings.HasPrefix(name, "/")
}

func (s *Services) bankRead(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	filename := p.String("filename")
	if !validBankFilename(filename) {
		return tools.ResultFromError(errors.ErrInvalidFilename.WithDetail("filename", filename))
	}

	files, err := s.Spaces.Bank(ctx, spaceID)
	if err != nil {
		return tools.ResultFromError(err)
	}
	for _, f := range files {
		if f.Filename == filename {
			return types.OK(map[string]interface{}{
				"filename": f.Filename,
				"content":  f.Content,
				"size":     f.Size,
			})
		}
	}
	return tools.ResultFromError(errors.ErrBankFileNotFound.WithDetail("filename", filename))
}

func (s *Services) bankReadAll(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	files, err := s.Spaces.Bank(ctx, spaceID)
	if err != nil {
		return tools.ResultFromError(err)
	}
	out := make([]map[string]interface{}, 0, len(files))
	for _, f := range files {
		out = append(out, map[string]interface{}{
			"filename": f.Filename,
			"content":  f.Content,
			"size":     f.Size,
		})
	}
	return types.OK(map[string]interface{}{"files": out, "count": len(out)})
}

func (s *Services) bankList(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	info, err := s.Spaces.Info(ctx, spaceID)
	if err != nil {
		return tools.ResultFromError(err)
	}
	return types.OK(map[string]interface{}{"files": info.BankFiles, "count": len(info.BankFiles)})
}

func (s *Services) bankConsolidate(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}

	// non-admin identities may only consolidate their own notes
	agent := p.String("agent")
	if !id.IsAdmin() {
		if agent == "" {
			agent = id.Name
		} else if agent != id.Name {
			return tools.ResultFromError(errors.ErrForbidden.WithMessage("admin permission required to target another agent"))
		}
	}

	result, err := s.Consolidator.Run(ctx, spaceID, agent)
	if err != nil {
		return tools.ResultFromError(err)
	}
	fields := map[string]interface{}{
		"space_id":           spaceID,
		"notes_processed":    result.NotesProcessed,
		"bank_files_created": result.BankFilesCreated,
		"bank_files_updated": result.BankFilesUpdated,
		"synthesis_size":     result.SynthesisSize,
		"duration_seconds":   result.DurationSeconds,
	}
	if result.NotesRemaining > 0 {
		fields["notes_remaining"] = result.NotesRemaining
	}
	if result.PromptTokens > 0 || result.CompletionTokens > 0 {
		fields["prompt_tokens"] = result.PromptTokens
		fields["completion_tokens"] = result.CompletionTokens
	}
	return types.OK(fields)
}

func (s *Services) graphConnect(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	cfg, err := s.Graph.Connect(ctx, spaceID, p.String("url"), p.String("token"), p.String("memory_id"), p.String("ontology"))
	if err != nil {
		return tools.ResultFromError(err)
	}
	return types.OK(map[string]interface{}{
		"space_id":     spaceID,
		"memory_id":    cfg.MemoryID,
		"ontology":     cfg.Ontology,
		"connected_at": cfg.ConnectedAt.Format(time.RFC3339),
	})
}

func (s *Services) graphPush(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	result, err := s.Graph.Push(ctx, spaceID)
	if err != nil {
		return tools.ResultFromError(err)
	}
	fields := map[string]interface{}{
		"space_id":        spaceID,
		"pushed":          result.Pushed,
		"orphans_removed": result.OrphansRemoved,
	}
	if result.Stats != nil {
		fields["stats"] = result.Stats
	}
	return types.OK(fields)
}

func (s *Services) graphStatus(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	cfg, stats, err := s.Graph.Status(ctx, spaceID)
	if err != nil {
		return tools.ResultFromError(err)
	}
	fields := map[string]interface{}{
		"space_id":     spaceID,
		"url":          cfg.URL,
		"memory_id":    cfg.MemoryID,
		"ontology":     cfg.Ontology,
		"connected_at": cfg.ConnectedAt.Format(time.RFC3339),
		"push_count":   cfg.PushCount,
	}
	if cfg.LastPushAt != nil {
		fields["last_push_at"] = cfg.LastPushAt.Format(time.RFC3339)
	}
	if stats != nil {
		fields["stats"] = stats
	}
	return types.OK(fields)
}

func (s *Services) graphDisconnect(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	if err := s.Graph.Disconnect(ctx, spaceID); err != nil {
		return tools.ResultFromError(err)
	}
	return types.OK(map[string]interface{}{"space_id": spaceID, "disconnected": true})
}

func (s *Services) backupCreate(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if res := requireSpaceAccess(id, spaceID); res != nil {
		return res
	}
	meta, err := s.Backups.Create(ctx, spaceID, p.String("description"))
	if err != nil {
		return tools.ResultFromError(err)
	}
	return types.Created(map[string]interface{}{
		"backup_id":    meta.BackupID,
		"space_id":     meta.SpaceID,
		"object_count": meta.ObjectCount,
		"total_size":   meta.TotalSize,
		"created_at":   meta.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Services) backupList(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	metas, err := s.Backups.List(ctx, p.String("space_id"), id.InScope)
	if err != nil {
		return tools.ResultFromError(err)
	}
	out := make([]map[string]interface{}, 0, len(metas))
	for _, m := range metas {
		out = append(out, map[string]interface{}{
			"backup_id":    m.BackupID,
			"space_id":     m.SpaceID,
			"description":  m.Description,
			"created_at":   m.CreatedAt.Format(time.RFC3339),
			"object_count": m.ObjectCount,
			"total_size":   m.TotalSize,
		})
	}
	return types.OK(map[string]interface{}{"backups": out, "count": len(out)})
}

// backupSpace extracts the space id of a backup id for scope checks.
func backupSpace(backupID string) string {
	spaceID, _, _ := strings.Cut(backupID, "/")
	return spaceID
}

func (s *Services) backupDownload(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	backupID := p.String("backup_id")
	if res := requireSpaceAccess(id, backupSpace(backupID)); res != nil {
		return res
	}
	archive, count, err := s.Backups.Download(ctx, backupID)
	if err != nil {
		return tools.ResultFromError(err)
	}
	return types.OK(map[string]interface{}{
		"backup_id":      backupID,
		"archive_base64": archive,
		"object_count":   count,
		"format":         "tar.gz",
	})
}

func (s *Services) backupRestore(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	backupID := p.String("backup_id")
	if res := requireSpaceAccess(id, backupSpace(backupID)); res != nil {
		return res
	}
	if !p.Bool("confirm") {
		return tools.ResultFromError(errors.ErrConfirmRequired)
	}
	restored, err := s.Backups.Restore(ctx, backupID)
	if err != nil {
		return tools.ResultFromError(err)
	}
	return types.OK(map[string]interface{}{"backup_id": backupID, "objects_restored": restored})
}

func (s *Services) backupDelete(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	backupID := p.String("backup_id")
	if res := requireSpaceAccess(id, backupSpace(backupID)); res != nil {
		return res
	}
	if !p.Bool("confirm") {
		return tools.ResultFromError(errors.ErrConfirmRequired)
	}
	deleted, err := s.Backups.Delete(ctx, backupID)
	if err != nil {
		return tools.ResultFromError(err)
	}
	return types.Deleted(map[string]interface{}{"backup_id": backupID, "objects_deleted": deleted})
}

func (s *Services) adminCreateToken(ctx context.Context, _ *auth.Identity, p tools.Params) *types.Result {
	perms := make([]token.Permission, 0)
	for _, raw := range p.Strings("permissions") {
		perms = append(perms, token.Permission(raw))
	}
	var ttl time.Duration
	if days := p.Int("expires_days"); days > 0 {
		ttl = time.Duration(days) * 24 * time.Hour
	}

	plain, record, err := s.Tokens.Create(ctx, p.String("name"), perms, p.Strings("space_ids"), ttl)
	if err != nil {
		return tools.ResultFromError(err)
	}

	// the plain credential appears here and never again
	fields := map[string]interface{}{
		"token":       plain,
		"name":        record.Name,
		"permissions": record.Permissions,
		"space_ids":   record.SpaceIDs,
		"created_at":  record.CreatedAt.Format(time.RFC3339),
	}
	if record.ExpiresAt != nil {
		fields["expires_at"] = record.ExpiresAt.Format(time.RFC3339)
	}
	return types.Created(fields)
}

func (s *Services) adminListTokens(ctx context.Context, _ *auth.Identity, _ tools.Params) *types.Result {
	records, err := s.Tokens.List(ctx)
	if err != nil {
		return tools.ResultFromError(err)
	}
	out := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		entry := map[string]interface{}{
			"name":        r.Name,
			"hash_prefix": r.HashPrefix(),
			"permissions": r.Permissions,
			"space_ids":   r.SpaceIDs,
			"created_at":  r.CreatedAt.Format(time.RFC3339),
			"revoked":     r.Revoked,
		}
		if r.ExpiresAt != nil {
			entry["expires_at"] = r.ExpiresAt.Format(time.RFC3339)
		}
		if r.LastUsedAt != nil {
			entry["last_used_at"] = r.LastUsedAt.Format(time.RFC3339)
		}
		out = append(out, entry)
	}
	return types.OK(map[string]interface{}{"tokens": out, "count": len(out)})
}

func (s *Services) adminRevokeToken(ctx context.Context, _ *auth.Identity, p tools.Params) *types.Result {
	name := p.String("name")
	if err := s.Tokens.Revoke(ctx, name); err != nil {
		return tools.ResultFromError(err)
	}
	return types.OK(map[string]interface{}{"name": name, "revoked": true})
}

func (s *Services) adminUpdateToken(ctx context.Context, _ *auth.Identity, p tools.Params) *types.Result {
	record, err := s.Tokens.UpdateScope(ctx, p.String("name"), p.Strings("space_ids"))
	if err != nil {
		return tools.ResultFromError(err)
	}
	return types.OK(map[string]interface{}{
		"name":      record.Name,
		"space_ids": record.SpaceIDs,
	})
}

func (s *Services) adminGCNotes(ctx context.Context, id *auth.Identity, p tools.Params) *types.Result {
	spaceID := p.String("space_id")
	if spaceID != "" {
		if res := requireSpaceAccess(id, spaceID); res != nil {
			return res
		}
	}
	report, err := s.GC.Run(ctx, spaceID, p.Bool("confirm"), p.Bool("delete_only"), id.InScope)
	if err != nil {
		return tools.ResultFromError(err)
	}
	fields := map[string]interface{}{
		"mode":          report.Mode,
		"total_orphans": report.TotalOrphans,
		"orphans":       report.Orphans,
	}
	if report.Mode == "consolidate" {
		fields["consolidations"] = report.Consolidations
	}
	if report.Mode == "delete" {
		fields["deleted"] = report.Deleted
	}
	if len(report.Failures) > 0 {
		fields["failures"] = report.Failures
	}
	return types.OK(fields)
}
