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

// Package backup snapshots spaces under the reserved _backups prefix
// and restores them.
package backup

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/base64"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"github.com/live-memory-project/live-memory/observability/logging"
	"github.com/live-memory-project/live-memory/pkg/errors"
	"github.com/live-memory-project/live-memory/pkg/types"
	"github.com/live-memory-project/live-memory/storage"
)

// stampLayout is the snapshot timestamp, second-level, path-safe.
const stampLayout = "2006-01-02T15-04-05"

// copyParallelism bounds concurrent object copies.
const copyParallelism = 8

// Service provides snapshot operations.
type Service struct {
	store     storage.ObjectStore
	retention int
	logger    logging.Logger
}

// NewService creates a backup service. retention is the number of
// snapshots kept per space after a create.
func NewService(store storage.ObjectStore, retention int, logger logging.Logger) *Service {
	if retention <= 0 {
		retention = 5
	}
	return &Service{store: store, retention: retention, logger: logger}
}

// Meta is the snapshot descriptor stored next to the copied objects.
type Meta struct {
	BackupID    string    `json:"backup_id"`
	SpaceID     string    `json:"space_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	ObjectCount int       `json:"object_count"`
	TotalSize   int64     `json:"total_size"`
}

// metaName is the descriptor object inside a snapshot prefix.
const metaName = "_backup.json"

// prefixOf returns the object prefix of a backup id.
func prefixOf(backupID string) string {
	return types.BackupsPrefix + backupID + "/"
}

// Create copies every object of the space under a fresh snapshot
// prefix, writes the descriptor, and applies retention.
func (s *Service) Create(ctx context.Context, spaceID, description string) (*Meta, error) {
	if !types.ValidName(spaceID) {
		return nil, errors.ErrInvalidSpaceID.WithDetail("space_id", spaceID)
	}
	_, found, err := s.store.Head(ctx, types.MetaKey(spaceID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.ErrSpaceNotFound.WithDetail("space_id", spaceID)
	}

	infos, err := s.store.List(ctx, types.SpacePrefix(spaceID))
	if err != nil {
		return nil, err
	}

	backupID := spaceID + "/" + time.Now().UTC().Format(stampLayout)
	prefix := prefixOf(backupID)

	meta := &Meta{
		BackupID:    backupID,
		SpaceID:     spaceID,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		ObjectCount: len(infos),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyParallelism)
	for _, info := range infos {
		meta.TotalSize += info.Size
		g.Go(func() error {
			data, found, err := s.store.Get(gctx, info.Key)
			if err != nil {
				return err
			}
			if !found {
				return nil
			}
			return s.store.Put(gctx, prefix+info.Key, data, "")
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := storage.PutJSON(ctx, s.store, prefix+metaName, meta); err != nil {
		return nil, err
	}

	if err := s.applyRetention(ctx, spaceID); err != nil {
		s.logger.Warn(ctx, "backup retention failed",
			logging.String("space", spaceID), logging.Error(err))
	}

	s.logger.Info(ctx, "backup created",
		logging.String("backup", backupID),
		logging.Int("objects", meta.ObjectCount))
	return meta, nil
}

// List returns snapshot descriptors, optionally restricted to one
// space, newest first.
func (s *Service) List(ctx context.Context, spaceID string, accessible func(string) bool) ([]*Meta, error) {
	prefix := types.BackupsPrefix
	if spaceID != "" {
		prefix += spaceID + "/"
	}
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var metas []*Meta
	for _, info := range infos {
		if !strings.HasSuffix(info.Key, "/"+metaName) {
			continue
		}
		var meta Meta
		found, err := storage.GetJSON(ctx, s.store, info.Key, &meta)
		if err != nil || !found {
			continue
		}
		if accessible != nil && !accessible(meta.SpaceID) {
			continue
		}
		metas = append(metas, &meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].BackupID > metas[j].BackupID })
	return metas, nil
}

// Restore copies a snapshot back. It refuses when the target space
// already exists.
func (s *Service) Restore(ctx context.Context, backupID string) (int, error) {
	if !types.ValidBackupID(backupID) {
		return 0, errors.ErrInvalidBackupID.WithDetail("backup_id", backupID)
	}
	spaceID, _, _ := strings.Cut(backupID, "/")

	_, found, err := s.store.Head(ctx, types.MetaKey(spaceID))
	if err != nil {
		return 0, err
	}
	if found {
		return 0, errors.ErrBackupTargetExists.WithDetail("space_id", spaceID)
	}

	prefix := prefixOf(backupID)
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if len(infos) == 0 {
		return 0, errors.ErrBackupNotFound.WithDetail("backup_id", backupID)
	}

	restored := 0
	for _, info := range infos {
		target := strings.TrimPrefix(info.Key, prefix)
		if target == metaName {
			continue
		}
		data, found, err := s.store.Get(ctx, info.Key)
		if err != nil {
			return restored, err
		}
		if !found {
			continue
		}
		if err := s.store.Put(ctx, target, data, ""); err != nil {
			return restored, err
		}
		restored++
	}

	s.logger.Info(ctx, "backup restored",
		logging.String("backup", backupID),
		logging.Int("objects", restored))
	return restored, nil
}

// Download returns the snapshot as a base64 tar.gz.
func (s *Service) Download(ctx context.Context, backupID string) (string, int, error) {
	if !types.ValidBackupID(backupID) {
		return "", 0, errors.ErrInvalidBackupID.WithDetail("backup_id", backupID)
	}
	prefix := prefixOf(backupID)
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return "", 0, err
	}
	if len(infos) == 0 {
		return "", 0, errors.ErrBackupNotFound.WithDetail("backup_id", backupID)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, info := range infos {
		data, found, err := s.store.Get(ctx, info.Key)
		if err != nil {
			return "", 0, err
		}
		if !found {
			continue
		}
		hdr := &tar.Header{
			Name:    strings.TrimPrefix(info.Key, prefix),
			Mode:    0o644,
			Size:    int64(len(data)),
			ModTime: info.Modified,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return "", 0, err
		}
		if _, err := tw.Write(data); err != nil {
			return "", 0, err
		}
	}
	if err := tw.Close(); err != nil {
		return "", 0, err
	}
	if err := gz.Close(); err != nil {
		return "", 0, err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), len(infos), nil
}

// Delete removes a snapshot prefix.
func (s *Service) Delete(ctx context.Context, backupID string) (int, error) {
	if !types.ValidBackupID(backupID) {
		return 0, errors.ErrInvalidBackupID.WithDetail("backup_id", backupID)
	}
	prefix := prefixOf(backupID)
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if len(infos) == 0 {
		return 0, errors.ErrBackupNotFound.WithDetail("backup_id", backupID)
	}
	deleted := 0
	for _, info := range infos {
		if err := s.store.Delete(ctx, info.Key); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// applyRetention deletes all but the newest retention snapshots of a
// space. Timestamps tie-break by key, descending, so the later key
// survives.
func (s *Service) applyRetention(ctx context.Context, spaceID string) error {
	prefix := types.BackupsPrefix + spaceID + "/"
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return err
	}

	stamps := map[string]bool{}
	for _, info := range infos {
		stamp, _, ok := strings.Cut(strings.TrimPrefix(info.Key, prefix), "/")
		if ok {
			stamps[stamp] = true
		}
	}
	if len(stamps) <= s.retention {
		return nil
	}

	ordered := make([]string, 0, len(stamps))
	for stamp := range stamps {
		ordered = append(ordered, stamp)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ordered)))

	for _, stamp := range ordered[s.retention:] {
		if _, err := s.Delete(ctx, spaceID+"/"+stamp); err != nil {
			return err
		}
	}
	return nil
}
