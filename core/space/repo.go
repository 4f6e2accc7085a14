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

// Package space implements the space lifecycle: isolated namespaces
// whose rules are written once at creation and never mutated.
package space

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"

	"github.com/live-memory-project/live-memory/core/live"
	"github.com/live-memory-project/live-memory/observability/logging"
	"github.com/live-memory-project/live-memory/pkg/errors"
	"github.com/live-memory-project/live-memory/pkg/types"
	"github.com/live-memory-project/live-memory/storage"
)

const (
	// MaxRulesLength bounds the rules document.
	MaxRulesLength = 50000

	// MaxDescriptionLength bounds the space description.
	MaxDescriptionLength = 500

	// metaVersion is written into fresh _meta.json objects.
	metaVersion = "1.0"
)

// Repo provides space lifecycle operations.
type Repo struct {
	store  storage.ObjectStore
	logger logging.Logger
}

// NewRepo creates a space repository.
func NewRepo(store storage.ObjectStore, logger logging.Logger) *Repo {
	return &Repo{store: store, logger: logger}
}

// Create validates inputs and writes the initial objects: _meta.json,
// _rules.md, and the two sentinels. It fails if the space exists.
func (r *Repo) Create(ctx context.Context, spaceID, description, rules, owner string) (*types.SpaceMeta, error) {
	if !types.ValidName(spaceID) {
		return nil, errors.ErrInvalidSpaceID.WithDetail("space_id", spaceID)
	}
	if types.ReservedPrefix(spaceID) {
		return nil, errors.ErrInvalidSpaceID.WithMessage("reserved name").WithDetail("space_id", spaceID)
	}
	if rules == "" {
		return nil, errors.ErrInvalidInput.WithMessage("rules are required")
	}
	if len(rules) > MaxRulesLength {
		return nil, errors.ErrInvalidInput.WithMessage("rules exceed size limit")
	}
	if len(description) > MaxDescriptionLength {
		return nil, errors.ErrInvalidInput.WithMessage("description exceeds size limit")
	}

	_, found, err := r.store.Head(ctx, types.MetaKey(spaceID))
	if err != nil {
		return nil, err
	}
	if found {
		return nil, errors.ErrSpaceAlreadyExists.WithDetail("space_id", spaceID)
	}

	meta := &types.SpaceMeta{
		SpaceID:     spaceID,
		Description: description,
		Owner:       owner,
		CreatedAt:   time.Now().UTC(),
		RulesSize:   int64(len(rules)),
		Version:     metaVersion,
	}

	if err := storage.PutJSON(ctx, r.store, types.MetaKey(spaceID), meta); err != nil {
		return nil, err
	}
	if err := r.store.Put(ctx, types.RulesKey(spaceID), []byte(rules), "text/markdown"); err != nil {
		return nil, err
	}
	if err := r.store.Put(ctx, types.LiveKeepKey(spaceID), nil, "text/plain"); err != nil {
		return nil, err
	}
	if err := r.store.Put(ctx, types.BankKeepKey(spaceID), nil, "text/plain"); err != nil {
		return nil, err
	}

	r.logger.Info(ctx, "space created",
		logging.String("space", spaceID),
		logging.String("owner", owner))
	return meta, nil
}

// Meta reads a space's metadata, or not_found.
func (r *Repo) Meta(ctx context.Context, spaceID string) (*types.SpaceMeta, error) {
	if !types.ValidName(spaceID) {
		return nil, errors.ErrInvalidSpaceID.WithDetail("space_id", spaceID)
	}
	var meta types.SpaceMeta
	found, err := storage.GetJSON(ctx, r.store, types.MetaKey(spaceID), &meta)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.ErrSpaceNotFound.WithDetail("space_id", spaceID)
	}
	return &meta, nil
}

// PutMeta rewrites a space's metadata.
func (r *Repo) PutMeta(ctx context.Context, meta *types.SpaceMeta) error {
	return storage.PutJSON(ctx, r.store, types.MetaKey(meta.SpaceID), meta)
}

// ListEntry is one space in a listing.
type ListEntry struct {
	Meta      *types.SpaceMeta
	NoteCount int
	BankCount int
	TotalSize int64
}

// List enumerates every space, with counts. The caller supplies the
// accessible filter from the identity's scope; a nil filter keeps
// every space.
func (r *Repo) List(ctx context.Context, accessible func(spaceID string) bool) ([]*ListEntry, error) {
	infos, err := r.store.List(ctx, "")
	if err != nil {
		return nil, err
	}

	perSpace := map[string][]storage.ObjectInfo{}
	for _, info := range infos {
		top, _, ok := strings.Cut(info.Key, "/")
		if !ok || types.ReservedPrefix(top) {
			continue
		}
		perSpace[top] = append(perSpace[top], info)
	}

	ids := make([]string, 0, len(perSpace))
	for id := range perSpace {
		if accessible == nil || accessible(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	entries := make([]*ListEntry, 0, len(ids))
	for _, id := range ids {
		var meta types.SpaceMeta
		found, err := storage.GetJSON(ctx, r.store, types.MetaKey(id), &meta)
		if err != nil || !found {
			// a prefix without readable metadata is not a space
			continue
		}
		entry := &ListEntry{Meta: &meta}
		for _, info := range perSpace[id] {
			entry.TotalSize += info.Size
			name := strings.TrimPrefix(info.Key, types.LivePrefix(id))
			if name != info.Key && name != ".keep" {
				entry.NoteCount++
				continue
			}
			name = strings.TrimPrefix(info.Key, types.BankPrefix(id))
			if name != info.Key && name != ".keep" {
				entry.BankCount++
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Info is the composite returned by space_info.
type Info struct {
	Meta            *types.SpaceMeta
	NoteCount       int
	BankFiles       []string
	TotalSize       int64
	TotalSizeHuman  string
	OldestNote      *time.Time
	NewestNote      *time.Time
	SynthesisExists bool
}

// Info assembles metadata, counts, sizes, and note-age bounds.
func (r *Repo) Info(ctx context.Context, spaceID string) (*Info, error) {
	meta, err := r.Meta(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	infos, err := r.store.List(ctx, types.SpacePrefix(spaceID))
	if err != nil {
		return nil, err
	}

	out := &Info{Meta: meta}
	for _, info := range infos {
		out.TotalSize += info.Size

		if name := strings.TrimPrefix(info.Key, types.LivePrefix(spaceID)); name != info.Key && name != ".keep" {
			parsed, err := live.ParseKey(name)
			if err != nil {
				continue
			}
			out.NoteCount++
			ts := parsed.Timestamp
			if out.OldestNote == nil || ts.Before(*out.OldestNote) {
				out.OldestNote = &ts
			}
			if out.NewestNote == nil || ts.After(*out.NewestNote) {
				out.NewestNote = &ts
			}
			continue
		}
		if name := strings.TrimPrefix(info.Key, types.BankPrefix(spaceID)); name != info.Key && name != ".keep" {
			out.BankFiles = append(out.BankFiles, name)
			continue
		}
		if info.Key == types.SynthesisKey(spaceID) {
			out.SynthesisExists = true
		}
	}
	sort.Strings(out.BankFiles)
	out.TotalSizeHuman = datasize.ByteSize(out.TotalSize).HumanReadable()
	return out, nil
}

// Rules returns the raw rules document.
func (r *Repo) Rules(ctx context.Context, spaceID string) (string, error) {
	if !types.ValidName(spaceID) {
		return "", errors.ErrInvalidSpaceID.WithDetail("space_id", spaceID)
	}
	data, found, err := r.store.Get(ctx, types.RulesKey(spaceID))
	if err != nil {
		return "", err
	}
	if !found {
		return "", errors.ErrSpaceNotFound.WithDetail("space_id", spaceID)
	}
	return string(data), nil
}

// BankFile is one bank document with its content.
type BankFile struct {
	Filename string
	Content  string
	Size     int64
}

// Bank reads every bank file.
func (r *Repo) Bank(ctx context.Context, spaceID string) ([]*BankFile, error) {
	if err := r.exists(ctx, spaceID); err != nil {
		return nil, err
	}
	prefix := types.BankPrefix(spaceID)
	infos, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var files []*BankFile
	for _, info := range infos {
		name := strings.TrimPrefix(info.Key, prefix)
		if name == ".keep" || name == "" {
			continue
		}
		data, found, err := r.store.Get(ctx, info.Key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		files = append(files, &BankFile{Filename: name, Content: string(data), Size: info.Size})
	}
	return files, nil
}

// Summary composes info, rules, and full bank content.
type Summary struct {
	Info      *Info
	Rules     string
	Bank      []*BankFile
	Synthesis string
}

// Summary assembles the space_summary composite.
func (r *Repo) Summary(ctx context.Context, spaceID string) (*Summary, error) {
	info, err := r.Info(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	rules, err := r.Rules(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	bank, err := r.Bank(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	synthesis, _, err := r.store.Get(ctx, types.SynthesisKey(spaceID))
	if err != nil {
		return nil, err
	}
	return &Summary{Info: info, Rules: rules, Bank: bank, Synthesis: string(synthesis)}, nil
}

// Delete removes every object under the space prefix. The confirm
// flag is enforced at the tool surface; this is the recursive delete.
func (r *Repo) Delete(ctx context.Context, spaceID string) (int, error) {
	if err := r.exists(ctx, spaceID); err != nil {
		return 0, err
	}
	infos, err := r.store.List(ctx, types.SpacePrefix(spaceID))
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, info := range infos {
		if err := r.store.Delete(ctx, info.Key); err != nil {
			return deleted, err
		}
		deleted++
	}
	r.logger.Info(ctx, "space deleted",
		logging.String("space", spaceID),
		logging.Int("objects", deleted))
	return deleted, nil
}

// exists fails with not_found unless _meta.json is present.
func (r *Repo) exists(ctx context.Context, spaceID string) error {
	if !types.ValidName(spaceID) {
		return errors.ErrInvalidSpaceID.WithDetail("space_id", spaceID)
	}
	_, found, err := r.store.Head(ctx, types.MetaKey(spaceID))
	if err != nil {
		return err
	}
	if !found {
		return errors.ErrSpaceNotFound.WithDetail("space_id", spaceID)
	}
	return nil
}
