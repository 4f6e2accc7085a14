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

// Package live implements append-only note writes and filtered reads.
//
// Notes never serialize against each other or against consolidation;
// uniqueness comes from key construction alone.
package live

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/live-memory-project/live-memory/observability/logging"
	"github.com/live-memory-project/live-memory/pkg/errors"
	"github.com/live-memory-project/live-memory/pkg/types"
	"github.com/live-memory-project/live-memory/storage"
)

// MaxContentLength bounds a note body.
const MaxContentLength = 100000

const (
	defaultReadLimit = 20
	maxReadLimit     = 200
)

// Service provides note operations on one object store.
type Service struct {
	store  storage.ObjectStore
	logger logging.Logger
}

// NewService creates a live-notes service.
func NewService(store storage.ObjectStore, logger logging.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Receipt reports a successful append.
type Receipt struct {
	Filename  string
	Size      int
	Timestamp time.Time
}

// Note is one parsed live note.
type Note struct {
	Filename  string
	Timestamp time.Time
	Agent     string
	Category  Category
	Tags      []string
	Content   string
	Size      int64
}

// ReadFilter narrows a read.
type ReadFilter struct {
	Limit    int
	Category string
	Agent    string
	Since    string
}

// Append validates and writes one note. No locks are taken: the key
// construction guarantees uniqueness.
func (s *Service) Append(ctx context.Context, spaceID string, category Category, content, agent, rawTags string) (*Receipt, error) {
	if !types.ValidName(spaceID) {
		return nil, errors.ErrInvalidSpaceID.WithDetail("space_id", spaceID)
	}
	if !types.ValidName(agent) {
		return nil, errors.ErrInvalidAgent.WithDetail("agent", agent)
	}
	if !ValidCategory(category) {
		return nil, errors.ErrInvalidCategory.WithDetail("category", string(category))
	}
	if content == "" {
		return nil, errors.ErrInvalidInput.WithMessage("content is required")
	}
	if len(content) > MaxContentLength {
		return nil, errors.ErrContentTooLarge.WithDetail("length", len(content))
	}

	if err := s.requireSpace(ctx, spaceID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	key, err := ComposeKey(now, agent, category)
	if err != nil {
		return nil, err
	}

	body, err := ComposeBody(&FrontMatter{
		Timestamp: now,
		Agent:     agent,
		Category:  category,
		Tags:      SplitTags(rawTags),
		Space:     spaceID,
	}, content)
	if err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, types.LivePrefix(spaceID)+key, body, "text/markdown"); err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "note appended",
		logging.String("space", spaceID),
		logging.String("note", key),
		logging.Int("size", len(body)))

	return &Receipt{Filename: key, Size: len(body), Timestamp: now}, nil
}

// Read returns notes newest-first, filtered and bounded.
func (s *Service) Read(ctx context.Context, spaceID string, filter ReadFilter) ([]*Note, error) {
	if !types.ValidName(spaceID) {
		return nil, errors.ErrInvalidSpaceID.WithDetail("space_id", spaceID)
	}
	if err := s.requireSpace(ctx, spaceID); err != nil {
		return nil, err
	}

	var since time.Time
	if filter.Since != "" {
		t, err := parseSince(filter.Since)
		if err != nil {
			return nil, err
		}
		since = t
	}
	if filter.Category != "" && !ValidCategory(Category(filter.Category)) {
		return nil, errors.ErrInvalidCategory.WithDetail("category", filter.Category)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultReadLimit
	}
	if limit > maxReadLimit {
		limit = maxReadLimit
	}

	keys, err := s.listKeys(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	selected := keys[:0]
	for _, entry := range keys {
		if filter.Category != "" && string(entry.parsed.Category) != filter.Category {
			continue
		}
		if filter.Agent != "" && entry.parsed.Agent != filter.Agent {
			continue
		}
		if !since.IsZero() && entry.parsed.Timestamp.Before(since) {
			continue
		}
		selected = append(selected, entry)
	}

	// newest first
	sort.Slice(selected, func(i, j int) bool {
		if selected[i].parsed.Timestamp.Equal(selected[j].parsed.Timestamp) {
			return selected[i].info.Key > selected[j].info.Key
		}
		return selected[i].parsed.Timestamp.After(selected[j].parsed.Timestamp)
	})
	if len(selected) > limit {
		selected = selected[:limit]
	}

	return s.fetch(ctx, selected)
}

// Search returns notes whose body or tags contain the query,
// case-insensitively, newest-first.
func (s *Service) Search(ctx context.Context, spaceID, query string, limit int) ([]*Note, error) {
	if !types.ValidName(spaceID) {
		return nil, errors.ErrInvalidSpaceID.WithDetail("space_id", spaceID)
	}
	if query == "" {
		return nil, errors.ErrInvalidInput.WithMessage("query is required")
	}
	if err := s.requireSpace(ctx, spaceID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultReadLimit
	}
	if limit > maxReadLimit {
		limit = maxReadLimit
	}

	keys, err := s.listKeys(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].parsed.Timestamp.After(keys[j].parsed.Timestamp)
	})

	needle := strings.ToLower(query)
	var matches []*Note
	for _, entry := range keys {
		if len(matches) >= limit {
			break
		}
		note, err := s.load(ctx, entry)
		if err != nil {
			s.logger.Warn(ctx, "skipping unreadable note",
				logging.String("key", entry.info.Key), logging.Error(err))
			continue
		}
		if strings.Contains(strings.ToLower(note.Content), needle) ||
			strings.Contains(strings.ToLower(strings.Join(note.Tags, ",")), needle) {
			matches = append(matches, note)
		}
	}
	return matches, nil
}

type keyEntry struct {
	info   storage.ObjectInfo
	parsed *ParsedKey
}

// listKeys lists live notes, skipping the sentinel and anything that
// does not parse as a note key.
func (s *Service) listKeys(ctx context.Context, spaceID string) ([]keyEntry, error) {
	prefix := types.LivePrefix(spaceID)
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	entries := make([]keyEntry, 0, len(infos))
	for _, info := range infos {
		name := strings.TrimPrefix(info.Key, prefix)
		if name == ".keep" || name == "" {
			continue
		}
		parsed, err := ParseKey(name)
		if err != nil {
			s.logger.Warn(ctx, "ignoring foreign object under live prefix",
				logging.String("key", info.Key))
			continue
		}
		entries = append(entries, keyEntry{info: info, parsed: parsed})
	}
	return entries, nil
}

// fetch loads the bodies for the selected entries, keeping order.
func (s *Service) fetch(ctx context.Context, entries []keyEntry) ([]*Note, error) {
	notes := make([]*Note, 0, len(entries))
	for _, entry := range entries {
		note, err := s.load(ctx, entry)
		if err != nil {
			s.logger.Warn(ctx, "skipping unreadable note",
				logging.String("key", entry.info.Key), logging.Error(err))
			continue
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// load reads and parses one note.
func (s *Service) load(ctx context.Context, entry keyEntry) (*Note, error) {
	body, found, err := s.store.Get(ctx, entry.info.Key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.ErrObjectNotFound.WithDetail("key", entry.info.Key)
	}

	name := entry.info.Key[strings.LastIndex(entry.info.Key, "/")+1:]
	fm, content, err := ParseBody(body)
	if err != nil {
		// fall back to filename metadata for notes with a damaged header
		return &Note{
			Filename:  name,
			Timestamp: entry.parsed.Timestamp,
			Agent:     entry.parsed.Agent,
			Category:  entry.parsed.Category,
			Content:   string(body),
			Size:      entry.info.Size,
		}, nil
	}

	return &Note{
		Filename:  name,
		Timestamp: fm.Timestamp,
		Agent:     fm.Agent,
		Category:  fm.Category,
		Tags:      fm.Tags,
		Content:   content,
		Size:      entry.info.Size,
	}, nil
}

// requireSpace fails with not_found unless the space exists.
func (s *Service) requireSpace(ctx context.Context, spaceID string) error {
	_, found, err := s.store.Head(ctx, types.MetaKey(spaceID))
	if err != nil {
		return err
	}
	if !found {
		return errors.ErrSpaceNotFound.WithDetail("space_id", spaceID)
	}
	return nil
}
