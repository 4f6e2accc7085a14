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

package live

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/live-memory-project/live-memory/pkg/errors"
)

// Category is the kind of a live note.
type Category string

const (
	CategoryObservation Category = "observation"
	CategoryDecision    Category = "decision"
	CategoryTodo        Category = "todo"
	CategoryInsight     Category = "insight"
	CategoryQuestion    Category = "question"
	CategoryProgress    Category = "progress"
	CategoryIssue       Category = "issue"
)

// Categories lists every valid note category.
var Categories = []Category{
	CategoryObservation,
	CategoryDecision,
	CategoryTodo,
	CategoryInsight,
	CategoryQuestion,
	CategoryProgress,
	CategoryIssue,
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// keyTimeLayout is the timestamp component of a note key.
const keyTimeLayout = "20060102T150405"

// ComposeKey builds a note filename:
// YYYYMMDDTHHMMSS_<agent>_<category>_<8-hex>.md. The random suffix
// keeps keys unique when two agents of the same name write in the
// same category within one second.
func ComposeKey(ts time.Time, agent string, category Category) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", errors.ErrInternal.WithMessage("note key suffix").Wrap(err)
	}
	return fmt.Sprintf("%s_%s_%s_%s.md",
		ts.UTC().Format(keyTimeLayout), agent, category, hex.EncodeToString(suffix)), nil
}

// ParsedKey holds the components of a note filename.
type ParsedKey struct {
	Timestamp time.Time
	Agent     string
	Category  Category
	Suffix    string
}

// ParseKey decomposes a note filename. Agent names may contain
// underscores, so the category and suffix are taken from the right.
func ParseKey(name string) (*ParsedKey, error) {
	base := strings.TrimSuffix(name, ".md")
	if base == name {
		return nil, errors.ErrInvalidInput.WithMessage("note key must end in .md")
	}

	parts := strings.Split(base, "_")
	if len(parts) < 4 {
		return nil, errors.ErrInvalidInput.WithMessage("malformed note key: " + name)
	}

	ts, err := time.Parse(keyTimeLayout, parts[0])
	if err != nil {
		return nil, errors.ErrInvalidInput.WithMessage("malformed note timestamp").Wrap(err)
	}

	suffix := parts[len(parts)-1]
	category := Category(parts[len(parts)-2])
	if !ValidCategory(category) {
		return nil, errors.ErrInvalidCategory.WithDetail("category", string(category))
	}
	agent := strings.Join(parts[1:len(parts)-2], "_")
	if agent == "" {
		return nil, errors.ErrInvalidInput.WithMessage("malformed note key: empty agent")
	}

	return &ParsedKey{
		Timestamp: ts.UTC(),
		Agent:     agent,
		Category:  category,
		Suffix:    suffix,
	}, nil
}
