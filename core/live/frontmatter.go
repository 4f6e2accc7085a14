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
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/live-memory-project/live-memory/pkg/errors"
)

// FrontMatter is the metadata block leading every note body. Every
// field except tags is mandatory.
type FrontMatter struct {
	Timestamp time.Time `yaml:"timestamp"`
	Agent     string    `yaml:"agent"`
	Category  Category  `yaml:"category"`
	Tags      []string  `yaml:"tags,omitempty"`
	Space     string    `yaml:"space"`
}

const frontMatterFence = "---"

// ComposeBody renders front-matter plus content into a note body.
func ComposeBody(fm *FrontMatter, content string) ([]byte, error) {
	meta, err := yaml.Marshal(fm)
	if err != nil {
		return nil, errors.ErrInternal.WithMessage("marshal front matter").Wrap(err)
	}

	var b strings.Builder
	b.WriteString(frontMatterFence)
	b.WriteString("\n")
	b.Write(meta)
	b.WriteString(frontMatterFence)
	b.WriteString("\n\n")
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// ParseBody splits a note body into front-matter and content.
func ParseBody(body []byte) (*FrontMatter, string, error) {
	text := string(body)
	if !strings.HasPrefix(text, frontMatterFence+"\n") {
		return nil, "", errors.ErrInvalidInput.WithMessage("note body missing front matter")
	}

	rest := text[len(frontMatterFence)+1:]
	end := strings.Index(rest, "\n"+frontMatterFence)
	if end < 0 {
		return nil, "", errors.ErrInvalidInput.WithMessage("unterminated front matter")
	}

	var fm FrontMatter
	if err := yaml.Unmarshal([]byte(rest[:end+1]), &fm); err != nil {
		return nil, "", errors.ErrInvalidInput.WithMessage("malformed front matter").Wrap(err)
	}
	if fm.Timestamp.IsZero() || fm.Agent == "" || fm.Category == "" || fm.Space == "" {
		return nil, "", errors.ErrInvalidInput.WithMessage("front matter missing mandatory fields")
	}

	content := rest[end+1+len(frontMatterFence):]
	content = strings.TrimPrefix(content, "\n")
	content = strings.TrimPrefix(content, "\n")
	return &fm, content, nil
}

// SplitTags turns a comma-separated tag string into a clean list.
func SplitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// formatTimestamp renders a time for envelopes.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseSince accepts an RFC3339 time for read filters.
func parseSince(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.ErrInvalidInput.WithMessage(fmt.Sprintf("invalid since value %q (RFC3339 expected)", raw)).Wrap(err)
	}
	return t.UTC(), nil
}
