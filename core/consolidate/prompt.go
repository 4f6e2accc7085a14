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

package consolidate

import (
	"fmt"
	"strings"
	"time"
)

const systemPrompt = `You are the consolidation engine of a shared working memory for collaborative agents.

You receive the memory rules, the previous synthesis, a batch of timestamped notes in chronological order, and the current memory bank files. Fold the notes into the bank according to the rules.

Reply with a single JSON object of this exact shape:

{
  "bank_files": [
    {"filename": "<name>.md", "content": "<full new file content>", "action": "created" | "updated"}
  ],
  "synthesis": "<a concise residual summary carrying context to the next consolidation>"
}

Requirements:
- Include every bank file you create or change, with its complete content. Omit files you leave untouched.
- Filenames come from the rules; use plain names, no directories.
- "action" is "created" for a file absent from the current bank, "updated" otherwise.
- The synthesis is Markdown, a few paragraphs at most.
- Reply with the JSON object only, no surrounding prose.`

const retryPrompt = `Your previous reply could not be parsed as JSON. Reply again with ONLY the JSON object described before: {"bank_files": [{"filename", "content", "action"}], "synthesis"}. No code fences, no commentary.`

// buildUserPrompt assembles rules, previous synthesis, notes, and the
// current bank into one prompt.
func buildUserPrompt(rules, synthesis string, notes []noteInput, bank []bankFile) string {
	var b strings.Builder

	b.WriteString("# Memory rules\n\n")
	b.WriteString(rules)
	b.WriteString("\n\n# Previous synthesis\n\n")
	if strings.TrimSpace(synthesis) == "" {
		b.WriteString("none\n")
	} else {
		b.WriteString(synthesis)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n# Notes to consolidate (%d, chronological)\n", len(notes))
	for _, n := range notes {
		fmt.Fprintf(&b, "\n## %s | agent: %s | category: %s",
			n.meta.Timestamp.UTC().Format(time.RFC3339), n.meta.Agent, n.meta.Category)
		if len(n.meta.Tags) > 0 {
			fmt.Fprintf(&b, " | tags: %s", strings.Join(n.meta.Tags, ", "))
		}
		b.WriteString("\n\n")
		b.WriteString(n.body)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n# Current bank files (%d)\n", len(bank))
	if len(bank) == 0 {
		b.WriteString("\nnone\n")
	}
	for _, f := range bank {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", f.name, f.content)
	}

	return b.String()
}
