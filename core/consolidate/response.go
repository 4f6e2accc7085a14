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
	"encoding/json"
	"strings"

	"github.com/live-memory-project/live-memory/pkg/errors"
)

// modelReply is the structured consolidation answer.
type modelReply struct {
	BankFiles []replyBankFile `json:"bank_files"`
	Synthesis string          `json:"synthesis"`
}

// replyBankFile is one bank file in the answer.
type replyBankFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Action   string `json:"action"`
}

// parseReply parses and validates the model output. Code fences
// around the object are tolerated; anything else is a parse failure.
func parseReply(content string) (*modelReply, error) {
	text := strings.TrimSpace(content)
	if after, ok := strings.CutPrefix(text, "```json"); ok {
		text = after
	} else if after, ok := strings.CutPrefix(text, "```"); ok {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)

	var reply modelReply
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&reply); err != nil {
		return nil, errors.ErrLLMInvalidResponse.WithMessage("not a JSON object").Wrap(err)
	}

	for i, file := range reply.BankFiles {
		if file.Filename == "" {
			return nil, errors.ErrLLMInvalidResponse.WithMessage("bank file with empty filename")
		}
		if strings.Contains(file.Filename, "..") || strings.HasPrefix(file.Filename, "/") {
			return nil, errors.ErrLLMInvalidResponse.WithMessage("bank filename escapes the bank prefix: " + file.Filename)
		}
		switch file.Action {
		case "created", "updated":
		case "":
			// tolerate a missing action: treat as updated
			reply.BankFiles[i].Action = "updated"
		default:
			return nil, errors.ErrLLMInvalidResponse.WithMessage("unknown bank file action: " + file.Action)
		}
	}

	return &reply, nil
}
