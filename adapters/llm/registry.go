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

package llm

import (
	"github.com/live-memory-project/live-memory/config"
	"github.com/live-memory-project/live-memory/pkg/errors"
)

// FromConfig builds the provider selected by the configuration.
func FromConfig(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return OpenAI(OpenAIConfig{
			BaseURL: cfg.Endpoint,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
		}), nil
	case "anthropic":
		return Anthropic(AnthropicConfig{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
		}), nil
	case "mock":
		return NewMockProvider(nil), nil
	default:
		return nil, errors.ErrInvalidInput.WithMessage("unknown llm provider: " + cfg.Provider)
	}
}
