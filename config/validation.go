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

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for completeness and coherence.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Store.Endpoint == "" {
		return fmt.Errorf("store.endpoint is required")
	}
	if c.Store.Bucket == "" {
		return fmt.Errorf("store.bucket is required")
	}
	if c.Store.AccessKey == "" || c.Store.SecretKey == "" {
		return fmt.Errorf("store.access_key and store.secret_key are required")
	}
	switch c.Store.MetadataSignature {
	case "v2", "v4":
	default:
		return fmt.Errorf("store.metadata_signature must be \"v2\" or \"v4\", got %q", c.Store.MetadataSignature)
	}

	switch c.LLM.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("llm.provider must be \"openai\", \"anthropic\", or \"mock\", got %q", c.LLM.Provider)
	}
	if c.LLM.Provider != "mock" {
		if c.LLM.Endpoint == "" {
			return fmt.Errorf("llm.endpoint is required")
		}
		u, err := url.Parse(c.LLM.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("llm.endpoint is not a valid URL: %q", c.LLM.Endpoint)
		}
		if strings.Trim(u.Path, "/") == "" {
			return fmt.Errorf("llm.endpoint must include the version path segment (e.g. /v1): %q", c.LLM.Endpoint)
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("llm.model is required")
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}

	if c.Auth.BootstrapToken == "" {
		return fmt.Errorf("auth.bootstrap_token is required")
	}
	if len(c.Auth.BootstrapToken) < 16 {
		return fmt.Errorf("auth.bootstrap_token must be at least 16 characters")
	}

	if c.Consolidation.MaxNotes < 1 {
		return fmt.Errorf("consolidation.max_notes must be positive, got %d", c.Consolidation.MaxNotes)
	}
	if c.Consolidation.Timeout <= 0 {
		return fmt.Errorf("consolidation.timeout must be positive")
	}
	if c.GC.MaxAgeDays < 1 {
		return fmt.Errorf("gc.max_age_days must be positive, got %d", c.GC.MaxAgeDays)
	}
	if c.Backup.RetentionCount < 1 {
		return fmt.Errorf("backup.retention_count must be positive, got %d", c.Backup.RetentionCount)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}

	return nil
}
