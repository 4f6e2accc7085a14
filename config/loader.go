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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration from defaults, an optional file, and
// environment overrides, then validates it. An empty path skips the
// file step.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.LoadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFile merges a YAML or JSON file into the config. The format is
// determined by the file extension.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}
	return nil
}

// LoadEnv applies environment variable overrides. Environment
// variables take precedence over file-based configuration.
// Format: LIVEMEM_<SECTION>_<FIELD> (e.g. LIVEMEM_STORE_BUCKET).
func (c *Config) LoadEnv() {
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			*dst = v == "true" || v == "1"
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			} else if n, err := strconv.Atoi(v); err == nil {
				// bare numbers are seconds
				*dst = time.Duration(n) * time.Second
			}
		}
	}
	setFloat := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}

	setString("LIVEMEM_SERVER_HOST", &c.Server.Host)
	setInt("LIVEMEM_SERVER_PORT", &c.Server.Port)

	setString("LIVEMEM_STORE_ENDPOINT", &c.Store.Endpoint)
	setString("LIVEMEM_STORE_ACCESS_KEY", &c.Store.AccessKey)
	setString("LIVEMEM_STORE_SECRET_KEY", &c.Store.SecretKey)
	setString("LIVEMEM_STORE_BUCKET", &c.Store.Bucket)
	setString("LIVEMEM_STORE_REGION", &c.Store.Region)
	setBool("LIVEMEM_STORE_USE_SSL", &c.Store.UseSSL)
	setString("LIVEMEM_STORE_METADATA_SIGNATURE", &c.Store.MetadataSignature)

	setString("LIVEMEM_LLM_PROVIDER", &c.LLM.Provider)
	setString("LIVEMEM_LLM_ENDPOINT", &c.LLM.Endpoint)
	setString("LIVEMEM_LLM_API_KEY", &c.LLM.APIKey)
	setString("LIVEMEM_LLM_MODEL", &c.LLM.Model)
	setInt("LIVEMEM_LLM_MAX_TOKENS", &c.LLM.MaxTokens)
	setFloat("LIVEMEM_LLM_TEMPERATURE", &c.LLM.Temperature)
	setDuration("LIVEMEM_LLM_TIMEOUT", &c.LLM.Timeout)

	setString("LIVEMEM_BOOTSTRAP_TOKEN", &c.Auth.BootstrapToken)

	setDuration("LIVEMEM_CONSOLIDATION_TIMEOUT", &c.Consolidation.Timeout)
	setInt("LIVEMEM_CONSOLIDATION_MAX_NOTES", &c.Consolidation.MaxNotes)
	setInt("LIVEMEM_GC_MAX_AGE_DAYS", &c.GC.MaxAgeDays)
	setInt("LIVEMEM_BACKUP_RETENTION", &c.Backup.RetentionCount)

	setString("LIVEMEM_LOG_LEVEL", &c.Logging.Level)

	// Conventional fallbacks when the prefixed variable is unset.
	if c.LLM.APIKey == "" {
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			c.LLM.APIKey = v
		}
	}
	if c.LLM.APIKey == "" && c.LLM.Provider == "anthropic" {
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			c.LLM.APIKey = v
		}
	}
}
