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
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validConfig fills the fields Validate requires.
func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Store.Endpoint = "store.example.com:9000"
	cfg.Store.AccessKey = "ak"
	cfg.Store.SecretKey = "sk"
	cfg.Store.Bucket = "livemem"
	cfg.LLM.Endpoint = "https://llm.example.com/v1"
	cfg.LLM.Model = "gpt-large"
	cfg.Auth.BootstrapToken = "lm_bootstrap-credential"
	return cfg
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing bucket", func(c *Config) { c.Store.Bucket = "" }},
		{"missing endpoint", func(c *Config) { c.Store.Endpoint = "" }},
		{"missing credentials", func(c *Config) { c.Store.AccessKey = "" }},
		{"bad signature mode", func(c *Config) { c.Store.MetadataSignature = "v3" }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "bard" }},
		{"endpoint without version path", func(c *Config) { c.LLM.Endpoint = "https://llm.example.com" }},
		{"missing model", func(c *Config) { c.LLM.Model = "" }},
		{"short bootstrap token", func(c *Config) { c.Auth.BootstrapToken = "short" }},
		{"zero max notes", func(c *Config) { c.Consolidation.MaxNotes = 0 }},
		{"zero retention", func(c *Config) { c.Backup.RetentionCount = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted an invalid config")
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Consolidation.MaxNotes != 500 {
		t.Errorf("MaxNotes = %d, want 500", cfg.Consolidation.MaxNotes)
	}
	if cfg.Consolidation.Timeout != 600*time.Second {
		t.Errorf("Timeout = %v, want 600s", cfg.Consolidation.Timeout)
	}
	if cfg.GC.MaxAgeDays != 7 {
		t.Errorf("MaxAgeDays = %d, want 7", cfg.GC.MaxAgeDays)
	}
	if cfg.Backup.RetentionCount != 5 {
		t.Errorf("RetentionCount = %d, want 5", cfg.Backup.RetentionCount)
	}
	if cfg.LLM.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", cfg.LLM.Temperature)
	}
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("LIVEMEM_STORE_BUCKET", "from-env")
	t.Setenv("LIVEMEM_SERVER_PORT", "9001")
	t.Setenv("LIVEMEM_CONSOLIDATION_TIMEOUT", "120")
	t.Setenv("LIVEMEM_LLM_TEMPERATURE", "0.5")

	cfg := DefaultConfig()
	cfg.LoadEnv()

	if cfg.Store.Bucket != "from-env" {
		t.Errorf("Bucket = %q", cfg.Store.Bucket)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Consolidation.Timeout != 120*time.Second {
		t.Errorf("Timeout = %v", cfg.Consolidation.Timeout)
	}
	if cfg.LLM.Temperature != 0.5 {
		t.Errorf("Temperature = %v", cfg.LLM.Temperature)
	}
}

func TestLoadEnv_APIKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	cfg := DefaultConfig()
	cfg.LoadEnv()
	if cfg.LLM.APIKey != "sk-fallback" {
		t.Errorf("APIKey = %q", cfg.LLM.APIKey)
	}

	t.Setenv("LIVEMEM_LLM_API_KEY", "sk-primary")
	cfg = DefaultConfig()
	cfg.LoadEnv()
	if cfg.LLM.APIKey != "sk-primary" {
		t.Errorf("prefixed variable lost to the fallback: %q", cfg.LLM.APIKey)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  port: 8181
store:
  endpoint: store.example.com:9000
  access_key: ak
  secret_key: sk
  bucket: livemem
llm:
  endpoint: https://llm.example.com/v1
  model: gpt-large
auth:
  bootstrap_token: lm_bootstrap-credential
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8181 {
		t.Errorf("Port = %d, want 8181", cfg.Server.Port)
	}
	if cfg.Store.Bucket != "livemem" {
		t.Errorf("Bucket = %q", cfg.Store.Bucket)
	}
	// untouched sections keep defaults
	if cfg.Backup.RetentionCount != 5 {
		t.Errorf("RetentionCount = %d", cfg.Backup.RetentionCount)
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load(.toml) succeeded")
	}
}
