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
	"time"
)

// Config represents the complete configuration for the Live Memory server.
// It is built once at startup and treated as immutable afterwards.
type Config struct {
	Server        ServerConfig        `json:"server" yaml:"server"`
	Store         StoreConfig         `json:"store" yaml:"store"`
	LLM           LLMConfig           `json:"llm" yaml:"llm"`
	Auth          AuthConfig          `json:"auth" yaml:"auth"`
	Consolidation ConsolidationConfig `json:"consolidation" yaml:"consolidation"`
	GC            GCConfig            `json:"gc" yaml:"gc"`
	Backup        BackupConfig        `json:"backup" yaml:"backup"`
	Logging       LoggingConfig       `json:"logging" yaml:"logging"`
	Metrics       MetricsConfig       `json:"metrics" yaml:"metrics"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `json:"allowed_origins" yaml:"allowed_origins"`
}

// StoreConfig contains object-store connection settings.
type StoreConfig struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	Region    string `json:"region" yaml:"region"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`

	// MetadataSignature selects the signature family used for HEAD and
	// LIST requests ("v4" or "v2"). Object data requests always sign V4.
	// Some S3-compatible vendors accept different families per
	// operation class.
	MetadataSignature string `json:"metadata_signature" yaml:"metadata_signature"`

	MaxRetries   int           `json:"max_retries" yaml:"max_retries"`
	RetryBackoff time.Duration `json:"retry_backoff" yaml:"retry_backoff"`
}

// LLMConfig contains language-model endpoint settings.
type LLMConfig struct {
	// Provider selects the adapter: "openai" (any OpenAI-compatible
	// endpoint) or "anthropic".
	Provider string `json:"provider" yaml:"provider"`

	// Endpoint is the base URL and must include the version path
	// segment (e.g. "https://llm.example.com/v1").
	Endpoint    string        `json:"endpoint" yaml:"endpoint"`
	APIKey      string        `json:"api_key" yaml:"api_key"`
	Model       string        `json:"model" yaml:"model"`
	MaxTokens   int           `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64       `json:"temperature" yaml:"temperature"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

// AuthConfig contains the bootstrap admin credential.
type AuthConfig struct {
	// BootstrapToken authenticates as a synthetic admin identity with
	// universal scope. It is compared verbatim, never stored.
	BootstrapToken string `json:"bootstrap_token" yaml:"bootstrap_token"`
}

// ConsolidationConfig bounds a consolidation run.
type ConsolidationConfig struct {
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
	MaxNotes int           `json:"max_notes" yaml:"max_notes"`
}

// GCConfig contains garbage-collector settings.
type GCConfig struct {
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days"`
}

// BackupConfig contains snapshot retention settings.
type BackupConfig struct {
	RetentionCount int `json:"retention_count" yaml:"retention_count"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // "debug", "info", "warn", "error"
	Format string `json:"format" yaml:"format"` // "json"
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0, // SSE channel stays open
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Store: StoreConfig{
			Region:            "us-east-1",
			UseSSL:            true,
			MetadataSignature: "v4",
			MaxRetries:        4,
			RetryBackoff:      250 * time.Millisecond,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			MaxTokens:   100000,
			Temperature: 0.3,
			Timeout:     600 * time.Second,
		},
		Consolidation: ConsolidationConfig{
			Timeout:  600 * time.Second,
			MaxNotes: 500,
		},
		GC: GCConfig{
			MaxAgeDays: 7,
		},
		Backup: BackupConfig{
			RetentionCount: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
