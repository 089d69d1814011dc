// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads ChittyOps configuration from a YAML file merged
// with CHITTY_* environment variables.
//
// Precedence is environment over file over defaults. A missing optional
// endpoint means the corresponding feature is disabled, not an error:
// the facade wires only the collaborators whose endpoints are configured.
// The one exception is the ChittyID service, which compliance checks may
// flag when absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for all ChittyOps components.
type Config struct {
	// ID configures the ChittyID minting service client.
	ID IDConfig `yaml:"id"`

	// Ledger configures the ChittyLedger client.
	Ledger LedgerConfig `yaml:"ledger"`

	// Chain configures the ChittyChain evidence-chain client.
	Chain ChainConfig `yaml:"chain"`

	// Gateway configures the embedded gateway HTTP service.
	// An empty listen address disables the gateway.
	Gateway GatewayConfig `yaml:"gateway"`

	// MCP configures the remote tool client.
	// An empty endpoint disables it.
	MCP MCPConfig `yaml:"mcp"`

	// Vector configures the vector store used by evidence search.
	// An empty URL disables semantic search and the vector health slot
	// reports false.
	Vector VectorConfig `yaml:"vector"`

	// Storage configures local persistent storage for mint receipts.
	// An empty path disables persistence.
	Storage StorageConfig `yaml:"storage"`

	// Analysis configures the AI analysis runner.
	Analysis AnalysisConfig `yaml:"analysis"`

	// Intake configures the evidence intake pipeline.
	Intake IntakeConfig `yaml:"intake"`
}

// IDConfig configures the ChittyID service client.
type IDConfig struct {
	// URL is the ChittyID service base URL, e.g. "https://id.chitty.cc".
	URL string `yaml:"url" validate:"omitempty,url"`

	// Token is the bearer token presented on mint requests. Populated
	// from CHITTY_ID_TOKEN; never stored in the YAML file.
	Token string `yaml:"-"`

	// Timeout bounds each mint request. Default: 10s.
	Timeout time.Duration `yaml:"timeout"`
}

// LedgerConfig configures the ChittyLedger client.
type LedgerConfig struct {
	URL string `yaml:"url" validate:"omitempty,url"`

	// ChainEnabled marks the ledger as connected to ChittyChain.
	// Hard mints require it; when false a hard mint request silently
	// downgrades to a soft mint.
	ChainEnabled bool `yaml:"chain_enabled"`

	Timeout time.Duration `yaml:"timeout"`
}

// ChainConfig configures the ChittyChain evidence-chain client.
type ChainConfig struct {
	URL     string        `yaml:"url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout"`
}

// GatewayConfig configures the embedded gateway service.
type GatewayConfig struct {
	// ListenAddr is the host:port to bind, e.g. ":8460". Empty disables
	// the gateway.
	ListenAddr string `yaml:"listen_addr"`

	// RateLimit is requests per second allowed per client IP.
	// Default: 20.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`

	// RateBurst is the per-client burst size. Default: 40.
	RateBurst int `yaml:"rate_burst" validate:"gte=0"`
}

// MCPConfig configures the remote tool client.
type MCPConfig struct {
	// Endpoint is the streamable-HTTP MCP server URL.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`

	// DefaultProject, when set, becomes the active project on
	// Initialize so capture calls work without an explicit SetProject.
	DefaultProject string `yaml:"default_project"`
}

// VectorConfig configures the vector store client.
type VectorConfig struct {
	// URL is the Weaviate endpoint, e.g. "http://localhost:8080".
	URL string `yaml:"url" validate:"omitempty,url"`

	// ClassName is the evidence context class. Default:
	// "EvidenceContext".
	ClassName string `yaml:"class_name"`
}

// StorageConfig configures local BadgerDB persistence.
type StorageConfig struct {
	// Path is the database directory. Empty disables persistence.
	Path string `yaml:"path"`
}

// AnalysisConfig configures the AI analysis runner.
type AnalysisConfig struct {
	// DatabasePath is the sqlite file holding analysis sessions.
	// Default: ~/.chittyops/analysis.db when analysis is enabled.
	DatabasePath string `yaml:"database_path"`

	// Model is the model identifier used for single-model analysis.
	Model string `yaml:"model"`

	// APIKey authenticates to the model provider. Populated from
	// CHITTY_ANALYSIS_KEY; never stored in the YAML file.
	APIKey string `yaml:"-"`

	// BaseURL overrides the provider endpoint (for local inference
	// servers exposing the OpenAI API).
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

// IntakeConfig configures the evidence intake pipeline.
type IntakeConfig struct {
	// WatchDirs are directories scanned (and watched) for evidence
	// files.
	WatchDirs []string `yaml:"watch_dirs"`

	// CaseRef tags minted evidence with a case reference, e.g.
	// "ARDC_2025_0142".
	CaseRef string `yaml:"case_ref"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		ID:     IDConfig{URL: "https://id.chitty.cc", Timeout: 10 * time.Second},
		Ledger: LedgerConfig{Timeout: 15 * time.Second},
		Chain:  ChainConfig{Timeout: 15 * time.Second},
		Gateway: GatewayConfig{
			RateLimit: 20,
			RateBurst: 40,
		},
		Vector: VectorConfig{ClassName: "EvidenceContext"},
	}
}

// Load reads ~/.chittyops/chittyops.yaml (creating it with defaults on
// first run), applies CHITTY_* environment overrides, and validates the
// result.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return LoadFrom(filepath.Join(home, ".chittyops", "chittyops.yaml"))
}

// LoadFrom is Load with an explicit config path. Used by tests and the
// --config flag.
func LoadFrom(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path); err != nil {
			return Config{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a configuration purely from environment variables,
// skipping the YAML file. Used by the gateway container image where no
// home directory exists.
func FromEnv() (Config, error) {
	cfg := Default()
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the assembled configuration. Struct tags cover URL
// shape; cross-field rules are checked here.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Ledger.ChainEnabled && c.Ledger.URL == "" {
		return fmt.Errorf("invalid configuration: ledger.chain_enabled requires ledger.url")
	}
	return nil
}

func (c *Config) applyEnv() {
	setIfPresent := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setIfPresent(&c.ID.URL, "CHITTY_ID_URL")
	setIfPresent(&c.ID.Token, "CHITTY_ID_TOKEN")
	setIfPresent(&c.Ledger.URL, "CHITTY_LEDGER_URL")
	setIfPresent(&c.Chain.URL, "CHITTY_CHAIN_URL")
	setIfPresent(&c.Gateway.ListenAddr, "CHITTY_GATEWAY_ADDR")
	setIfPresent(&c.MCP.Endpoint, "CHITTY_MCP_ENDPOINT")
	setIfPresent(&c.MCP.DefaultProject, "CHITTY_MCP_PROJECT")
	setIfPresent(&c.Vector.URL, "CHITTY_VECTOR_URL")
	setIfPresent(&c.Storage.Path, "CHITTY_STORAGE_PATH")
	setIfPresent(&c.Analysis.APIKey, "CHITTY_ANALYSIS_KEY")
	setIfPresent(&c.Analysis.BaseURL, "CHITTY_ANALYSIS_URL")
	setIfPresent(&c.Analysis.Model, "CHITTY_ANALYSIS_MODEL")

	if v := os.Getenv("CHITTY_CHAIN_ENABLED"); v == "true" || v == "1" {
		c.Ledger.ChainEnabled = true
	}
}

func (c *Config) applyDefaults() {
	defaults := Default()
	if c.ID.Timeout == 0 {
		c.ID.Timeout = defaults.ID.Timeout
	}
	if c.Ledger.Timeout == 0 {
		c.Ledger.Timeout = defaults.Ledger.Timeout
	}
	if c.Chain.Timeout == 0 {
		c.Chain.Timeout = defaults.Chain.Timeout
	}
	if c.Gateway.RateLimit == 0 {
		c.Gateway.RateLimit = defaults.Gateway.RateLimit
	}
	if c.Gateway.RateBurst == 0 {
		c.Gateway.RateBurst = defaults.Gateway.RateBurst
	}
	if c.Vector.ClassName == "" {
		c.Vector.ClassName = defaults.Vector.ClassName
	}
}

func writeDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
