// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ledger is the client for ChittyLedger, the evidence record
// store. A ledger may additionally be chain-enabled, meaning its entries
// can be anchored on ChittyChain; hard mints require that.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotConfigured means the client was built without a base URL.
	ErrNotConfigured = errors.New("ledger: service URL not configured")

	// ErrUnavailable means the ledger could not be reached.
	ErrUnavailable = errors.New("ledger: service unavailable")

	// ErrChainDisabled means a hard (on-chain) operation was requested
	// against a ledger that is not chain-enabled.
	ErrChainDisabled = errors.New("ledger: chain anchoring is not enabled")
)

// MintMode selects how an entry is recorded.
type MintMode string

const (
	// MintSoft records the entry in the ledger only.
	MintSoft MintMode = "soft"

	// MintHard records the entry and anchors it on ChittyChain.
	MintHard MintMode = "hard"
)

// Entry is one evidence record submitted to the ledger.
type Entry struct {
	ChittyID string         `json:"chittyId"`
	SHA256   string         `json:"sha256,omitempty"`
	CaseRef  string         `json:"caseRef,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Receipt acknowledges a recorded entry.
type Receipt struct {
	EntryID   string    `json:"entryId"`
	ChittyID  string    `json:"chittyId"`
	Mode      MintMode  `json:"mode"`
	TxHash    string    `json:"txHash,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Config configures a Client.
type Config struct {
	BaseURL      string
	ChainEnabled bool
	Timeout      time.Duration
	Logger       *slog.Logger
}

// Client talks to ChittyLedger.
type Client struct {
	baseURL      string
	chainEnabled bool
	http         *http.Client
	logger       *slog.Logger
}

// New builds a Client. An empty BaseURL yields a disabled client.
func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		chainEnabled: config.ChainEnabled,
		http:         &http.Client{Timeout: config.Timeout},
		logger:       config.Logger,
	}
}

// Configured reports whether a ledger URL is set.
func (c *Client) Configured() bool { return c.baseURL != "" }

// ChainEnabled reports whether the ledger can anchor entries on chain.
func (c *Client) ChainEnabled() bool { return c.chainEnabled }

// Record submits an entry in the given mode. MintHard against a ledger
// that is not chain-enabled returns ErrChainDisabled; callers decide
// whether to downgrade.
func (c *Client) Record(ctx context.Context, entry Entry, mode MintMode) (Receipt, error) {
	if c.baseURL == "" {
		return Receipt{}, ErrNotConfigured
	}
	if mode == MintHard && !c.chainEnabled {
		return Receipt{}, ErrChainDisabled
	}

	payload := struct {
		Entry
		Mode MintMode `json:"mode"`
	}{Entry: entry, Mode: mode}

	body, err := json.Marshal(payload)
	if err != nil {
		return Receipt{}, fmt.Errorf("ledger: encode entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/entries", bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("ledger: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Receipt{}, fmt.Errorf("ledger: entry rejected with status %d: %s", resp.StatusCode, snippet)
	}

	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return Receipt{}, fmt.Errorf("ledger: decode receipt: %w", err)
	}

	c.logger.Info("ledger entry recorded",
		"chitty_id", entry.ChittyID,
		"mode", mode,
		"entry_id", receipt.EntryID)
	return receipt, nil
}

// Ping checks reachability via GET /v1/health.
func (c *Client) Ping(ctx context.Context) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}
