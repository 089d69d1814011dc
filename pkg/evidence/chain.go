// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrChainNotConfigured means the chain client has no base URL.
	ErrChainNotConfigured = errors.New("evidence: chain URL not configured")

	// ErrChainUnavailable means ChittyChain could not be reached.
	ErrChainUnavailable = errors.New("evidence: chain unavailable")

	// ErrNotAnchored means the queried ChittyID has no chain anchor.
	ErrNotAnchored = errors.New("evidence: not anchored on chain")
)

// Anchor is the on-chain record for one piece of evidence.
type Anchor struct {
	ChittyID  string    `json:"chittyId"`
	SHA256    string    `json:"sha256"`
	TxHash    string    `json:"txHash"`
	Block     uint64    `json:"block"`
	Timestamp time.Time `json:"timestamp"`
}

// ChainConfig configures a ChainClient.
type ChainConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// ChainClient reads evidence anchors from ChittyChain. Writing anchors
// goes through the ledger's hard mint path, not this client.
type ChainClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewChainClient builds a ChainClient. Empty BaseURL disables it.
func NewChainClient(config ChainConfig) *ChainClient {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &ChainClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		http:    &http.Client{Timeout: config.Timeout},
		logger:  config.Logger,
	}
}

// Configured reports whether a chain URL is set.
func (c *ChainClient) Configured() bool { return c.baseURL != "" }

// Verify fetches the anchor for a ChittyID. ErrNotAnchored when the id
// is known to the platform but never hard-minted.
func (c *ChainClient) Verify(ctx context.Context, chittyID string) (Anchor, error) {
	if c.baseURL == "" {
		return Anchor{}, ErrChainNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/anchors/"+chittyID, nil)
	if err != nil {
		return Anchor{}, fmt.Errorf("evidence: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Anchor{}, fmt.Errorf("%w: %v", ErrChainUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Anchor{}, ErrNotAnchored
	default:
		return Anchor{}, fmt.Errorf("%w: status %d", ErrChainUnavailable, resp.StatusCode)
	}

	var anchor Anchor
	if err := json.NewDecoder(resp.Body).Decode(&anchor); err != nil {
		return Anchor{}, fmt.Errorf("evidence: decode anchor: %w", err)
	}
	return anchor, nil
}

// Ping checks reachability via GET /v1/health.
func (c *ChainClient) Ping(ctx context.Context) error {
	if c.baseURL == "" {
		return ErrChainNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrChainUnavailable, resp.StatusCode)
	}
	return nil
}
