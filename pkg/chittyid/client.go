// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package chittyid is the client for the ChittyID minting service.
//
// Every evidence record needs a ChittyID before it may enter the ledger,
// so Mint failures are hard failures: there is no local fallback id.
package chittyid

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

// Errors returned by the client.
var (
	// ErrNotConfigured means the client was built without a base URL.
	ErrNotConfigured = errors.New("chittyid: service URL not configured")

	// ErrUnauthorized means the service rejected the bearer token.
	ErrUnauthorized = errors.New("chittyid: unauthorized")

	// ErrUnavailable means the service could not be reached or answered
	// with a server error.
	ErrUnavailable = errors.New("chittyid: service unavailable")
)

// EntityType classifies what an id is minted for.
type EntityType string

const (
	EntityEvidence EntityType = "EVIDENCE"
	EntityCase     EntityType = "CASE"
	EntityAudit    EntityType = "AUDIT"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the service root, e.g. "https://id.chitty.cc".
	BaseURL string

	// Token is the bearer token. Never logged.
	Token string

	// Timeout bounds each request. Default: 10s.
	Timeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// MintRequest asks the service for a new ChittyID.
type MintRequest struct {
	EntityType EntityType     `json:"entityType"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// MintResponse is the service's answer.
type MintResponse struct {
	ChittyID  string    `json:"chittyId"`
	Timestamp time.Time `json:"timestamp"`
}

// Client talks to the ChittyID service.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// New builds a Client. An empty BaseURL yields a client whose Mint
// always returns ErrNotConfigured; callers treat that as the feature
// being disabled.
func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		token:   config.Token,
		http:    &http.Client{Timeout: config.Timeout},
		logger:  config.Logger,
	}
}

// Configured reports whether a service URL is set.
func (c *Client) Configured() bool { return c.baseURL != "" }

// Mint requests a new ChittyID for the given entity.
func (c *Client) Mint(ctx context.Context, request MintRequest) (MintResponse, error) {
	if c.baseURL == "" {
		return MintResponse{}, ErrNotConfigured
	}

	body, err := json.Marshal(request)
	if err != nil {
		return MintResponse{}, fmt.Errorf("chittyid: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/mint", bytes.NewReader(body))
	if err != nil {
		return MintResponse{}, fmt.Errorf("chittyid: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return MintResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return MintResponse{}, ErrUnauthorized
	case resp.StatusCode >= 500:
		return MintResponse{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return MintResponse{}, fmt.Errorf("chittyid: mint rejected with status %d: %s", resp.StatusCode, snippet)
	}

	var minted MintResponse
	if err := json.NewDecoder(resp.Body).Decode(&minted); err != nil {
		return MintResponse{}, fmt.Errorf("chittyid: decode response: %w", err)
	}
	if minted.ChittyID == "" {
		return MintResponse{}, fmt.Errorf("chittyid: response carried no id")
	}

	c.logger.Info("chittyid minted", "chitty_id", minted.ChittyID, "entity_type", request.EntityType)
	return minted, nil
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
