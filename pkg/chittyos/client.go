// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package chittyos is the facade over the ChittyOS platform services:
// ChittyID minting, the ledger, the evidence chain, the vector store,
// the gateway and the remote tool client. Callers construct one Client
// and reach every platform operation through it.
//
// Collaborators are optional: endpoints missing from the configuration
// leave their slot nil and the corresponding operations return the
// collaborator's not-configured error. The facade validates nothing
// itself; collaborator errors surface unchanged.
package chittyos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chittyos/chittyops/pkg/chittyid"
	"github.com/chittyos/chittyops/pkg/config"
	"github.com/chittyos/chittyops/pkg/evidence"
	"github.com/chittyos/chittyops/pkg/ledger"
	"github.com/chittyos/chittyops/pkg/mcptools"
	"github.com/chittyos/chittyops/pkg/vector"
)

// IDService mints ChittyIDs.
type IDService interface {
	Configured() bool
	Mint(ctx context.Context, request chittyid.MintRequest) (chittyid.MintResponse, error)
	Ping(ctx context.Context) error
}

// LedgerService records evidence entries.
type LedgerService interface {
	Configured() bool
	ChainEnabled() bool
	Record(ctx context.Context, entry ledger.Entry, mode ledger.MintMode) (ledger.Receipt, error)
	Ping(ctx context.Context) error
}

// ChainService reads evidence anchors.
type ChainService interface {
	Configured() bool
	Verify(ctx context.Context, chittyID string) (evidence.Anchor, error)
	Ping(ctx context.Context) error
}

// VectorService stores and searches evidence context.
type VectorService interface {
	Configured() bool
	EnsureSchema(ctx context.Context) error
	Index(ctx context.Context, ec vector.Context) error
	Search(ctx context.Context, query, caseRef string, limit int) ([]vector.SearchResult, error)
	Ping(ctx context.Context) error
}

// ToolService is the remote MCP tool client surface the facade uses.
type ToolService interface {
	Initialize(ctx context.Context) error
	Connected() bool
	CaptureEvidenceContext(ctx context.Context, req mcptools.CaptureRequest) (string, error)
	Close() error
}

// GatewayRunner is the embedded gateway lifecycle as seen by the facade.
type GatewayRunner interface {
	Start() error
	Stop(ctx context.Context) error
	Healthy() bool
}

// Client is the platform facade.
type Client struct {
	id     IDService
	ledger LedgerService
	chain  ChainService
	vector VectorService
	tools  ToolService

	gateway GatewayRunner
	store   *ReceiptStore

	storageCfg config.StorageConfig
	caseRef    string
	scorer     *evidence.Scorer
	logger     *slog.Logger
}

// Option overrides a collaborator, primarily for tests and for wiring a
// gateway built elsewhere.
type Option func(*Client)

func WithIDService(s IDService) Option         { return func(c *Client) { c.id = s } }
func WithLedgerService(s LedgerService) Option { return func(c *Client) { c.ledger = s } }
func WithChainService(s ChainService) Option   { return func(c *Client) { c.chain = s } }
func WithVectorService(s VectorService) Option { return func(c *Client) { c.vector = s } }
func WithToolService(s ToolService) Option     { return func(c *Client) { c.tools = s } }
func WithGateway(g GatewayRunner) Option       { return func(c *Client) { c.gateway = g } }
func WithReceiptStore(s *ReceiptStore) Option  { return func(c *Client) { c.store = s } }
func WithScorer(s *evidence.Scorer) Option     { return func(c *Client) { c.scorer = s } }

// NewClient assembles the facade from configuration. Any sub-constructor
// failure fails the whole construction.
func NewClient(cfg config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := &Client{
		storageCfg: cfg.Storage,
		caseRef:    cfg.Intake.CaseRef,
		logger:     logger,
	}

	client.id = chittyid.New(chittyid.Config{
		BaseURL: cfg.ID.URL,
		Token:   cfg.ID.Token,
		Timeout: cfg.ID.Timeout,
		Logger:  logger,
	})
	client.ledger = ledger.New(ledger.Config{
		BaseURL:      cfg.Ledger.URL,
		ChainEnabled: cfg.Ledger.ChainEnabled,
		Timeout:      cfg.Ledger.Timeout,
		Logger:       logger,
	})
	client.chain = evidence.NewChainClient(evidence.ChainConfig{
		BaseURL: cfg.Chain.URL,
		Timeout: cfg.Chain.Timeout,
		Logger:  logger,
	})

	store, err := vector.New(vector.Config{
		URL:       cfg.Vector.URL,
		ClassName: cfg.Vector.ClassName,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("chittyos: vector store: %w", err)
	}
	client.vector = store

	if cfg.MCP.Endpoint != "" {
		transport, err := mcptools.NewStreamableTransport(cfg.MCP.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("chittyos: mcp transport: %w", err)
		}
		tools, err := mcptools.NewToolClient(mcptools.Config{
			Transport:      transport,
			DefaultProject: cfg.MCP.DefaultProject,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("chittyos: mcp client: %w", err)
		}
		client.tools = tools
	}

	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// AttachGateway wires a gateway built after construction. Gateways need
// the facade's health check, so they are usually constructed second and
// attached before Initialize.
func (c *Client) AttachGateway(g GatewayRunner) { c.gateway = g }

// Initialize brings the facade online: open storage when configured,
// ensure the vector schema when the store is configured, start the
// gateway when present, connect the tool client when present, then run
// one health check. The first failure aborts and propagates; there is
// no retry.
func (c *Client) Initialize(ctx context.Context) error {
	if c.store == nil && c.storageCfg.Path != "" {
		store, err := OpenReceiptStore(StorageConfig{
			Path:   c.storageCfg.Path,
			Logger: c.logger,
		})
		if err != nil {
			return err
		}
		c.store = store
	}

	if c.vector.Configured() {
		if err := c.vector.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("chittyos: vector schema: %w", err)
		}
	}

	if c.gateway != nil {
		if err := c.gateway.Start(); err != nil {
			return fmt.Errorf("chittyos: start gateway: %w", err)
		}
	}

	if c.tools != nil {
		if err := c.tools.Initialize(ctx); err != nil {
			return fmt.Errorf("chittyos: connect mcp: %w", err)
		}
	}

	report := c.PerformHealthCheck(ctx)
	c.logger.Info("chittyos initialized", "health", string(report.Status))
	return nil
}

// Close tears down everything the facade owns. Errors are joined, not
// short-circuited.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if c.tools != nil {
		if err := c.tools.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.gateway != nil {
		if err := c.gateway.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Receipts exposes the receipt store; nil when storage is not
// configured.
func (c *Client) Receipts() *ReceiptStore { return c.store }

// CreateEvidence ingests a file and mints a ChittyID for it.
func (c *Client) CreateEvidence(ctx context.Context, path string) (evidence.Record, error) {
	record, err := evidence.Intake(path, c.scorer)
	if err != nil {
		return evidence.Record{}, err
	}
	return c.RegisterEvidence(ctx, record)
}

// RegisterEvidence mints a ChittyID for a record produced outside
// CreateEvidence, such as the intake watcher.
func (c *Client) RegisterEvidence(ctx context.Context, record evidence.Record) (evidence.Record, error) {
	minted, err := c.id.Mint(ctx, chittyid.MintRequest{
		EntityType: chittyid.EntityEvidence,
		Metadata: map[string]any{
			"sha256":   record.SHA256,
			"type":     string(record.Type),
			"case_ref": c.caseRef,
		},
	})
	if err != nil {
		return evidence.Record{}, err
	}
	record.ChittyID = minted.ChittyID
	return record, nil
}

// ProcessEvidence indexes a minted record into the vector store and,
// when the tool client is connected, captures it as remote evidence
// context. The vector index is required; the context capture is
// best-effort.
func (c *Client) ProcessEvidence(ctx context.Context, record evidence.Record) error {
	content := record.Path
	if record.Subject != "" {
		content = fmt.Sprintf("%s: %s (from %s)", record.Path, record.Subject, record.From)
	}

	err := c.vector.Index(ctx, vector.Context{
		ChittyID:  record.ChittyID,
		CaseRef:   c.caseRef,
		Content:   content,
		Kind:      string(record.Type),
		Relevance: float64(record.Relevance),
	})
	if err != nil {
		return err
	}

	if c.tools != nil && c.tools.Connected() {
		if _, err := c.tools.CaptureEvidenceContext(ctx, mcptools.CaptureRequest{
			Content: content,
			Metadata: map[string]any{
				"chitty_id": record.ChittyID,
				"sha256":    record.SHA256,
			},
		}); err != nil {
			c.logger.Warn("evidence context capture failed",
				"chitty_id", record.ChittyID,
				"error", err)
		}
	}
	return nil
}

// MintEvidence records a ledger entry for a minted record. The hard
// (on-chain) path is taken only when hard is requested and the ledger is
// chain-enabled; otherwise the entry is recorded soft. A hard request
// against a chain-disabled ledger downgrades silently rather than
// failing, so callers on minimal deployments still get a ledger entry.
func (c *Client) MintEvidence(ctx context.Context, record evidence.Record, hard bool) (ledger.Receipt, error) {
	mode := ledger.MintSoft
	if hard && c.ledger.ChainEnabled() {
		mode = ledger.MintHard
	}

	receipt, err := c.ledger.Record(ctx, ledger.Entry{
		ChittyID: record.ChittyID,
		SHA256:   record.SHA256,
		CaseRef:  c.caseRef,
		Metadata: map[string]any{"type": string(record.Type)},
	}, mode)
	if err != nil {
		return ledger.Receipt{}, err
	}

	if c.store != nil {
		if err := c.store.Put(receipt); err != nil {
			c.logger.Warn("receipt not persisted",
				"chitty_id", receipt.ChittyID,
				"error", err)
		}
	}
	return receipt, nil
}

// SearchEvidence is a pass-through to the vector store's semantic
// search, scoped to the configured case.
func (c *Client) SearchEvidence(ctx context.Context, query string, limit int) ([]vector.SearchResult, error) {
	return c.vector.Search(ctx, query, c.caseRef, limit)
}

// VerifyEvidence reads the chain anchor for a ChittyID.
func (c *Client) VerifyEvidence(ctx context.Context, chittyID string) (evidence.Anchor, error) {
	return c.chain.Verify(ctx, chittyID)
}
