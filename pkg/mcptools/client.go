// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package mcptools is the client for remote ChittyOS context tools,
// spoken over MCP. A ToolClient captures evidence, fact, contradiction,
// timeline and analysis context into the remote store and retrieves
// ranked context back.
//
// The client holds one active project at a time; every capture and
// retrieval is scoped to it. Calls are plain request/response with no
// batching or retry.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoActiveProject is returned by every capture and retrieval when no
// project has been set.
var ErrNoActiveProject = errors.New("mcptools: no active project")

// Tool names on the remote server.
const (
	toolCaptureContext = "capture_context"
	toolGetTopContexts = "get_top_contexts"
	toolSetProject     = "set_project"
)

// Config configures a ToolClient.
type Config struct {
	// Transport delivers tool calls. Required.
	Transport Transport

	// DefaultProject, when set, becomes the active project during
	// Initialize.
	DefaultProject string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// CaptureRequest is the common shape of a context capture.
type CaptureRequest struct {
	Content  string         `json:"content"`
	Priority string         `json:"priority,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToolClient calls remote context tools for one active project.
type ToolClient struct {
	transport Transport
	logger    *slog.Logger

	mu        sync.RWMutex
	project   string
	connected bool
}

// NewToolClient builds a ToolClient.
func NewToolClient(config Config) (*ToolClient, error) {
	if config.Transport == nil {
		return nil, errors.New("mcptools: transport is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &ToolClient{
		transport: config.Transport,
		logger:    config.Logger,
		project:   config.DefaultProject,
	}, nil
}

// Initialize connects the transport and, when a default project is
// configured, announces it to the remote server.
func (c *ToolClient) Initialize(ctx context.Context) error {
	if err := c.transport.Connect(ctx); err != nil {
		return err
	}
	c.mu.RLock()
	project := c.project
	c.mu.RUnlock()
	if project != "" {
		if _, err := c.transport.CallTool(ctx, toolSetProject, map[string]any{
			"project": project,
		}); err != nil {
			return err
		}
		c.logger.Info("mcp project activated", "project", project)
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return nil
}

// Connected reports whether Initialize has succeeded and Close has not
// been called.
func (c *ToolClient) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close releases the transport.
func (c *ToolClient) Close() error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return c.transport.Close()
}

// SetProject switches the active project.
func (c *ToolClient) SetProject(ctx context.Context, project string) error {
	if project == "" {
		return errors.New("mcptools: project must not be empty")
	}
	if _, err := c.transport.CallTool(ctx, toolSetProject, map[string]any{
		"project": project,
	}); err != nil {
		return err
	}
	c.mu.Lock()
	c.project = project
	c.mu.Unlock()
	return nil
}

// CurrentProject returns the active project, empty when none.
func (c *ToolClient) CurrentProject() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.project
}

// CaptureEvidenceContext records evidence context.
func (c *ToolClient) CaptureEvidenceContext(ctx context.Context, req CaptureRequest) (string, error) {
	return c.capture(ctx, "evidence", req)
}

// CaptureFactContext records an established fact.
func (c *ToolClient) CaptureFactContext(ctx context.Context, req CaptureRequest) (string, error) {
	return c.capture(ctx, "fact", req)
}

// CaptureContradictionContext records a contradiction between sources.
// Contradictions are always high priority; any priority on the request
// is overridden.
func (c *ToolClient) CaptureContradictionContext(ctx context.Context, req CaptureRequest) (string, error) {
	req.Priority = "high"
	return c.capture(ctx, "contradiction", req)
}

// CaptureTimelineContext records a timeline entry.
func (c *ToolClient) CaptureTimelineContext(ctx context.Context, req CaptureRequest) (string, error) {
	return c.capture(ctx, "timeline", req)
}

// CaptureAnalysisContext records an analysis conclusion.
func (c *ToolClient) CaptureAnalysisContext(ctx context.Context, req CaptureRequest) (string, error) {
	return c.capture(ctx, "analysis", req)
}

func (c *ToolClient) capture(ctx context.Context, kind string, req CaptureRequest) (string, error) {
	c.mu.RLock()
	project := c.project
	c.mu.RUnlock()
	if project == "" {
		return "", ErrNoActiveProject
	}

	args := map[string]any{
		"project": project,
		"kind":    kind,
		"content": req.Content,
	}
	if req.Priority != "" {
		args["priority"] = req.Priority
	}
	if len(req.Tags) > 0 {
		args["tags"] = req.Tags
	}
	if len(req.Metadata) > 0 {
		args["metadata"] = req.Metadata
	}

	out, err := c.transport.CallTool(ctx, toolCaptureContext, args)
	if err != nil {
		return "", err
	}
	c.logger.Debug("context captured", "kind", kind, "project", project)
	return out, nil
}

// GetTopContexts retrieves the highest ranked contexts of any kind.
func (c *ToolClient) GetTopContexts(ctx context.Context, limit int) (string, error) {
	return c.topContexts(ctx, "", limit)
}

// GetTopEvidenceContexts retrieves the highest ranked evidence contexts.
func (c *ToolClient) GetTopEvidenceContexts(ctx context.Context, limit int) (string, error) {
	return c.topContexts(ctx, "evidence", limit)
}

// GetTopContradictions retrieves the highest ranked contradictions.
func (c *ToolClient) GetTopContradictions(ctx context.Context, limit int) (string, error) {
	return c.topContexts(ctx, "contradiction", limit)
}

func (c *ToolClient) topContexts(ctx context.Context, kind string, limit int) (string, error) {
	c.mu.RLock()
	project := c.project
	c.mu.RUnlock()
	if project == "" {
		return "", ErrNoActiveProject
	}
	if limit < 1 {
		limit = 10
	}

	args := map[string]any{
		"project": project,
		"limit":   limit,
	}
	if kind != "" {
		args["kind"] = kind
	}
	out, err := c.transport.CallTool(ctx, toolGetTopContexts, args)
	if err != nil {
		return "", fmt.Errorf("get top contexts: %w", err)
	}
	return out, nil
}
