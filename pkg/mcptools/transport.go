// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mcptools

import (
	"context"
	"fmt"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Transport carries tool calls to a remote MCP server.
//
// Contract: Connect must be called once before CallTool and is not
// retried internally. CallTool returns the tool's text output, or an
// error when the call cannot be delivered or the tool reports failure.
// Implementations must be safe for concurrent CallTool use after
// Connect. Close releases the connection; calls after Close fail.
type Transport interface {
	Connect(ctx context.Context) error
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
	Close() error
}

// streamableTransport is the production Transport over MCP
// streamable-HTTP.
type streamableTransport struct {
	client *mcpclient.Client
}

// NewStreamableTransport builds a Transport for the given MCP endpoint.
func NewStreamableTransport(endpoint string) (Transport, error) {
	c, err := mcpclient.NewStreamableHttpClient(endpoint)
	if err != nil {
		return nil, fmt.Errorf("mcptools: create client for %s: %w", endpoint, err)
	}
	return &streamableTransport{client: c}, nil
}

func (t *streamableTransport) Connect(ctx context.Context) error {
	if err := t.client.Start(ctx); err != nil {
		return fmt.Errorf("mcptools: start transport: %w", err)
	}

	request := mcp.InitializeRequest{}
	request.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	request.Params.ClientInfo = mcp.Implementation{
		Name:    "chittyops",
		Version: "1.0.0",
	}
	if _, err := t.client.Initialize(ctx, request); err != nil {
		return fmt.Errorf("mcptools: initialize: %w", err)
	}
	return nil
}

func (t *streamableTransport) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := t.client.CallTool(ctx, request)
	if err != nil {
		return "", fmt.Errorf("mcptools: call %s: %w", name, err)
	}

	text := collectText(result)
	if result.IsError {
		return "", fmt.Errorf("mcptools: tool %s failed: %s", name, text)
	}
	return text, nil
}

func (t *streamableTransport) Close() error {
	return t.client.Close()
}

func collectText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
