// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mcptools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTransport records calls and replies from a canned script.
type stubTransport struct {
	connected bool
	closed    bool
	calls     []recordedCall

	// ConnectFunc and CallToolFunc override default behavior when set.
	ConnectFunc  func(ctx context.Context) error
	CallToolFunc func(ctx context.Context, name string, args map[string]any) (string, error)
}

type recordedCall struct {
	name string
	args map[string]any
}

func (s *stubTransport) Connect(ctx context.Context) error {
	if s.ConnectFunc != nil {
		return s.ConnectFunc(ctx)
	}
	s.connected = true
	return nil
}

func (s *stubTransport) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	s.calls = append(s.calls, recordedCall{name: name, args: args})
	if s.CallToolFunc != nil {
		return s.CallToolFunc(ctx, name, args)
	}
	return "ok", nil
}

func (s *stubTransport) Close() error {
	s.closed = true
	return nil
}

func TestNewToolClientRequiresTransport(t *testing.T) {
	_, err := NewToolClient(Config{})
	assert.Error(t, err)
}

func TestInitializeAnnouncesDefaultProject(t *testing.T) {
	stub := &stubTransport{}
	client, err := NewToolClient(Config{Transport: stub, DefaultProject: "ardc-complaint"})
	require.NoError(t, err)

	require.NoError(t, client.Initialize(context.Background()))

	assert.True(t, stub.connected)
	require.Len(t, stub.calls, 1)
	assert.Equal(t, toolSetProject, stub.calls[0].name)
	assert.Equal(t, "ardc-complaint", stub.calls[0].args["project"])
	assert.Equal(t, "ardc-complaint", client.CurrentProject())
	assert.True(t, client.Connected())
}

func TestInitializeWithoutProjectSkipsAnnounce(t *testing.T) {
	stub := &stubTransport{}
	client, _ := NewToolClient(Config{Transport: stub})

	require.NoError(t, client.Initialize(context.Background()))
	assert.Empty(t, stub.calls)
	assert.Empty(t, client.CurrentProject())
}

func TestCaptureWithoutProjectFails(t *testing.T) {
	stub := &stubTransport{}
	client, _ := NewToolClient(Config{Transport: stub})
	ctx := context.Background()
	req := CaptureRequest{Content: "x"}

	_, err := client.CaptureEvidenceContext(ctx, req)
	assert.ErrorIs(t, err, ErrNoActiveProject)
	_, err = client.CaptureFactContext(ctx, req)
	assert.ErrorIs(t, err, ErrNoActiveProject)
	_, err = client.CaptureContradictionContext(ctx, req)
	assert.ErrorIs(t, err, ErrNoActiveProject)
	_, err = client.CaptureTimelineContext(ctx, req)
	assert.ErrorIs(t, err, ErrNoActiveProject)
	_, err = client.CaptureAnalysisContext(ctx, req)
	assert.ErrorIs(t, err, ErrNoActiveProject)
	_, err = client.GetTopContexts(ctx, 5)
	assert.ErrorIs(t, err, ErrNoActiveProject)

	assert.Empty(t, stub.calls, "no remote call without a project")
}

func TestCaptureSendsProjectAndKind(t *testing.T) {
	stub := &stubTransport{}
	client, _ := NewToolClient(Config{Transport: stub, DefaultProject: "p1"})

	_, err := client.CaptureFactContext(context.Background(), CaptureRequest{
		Content:  "filing deadline was 2025-04-18",
		Priority: "medium",
		Tags:     []string{"deadline"},
	})
	require.NoError(t, err)

	require.Len(t, stub.calls, 1)
	call := stub.calls[0]
	assert.Equal(t, toolCaptureContext, call.name)
	assert.Equal(t, "p1", call.args["project"])
	assert.Equal(t, "fact", call.args["kind"])
	assert.Equal(t, "medium", call.args["priority"])
}

func TestContradictionForcesHighPriority(t *testing.T) {
	stub := &stubTransport{}
	client, _ := NewToolClient(Config{Transport: stub, DefaultProject: "p1"})

	_, err := client.CaptureContradictionContext(context.Background(), CaptureRequest{
		Content:  "witness dates disagree",
		Priority: "low",
	})
	require.NoError(t, err)
	assert.Equal(t, "high", stub.calls[0].args["priority"])
}

func TestSetProjectSwitches(t *testing.T) {
	stub := &stubTransport{}
	client, _ := NewToolClient(Config{Transport: stub, DefaultProject: "old"})

	require.NoError(t, client.SetProject(context.Background(), "new"))
	assert.Equal(t, "new", client.CurrentProject())

	assert.Error(t, client.SetProject(context.Background(), ""))
	assert.Equal(t, "new", client.CurrentProject())
}

func TestSetProjectFailureKeepsOldProject(t *testing.T) {
	stub := &stubTransport{
		CallToolFunc: func(context.Context, string, map[string]any) (string, error) {
			return "", errors.New("server rejected")
		},
	}
	client, _ := NewToolClient(Config{Transport: stub, DefaultProject: "old"})

	assert.Error(t, client.SetProject(context.Background(), "new"))
	assert.Equal(t, "old", client.CurrentProject())
}

func TestGetTopContexts(t *testing.T) {
	stub := &stubTransport{
		CallToolFunc: func(_ context.Context, _ string, args map[string]any) (string, error) {
			return "ranked list", nil
		},
	}
	client, _ := NewToolClient(Config{Transport: stub, DefaultProject: "p1"})
	ctx := context.Background()

	out, err := client.GetTopContexts(ctx, 0) // defaults to 10
	require.NoError(t, err)
	assert.Equal(t, "ranked list", out)
	assert.Equal(t, 10, stub.calls[0].args["limit"])
	_, hasKind := stub.calls[0].args["kind"]
	assert.False(t, hasKind, "unfiltered retrieval sends no kind")

	_, err = client.GetTopEvidenceContexts(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "evidence", stub.calls[1].args["kind"])
	assert.Equal(t, 3, stub.calls[1].args["limit"])

	_, err = client.GetTopContradictions(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "contradiction", stub.calls[2].args["kind"])
}

func TestClose(t *testing.T) {
	stub := &stubTransport{}
	client, _ := NewToolClient(Config{Transport: stub})
	require.NoError(t, client.Initialize(context.Background()))
	require.NoError(t, client.Close())
	assert.True(t, stub.closed)
	assert.False(t, client.Connected())
}
