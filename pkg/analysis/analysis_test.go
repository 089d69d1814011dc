// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analysis

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "analysis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	session := Session{
		ID:        uuid.NewString(),
		CaseRef:   "ARDC_2025_0142",
		Model:     "gpt-4o-mini",
		Prompt:    "summarize the email evidence",
		Response:  "three emails discuss the filing deadline",
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Response, got.Response)
	assert.Equal(t, session.CaseRef, got.CaseRef)

	_, err = store.Get(ctx, "missing")
	assert.Error(t, err)
}

func TestStoreByCaseNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(ctx, Session{
			ID:        uuid.NewString(),
			CaseRef:   "case-a",
			Model:     "m",
			Prompt:    "p",
			Response:  "r",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.Save(ctx, Session{
		ID: uuid.NewString(), CaseRef: "case-b", Model: "m",
		Prompt: "p", Response: "r", CreatedAt: time.Now(),
	}))

	sessions, err := store.ByCase(ctx, "case-a")
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.True(t, sessions[0].CreatedAt.After(sessions[2].CreatedAt))
}

// fakeAPI scripts completion responses per model.
type fakeAPI struct {
	responses map[string]string
	failOn    string
	calls     []string
}

func (f *fakeAPI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls = append(f.calls, req.Model)
	if req.Model == f.failOn {
		return openai.ChatCompletionResponse{}, errors.New("model overloaded")
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.responses[req.Model]}},
		},
	}, nil
}

func newTestRunner(t *testing.T, api completionAPI) (*Runner, *Store) {
	t.Helper()
	store := openTestStore(t)
	return &Runner{
		api:    api,
		store:  store,
		model:  "default-model",
		logger: slog.Default(),
	}, store
}

func TestAnalyzeStoresSession(t *testing.T) {
	api := &fakeAPI{responses: map[string]string{"default-model": "finding: dates conflict"}}
	runner, store := newTestRunner(t, api)
	ctx := context.Background()

	session, err := runner.Analyze(ctx, "case-a", "check the dates")
	require.NoError(t, err)
	assert.Equal(t, "finding: dates conflict", session.Response)
	assert.Empty(t, session.GroupID)

	stored, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Response, stored.Response)
}

func TestCompareGroupsSessions(t *testing.T) {
	api := &fakeAPI{responses: map[string]string{"m1": "a", "m2": "b"}}
	runner, store := newTestRunner(t, api)
	ctx := context.Background()

	sessions, err := runner.Compare(ctx, "case-a", "compare", []string{"m1", "m2"})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, sessions[0].GroupID, sessions[1].GroupID)
	assert.NotEmpty(t, sessions[0].GroupID)

	grouped, err := store.ByGroup(ctx, sessions[0].GroupID)
	require.NoError(t, err)
	assert.Len(t, grouped, 2)
}

func TestCompareNeedsTwoModels(t *testing.T) {
	runner, _ := newTestRunner(t, &fakeAPI{})
	_, err := runner.Compare(context.Background(), "c", "p", []string{"only-one"})
	assert.Error(t, err)
}

func TestCompareFailureKeepsEarlierSessions(t *testing.T) {
	api := &fakeAPI{responses: map[string]string{"m1": "a"}, failOn: "m2"}
	runner, store := newTestRunner(t, api)
	ctx := context.Background()

	sessions, err := runner.Compare(ctx, "case-a", "p", []string{"m1", "m2"})
	require.Error(t, err)
	require.Len(t, sessions, 1)

	stored, err := store.ByCase(ctx, "case-a")
	require.NoError(t, err)
	assert.Len(t, stored, 1, "the successful model's session survives")
	assert.Equal(t, []string{"m1", "m2"}, api.calls)
}
