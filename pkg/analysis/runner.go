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
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
)

// completionAPI is the slice of the OpenAI client the runner uses.
// Narrowed so tests can substitute a double.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const systemPrompt = "You are an evidence analyst. Answer strictly from the " +
	"provided material; flag uncertainty instead of guessing."

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// APIKey authenticates to the provider. Required unless BaseURL
	// points at a local server that ignores auth.
	APIKey string

	// BaseURL overrides the provider endpoint, e.g. a local inference
	// server exposing the OpenAI API.
	BaseURL string

	// Model is the default model for Analyze. Default: gpt-4o-mini.
	Model string

	// Store persists sessions. Required.
	Store *Store

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Runner executes analysis prompts and records every run.
type Runner struct {
	api    completionAPI
	store  *Store
	model  string
	logger *slog.Logger
}

// NewRunner builds a Runner against the configured provider.
func NewRunner(config RunnerConfig) (*Runner, error) {
	if config.Store == nil {
		return nil, errors.New("analysis: store is required")
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Runner{
		api:    openai.NewClientWithConfig(clientConfig),
		store:  config.Store,
		model:  config.Model,
		logger: config.Logger,
	}, nil
}

// Analyze runs one prompt against the default model and stores the
// session.
func (r *Runner) Analyze(ctx context.Context, caseRef, prompt string) (Session, error) {
	return r.run(ctx, caseRef, prompt, r.model, "")
}

// Compare runs the same prompt against several models sequentially,
// storing each run under a shared group id. A model failure aborts the
// run; earlier sessions stay stored.
func (r *Runner) Compare(ctx context.Context, caseRef, prompt string, models []string) ([]Session, error) {
	if len(models) < 2 {
		return nil, errors.New("analysis: comparative run needs at least two models")
	}
	groupID := uuid.NewString()
	sessions := make([]Session, 0, len(models))
	for _, model := range models {
		session, err := r.run(ctx, caseRef, prompt, model, groupID)
		if err != nil {
			return sessions, fmt.Errorf("model %s: %w", model, err)
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (r *Runner) run(ctx context.Context, caseRef, prompt, model, groupID string) (Session, error) {
	resp, err := r.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Session{}, fmt.Errorf("analysis: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Session{}, errors.New("analysis: provider returned no choices")
	}

	session := Session{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		CaseRef:   caseRef,
		Model:     model,
		Prompt:    prompt,
		Response:  resp.Choices[0].Message.Content,
		CreatedAt: time.Now(),
	}
	if err := r.store.Save(ctx, session); err != nil {
		return Session{}, err
	}

	r.logger.Info("analysis session stored",
		"session_id", session.ID,
		"case_ref", caseRef,
		"model", model)
	return session, nil
}
