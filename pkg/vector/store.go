// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package vector stores and searches evidence context in Weaviate.
//
// The store holds one class of objects (default "EvidenceContext") with
// the evidence text, its ChittyID, case reference and relevance. Search
// is semantic via nearText. All operations trace through OpenTelemetry.
package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrNotConfigured means the store was built without a URL.
	ErrNotConfigured = errors.New("vector: store URL not configured")

	// ErrUnavailable means Weaviate could not be reached.
	ErrUnavailable = errors.New("vector: store unavailable")
)

const tracerName = "chittyops/vector"

// Config configures a Store.
type Config struct {
	// URL is the Weaviate endpoint, e.g. "http://localhost:8080".
	URL string

	// ClassName is the object class. Default: "EvidenceContext".
	ClassName string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Context is one stored evidence context object.
type Context struct {
	ChittyID  string  `json:"chittyId"`
	CaseRef   string  `json:"caseRef"`
	Content   string  `json:"content"`
	Kind      string  `json:"kind"`
	Relevance float64 `json:"relevance"`
}

// SearchResult pairs a stored context with its match certainty.
type SearchResult struct {
	Context   Context
	Certainty float64
}

// Store is the Weaviate-backed evidence context store.
type Store struct {
	client    *weaviate.Client
	className string
	logger    *slog.Logger
}

// New builds a Store. Empty URL yields a disabled store whose methods
// return ErrNotConfigured.
func New(config Config) (*Store, error) {
	if config.ClassName == "" {
		config.ClassName = "EvidenceContext"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	store := &Store{className: config.ClassName, logger: config.Logger}
	if config.URL == "" {
		return store, nil
	}

	cfg := weaviate.Config{Host: config.URL, Scheme: "http"}
	switch {
	case strings.HasPrefix(config.URL, "https://"):
		cfg.Scheme = "https"
		cfg.Host = strings.TrimPrefix(config.URL, "https://")
	case strings.HasPrefix(config.URL, "http://"):
		cfg.Host = strings.TrimPrefix(config.URL, "http://")
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vector: create client: %w", err)
	}
	store.client = client
	return store, nil
}

// Configured reports whether the store has a backend.
func (s *Store) Configured() bool { return s.client != nil }

// Ping checks that Weaviate is ready.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return ErrNotConfigured
	}
	ready, err := s.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ready {
		return ErrUnavailable
	}
	return nil
}

// EnsureSchema creates the evidence context class if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.client == nil {
		return ErrNotConfigured
	}

	exists, err := s.client.Schema().ClassExistenceChecker().
		WithClassName(s.className).Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:       s.className,
		Description: "Evidence context for semantic retrieval",
		Properties: []*models.Property{
			{Name: "chittyId", DataType: []string{"text"}},
			{Name: "caseRef", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "kind", DataType: []string{"text"}},
			{Name: "relevance", DataType: []string{"number"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("vector: create class %s: %w", s.className, err)
	}
	s.logger.Info("vector class created", "class", s.className)
	return nil
}

// Index stores one evidence context.
func (s *Store) Index(ctx context.Context, ec Context) error {
	if s.client == nil {
		return ErrNotConfigured
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "vector.Index",
		trace.WithAttributes(attribute.String("chitty_id", ec.ChittyID)))
	defer span.End()

	_, err := s.client.Data().Creator().
		WithClassName(s.className).
		WithProperties(map[string]any{
			"chittyId":  ec.ChittyID,
			"caseRef":   ec.CaseRef,
			"content":   ec.Content,
			"kind":      ec.Kind,
			"relevance": ec.Relevance,
		}).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index failed")
		return fmt.Errorf("vector: index %s: %w", ec.ChittyID, err)
	}
	span.SetStatus(codes.Ok, "indexed")
	return nil
}

// Search runs a semantic query, optionally scoped to one case.
func (s *Store) Search(ctx context.Context, query, caseRef string, limit int) ([]SearchResult, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}
	if limit < 1 {
		limit = 10
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "vector.Search",
		trace.WithAttributes(
			attribute.String("case_ref", caseRef),
			attribute.Int("limit", limit),
		))
	defer span.End()

	nearText := s.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	get := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(
			graphql.Field{Name: "chittyId"},
			graphql.Field{Name: "caseRef"},
			graphql.Field{Name: "content"},
			graphql.Field{Name: "kind"},
			graphql.Field{Name: "relevance"},
			graphql.Field{Name: "_additional { certainty }"},
		).
		WithNearText(nearText).
		WithLimit(limit)

	if caseRef != "" {
		get = get.WithWhere(filters.Where().
			WithPath([]string{"caseRef"}).
			WithOperator(filters.Equal).
			WithValueString(caseRef))
	}

	result, err := get.Do(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(result.Errors) > 0 {
		err := fmt.Errorf("vector: search error: %s", result.Errors[0].Message)
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}

	results := parseSearchResponse(result, s.className)
	span.SetAttributes(attribute.Int("results", len(results)))
	span.SetStatus(codes.Ok, "search complete")
	return results, nil
}

func parseSearchResponse(result *models.GraphQLResponse, className string) []SearchResult {
	data, ok := result.Data["Get"].(map[string]any)
	if !ok {
		return nil
	}
	objects, ok := data[className].([]any)
	if !ok {
		return nil
	}

	results := make([]SearchResult, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]any)
		if !ok {
			continue
		}
		sr := SearchResult{Context: Context{
			ChittyID: str(m["chittyId"]),
			CaseRef:  str(m["caseRef"]),
			Content:  str(m["content"]),
			Kind:     str(m["kind"]),
		}}
		if rel, ok := m["relevance"].(float64); ok {
			sr.Context.Relevance = rel
		}
		if add, ok := m["_additional"].(map[string]any); ok {
			if c, ok := add["certainty"].(float64); ok {
				sr.Certainty = c
			}
		}
		results = append(results, sr)
	}
	return results
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
