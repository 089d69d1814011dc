// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/weaviate/weaviate/entities/models"
)

func TestDisabledStore(t *testing.T) {
	store, err := New(Config{})
	if err != nil {
		t.Fatalf("New with empty URL should succeed: %v", err)
	}
	if store.Configured() {
		t.Error("store without URL should report unconfigured")
	}

	ctx := context.Background()
	if err := store.Ping(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Ping = %v, want ErrNotConfigured", err)
	}
	if err := store.Index(ctx, Context{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Index = %v, want ErrNotConfigured", err)
	}
	if _, err := store.Search(ctx, "q", "", 5); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Search = %v, want ErrNotConfigured", err)
	}
}

func TestParseSearchResponse(t *testing.T) {
	resp := &models.GraphQLResponse{
		Data: map[string]models.JSONObject{
			"Get": map[string]any{
				"EvidenceContext": []any{
					map[string]any{
						"chittyId":  "CID-1",
						"caseRef":   "ARDC_2025_0142",
						"content":   "key email about the hearing",
						"kind":      "email",
						"relevance": 9.0,
						"_additional": map[string]any{
							"certainty": 0.91,
						},
					},
					"malformed entry",
				},
			},
		},
	}

	results := parseSearchResponse(resp, "EvidenceContext")
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (malformed skipped)", len(results))
	}
	r := results[0]
	if r.Context.ChittyID != "CID-1" || r.Context.Relevance != 9.0 {
		t.Errorf("context parsed wrong: %+v", r.Context)
	}
	if r.Certainty != 0.91 {
		t.Errorf("certainty = %v, want 0.91", r.Certainty)
	}
}

func TestParseSearchResponseEmpty(t *testing.T) {
	if got := parseSearchResponse(&models.GraphQLResponse{}, "EvidenceContext"); got != nil {
		t.Errorf("empty response should parse to nil, got %v", got)
	}
}
