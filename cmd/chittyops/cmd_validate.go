// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/chittyos/chittyops/pkg/compliance"
)

// validateCacheTTL is how long cached compliance results stay fresh.
const validateCacheTTL = 5 * time.Minute

type validateCache struct {
	Results []compliance.Result `json:"results"`
	SavedAt time.Time           `json:"saved_at"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	results, fromCache := loadCachedResults()
	if results == nil {
		validator := compliance.New(compliance.Config{
			CheckTimeout: time.Duration(validateTimeoutMS) * time.Millisecond,
			Logger:       logger.Slog(),
		})
		results = validator.Run(cmd.Context())
		saveCachedResults(results)
	}

	title := "Compliance Checks"
	if fromCache {
		title += " (cached)"
	}
	printHeader(title)
	for _, r := range results {
		glyph := passGlyph()
		if !r.Passed {
			glyph = failGlyph()
			if r.Priority == compliance.PriorityCritical {
				glyph = failGlyph() + colorize(ansiRed, "!")
			}
		}
		printRow(glyph, fmt.Sprintf("%-22s %s", r.Name, r.Message))
		if verbose && len(r.Detail) > 0 {
			detail, _ := json.Marshal(r.Detail)
			printRow(" ", fmt.Sprintf("  %s", detail))
		}
	}

	summary := compliance.Summarize(results)
	printFooter(fmt.Sprintf("%d passed, %d failed", summary.Passed, summary.Failed))

	if summary.Failed > 0 {
		if summary.Critical {
			fmt.Println(colorize(ansiRed, "Critical checks failed; fix these before continuing."))
		}
		os.Exit(1)
	}
	return nil
}

func validateCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".chittyops", "validate_cache.json")
}

// loadCachedResults returns fresh cached results unless --skip-cache.
func loadCachedResults() ([]compliance.Result, bool) {
	if validateSkipCache {
		return nil, false
	}
	path := validateCachePath()
	if path == "" {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var cache validateCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, false
	}
	if time.Since(cache.SavedAt) > validateCacheTTL || len(cache.Results) == 0 {
		return nil, false
	}
	return cache.Results, true
}

func saveCachedResults(results []compliance.Result) {
	path := validateCachePath()
	if path == "" {
		return
	}
	data, err := json.Marshal(validateCache{Results: results, SavedAt: time.Now()})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		logger.Debug("validate cache not written", "error", err)
	}
}
