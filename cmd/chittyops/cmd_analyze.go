// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chittyos/chittyops/pkg/analysis"
)

// analysisStorePath resolves the sqlite file holding analysis sessions:
// the configured path, or ~/.chittyops/analysis.db.
func analysisStorePath() (string, error) {
	if cfg.Analysis.DatabasePath != "" {
		return cfg.Analysis.DatabasePath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".chittyops", "analysis.db"), nil
}

func newAnalysisRunner() (*analysis.Runner, *analysis.Store, error) {
	path, err := analysisStorePath()
	if err != nil {
		return nil, nil, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("create analysis directory: %w", err)
		}
	}

	store, err := analysis.OpenStore(path)
	if err != nil {
		return nil, nil, err
	}
	runner, err := analysis.NewRunner(analysis.RunnerConfig{
		APIKey:  cfg.Analysis.APIKey,
		BaseURL: cfg.Analysis.BaseURL,
		Model:   cfg.Analysis.Model,
		Store:   store,
		Logger:  logger.Slog(),
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return runner, store, nil
}

func analysisCaseRef() string {
	if cfg.Intake.CaseRef != "" {
		return cfg.Intake.CaseRef
	}
	return "unassigned"
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	runner, store, err := newAnalysisRunner()
	if err != nil {
		return err
	}
	defer store.Close()

	session, err := runner.Analyze(cmd.Context(), analysisCaseRef(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	printHeader(fmt.Sprintf("Analysis %s (%s)", session.ID, session.Model))
	fmt.Println(session.Response)
	return nil
}

func runAnalyzeCompare(cmd *cobra.Command, args []string) error {
	runner, store, err := newAnalysisRunner()
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := runner.Compare(cmd.Context(), analysisCaseRef(),
		strings.Join(args, " "), analyzeModels)
	if err != nil {
		return err
	}

	for _, session := range sessions {
		printHeader(fmt.Sprintf("%s (session %s)", session.Model, session.ID))
		fmt.Println(session.Response)
	}
	return nil
}
