// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chittyos/chittyops/pkg/config"
	"github.com/chittyos/chittyops/pkg/logging"
)

func TestAnalysisStorePathPrefersConfig(t *testing.T) {
	cfg = config.Default()
	cfg.Analysis.DatabasePath = "/var/lib/chittyops/analysis.db"

	path, err := analysisStorePath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/chittyops/analysis.db", path)
}

func TestAnalysisStorePathDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg = config.Default()

	path, err := analysisStorePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".chittyops", "analysis.db"), path)
}

func TestNewAnalysisRunnerOpensConfiguredStore(t *testing.T) {
	cfg = config.Default()
	cfg.Analysis.DatabasePath = filepath.Join(t.TempDir(), "sessions", "analysis.db")
	logger = logging.New(logging.Config{Quiet: true})

	runner, store, err := newAnalysisRunner()
	require.NoError(t, err)
	defer store.Close()

	assert.NotNil(t, runner)
	if _, err := os.Stat(cfg.Analysis.DatabasePath); err != nil {
		t.Errorf("session database not created: %v", err)
	}
}

func TestAnalysisCaseRefFallsBack(t *testing.T) {
	cfg = config.Default()
	assert.Equal(t, "unassigned", analysisCaseRef())

	cfg.Intake.CaseRef = "ARDC_2025_0142"
	assert.Equal(t, "ARDC_2025_0142", analysisCaseRef())
}
