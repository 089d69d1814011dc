// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chittyos/chittyops/pkg/config"
	"github.com/chittyos/chittyops/pkg/logging"
)

func TestEvidenceWatchRequiresDirectories(t *testing.T) {
	cfg = config.Default()

	err := runEvidenceWatch(evidenceWatchCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch_dirs")
}

func TestEvidenceWatchTakesDirsFromConfig(t *testing.T) {
	cfg = config.Default()
	cfg.Intake.WatchDirs = []string{"/nonexistent-intake-dir"}
	logger = logging.New(logging.Config{Quiet: true})

	// The configured directory is picked up; the failure is the absent
	// directory, not missing configuration.
	err := runEvidenceWatch(evidenceWatchCmd, nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "watch_dirs")
	assert.Contains(t, err.Error(), "nonexistent-intake-dir")
}
