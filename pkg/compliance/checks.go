// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compliance

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
)

func (v *Validator) probeNodeVersion(ctx context.Context) (string, map[string]any, error) {
	out, err := exec.CommandContext(ctx, "node", "--version").Output()
	if err != nil {
		return "", nil, fmt.Errorf("node is not runnable: %v", err)
	}
	version := strings.TrimSpace(string(out))
	return evaluateNodeVersion(version, v.config.MinNodeMajor)
}

// evaluateNodeVersion compares a `node --version` string (e.g. "v16.2.0")
// against the minimum major. Split out from the probe so it can be
// tested without a node binary.
func evaluateNodeVersion(version string, minMajor int) (string, map[string]any, error) {
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return "", nil, fmt.Errorf("unparseable node version %q", version)
	}
	minimum := fmt.Sprintf("v%d", minMajor)
	detail := map[string]any{"version": version, "minimum_major": minMajor}
	if semver.Compare(semver.Major(version), minimum) < 0 {
		return "", detail, fmt.Errorf("node %s is below the required major version %d", version, minMajor)
	}
	return fmt.Sprintf("node %s", version), detail, nil
}

func (v *Validator) probeDirectories(ctx context.Context) (string, map[string]any, error) {
	var missing []string
	for _, dir := range v.config.RequiredDirs {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		path := dir
		if !filepath.IsAbs(path) {
			path = filepath.Join(v.config.WorkDir, dir)
		}
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			missing = append(missing, dir)
		}
	}
	if len(missing) > 0 {
		return "", map[string]any{"missing": missing},
			fmt.Errorf("missing directories: %s", strings.Join(missing, ", "))
	}
	return fmt.Sprintf("all %d expected directories present", len(v.config.RequiredDirs)), nil, nil
}

func (v *Validator) probeBackgroundProcesses(ctx context.Context) (string, map[string]any, error) {
	out, err := exec.CommandContext(ctx, "pgrep", "-f", v.config.ProcessPattern).Output()
	count := 0
	if err == nil {
		count = len(strings.Fields(strings.TrimSpace(string(out))))
	}
	// pgrep exits 1 when nothing matches; that is a count of zero, not
	// a probe failure.
	detail := map[string]any{"count": count, "pattern": v.config.ProcessPattern}
	if count > v.config.MaxBackgroundProcesses {
		return "", detail, fmt.Errorf("%d background %q processes exceed the limit of %d",
			count, v.config.ProcessPattern, v.config.MaxBackgroundProcesses)
	}
	return fmt.Sprintf("%d background processes", count), detail, nil
}

func (v *Validator) probeRequiredTools(ctx context.Context) (string, map[string]any, error) {
	var missing []string
	for _, tool := range v.config.RequiredTools {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		if _, err := exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return "", map[string]any{"missing": missing},
			fmt.Errorf("missing tools: %s", strings.Join(missing, ", "))
	}
	return fmt.Sprintf("all %d required tools found", len(v.config.RequiredTools)), nil, nil
}

func (v *Validator) probeGitClean(ctx context.Context) (string, map[string]any, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = v.config.WorkDir
	out, err := cmd.Output()
	return evaluateGitStatus(string(out), err)
}

// evaluateGitStatus interprets `git status --porcelain` output. A git
// error means the directory is not a repository, which passes: there is
// nothing to be dirty.
func evaluateGitStatus(output string, gitErr error) (string, map[string]any, error) {
	if gitErr != nil {
		return "not a git repository", map[string]any{"repository": false}, nil
	}
	lines := strings.TrimSpace(output)
	if lines == "" {
		return "working tree clean", map[string]any{"repository": true, "changed_files": 0}, nil
	}
	changed := len(strings.Split(lines, "\n"))
	return "", map[string]any{"repository": true, "changed_files": changed},
		fmt.Errorf("%d uncommitted changed files", changed)
}
