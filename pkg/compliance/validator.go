// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package compliance probes the local environment for ChittyOS
// operational requirements: runtime versions, directory layout,
// background processes, required tools, and repository hygiene.
//
// Checks run sequentially in a fixed order. Each check races against its
// own timeout; a timed-out or failed check produces a failed Result and
// the remaining checks still run. Probes that spawn processes use
// exec.CommandContext so a timed-out probe's process is killed instead
// of leaked.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Category groups checks by the concern they cover.
type Category string

const (
	CategorySystem      Category = "system"
	CategoryNetwork     Category = "network"
	CategorySecurity    Category = "security"
	CategoryChittyOS    Category = "chittyos"
	CategoryDevelopment Category = "development"
)

// Priority ranks how urgently a failed check needs attention.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// probeFunc performs one check. It returns a human-readable message, an
// optional detail payload, and an error when the check fails. Probes
// must honor ctx cancellation.
type probeFunc func(ctx context.Context) (string, map[string]any, error)

// Check is one entry in the validator's battery. The battery is fixed at
// construction; checks cannot be added or removed afterward.
type Check struct {
	Name        string
	Description string
	Category    Category
	Priority    Priority

	probe probeFunc
}

// Result is the outcome of one check.
type Result struct {
	Name      string         `json:"name"`
	Category  Category       `json:"category"`
	Priority  Priority       `json:"priority"`
	Passed    bool           `json:"passed"`
	Message   string         `json:"message"`
	Detail    map[string]any `json:"detail,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Config tunes the validator's battery.
type Config struct {
	// MinNodeMajor is the minimum acceptable Node.js major version.
	// Default: 18.
	MinNodeMajor int

	// RequiredDirs are directories that must exist, relative to WorkDir
	// when not absolute.
	RequiredDirs []string

	// ProcessPattern is the pgrep -f pattern counted by the background
	// process check. Default: "chittyops".
	ProcessPattern string

	// MaxBackgroundProcesses fails the process check when exceeded.
	// Default: 10.
	MaxBackgroundProcesses int

	// RequiredTools are executables that must be on PATH.
	// Default: git, node.
	RequiredTools []string

	// WorkDir is where the git cleanliness check runs. Default: ".".
	WorkDir string

	// CheckTimeout bounds each individual check. Default: 5s.
	CheckTimeout time.Duration

	// Logger for per-check progress. Default: slog.Default().
	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.MinNodeMajor == 0 {
		c.MinNodeMajor = 18
	}
	if c.ProcessPattern == "" {
		c.ProcessPattern = "chittyops"
	}
	if c.MaxBackgroundProcesses == 0 {
		c.MaxBackgroundProcesses = 10
	}
	if len(c.RequiredTools) == 0 {
		c.RequiredTools = []string{"git", "node"}
	}
	if c.WorkDir == "" {
		c.WorkDir = "."
	}
	if c.CheckTimeout == 0 {
		c.CheckTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Validator runs a fixed battery of environment checks.
type Validator struct {
	config Config
	checks []Check
}

// New builds a Validator with the standard battery, in order: runtime
// version, directory structure, background processes, required tools,
// git cleanliness.
func New(config Config) *Validator {
	config.applyDefaults()
	v := &Validator{config: config}
	v.checks = []Check{
		{
			Name:        "node_runtime",
			Description: fmt.Sprintf("Node.js major version >= %d", config.MinNodeMajor),
			Category:    CategorySystem,
			Priority:    PriorityCritical,
			probe:       v.probeNodeVersion,
		},
		{
			Name:        "directory_structure",
			Description: "expected project directories exist",
			Category:    CategoryChittyOS,
			Priority:    PriorityHigh,
			probe:       v.probeDirectories,
		},
		{
			Name:        "background_processes",
			Description: fmt.Sprintf("at most %d %q processes running", config.MaxBackgroundProcesses, config.ProcessPattern),
			Category:    CategorySystem,
			Priority:    PriorityMedium,
			probe:       v.probeBackgroundProcesses,
		},
		{
			Name:        "required_tools",
			Description: "required CLI tools are on PATH",
			Category:    CategoryDevelopment,
			Priority:    PriorityHigh,
			probe:       v.probeRequiredTools,
		},
		{
			Name:        "git_clean",
			Description: "working tree has no uncommitted changes",
			Category:    CategoryDevelopment,
			Priority:    PriorityLow,
			probe:       v.probeGitClean,
		},
	}
	return v
}

// Checks returns the battery descriptors in execution order.
func (v *Validator) Checks() []Check {
	out := make([]Check, len(v.checks))
	copy(out, v.checks)
	return out
}

// Run executes every check sequentially and returns one Result per
// check, in battery order. A failing check never aborts the rest.
func (v *Validator) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(v.checks))
	for _, check := range v.checks {
		results = append(results, v.runOne(ctx, check))
	}
	return results
}

func (v *Validator) runOne(ctx context.Context, check Check) Result {
	checkCtx, cancel := context.WithTimeout(ctx, v.config.CheckTimeout)
	defer cancel()

	result := Result{
		Name:      check.Name,
		Category:  check.Category,
		Priority:  check.Priority,
		Timestamp: time.Now(),
	}

	message, detail, err := check.probe(checkCtx)
	switch {
	case checkCtx.Err() != nil:
		result.Message = fmt.Sprintf("check timed out after %s", v.config.CheckTimeout)
	case err != nil:
		result.Message = err.Error()
		result.Detail = detail
	default:
		result.Passed = true
		result.Message = message
		result.Detail = detail
	}

	v.config.Logger.Debug("compliance check finished",
		"check", check.Name,
		"passed", result.Passed,
		"message", result.Message)
	return result
}

// Summary condenses a result set.
type Summary struct {
	Passed   int  `json:"passed"`
	Failed   int  `json:"failed"`
	Critical bool `json:"critical_failure"`
}

// Summarize counts passes and failures and flags critical failures.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.Passed {
			s.Passed++
			continue
		}
		s.Failed++
		if r.Priority == PriorityCritical {
			s.Critical = true
		}
	}
	return s
}
