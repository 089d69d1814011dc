// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chittyos/chittyops/pkg/chittyos"
	"github.com/chittyos/chittyops/pkg/evidence"
)

// defaultScorer carries the relevance indicators used when the config
// does not override them. Terms are matched case-insensitively against
// paths and text content.
func defaultScorer() *evidence.Scorer {
	return &evidence.Scorer{Terms: map[string]int{
		"complaint":     4,
		"evidence":      3,
		"exhibit":       3,
		"affidavit":     3,
		"hearing":       2,
		"motion":        2,
		"deadline":      2,
		"contradiction": 2,
	}}
}

func runEvidenceMint(cmd *cobra.Command, args []string) error {
	client, err := chittyos.NewClient(cfg, logger.Slog(),
		chittyos.WithScorer(defaultScorer()))
	if err != nil {
		return err
	}
	defer client.Close(cmd.Context())

	if err := client.Initialize(cmd.Context()); err != nil {
		return err
	}

	printHeader("Evidence Mint")
	failures := 0
	for _, path := range args {
		record, err := client.CreateEvidence(cmd.Context(), path)
		if err != nil {
			printRow(failGlyph(), fmt.Sprintf("%s: %v", path, err))
			failures++
			continue
		}
		if err := client.ProcessEvidence(cmd.Context(), record); err != nil {
			logger.Warn("evidence not indexed", "path", path, "error", err)
		}
		receipt, err := client.MintEvidence(cmd.Context(), record, mintHard)
		if err != nil {
			printRow(failGlyph(), fmt.Sprintf("%s: minted %s but ledger entry failed: %v",
				path, record.ChittyID, err))
			failures++
			continue
		}
		printRow(passGlyph(), fmt.Sprintf("%s → %s (%s)", path, record.ChittyID, receipt.Mode))
	}
	printFooter(fmt.Sprintf("%d of %d files minted", len(args)-failures, len(args)))

	if failures > 0 {
		os.Exit(1)
	}
	return nil
}

func runEvidenceScan(cmd *cobra.Command, args []string) error {
	records, err := evidence.ScanDirectory(args[0], defaultScorer())
	if err != nil {
		return err
	}

	printHeader(fmt.Sprintf("Evidence Scan: %s", args[0]))
	for _, r := range records {
		glyph := passGlyph()
		if r.Relevance < 5 {
			glyph = warnGlyph()
		}
		printRow(glyph, fmt.Sprintf("%-50s %-8s relevance %d", r.Path, r.Type, r.Relevance))
	}
	printFooter(fmt.Sprintf("%d evidence files found", len(records)))
	return nil
}

func runEvidenceWatch(cmd *cobra.Command, args []string) error {
	dirs := args
	if len(dirs) == 0 {
		dirs = cfg.Intake.WatchDirs
	}
	if len(dirs) == 0 {
		return errors.New("no directories to watch (set intake.watch_dirs or pass them as arguments)")
	}

	watcher, err := evidence.NewWatcher(evidence.WatcherConfig{
		Dirs:   dirs,
		Scorer: defaultScorer(),
		Logger: logger.Slog(),
	})
	if err != nil {
		return err
	}

	client, err := chittyos.NewClient(cfg, logger.Slog(),
		chittyos.WithScorer(defaultScorer()))
	if err != nil {
		return err
	}
	if err := client.Initialize(cmd.Context()); err != nil {
		return err
	}
	defer client.Close(cmd.Context())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("evidence watcher stopped", "error", err)
		}
	}()

	logger.Info("watching for evidence", "dirs", dirs)
	for record := range watcher.Records() {
		minted, err := client.RegisterEvidence(ctx, record)
		if err != nil {
			logger.Warn("evidence not minted", "path", record.Path, "error", err)
			continue
		}
		if err := client.ProcessEvidence(ctx, minted); err != nil {
			logger.Warn("evidence not indexed", "path", minted.Path, "error", err)
		}
		if _, err := client.MintEvidence(ctx, minted, mintHard); err != nil {
			logger.Warn("ledger entry failed", "chitty_id", minted.ChittyID, "error", err)
			continue
		}
		printRow(passGlyph(), fmt.Sprintf("%s → %s", minted.Path, minted.ChittyID))
	}
	return nil
}

func runEvidenceReport(cmd *cobra.Command, args []string) error {
	records, err := evidence.ScanDirectory(args[0], defaultScorer())
	if err != nil {
		return err
	}

	caseRef := cfg.Intake.CaseRef
	if caseRef == "" {
		caseRef = "unassigned"
	}
	report := evidence.Report(caseRef, records)

	if reportOutput == "" {
		fmt.Print(report)
		return nil
	}
	if err := os.WriteFile(reportOutput, []byte(report), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Printf("report written to %s\n", reportOutput)
	return nil
}
