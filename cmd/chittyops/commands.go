// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import "github.com/spf13/cobra"

// --- Global Command Variables ---
var (
	configPath string
	verbose    bool

	// validate flags
	validateTimeoutMS int
	validateSkipCache bool

	// health flags
	healthJSON bool

	// mint flags
	mintHard bool

	// report flags
	reportOutput string

	// analyze flags
	analyzeModels []string

	rootCmd = &cobra.Command{
		Use:   "chittyops",
		Short: "Operations toolkit for the ChittyOS evidence platform",
		Long: `chittyops validates the local environment, tracks schema sync
sessions, and drives evidence intake through ChittyID, ChittyLedger
and ChittyChain.`,
	}

	validateCmd = &cobra.Command{
		Use:     "validate",
		Aliases: []string{"check"},
		Short:   "Run the environment compliance checks",
		RunE:    runValidate, // Defined in cmd_validate.go
	}

	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check the health of the ChittyOS platform services",
		RunE:  runHealth, // Defined in cmd_health.go
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show version and platform information",
		Run:   runStatus, // Defined in cmd_status.go
	}

	// --- Evidence ---
	evidenceCmd = &cobra.Command{
		Use:   "evidence",
		Short: "Ingest, mint and report on case evidence",
	}
	evidenceMintCmd = &cobra.Command{
		Use:   "mint [file...]",
		Short: "Ingest files, mint ChittyIDs and record ledger entries",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runEvidenceMint, // Defined in cmd_evidence.go
	}
	evidenceScanCmd = &cobra.Command{
		Use:   "scan [directory]",
		Short: "Scan a directory for evidence files and score relevance",
		Args:  cobra.ExactArgs(1),
		RunE:  runEvidenceScan, // Defined in cmd_evidence.go
	}
	evidenceReportCmd = &cobra.Command{
		Use:   "report [directory]",
		Short: "Generate a markdown evidence report for a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runEvidenceReport, // Defined in cmd_evidence.go
	}
	evidenceWatchCmd = &cobra.Command{
		Use:   "watch [directory...]",
		Short: "Watch directories and mint evidence files as they arrive",
		RunE:  runEvidenceWatch, // Defined in cmd_evidence.go
	}

	// --- Analysis ---
	analyzeCmd = &cobra.Command{
		Use:   "analyze [prompt...]",
		Short: "Run an AI analysis over case material and store the session",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAnalyze, // Defined in cmd_analyze.go
	}
	analyzeCompareCmd = &cobra.Command{
		Use:   "compare [prompt...]",
		Short: "Run the same prompt against several models and store each run",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAnalyzeCompare, // Defined in cmd_analyze.go
	}

	gatewayCmd = &cobra.Command{
		Use:   "gateway",
		Short: "Run the gateway service in the foreground",
		RunE:  runGateway, // Defined in cmd_gateway.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to the config file (default ~/.chittyops/chittyops.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug output")

	validateCmd.Flags().IntVar(&validateTimeoutMS, "timeout-ms", 5000,
		"per-check timeout in milliseconds")
	validateCmd.Flags().BoolVar(&validateSkipCache, "skip-cache", false,
		"ignore cached results and probe everything fresh")

	healthCmd.Flags().BoolVar(&healthJSON, "json", false,
		"emit the health report as JSON")

	evidenceMintCmd.Flags().BoolVar(&mintHard, "hard", false,
		"anchor the ledger entries on ChittyChain (requires a chain-enabled ledger)")
	evidenceWatchCmd.Flags().BoolVar(&mintHard, "hard", false,
		"anchor the ledger entries on ChittyChain (requires a chain-enabled ledger)")
	evidenceReportCmd.Flags().StringVarP(&reportOutput, "output", "o", "",
		"write the report to a file instead of stdout")

	analyzeCompareCmd.Flags().StringSliceVar(&analyzeModels, "models", nil,
		"models to compare (at least two)")
	analyzeCompareCmd.MarkFlagRequired("models")

	evidenceCmd.AddCommand(evidenceMintCmd, evidenceScanCmd, evidenceReportCmd, evidenceWatchCmd)
	analyzeCmd.AddCommand(analyzeCompareCmd)
	rootCmd.AddCommand(validateCmd, healthCmd, statusCmd, evidenceCmd, analyzeCmd, gatewayCmd)
}
