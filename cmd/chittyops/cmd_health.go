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

	"github.com/spf13/cobra"

	"github.com/chittyos/chittyops/pkg/chittyos"
)

func runHealth(cmd *cobra.Command, args []string) error {
	client, err := chittyos.NewClient(cfg, logger.Slog())
	if err != nil {
		return err
	}
	defer client.Close(cmd.Context())

	report := client.PerformHealthCheck(cmd.Context())

	if healthJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		printHealthReport(report)
	}

	if report.Status == chittyos.HealthUnhealthy {
		os.Exit(1)
	}
	return nil
}

func printHealthReport(report chittyos.HealthReport) {
	printHeader("Platform Health")
	for _, slot := range chittyos.SlotOrder {
		glyph := failGlyph()
		state := "down"
		if report.Slots[slot] {
			glyph = passGlyph()
			state = "up"
		}
		printRow(glyph, fmt.Sprintf("%-10s %s", slot, state))
	}

	var line string
	switch report.Status {
	case chittyos.HealthHealthy:
		line = colorize(ansiGreen, "healthy")
	case chittyos.HealthDegraded:
		line = warnGlyph() + " " + colorize(ansiYellow, "degraded")
	default:
		line = colorize(ansiRed, "unhealthy")
	}
	printFooter(line)
}
