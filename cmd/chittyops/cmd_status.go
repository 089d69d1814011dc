// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Overridden at build time:
//
//	go build -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "unknown"
)

func runStatus(cmd *cobra.Command, args []string) {
	fmt.Printf("chittyops %s (%s)\n", version, commit)
	fmt.Printf("go:       %s\n", runtime.Version())
	fmt.Printf("platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("id url:   %s\n", cfg.ID.URL)
	if cfg.Ledger.URL != "" {
		chain := "chain disabled"
		if cfg.Ledger.ChainEnabled {
			chain = "chain enabled"
		}
		fmt.Printf("ledger:   %s (%s)\n", cfg.Ledger.URL, chain)
	}
}
