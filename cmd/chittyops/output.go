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

	"github.com/mattn/go-isatty"
)

// ANSI colors, emitted only when stdout is a terminal.
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBold   = "\033[1m"
)

var colorEnabled = isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("NO_COLOR") == ""

func colorize(color, s string) string {
	if !colorEnabled {
		return s
	}
	return color + s + ansiReset
}

func passGlyph() string { return colorize(ansiGreen, "✓") }
func failGlyph() string { return colorize(ansiRed, "✗") }
func warnGlyph() string { return colorize(ansiYellow, "⚠") }

func printHeader(title string) {
	fmt.Println(colorize(ansiBold, "┌─ "+title))
}

func printFooter(line string) {
	fmt.Println(colorize(ansiBold, "└─ ") + line)
}

func printRow(glyph, text string) {
	fmt.Printf("│ %s %s\n", glyph, text)
}
