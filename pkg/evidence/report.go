// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Relevance bands used by the report: 8-10 is high priority, 5-7 is
// medium, below 5 is omitted.
const (
	highPriorityMin   = 8
	mediumPriorityMin = 5
)

// Report renders a markdown evidence summary grouped by priority band,
// highest relevance first within each band.
func Report(caseRef string, records []Record) string {
	var high, medium []Record
	for _, r := range records {
		switch {
		case r.Relevance >= highPriorityMin:
			high = append(high, r)
		case r.Relevance >= mediumPriorityMin:
			medium = append(medium, r)
		}
	}
	byRelevance := func(rs []Record) {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Relevance > rs[j].Relevance })
	}
	byRelevance(high)
	byRelevance(medium)

	var b strings.Builder
	fmt.Fprintf(&b, "# Evidence Report: %s\n\n", caseRef)
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "Total records: %d (high: %d, medium: %d)\n\n",
		len(records), len(high), len(medium))

	writeGroup(&b, "High Priority (relevance 8-10)", high)
	writeGroup(&b, "Medium Priority (relevance 5-7)", medium)
	return b.String()
}

func writeGroup(b *strings.Builder, title string, records []Record) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if len(records) == 0 {
		b.WriteString("_none_\n\n")
		return
	}
	for _, r := range records {
		fmt.Fprintf(b, "- **%s** (%s, relevance %d)\n", r.Path, r.Type, r.Relevance)
		fmt.Fprintf(b, "  - sha256: `%s`\n", r.SHA256)
		if r.ChittyID != "" {
			fmt.Fprintf(b, "  - chitty_id: `%s`\n", r.ChittyID)
		}
		if r.Type == DocEmail && r.Subject != "" {
			fmt.Fprintf(b, "  - subject: %s (from %s)\n", r.Subject, r.From)
		}
	}
	b.WriteString("\n")
}
