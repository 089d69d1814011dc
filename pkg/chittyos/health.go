// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chittyos

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthStatus is the reduced health of the platform.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Health slots, in report order.
const (
	SlotStorage = "storage"
	SlotLedger  = "ledger"
	SlotVector  = "vector"
	SlotGateway = "gateway"
	SlotMCP     = "mcp"
)

// SlotOrder is the canonical slot ordering for display.
var SlotOrder = []string{SlotStorage, SlotLedger, SlotVector, SlotGateway, SlotMCP}

// HealthReport is the outcome of one health check.
type HealthReport struct {
	Status    HealthStatus    `json:"status"`
	Slots     map[string]bool `json:"slots"`
	CheckedAt time.Time       `json:"checked_at"`
}

// PerformHealthCheck probes the five platform slots concurrently. Each
// probe fails independently: an error or an unconfigured collaborator
// makes that slot false and never aborts the others.
//
// Reduction: every slot true is healthy; fewer than half true is
// unhealthy; anything between is degraded. Unconfigured optional slots
// count against the denominator, so a minimal deployment reports
// degraded rather than pretending to be whole.
func (c *Client) PerformHealthCheck(ctx context.Context) HealthReport {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	outcomes := make([]bool, len(SlotOrder))
	indexOf := make(map[string]int, len(SlotOrder))
	for i, slot := range SlotOrder {
		indexOf[slot] = i
	}

	var group errgroup.Group
	probe := func(slot string, fn func() bool) {
		i := indexOf[slot]
		group.Go(func() error {
			outcomes[i] = fn()
			return nil
		})
	}

	probe(SlotStorage, func() bool {
		return c.store != nil && c.store.Healthy()
	})
	probe(SlotLedger, func() bool {
		return c.ledger.Configured() && c.ledger.Ping(probeCtx) == nil
	})
	probe(SlotVector, func() bool {
		return c.vector.Configured() && c.vector.Ping(probeCtx) == nil
	})
	probe(SlotGateway, func() bool {
		return c.gateway != nil && c.gateway.Healthy()
	})
	probe(SlotMCP, func() bool {
		return c.tools != nil && c.tools.Connected()
	})
	group.Wait()

	results := make(map[string]bool, len(SlotOrder))
	for i, slot := range SlotOrder {
		results[slot] = outcomes[i]
	}

	report := HealthReport{
		Status:    reduceHealth(results),
		Slots:     results,
		CheckedAt: time.Now(),
	}
	c.logger.Debug("health check complete", "status", string(report.Status))
	return report
}

func reduceHealth(slots map[string]bool) HealthStatus {
	healthy := 0
	for _, ok := range slots {
		if ok {
			healthy++
		}
	}
	switch {
	case healthy == len(slots):
		return HealthHealthy
	case healthy*2 < len(slots):
		return HealthUnhealthy
	default:
		return HealthDegraded
	}
}
