// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chittyos

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceHealth(t *testing.T) {
	tests := []struct {
		name string
		up   int
		want HealthStatus
	}{
		{"all five up", 5, HealthHealthy},
		{"four of five is degraded", 4, HealthDegraded},
		{"three of five is degraded", 3, HealthDegraded},
		{"two of five is unhealthy", 2, HealthUnhealthy},
		{"none up", 0, HealthUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := map[string]bool{}
			for i, slot := range SlotOrder {
				slots[slot] = i < tt.up
			}
			assert.Equal(t, tt.want, reduceHealth(slots))
		})
	}
}

func TestPerformHealthCheckAllUp(t *testing.T) {
	store, err := OpenReceiptStore(StorageConfig{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	client := testClient(t,
		WithReceiptStore(store),
		WithGateway(&MockGateway{started: true}),
		WithToolService(&MockToolService{connected: true}),
	)

	report := client.PerformHealthCheck(context.Background())
	assert.Equal(t, HealthHealthy, report.Status)
	for _, slot := range SlotOrder {
		assert.True(t, report.Slots[slot], "slot %s", slot)
	}
	assert.False(t, report.CheckedAt.IsZero())
}

func TestPerformHealthCheckUnconfiguredSlotsCountFalse(t *testing.T) {
	// Only ledger and vector configured: 2 of 5 slots up, unhealthy.
	client := testClient(t)

	report := client.PerformHealthCheck(context.Background())
	assert.Equal(t, HealthUnhealthy, report.Status)
	assert.True(t, report.Slots[SlotLedger])
	assert.True(t, report.Slots[SlotVector])
	assert.False(t, report.Slots[SlotStorage])
	assert.False(t, report.Slots[SlotGateway])
	assert.False(t, report.Slots[SlotMCP])
}

func TestPerformHealthCheckProbeFailureIsolated(t *testing.T) {
	// Four slots up, ledger probe fails: degraded, others unaffected.
	store, err := OpenReceiptStore(StorageConfig{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	client := testClient(t,
		WithReceiptStore(store),
		WithGateway(&MockGateway{started: true}),
		WithToolService(&MockToolService{connected: true}),
		WithLedgerService(&MockLedgerService{PingErr: errors.New("connection refused")}),
	)

	report := client.PerformHealthCheck(context.Background())
	assert.Equal(t, HealthDegraded, report.Status)
	assert.False(t, report.Slots[SlotLedger])
	assert.True(t, report.Slots[SlotVector])
	assert.True(t, report.Slots[SlotStorage])
}
