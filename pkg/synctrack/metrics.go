// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package synctrack

import "time"

// Metrics is an aggregate snapshot across all tracked sessions.
type Metrics struct {
	TotalSessions  int `json:"total_sessions"`
	ActiveSessions int `json:"active_sessions"`
	ErrorSessions  int `json:"error_sessions"`
	PausedSessions int `json:"paused_sessions"`

	TotalConflicts      int `json:"total_conflicts"`
	TotalPendingChanges int `json:"total_pending_changes"`

	// AverageSyncDuration is the mean of (completedAt - startedAt)
	// across sessions that have completed at least one cycle. Zero when
	// none have.
	AverageSyncDuration time.Duration `json:"average_sync_duration"`

	// LastSyncTime is the most recent sync activity across all
	// sessions; zero when none has any.
	LastSyncTime time.Time `json:"last_sync_time"`
}

// GetMetrics computes aggregate metrics over the current sessions.
func (t *Tracker) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var m Metrics
	var totalDuration time.Duration
	completed := 0

	for _, session := range t.sessions {
		m.TotalSessions++
		switch session.Status {
		case StatusSyncing, StatusIdle:
			m.ActiveSessions++
		case StatusError:
			m.ErrorSessions++
		case StatusPaused:
			m.PausedSessions++
		}
		m.TotalConflicts += session.Conflicts
		m.TotalPendingChanges += session.PendingChanges

		if session.CompletedAt != nil {
			totalDuration += session.CompletedAt.Sub(session.StartedAt)
			completed++
		}
		if session.LastSync != nil && session.LastSync.After(m.LastSyncTime) {
			m.LastSyncTime = *session.LastSync
		}
	}

	if completed > 0 {
		m.AverageSyncDuration = totalDuration / time.Duration(completed)
	}
	return m
}
