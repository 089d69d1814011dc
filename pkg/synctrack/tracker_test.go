// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package synctrack

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func testConfig(id string) SessionConfig {
	return SessionConfig{
		SessionID: id,
		ProjectID: "proj-1",
		Interval:  time.Minute,
		Endpoints: []string{"https://ledger.chitty.cc"},
	}
}

func TestTrackSession(t *testing.T) {
	tracker := New()
	defer tracker.Close()

	tracker.TrackSession(testConfig("s1"), ProjectState{})

	session, ok := tracker.GetSessionStatus("s1")
	require.True(t, ok)
	assert.Equal(t, StatusIdle, session.Status)
	assert.Equal(t, "proj-1", session.Config.ProjectID)
	assert.Nil(t, session.LastSync)
	assert.False(t, session.StartedAt.IsZero())
}

func TestTrackSessionResetsExisting(t *testing.T) {
	tracker := New()
	defer tracker.Close()

	tracker.TrackSession(testConfig("s1"), ProjectState{})
	tracker.UpdateSyncProgress("s1", 7, 2)
	tracker.CompleteSession("s1")

	// Re-tracking the same id starts the session over.
	tracker.TrackSession(testConfig("s1"), ProjectState{})

	session, ok := tracker.GetSessionStatus("s1")
	require.True(t, ok)
	assert.Equal(t, StatusIdle, session.Status)
	assert.Nil(t, session.LastSync)
	assert.Nil(t, session.CompletedAt)
	assert.Zero(t, session.Conflicts)
	assert.Zero(t, session.PendingChanges)
}

func TestUnknownSessionMutationsAreNoOps(t *testing.T) {
	tracker := New()
	defer tracker.Close()

	tracker.UpdateSessionStatus("ghost", StatusSyncing, "")
	tracker.UpdateSyncProgress("ghost", 1, 1)
	tracker.UpdateProjectState("ghost", StateDelta{SchemaVersion: strPtr("v2")})
	tracker.CompleteSession("ghost")
	tracker.PauseSession("ghost")
	tracker.ResumeSession("ghost")
	tracker.RemoveSession("ghost")

	_, ok := tracker.GetSessionStatus("ghost")
	assert.False(t, ok)
	assert.Zero(t, tracker.GetMetrics().TotalSessions)
	assert.Empty(t, tracker.GetRecentEvents(0))
}

func TestStatusTransitions(t *testing.T) {
	tracker := New()
	defer tracker.Close()
	tracker.TrackSession(testConfig("s1"), ProjectState{})

	tracker.UpdateSessionStatus("s1", StatusError, "schema push rejected")
	session, _ := tracker.GetSessionStatus("s1")
	assert.Equal(t, StatusError, session.Status)
	assert.Equal(t, "schema push rejected", session.Error)

	// Leaving the error status clears the error text.
	tracker.UpdateSessionStatus("s1", StatusSyncing, "")
	session, _ = tracker.GetSessionStatus("s1")
	assert.Equal(t, StatusSyncing, session.Status)
	assert.Empty(t, session.Error)

	tracker.PauseSession("s1")
	session, _ = tracker.GetSessionStatus("s1")
	assert.Equal(t, StatusPaused, session.Status)

	tracker.ResumeSession("s1")
	session, _ = tracker.GetSessionStatus("s1")
	assert.Equal(t, StatusIdle, session.Status)
}

func TestCompleteSession(t *testing.T) {
	tracker := New()
	defer tracker.Close()
	tracker.TrackSession(testConfig("s1"), ProjectState{})
	tracker.UpdateSyncProgress("s1", 12, 3)

	tracker.CompleteSession("s1")

	session, _ := tracker.GetSessionStatus("s1")
	assert.Equal(t, StatusIdle, session.Status)
	require.NotNil(t, session.LastSync)
	require.NotNil(t, session.CompletedAt)
	assert.Zero(t, session.PendingChanges, "pending changes clear on completion")
	assert.Equal(t, 3, session.Conflicts, "conflicts persist as a record of the cycle")
}

func TestMutationsRefreshLastSync(t *testing.T) {
	tracker := New()
	defer tracker.Close()

	tracker.TrackSession(testConfig("s1"), ProjectState{})
	tracker.UpdateSessionStatus("s1", StatusSyncing, "")
	session, _ := tracker.GetSessionStatus("s1")
	require.NotNil(t, session.LastSync, "status change must refresh lastSync")

	tracker.TrackSession(testConfig("s2"), ProjectState{})
	tracker.UpdateSyncProgress("s2", 4, 0)
	session, _ = tracker.GetSessionStatus("s2")
	require.NotNil(t, session.LastSync, "progress must refresh lastSync")
}

func TestCleanupReapsErroredSessions(t *testing.T) {
	tracker := New()
	defer tracker.Close()

	tracker.TrackSession(testConfig("s1"), ProjectState{})
	tracker.UpdateSessionStatus("s1", StatusError, "ledger unreachable")

	old := time.Now().Add(-72 * time.Hour)
	tracker.mu.Lock()
	tracker.sessions["s1"].LastSync = &old
	tracker.mu.Unlock()

	removed := tracker.Cleanup(24 * time.Hour)
	assert.Equal(t, 1, removed, "a session that errored and never completed still ages out")
	_, ok := tracker.GetSessionStatus("s1")
	assert.False(t, ok)
}

func TestTrackSessionCarriesInitialState(t *testing.T) {
	tracker := New()
	defer tracker.Close()

	initial := ProjectState{
		SchemaVersion:   "v3",
		DatabaseURL:     "postgres://primary",
		LedgerReachable: true,
	}
	tracker.TrackSession(testConfig("s1"), initial)

	session, ok := tracker.GetSessionStatus("s1")
	require.True(t, ok)
	assert.Equal(t, initial, session.State)

	events := tracker.GetSessionEvents("s1", 0)
	require.Len(t, events, 1)
	assert.Equal(t, EventStarted, events[0].Type)
	assert.Equal(t, testConfig("s1"), events[0].Data["config"])
	assert.Equal(t, initial, events[0].Data["state"])
}

func TestUpdateProjectStateMerges(t *testing.T) {
	tracker := New()
	defer tracker.Close()
	tracker.TrackSession(testConfig("s1"), ProjectState{
		SchemaVersion:  "v1",
		SchemaChecksum: "abc",
	})

	tracker.UpdateProjectState("s1", StateDelta{
		DatabaseURL:    strPtr("postgres://replica"),
		SchemaModified: boolPtr(true),
	})

	session, _ := tracker.GetSessionStatus("s1")
	assert.Equal(t, "v1", session.State.SchemaVersion, "untouched fields survive the merge")
	assert.Equal(t, "abc", session.State.SchemaChecksum)
	assert.Equal(t, "postgres://replica", session.State.DatabaseURL)
	assert.True(t, session.State.SchemaModified)

	events := tracker.GetSessionEvents("s1", 1)
	require.Len(t, events, 1)
	assert.Equal(t, map[string]any{
		"database_url":    "postgres://replica",
		"schema_modified": true,
	}, events[0].Data, "the event carries the delta only")
}

func TestRemoveSessionReportsExistence(t *testing.T) {
	tracker := New()
	defer tracker.Close()
	tracker.TrackSession(testConfig("s1"), ProjectState{})

	assert.True(t, tracker.RemoveSession("s1"))
	assert.False(t, tracker.RemoveSession("s1"))
}

func TestGetActiveSessions(t *testing.T) {
	tracker := New()
	defer tracker.Close()

	tracker.TrackSession(testConfig("idle"), ProjectState{})
	tracker.TrackSession(testConfig("syncing"), ProjectState{})
	tracker.UpdateSessionStatus("syncing", StatusSyncing, "")
	tracker.TrackSession(testConfig("errored"), ProjectState{})
	tracker.UpdateSessionStatus("errored", StatusError, "boom")
	tracker.TrackSession(testConfig("paused"), ProjectState{})
	tracker.PauseSession("paused")

	active := tracker.GetActiveSessions()
	ids := make([]string, len(active))
	for i, s := range active {
		ids[i] = s.Config.SessionID
	}
	assert.ElementsMatch(t, []string{"idle", "syncing"}, ids)
}

func TestEventLogBounded(t *testing.T) {
	tracker := New(WithEventCapacity(10))
	defer tracker.Close()
	tracker.TrackSession(testConfig("s1"), ProjectState{})

	for i := 0; i < 20; i++ {
		tracker.UpdateSyncProgress("s1", i, 0)
	}

	events := tracker.GetRecentEvents(100)
	require.Len(t, events, 10, "log holds at most its capacity")

	// Newest first; the oldest surviving entry is progress #10.
	assert.Equal(t, 19, events[0].Data["pending"])
	assert.Equal(t, 10, events[len(events)-1].Data["pending"])
}

func TestGetSessionEvents(t *testing.T) {
	tracker := New()
	defer tracker.Close()
	tracker.TrackSession(testConfig("a"), ProjectState{})
	tracker.TrackSession(testConfig("b"), ProjectState{})
	tracker.UpdateSyncProgress("a", 1, 0)
	tracker.UpdateSyncProgress("b", 2, 0)
	tracker.CompleteSession("a")

	events := tracker.GetSessionEvents("a", 0)
	require.Len(t, events, 3) // started, progress, completed
	assert.Equal(t, EventCompleted, events[0].Type)
	for _, e := range events {
		assert.Equal(t, "a", e.SessionID)
	}

	assert.Len(t, tracker.GetSessionEvents("a", 2), 2)
}

func TestSubscribeWildcardAndTyped(t *testing.T) {
	tracker := New()
	defer tracker.Close()

	all, cancelAll := tracker.Subscribe()
	defer cancelAll()
	errsOnly, cancelErrs := tracker.Subscribe(EventError)
	defer cancelErrs()

	tracker.TrackSession(testConfig("s1"), ProjectState{})
	tracker.UpdateSessionStatus("s1", StatusError, "down")

	recv := func(ch <-chan Event) Event {
		select {
		case e := <-ch:
			return e
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
			return Event{}
		}
	}

	assert.Equal(t, EventStarted, recv(all).Type)
	assert.Equal(t, EventError, recv(all).Type)

	errEvent := recv(errsOnly)
	assert.Equal(t, EventError, errEvent.Type)
	assert.Equal(t, "down", errEvent.Data["error"])
	select {
	case e := <-errsOnly:
		t.Fatalf("typed subscriber got unexpected event %v", e.Type)
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	tracker := New()
	defer tracker.Close()

	ch, cancel := tracker.Subscribe()
	cancel()
	cancel() // second call must be safe

	tracker.TrackSession(testConfig("s1"), ProjectState{})

	if _, open := <-ch; open {
		t.Fatal("channel should be closed after cancel")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	tracker := New()
	ch, _ := tracker.Subscribe()

	tracker.Close()
	tracker.Close()

	if _, open := <-ch; open {
		t.Fatal("subscriber channel should close on tracker Close")
	}

	// Post-close mutations must not panic and state stays readable.
	tracker.TrackSession(testConfig("s1"), ProjectState{})
	_, ok := tracker.GetSessionStatus("s1")
	assert.True(t, ok)
}

func TestCleanup(t *testing.T) {
	tracker := New()
	defer tracker.Close()

	tracker.TrackSession(testConfig("stale"), ProjectState{})
	tracker.CompleteSession("stale")
	tracker.TrackSession(testConfig("never-synced"), ProjectState{})
	tracker.TrackSession(testConfig("fresh"), ProjectState{})
	tracker.CompleteSession("fresh")

	// Backdate the stale session's sync and all existing events.
	old := time.Now().Add(-48 * time.Hour)
	tracker.mu.Lock()
	tracker.sessions["stale"].LastSync = &old
	for i := range tracker.events {
		tracker.events[i].Timestamp = old
	}
	tracker.mu.Unlock()

	removed := tracker.Cleanup(0) // zero means the 24h default

	assert.Equal(t, 1, removed)
	_, ok := tracker.GetSessionStatus("stale")
	assert.False(t, ok)
	_, ok = tracker.GetSessionStatus("never-synced")
	assert.True(t, ok, "sessions with no completed sync survive cleanup")
	_, ok = tracker.GetSessionStatus("fresh")
	assert.True(t, ok)
	assert.Empty(t, tracker.GetRecentEvents(0), "backdated events pruned")
}

func TestGetMetrics(t *testing.T) {
	tracker := New()
	defer tracker.Close()

	assert.Zero(t, tracker.GetMetrics().TotalSessions)
	assert.True(t, tracker.GetMetrics().LastSyncTime.IsZero())

	tracker.TrackSession(testConfig("a"), ProjectState{})
	tracker.UpdateSyncProgress("a", 5, 1)
	tracker.CompleteSession("a")

	tracker.TrackSession(testConfig("b"), ProjectState{})
	tracker.UpdateSyncProgress("b", 3, 2)

	tracker.TrackSession(testConfig("c"), ProjectState{})
	tracker.UpdateSessionStatus("c", StatusError, "down")

	tracker.TrackSession(testConfig("d"), ProjectState{})
	tracker.PauseSession("d")

	m := tracker.GetMetrics()
	assert.Equal(t, 4, m.TotalSessions)
	assert.Equal(t, 2, m.ActiveSessions)
	assert.Equal(t, 1, m.ErrorSessions)
	assert.Equal(t, 1, m.PausedSessions)
	assert.Equal(t, 3, m.TotalConflicts) // a's conflicts persist, b has 2
	assert.Equal(t, 3, m.TotalPendingChanges)
	assert.False(t, m.LastSyncTime.IsZero())
	assert.GreaterOrEqual(t, m.AverageSyncDuration, time.Duration(0))
}

func TestConcurrentAccess(t *testing.T) {
	tracker := New()
	defer tracker.Close()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			id := fmt.Sprintf("s%d", n)
			tracker.TrackSession(testConfig(id), ProjectState{})
			for j := 0; j < 50; j++ {
				tracker.UpdateSyncProgress(id, j, 0)
				tracker.GetMetrics()
				tracker.GetRecentEvents(10)
			}
			tracker.CompleteSession(id)
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	m := tracker.GetMetrics()
	assert.Equal(t, 8, m.TotalSessions)
	assert.Equal(t, 8, m.ActiveSessions)
}
