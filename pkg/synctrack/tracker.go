// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package synctrack tracks schema sync sessions between a project and
// the ChittyOS services.
//
// A Tracker is an explicit dependency: construct one with New, pass it
// where it is needed, and Close it on shutdown. All methods are safe for
// concurrent use. Every mutation appends to a bounded in-memory event
// log and publishes a typed Event to subscribers.
//
// Mutations addressed to an unknown session id are silent no-ops and
// reads return ok=false; callers that care should check GetSessionStatus
// first.
package synctrack

import (
	"log/slog"
	"sync"
	"time"
)

// SessionStatus is the lifecycle state of a sync session.
type SessionStatus string

const (
	// StatusIdle means the session is tracked and ready to sync.
	StatusIdle SessionStatus = "idle"

	// StatusSyncing means a sync cycle is in flight.
	StatusSyncing SessionStatus = "syncing"

	// StatusError means the last sync cycle failed.
	StatusError SessionStatus = "error"

	// StatusPaused means syncing is suspended until ResumeSession.
	StatusPaused SessionStatus = "paused"
)

// SessionConfig is the immutable part of a session, set by TrackSession.
type SessionConfig struct {
	SessionID string        `json:"session_id"`
	ProjectID string        `json:"project_id"`
	Interval  time.Duration `json:"interval"`
	Endpoints []string      `json:"endpoints,omitempty"`

	// AuthToken is carried for the sync worker but never logged.
	AuthToken string `json:"-"`
}

// ProjectState is the synced view of the project's schema and database.
type ProjectState struct {
	SchemaVersion  string `json:"schema_version,omitempty"`
	SchemaChecksum string `json:"schema_checksum,omitempty"`
	SchemaModified bool   `json:"schema_modified"`
	DatabaseURL    string `json:"database_url,omitempty"`
	BackupURL      string `json:"backup_url,omitempty"`

	LedgerReachable bool `json:"ledger_reachable"`
	ChainReachable  bool `json:"chain_reachable"`
}

// StateDelta is a partial project-state update for UpdateProjectState.
// Nil fields leave the stored value unchanged.
type StateDelta struct {
	SchemaVersion   *string `json:"schema_version,omitempty"`
	SchemaChecksum  *string `json:"schema_checksum,omitempty"`
	SchemaModified  *bool   `json:"schema_modified,omitempty"`
	DatabaseURL     *string `json:"database_url,omitempty"`
	BackupURL       *string `json:"backup_url,omitempty"`
	LedgerReachable *bool   `json:"ledger_reachable,omitempty"`
	ChainReachable  *bool   `json:"chain_reachable,omitempty"`
}

// apply merges the delta into state and returns the applied fields as
// event data.
func (d StateDelta) apply(state *ProjectState) map[string]any {
	changed := make(map[string]any)
	if d.SchemaVersion != nil {
		state.SchemaVersion = *d.SchemaVersion
		changed["schema_version"] = *d.SchemaVersion
	}
	if d.SchemaChecksum != nil {
		state.SchemaChecksum = *d.SchemaChecksum
		changed["schema_checksum"] = *d.SchemaChecksum
	}
	if d.SchemaModified != nil {
		state.SchemaModified = *d.SchemaModified
		changed["schema_modified"] = *d.SchemaModified
	}
	if d.DatabaseURL != nil {
		state.DatabaseURL = *d.DatabaseURL
		changed["database_url"] = *d.DatabaseURL
	}
	if d.BackupURL != nil {
		state.BackupURL = *d.BackupURL
		changed["backup_url"] = *d.BackupURL
	}
	if d.LedgerReachable != nil {
		state.LedgerReachable = *d.LedgerReachable
		changed["ledger_reachable"] = *d.LedgerReachable
	}
	if d.ChainReachable != nil {
		state.ChainReachable = *d.ChainReachable
		changed["chain_reachable"] = *d.ChainReachable
	}
	return changed
}

// Session is a snapshot of one tracked sync session. Values returned by
// the tracker are copies; mutating them does not affect tracker state.
type Session struct {
	Config SessionConfig `json:"config"`
	Status SessionStatus `json:"status"`
	State  ProjectState  `json:"state"`

	// LastSync is the wall time of the last sync activity: any status
	// change, progress update or completion refreshes it. Nil until the
	// first such update.
	LastSync *time.Time `json:"last_sync,omitempty"`

	// Error holds the failure text while Status is StatusError.
	Error string `json:"error,omitempty"`

	Conflicts      int `json:"conflicts"`
	PendingChanges int `json:"pending_changes"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DefaultEventCapacity bounds the in-memory event log. When full, the
// oldest event is dropped.
const DefaultEventCapacity = 1000

// DefaultCleanupAge is the Cleanup cutoff when the caller passes zero.
const DefaultCleanupAge = 24 * time.Hour

// Tracker tracks sync sessions and their event history.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	events   []Event
	capacity int
	registry *registry
	logger   *slog.Logger
	closed   bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithEventCapacity overrides the event log bound. Values below 1 keep
// the default.
func WithEventCapacity(n int) Option {
	return func(t *Tracker) {
		if n >= 1 {
			t.capacity = n
		}
	}
}

// WithLogger sets the tracker's logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New constructs an empty Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		sessions: make(map[string]*Session),
		capacity: DefaultEventCapacity,
		registry: newRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Close tears down the tracker: all subscriber channels are closed and
// further publishes are suppressed. Session and event state remains
// readable. Safe to call more than once.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()
	t.registry.closeAll()
}

// Subscribe registers for events of the given types, or all events when
// called with no types (or with EventAny). The cancel func releases the
// subscription.
func (t *Tracker) Subscribe(types ...EventType) (<-chan Event, func()) {
	return t.registry.subscribe(types...)
}

// TrackSession registers a session with its initial project state.
// Tracking an already-tracked id is a full reset: prior status, state,
// counters and timestamps are discarded and the session starts over as
// idle.
func (t *Tracker) TrackSession(config SessionConfig, initialState ProjectState) {
	t.mu.Lock()
	t.sessions[config.SessionID] = &Session{
		Config:    config,
		Status:    StatusIdle,
		State:     initialState,
		StartedAt: time.Now(),
	}
	event := t.appendLocked(EventStarted, config.SessionID, map[string]any{
		"config": config,
		"state":  initialState,
	})
	t.mu.Unlock()

	t.logger.Info("sync session tracked",
		"session_id", config.SessionID,
		"project_id", config.ProjectID)
	t.publish(event)
}

// UpdateSessionStatus transitions a session's status and refreshes
// LastSync. Setting StatusError records errText; any other status
// clears it.
func (t *Tracker) UpdateSessionStatus(id string, status SessionStatus, errText string) {
	t.mu.Lock()
	session, ok := t.sessions[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	now := time.Now()
	session.Status = status
	session.LastSync = &now
	if status == StatusError {
		session.Error = errText
	} else {
		session.Error = ""
	}

	eventType := EventProgress
	data := map[string]any{"status": string(status)}
	if status == StatusError {
		eventType = EventError
		data["error"] = errText
	}
	event := t.appendLocked(eventType, id, data)
	t.mu.Unlock()

	t.publish(event)
}

// UpdateSyncProgress records mid-cycle progress: pending change count
// and conflicts seen so far. Refreshes LastSync.
func (t *Tracker) UpdateSyncProgress(id string, pending, conflicts int) {
	t.mu.Lock()
	session, ok := t.sessions[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	now := time.Now()
	session.Status = StatusSyncing
	session.LastSync = &now
	session.PendingChanges = pending
	session.Conflicts = conflicts
	event := t.appendLocked(EventProgress, id, map[string]any{
		"pending":   pending,
		"conflicts": conflicts,
	})
	t.mu.Unlock()

	t.publish(event)
}

// UpdateProjectState shallow-merges a partial state update into the
// session's stored state. The progress event carries only the fields
// the delta actually set, not the merged state.
func (t *Tracker) UpdateProjectState(id string, delta StateDelta) {
	t.mu.Lock()
	session, ok := t.sessions[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	changed := delta.apply(&session.State)
	event := t.appendLocked(EventProgress, id, changed)
	t.mu.Unlock()

	t.publish(event)
}

// CompleteSession marks a sync cycle done: status idle, lastSync and
// completedAt set to now, pending changes cleared.
func (t *Tracker) CompleteSession(id string) {
	t.mu.Lock()
	session, ok := t.sessions[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	now := time.Now()
	session.Status = StatusIdle
	session.LastSync = &now
	session.CompletedAt = &now
	session.PendingChanges = 0
	session.Error = ""
	event := t.appendLocked(EventCompleted, id, map[string]any{
		"conflicts": session.Conflicts,
	})
	t.mu.Unlock()

	t.publish(event)
}

// PauseSession suspends a session.
func (t *Tracker) PauseSession(id string) {
	t.transition(id, StatusPaused, EventPaused)
}

// ResumeSession returns a paused session to idle.
func (t *Tracker) ResumeSession(id string) {
	t.transition(id, StatusIdle, EventResumed)
}

func (t *Tracker) transition(id string, status SessionStatus, eventType EventType) {
	t.mu.Lock()
	session, ok := t.sessions[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	session.Status = status
	session.Error = ""
	event := t.appendLocked(eventType, id, nil)
	t.mu.Unlock()

	t.publish(event)
}

// RemoveSession forgets a session and reports whether it existed. Its
// events remain in the log until pruned by Cleanup.
func (t *Tracker) RemoveSession(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sessions[id]
	delete(t.sessions, id)
	return ok
}

// GetSessionStatus returns a snapshot of one session.
func (t *Tracker) GetSessionStatus(id string) (Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	session, ok := t.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *session, true
}

// GetActiveSessions returns snapshots of sessions that are syncing or
// idle. Idle counts as active because the session is tracked and ready;
// only error and paused sessions are excluded.
func (t *Tracker) GetActiveSessions() []Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var active []Session
	for _, session := range t.sessions {
		if session.Status == StatusSyncing || session.Status == StatusIdle {
			active = append(active, *session)
		}
	}
	return active
}

// GetRecentEvents returns the newest events, newest first. A limit below
// 1 defaults to 50.
func (t *Tracker) GetRecentEvents(limit int) []Event {
	if limit < 1 {
		limit = 50
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return newestFirst(t.events, func(Event) bool { return true }, limit)
}

// GetSessionEvents returns the newest events for one session, newest
// first. A limit below 1 defaults to 20.
func (t *Tracker) GetSessionEvents(id string, limit int) []Event {
	if limit < 1 {
		limit = 20
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return newestFirst(t.events, func(e Event) bool { return e.SessionID == id }, limit)
}

// Cleanup removes sessions whose last sync activity predates the cutoff
// and prunes log events older than the cutoff. Sessions that have never
// had any sync activity are kept regardless of age. A zero maxAge means
// DefaultCleanupAge. Returns the number of sessions removed.
func (t *Tracker) Cleanup(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = DefaultCleanupAge
	}
	cutoff := time.Now().Add(-maxAge)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, session := range t.sessions {
		if session.LastSync != nil && session.LastSync.Before(cutoff) {
			delete(t.sessions, id)
			removed++
		}
	}

	kept := t.events[:0]
	for _, event := range t.events {
		if !event.Timestamp.Before(cutoff) {
			kept = append(kept, event)
		}
	}
	t.events = kept

	if removed > 0 {
		t.logger.Info("stale sync sessions removed", "count", removed)
	}
	return removed
}

// appendLocked appends an event to the bounded log. Caller holds t.mu.
func (t *Tracker) appendLocked(eventType EventType, sessionID string, data map[string]any) Event {
	event := newEvent(eventType, sessionID, data)
	if len(t.events) >= t.capacity {
		t.events = append(t.events[1:], event)
	} else {
		t.events = append(t.events, event)
	}
	return event
}

func (t *Tracker) publish(event Event) {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return
	}
	t.registry.publish(event)
}

func newestFirst(events []Event, match func(Event) bool, limit int) []Event {
	var out []Event
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		if match(events[i]) {
			out = append(out, events[i])
		}
	}
	return out
}
