// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package synctrack

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a sync event.
type EventType string

const (
	// EventStarted is published when a session is first tracked or
	// re-tracked.
	EventStarted EventType = "started"

	// EventProgress is published on sync progress updates.
	EventProgress EventType = "progress"

	// EventCompleted is published when a session completes a sync cycle.
	EventCompleted EventType = "completed"

	// EventError is published when a session enters the error status.
	EventError EventType = "error"

	// EventPaused is published when a session is paused.
	EventPaused EventType = "paused"

	// EventResumed is published when a paused session resumes.
	EventResumed EventType = "resumed"

	// EventAny is the wildcard subscription type. It is never the type
	// of a published event.
	EventAny EventType = "*"
)

// Event is one entry in the tracker's bounded event log. Events are also
// delivered to subscribers.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

func newEvent(eventType EventType, sessionID string, data map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// subscriberBuffer is the channel depth for each subscriber. A subscriber
// that falls further behind than this loses events rather than blocking
// tracker mutations.
const subscriberBuffer = 64

type subscriber struct {
	ch    chan Event
	types map[EventType]bool
}

// registry delivers published events to subscribers. Delivery is
// best-effort: a full subscriber channel drops the event for that
// subscriber only.
type registry struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func newRegistry() *registry {
	return &registry{subs: make(map[*subscriber]struct{})}
}

// subscribe registers interest in the given event types (EventAny for
// all). The returned cancel func removes the subscription and closes the
// channel; it is safe to call more than once.
func (r *registry) subscribe(types ...EventType) (<-chan Event, func()) {
	sub := &subscriber{
		ch:    make(chan Event, subscriberBuffer),
		types: make(map[EventType]bool, len(types)),
	}
	for _, t := range types {
		sub.types[t] = true
	}
	if len(types) == 0 {
		sub.types[EventAny] = true
	}

	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, sub)
			r.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

func (r *registry) publish(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sub := range r.subs {
		if !sub.types[EventAny] && !sub.types[event.Type] {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Subscriber is not keeping up; drop rather than stall
			// the tracker.
		}
	}
}

func (r *registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sub := range r.subs {
		close(sub.ch)
		delete(r.subs, sub)
	}
}
