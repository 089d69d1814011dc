// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gateway

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chittyos/chittyops/pkg/synctrack"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway binds to loopback or an internal network; origin
	// enforcement belongs to the fronting proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// handleEventStream upgrades to a websocket and forwards sync events as
// JSON. Event types can be filtered with repeated ?type= parameters;
// with none, all events are streamed.
func (s *Service) handleEventStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.config.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	clientID := uuid.NewString()
	s.metrics.streamClients.Inc()
	defer s.metrics.streamClients.Dec()
	defer conn.Close()

	var types []synctrack.EventType
	for _, raw := range c.QueryArray("type") {
		types = append(types, synctrack.EventType(raw))
	}
	events, cancel := s.config.Tracker.Subscribe(types...)
	defer cancel()

	s.config.Logger.Info("stream client connected",
		"client_id", clientID,
		"types", len(types))

	// Reader goroutine: we expect no client messages, but reading is
	// what surfaces close frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	for {
		select {
		case <-done:
			return
		case <-pinger.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "tracker closed"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				s.config.Logger.Debug("stream client dropped",
					"client_id", clientID,
					"error", err)
				return
			}
		}
	}
}
