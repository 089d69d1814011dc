// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chittyos/chittyops/pkg/chittyos"
	"github.com/chittyos/chittyops/pkg/synctrack"
)

func (s *Service) registerRoutes(engine *gin.Engine) {
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry,
		promhttp.HandlerOpts{})))

	v1 := engine.Group("/v1")
	v1.GET("/health", s.handleHealth)

	sync := v1.Group("/sync")
	sync.GET("/sessions", s.handleListSessions)
	sync.GET("/sessions/:id", s.handleGetSession)
	sync.POST("/sessions", s.handleTrackSession)
	sync.GET("/metrics", s.handleSyncMetrics)
	sync.GET("/events", s.handleRecentEvents)
	sync.GET("/stream", s.handleEventStream)
}

func (s *Service) handleHealth(c *gin.Context) {
	report := s.config.Health(c.Request.Context())
	status := http.StatusOK
	if report.Status == chittyos.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func (s *Service) handleListSessions(c *gin.Context) {
	sessions := s.config.Tracker.GetActiveSessions()
	if sessions == nil {
		sessions = []synctrack.Session{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Service) handleGetSession(c *gin.Context) {
	session, ok := s.config.Tracker.GetSessionStatus(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, session)
}

type trackSessionRequest struct {
	SessionID  string                 `json:"session_id" binding:"required"`
	ProjectID  string                 `json:"project_id" binding:"required"`
	IntervalMS int                    `json:"interval_ms"`
	Endpoints  []string               `json:"endpoints"`
	State      synctrack.ProjectState `json:"state"`
}

func (s *Service) handleTrackSession(c *gin.Context) {
	var req trackSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.config.Tracker.TrackSession(synctrack.SessionConfig{
		SessionID: req.SessionID,
		ProjectID: req.ProjectID,
		Interval:  time.Duration(req.IntervalMS) * time.Millisecond,
		Endpoints: req.Endpoints,
	}, req.State)
	s.metrics.sessionsTracked.Inc()
	c.JSON(http.StatusCreated, gin.H{"session_id": req.SessionID})
}

func (s *Service) handleSyncMetrics(c *gin.Context) {
	m := s.config.Tracker.GetMetrics()
	s.metrics.activeSessions.Set(float64(m.ActiveSessions))
	c.JSON(http.StatusOK, m)
}

func (s *Service) handleRecentEvents(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}
	events := s.config.Tracker.GetRecentEvents(limit)
	if events == nil {
		events = []synctrack.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
