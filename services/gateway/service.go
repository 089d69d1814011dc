// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gateway is the embedded HTTP service exposing platform health,
// sync session state and a live sync event stream.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chittyos/chittyops/pkg/chittyos"
	"github.com/chittyos/chittyops/pkg/synctrack"
)

// HealthFunc produces the platform health report served at /v1/health.
type HealthFunc func(ctx context.Context) chittyos.HealthReport

// Config configures the gateway service.
type Config struct {
	// ListenAddr is the bind address, e.g. ":8460". Required.
	ListenAddr string

	// RateLimit is requests per second per client IP. Default: 20.
	RateLimit float64

	// RateBurst is the per-client burst. Default: 40.
	RateBurst int

	// Tracker is the sync tracker served by the sync endpoints.
	// Required.
	Tracker *synctrack.Tracker

	// Health produces the /v1/health payload. Required.
	Health HealthFunc

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("gateway: listen address is required")
	}
	if c.Tracker == nil {
		return errors.New("gateway: tracker is required")
	}
	if c.Health == nil {
		return errors.New("gateway: health func is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.RateLimit == 0 {
		c.RateLimit = 20
	}
	if c.RateBurst == 0 {
		c.RateBurst = 40
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Service is the gateway HTTP server. It implements the facade's
// GatewayRunner.
type Service struct {
	config  Config
	server  *http.Server
	metrics *metrics
	running atomic.Bool
}

// New builds a Service. The server does not listen until Start.
func New(config Config) (*Service, error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Service{config: config, metrics: newMetrics()}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestMetrics())
	engine.Use(rateLimiter(config.RateLimit, config.RateBurst))
	s.registerRoutes(engine)

	s.server = &http.Server{
		Addr:              config.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Start binds the listener and serves in the background. The bind
// happens synchronously so address conflicts surface here, not in a
// goroutine's log line.
func (s *Service) Start() error {
	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", s.config.ListenAddr, err)
	}
	s.running.Store(true)

	go func() {
		err := s.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.config.Logger.Error("gateway server stopped", "error", err)
		}
		s.running.Store(false)
	}()

	s.config.Logger.Info("gateway listening", "addr", listener.Addr().String())
	return nil
}

// Stop drains and shuts the server down.
func (s *Service) Stop(ctx context.Context) error {
	s.running.Store(false)
	return s.server.Shutdown(ctx)
}

// Healthy reports whether the server is accepting connections.
func (s *Service) Healthy() bool { return s.running.Load() }

// Addr returns the configured listen address.
func (s *Service) Addr() string { return s.config.ListenAddr }

var _ chittyos.GatewayRunner = (*Service)(nil)
