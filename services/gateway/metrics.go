// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gateway

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the gateway's prometheus instruments on a private
// registry, so running multiple gateways in one process (tests) never
// double-registers.
type metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	sessionsTracked prometheus.Counter
	activeSessions  prometheus.Gauge
	streamClients   prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chittyops_gateway_requests_total",
			Help: "HTTP requests handled, by route and status code.",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chittyops_gateway_request_seconds",
			Help:    "HTTP request latency, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		sessionsTracked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chittyops_sync_sessions_tracked_total",
			Help: "Sync sessions registered through the gateway.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chittyops_sync_active_sessions",
			Help: "Sync sessions currently active.",
		}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chittyops_gateway_stream_clients",
			Help: "Connected websocket event stream clients.",
		}),
	}
	m.registry.MustRegister(m.requests, m.latency, m.sessionsTracked,
		m.activeSessions, m.streamClients)
	return m
}
