// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chittyos/chittyops/pkg/chittyos"
	"github.com/chittyos/chittyops/pkg/synctrack"
	"github.com/chittyos/chittyops/services/gateway"
)

func runGateway(cmd *cobra.Command, args []string) error {
	if cfg.Gateway.ListenAddr == "" {
		return errors.New("gateway.listen_addr is not configured (or set CHITTY_GATEWAY_ADDR)")
	}

	tracker := synctrack.New(synctrack.WithLogger(logger.Slog()))
	defer tracker.Close()

	client, err := chittyos.NewClient(cfg, logger.Slog())
	if err != nil {
		return err
	}

	svc, err := gateway.New(gateway.Config{
		ListenAddr: cfg.Gateway.ListenAddr,
		RateLimit:  cfg.Gateway.RateLimit,
		RateBurst:  cfg.Gateway.RateBurst,
		Tracker:    tracker,
		Health:     client.PerformHealthCheck,
		Logger:     logger.Slog(),
	})
	if err != nil {
		return err
	}

	// The facade owns the gateway from here: Initialize starts it.
	client.AttachGateway(svc)

	if err := client.Initialize(cmd.Context()); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client.Close(shutdownCtx)
	}()

	logger.Info("gateway running", "addr", cfg.Gateway.ListenAddr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
		logger.Info("shutting down")
	case <-cmd.Context().Done():
	}
	return nil
}
