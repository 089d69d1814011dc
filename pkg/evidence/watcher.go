// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher feeds newly dropped evidence files into intake. Files are
// processed after a short settle delay so partially written files are
// not hashed mid-copy.
type Watcher struct {
	watcher *fsnotify.Watcher
	scorer  *Scorer
	logger  *slog.Logger
	settle  time.Duration
	out     chan Record
}

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Dirs are the directories to watch. At least one is required.
	Dirs []string

	// Scorer scores incoming files; nil leaves relevance at zero.
	Scorer *Scorer

	// SettleDelay is how long a file must be quiet before intake.
	// Default: 500ms.
	SettleDelay time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewWatcher builds a Watcher over the configured directories.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if len(config.Dirs) == 0 {
		return nil, fmt.Errorf("evidence: no watch directories configured")
	}
	if config.SettleDelay == 0 {
		config.SettleDelay = 500 * time.Millisecond
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("evidence: create watcher: %w", err)
	}
	for _, dir := range config.Dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("evidence: watch %s: %w", dir, err)
		}
	}

	return &Watcher{
		watcher: fsw,
		scorer:  config.Scorer,
		logger:  config.Logger,
		settle:  config.SettleDelay,
		out:     make(chan Record, 16),
	}, nil
}

// Records is the stream of intake results. Closed when Run returns.
func (w *Watcher) Records() <-chan Record { return w.out }

// Run processes filesystem events until ctx is canceled. Create and
// write events on evidence-typed files trigger intake after the settle
// delay; other events are ignored.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.out)
	defer w.watcher.Close()

	pending := make(map[string]*time.Timer)
	intakeCh := make(chan string, 16)

	for {
		select {
		case <-ctx.Done():
			for _, timer := range pending {
				timer.Stop()
			}
			return ctx.Err()

		case path := <-intakeCh:
			delete(pending, path)
			record, err := Intake(path, w.scorer)
			if err != nil {
				w.logger.Warn("evidence intake failed", "path", path, "error", err)
				continue
			}
			w.logger.Info("evidence file ingested",
				"path", path,
				"type", record.Type,
				"relevance", record.Relevance)
			select {
			case w.out <- record:
			case <-ctx.Done():
			}

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if TypeOf(event.Name) == DocUnknown {
				continue
			}
			path := event.Name
			if timer, exists := pending[path]; exists {
				timer.Reset(w.settle)
				continue
			}
			pending[path] = time.AfterFunc(w.settle, func() {
				select {
				case intakeCh <- path:
				case <-ctx.Done():
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("evidence watcher error", "error", err)
		}
	}
}
