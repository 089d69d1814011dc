// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherRequiresDirs(t *testing.T) {
	_, err := NewWatcher(WatcherConfig{})
	assert.Error(t, err)
}

func TestWatcherIngestsNewFiles(t *testing.T) {
	dir := t.TempDir()
	watcher, err := NewWatcher(WatcherConfig{
		Dirs:        []string{dir},
		Scorer:      &Scorer{Terms: map[string]int{"ardc": 5}},
		SettleDelay: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watcher.Run(ctx)
		close(done)
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ardc_note.txt"), []byte("hello"), 0644))
	// Unknown types must not produce records.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.jpg"), []byte("img"), 0644))

	select {
	case record := <-watcher.Records():
		assert.Equal(t, DocText, record.Type)
		assert.Equal(t, 5, record.Relevance)
		assert.Len(t, record.SHA256, 64)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for intake record")
	}

	select {
	case record, open := <-watcher.Records():
		if open {
			t.Fatalf("unexpected second record for %s", record.Path)
		}
	case <-time.After(300 * time.Millisecond):
		// No record for the jpg: correct.
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
