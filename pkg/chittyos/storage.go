// Copyright (C) 2025 ChittyOS Contributors (dev@chitty.cc)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chittyos

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/chittyos/chittyops/pkg/ledger"
)

// ErrReceiptNotFound is returned when a ChittyID has no stored receipt.
var ErrReceiptNotFound = errors.New("chittyos: receipt not found")

// ReceiptStore keeps mint receipts in a local BadgerDB so the CLI can
// answer "was this minted, and how" without the ledger online.
type ReceiptStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// StorageConfig configures a ReceiptStore.
type StorageConfig struct {
	// Path is the database directory. Empty with InMemory false is an
	// error.
	Path string

	// InMemory skips disk persistence. For tests.
	InMemory bool

	// Logger defaults to slog.Default(). Badger's own chatter is
	// emitted at debug level.
	Logger *slog.Logger
}

// badgerLogger adapts slog to badger's Logger interface.
type badgerLogger struct{ logger *slog.Logger }

func (l *badgerLogger) Errorf(format string, args ...any)   { l.logger.Error(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Warningf(format string, args ...any) { l.logger.Warn(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Infof(format string, args ...any)    { l.logger.Debug(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Debugf(format string, args ...any)   { l.logger.Debug(fmt.Sprintf(format, args...)) }

// OpenReceiptStore opens (creating if needed) the receipt database.
func OpenReceiptStore(config StorageConfig) (*ReceiptStore, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if config.Path == "" {
			return nil, errors.New("chittyos: storage path is required")
		}
		if err := os.MkdirAll(config.Path, 0750); err != nil {
			return nil, fmt.Errorf("chittyos: create storage dir: %w", err)
		}
		opts = badger.DefaultOptions(config.Path)
	}
	opts = opts.WithLogger(&badgerLogger{logger: config.Logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("chittyos: open receipt store: %w", err)
	}
	return &ReceiptStore{db: db, logger: config.Logger}, nil
}

// Close releases the database.
func (s *ReceiptStore) Close() error { return s.db.Close() }

func receiptKey(chittyID string) []byte {
	return []byte("receipt/" + chittyID)
}

// Put stores a mint receipt keyed by ChittyID, replacing any previous
// receipt for that id.
func (s *ReceiptStore) Put(receipt ledger.Receipt) error {
	value, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("chittyos: encode receipt: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(receiptKey(receipt.ChittyID), value)
	})
	if err != nil {
		return fmt.Errorf("chittyos: store receipt for %s: %w", receipt.ChittyID, err)
	}
	return nil
}

// Get returns the receipt for a ChittyID.
func (s *ReceiptStore) Get(chittyID string) (ledger.Receipt, error) {
	var receipt ledger.Receipt
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(receiptKey(chittyID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrReceiptNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &receipt)
		})
	})
	if err != nil {
		if errors.Is(err, ErrReceiptNotFound) {
			return ledger.Receipt{}, err
		}
		return ledger.Receipt{}, fmt.Errorf("chittyos: read receipt for %s: %w", chittyID, err)
	}
	return receipt, nil
}

// Count returns the number of stored receipts.
func (s *ReceiptStore) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte("receipt/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("chittyos: count receipts: %w", err)
	}
	return count, nil
}

// Healthy runs a cheap read transaction to prove the store works.
func (s *ReceiptStore) Healthy() bool {
	return s.db.View(func(txn *badger.Txn) error { return nil }) == nil
}
