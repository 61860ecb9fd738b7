// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/schemabench/pkg/logging"
)

// Cache stores fetched dataset pages on disk keyed by task and page offset.
// Schema pages are immutable upstream, so entries never expire.
type Cache struct {
	db     *badger.DB
	logger *logging.Logger
}

// OpenCache opens (or creates) the page cache at dir.
func OpenCache(dir string, logger *logging.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open dataset cache at %s: %w", dir, err)
	}
	return &Cache{db: db, logger: logger}, nil
}

func pageKey(task string, offset int) []byte {
	return []byte(fmt.Sprintf("rows/%s/%d", task, offset))
}

// GetPage returns the cached raw page body, or (nil, false) on a miss.
func (c *Cache) GetPage(task string, offset int) ([]byte, bool) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pageKey(task, offset))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("dataset cache read failed", "task", task, "offset", offset, "error", err)
		}
		return nil, false
	}
	return value, true
}

// PutPage stores a raw page body. Write failures are logged and swallowed;
// the cache is an optimization, not a source of truth.
func (c *Cache) PutPage(task string, offset int, body []byte) {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pageKey(task, offset), body)
	})
	if err != nil {
		c.logger.Warn("dataset cache write failed", "task", task, "offset", offset, "error", err)
	}
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.db.Close()
}
