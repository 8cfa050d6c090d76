// Package cache persists the local snapshot of lecturer records.
package cache

import (
	"fmt"
	"slices"
	"sync"

	"staffsync/internal/model"
	"staffsync/internal/staff"
	"staffsync/internal/storage"
)

// LocalCache implements staff.Cache as one JSON array under staff.CacheKey.
// The decoded snapshot is kept in memory after the first read; every Write
// persists before replacing it.
type LocalCache struct {
	store staff.Storage

	mu      sync.Mutex
	records []model.Record
	loaded  bool
}

var _ staff.Cache = (*LocalCache)(nil)

// New creates a cache backed by store.
func New(store staff.Storage) *LocalCache {
	return &LocalCache{store: store}
}

// Read returns the persisted snapshot in stored order.
func (c *LocalCache) Read() ([]model.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return nil, err
	}
	return slices.Clone(c.records), nil
}

// Write replaces the persisted snapshot.
func (c *LocalCache) Write(records []model.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := slices.Clone(records)
	if next == nil {
		next = []model.Record{}
	}
	if err := storage.WriteJSON(c.store, staff.CacheKey, next); err != nil {
		return fmt.Errorf("persisting cache: %w", err)
	}
	c.records = next
	c.loaded = true
	return nil
}

func (c *LocalCache) load() error {
	if c.loaded {
		return nil
	}

	records := []model.Record{}
	if _, err := storage.ReadJSON(c.store, staff.CacheKey, &records); err != nil {
		return fmt.Errorf("loading cache: %w", err)
	}
	if records == nil {
		records = []model.Record{}
	}
	c.records = records
	c.loaded = true
	return nil
}
