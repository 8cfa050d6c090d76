// Package remote provides implementations of staff.RemoteService.
package remote

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"staffsync/internal/model"
	"staffsync/internal/staff"
)

// MemoryRemote is an in-process authoritative store.
// Records do not survive the process, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryRemote struct {
	clock staff.Clock
	idgen staff.IDGenerator

	mu      sync.RWMutex
	records []model.Record // newest first
}

var _ staff.RemoteService = (*MemoryRemote)(nil)

// NewMemoryRemote creates an empty store that stamps records using clock and idgen.
func NewMemoryRemote(clock staff.Clock, idgen staff.IDGenerator) *MemoryRemote {
	return &MemoryRemote{clock: clock, idgen: idgen}
}

// Seed inserts records as-is, keeping their ids and timestamps.
func (m *MemoryRemote) Seed(records ...model.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, records...)
	slices.SortStableFunc(m.records, func(a, b model.Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// List returns all records, newest first.
func (m *MemoryRemote) List(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := slices.Clone(m.records)
	if out == nil {
		out = []model.Record{}
	}
	return out, nil
}

// Get returns the record with the given id.
func (m *MemoryRemote) Get(ctx context.Context, id string) (*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.index(id)
	if i < 0 {
		return nil, fmt.Errorf("record %s: %w", id, staff.ErrNotFound)
	}
	rec := m.records[i]
	return &rec, nil
}

// Insert stores a new record with a fresh id and creation time.
func (m *MemoryRemote) Insert(ctx context.Context, in model.RecordInput) (*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := model.NewRecord(m.idgen.New(), in, m.clock.Now())
	m.records = append([]model.Record{rec}, m.records...)
	return &rec, nil
}

// Patch overwrites the attributes of the record with the given id.
func (m *MemoryRemote) Patch(ctx context.Context, id string, in model.RecordInput) (*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i < 0 {
		return nil, fmt.Errorf("record %s: %w", id, staff.ErrNotFound)
	}
	m.records[i] = m.records[i].Apply(in)
	rec := m.records[i]
	return &rec, nil
}

// Delete removes the record with the given id.
func (m *MemoryRemote) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("record %s: %w", id, staff.ErrNotFound)
	}
	m.records = slices.Delete(m.records, i, i+1)
	return nil
}

// Ping always succeeds; the store is in-process.
func (m *MemoryRemote) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored records.
func (m *MemoryRemote) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryRemote) index(id string) int {
	return slices.IndexFunc(m.records, func(r model.Record) bool { return r.ID == id })
}
