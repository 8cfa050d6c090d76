// Package actionlog persists the FIFO of mutations accepted while offline.
package actionlog

import (
	"fmt"
	"slices"
	"sync"

	"staffsync/internal/model"
	"staffsync/internal/staff"
	"staffsync/internal/storage"
)

// Log implements staff.ActionLog as one JSON array under staff.ActionLogKey.
// Each Append rewrites the whole array, so the medium never holds a partial
// log. Entries are only removed together by Clear, after a full replay.
type Log struct {
	store staff.Storage

	mu      sync.Mutex
	actions []model.PendingAction
	loaded  bool
}

var _ staff.ActionLog = (*Log)(nil)

// New creates an action log backed by store.
func New(store staff.Storage) *Log {
	return &Log{store: store}
}

// Append adds action at the tail. On a storage failure the log is unchanged.
func (l *Log) Append(action model.PendingAction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.load(); err != nil {
		return err
	}

	next := append(slices.Clone(l.actions), action)
	if err := storage.WriteJSON(l.store, staff.ActionLogKey, next); err != nil {
		return fmt.Errorf("persisting action log: %w", err)
	}
	l.actions = next
	return nil
}

// Drain returns every queued action in append order without removing them.
func (l *Log) Drain() ([]model.PendingAction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.load(); err != nil {
		return nil, err
	}
	return slices.Clone(l.actions), nil
}

// Clear removes every queued action.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Delete(staff.ActionLogKey); err != nil {
		return fmt.Errorf("clearing action log: %w", err)
	}
	l.actions = []model.PendingAction{}
	l.loaded = true
	return nil
}

// Len returns the number of queued actions.
func (l *Log) Len() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.load(); err != nil {
		return 0, err
	}
	return len(l.actions), nil
}

// Replace overwrites the log with actions. Used when importing an export bundle.
func (l *Log) Replace(actions []model.PendingAction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := slices.Clone(actions)
	if next == nil {
		next = []model.PendingAction{}
	}
	if err := storage.WriteJSON(l.store, staff.ActionLogKey, next); err != nil {
		return fmt.Errorf("persisting action log: %w", err)
	}
	l.actions = next
	l.loaded = true
	return nil
}

func (l *Log) load() error {
	if l.loaded {
		return nil
	}

	actions := []model.PendingAction{}
	if _, err := storage.ReadJSON(l.store, staff.ActionLogKey, &actions); err != nil {
		return fmt.Errorf("loading action log: %w", err)
	}
	if actions == nil {
		actions = []model.PendingAction{}
	}
	l.actions = actions
	l.loaded = true
	return nil
}
