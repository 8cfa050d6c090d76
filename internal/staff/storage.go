package staff

import "staffsync/internal/model"

// Fixed keys under which the cache snapshot and the action log are persisted.
const (
	CacheKey     = "staff_offline_data"
	ActionLogKey = "staff_pending_actions"
)

// Storage is the durable key-value medium behind the cache and the action log.
// Implementations must persist Put before returning.
type Storage interface {
	// Get returns the value stored under key, or nil with no error if the key
	// has never been written or was deleted.
	Get(key string) ([]byte, error)

	// Put replaces the value stored under key.
	Put(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases resources held by the medium.
	Close() error
}

// Cache is the durable local snapshot of all known records.
type Cache interface {
	// Read returns the persisted snapshot in stored order.
	// An empty or missing store yields an empty slice and no error.
	Read() ([]model.Record, error)

	// Write replaces the persisted snapshot entirely.
	Write(records []model.Record) error
}

// ActionLog is the persisted FIFO of mutations accepted while offline.
type ActionLog interface {
	// Append adds an action at the tail and persists it.
	Append(action model.PendingAction) error

	// Drain returns all actions in append order without removing them.
	Drain() ([]model.PendingAction, error)

	// Clear empties the log. Called only once every drained action was applied.
	Clear() error

	// Len returns the number of queued actions.
	Len() (int, error)
}
