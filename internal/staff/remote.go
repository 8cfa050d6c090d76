package staff

import (
	"context"

	"staffsync/internal/model"
)

// RemoteService is the authoritative data service the repository talks to
// when online. Any returned error means the operation failed; callers do not
// inspect subtypes beyond ErrNotFound.
type RemoteService interface {
	// List returns all records ordered by creation time, newest first.
	List(ctx context.Context) ([]model.Record, error)

	// Get returns a single record by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*model.Record, error)

	// Insert creates a record and returns it with its server-assigned id.
	Insert(ctx context.Context, in model.RecordInput) (*model.Record, error)

	// Patch overwrites the attributes of the record with the given id.
	// Returns ErrNotFound if no record matched.
	Patch(ctx context.Context, id string, in model.RecordInput) (*model.Record, error)

	// Delete removes the record with the given id.
	// Returns ErrNotFound if no record matched.
	Delete(ctx context.Context, id string) error
}
