package testutil

import (
	"testing"

	"staffsync/internal/actionlog"
	"staffsync/internal/cache"
	"staffsync/internal/connectivity"
	"staffsync/internal/staff"
	"staffsync/internal/storage"
)

// Harness bundles a Repository with the fakes behind it.
type Harness struct {
	Repo    *staff.Repository
	Remote  *FlakyRemote
	Storage *FailingStorage
	Cache   *cache.LocalCache
	Log     *actionlog.Log
	Conn    *connectivity.Monitor
	Clock   *StubClock
	IDs     *StubIDGenerator
}

// NewHarness creates a repository over in-memory fakes in the given
// connectivity state. Client ids come from a StubIDGenerator ("id-1", ...)
// and server ids from the remote ("srv-1", ...).
func NewHarness(t *testing.T, online bool) *Harness {
	t.Helper()

	clock := FixedClock()
	h := &Harness{
		Remote:  NewTestRemote(clock),
		Storage: NewFailingStorage(storage.NewMemoryStorage()),
		Conn:    connectivity.NewMonitor(online),
		Clock:   clock,
		IDs:     NewStubIDGenerator(),
	}
	h.Cache = cache.New(h.Storage)
	h.Log = actionlog.New(h.Storage)
	h.Repo = h.Reopen(t)
	return h
}

// Reopen builds a fresh Repository over the same medium, remote and
// connectivity, as after a process restart.
func (h *Harness) Reopen(t *testing.T) *staff.Repository {
	t.Helper()

	h.Cache = cache.New(h.Storage)
	h.Log = actionlog.New(h.Storage)
	repo, err := staff.NewRepository(h.Remote, h.Cache, h.Log, h.Conn, staff.NewNopLogger(), h.Clock, h.IDs)
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	h.Repo = repo
	return repo
}
