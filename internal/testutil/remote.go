package testutil

import (
	"context"
	"fmt"
	"sync"

	"staffsync/internal/model"
	"staffsync/internal/remote"
	"staffsync/internal/staff"
)

// Call records one request made to a FlakyRemote.
type Call struct {
	Method string // "List", "Get", "Insert", "Patch" or "Delete"
	ID     string
}

func (c Call) String() string {
	if c.ID == "" {
		return c.Method
	}
	return fmt.Sprintf("%s(%s)", c.Method, c.ID)
}

// FlakyRemote wraps a MemoryRemote, records every call and can fail
// selected methods. It also implements Ping so it can drive a Prober.
type FlakyRemote struct {
	*remote.MemoryRemote

	mu    sync.Mutex
	calls []Call
	fail  map[string]error
	gate  chan struct{} // when set, Insert waits on it
}

var _ staff.RemoteService = (*FlakyRemote)(nil)

// NewTestRemote creates a recording remote whose server ids are "srv-1", "srv-2", ...
func NewTestRemote(clock staff.Clock) *FlakyRemote {
	return &FlakyRemote{
		MemoryRemote: remote.NewMemoryRemote(clock, NewPrefixedIDGenerator("srv")),
		fail:         make(map[string]error),
	}
}

// Fail makes method return err. A nil err clears the failure.
func (f *FlakyRemote) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, method)
		return
	}
	f.fail[method] = err
}

// Hold makes Insert block until the returned release function is called.
func (f *FlakyRemote) Hold() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Calls returns the recorded calls in order.
func (f *FlakyRemote) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns how many calls were made to method.
func (f *FlakyRemote) CallCount(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (f *FlakyRemote) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *FlakyRemote) record(method, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, ID: id})
	return f.fail[method]
}

func (f *FlakyRemote) List(ctx context.Context) ([]model.Record, error) {
	if err := f.record("List", ""); err != nil {
		return nil, err
	}
	return f.MemoryRemote.List(ctx)
}

func (f *FlakyRemote) Get(ctx context.Context, id string) (*model.Record, error) {
	if err := f.record("Get", id); err != nil {
		return nil, err
	}
	return f.MemoryRemote.Get(ctx, id)
}

func (f *FlakyRemote) Insert(ctx context.Context, in model.RecordInput) (*model.Record, error) {
	if err := f.record("Insert", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.MemoryRemote.Insert(ctx, in)
}

func (f *FlakyRemote) Patch(ctx context.Context, id string, in model.RecordInput) (*model.Record, error) {
	if err := f.record("Patch", id); err != nil {
		return nil, err
	}
	return f.MemoryRemote.Patch(ctx, id, in)
}

func (f *FlakyRemote) Delete(ctx context.Context, id string) error {
	if err := f.record("Delete", id); err != nil {
		return err
	}
	return f.MemoryRemote.Delete(ctx, id)
}
