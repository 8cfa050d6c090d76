package testutil

import (
	"errors"
	"sync"

	"staffsync/internal/staff"
	"staffsync/internal/storage"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// NewTestStorage creates a new in-memory storage medium for testing.
func NewTestStorage() *storage.MemoryStorage {
	return storage.NewMemoryStorage()
}

// FailingStorage wraps a medium and fails writes to selected keys on demand.
type FailingStorage struct {
	staff.Storage

	mu       sync.Mutex
	failPut  map[string]bool
	failGet  bool
	putCalls map[string]int
}

// NewFailingStorage wraps inner. It behaves like inner until told to fail.
func NewFailingStorage(inner staff.Storage) *FailingStorage {
	return &FailingStorage{
		Storage:  inner,
		failPut:  make(map[string]bool),
		putCalls: make(map[string]int),
	}
}

// FailPut makes every Put and Delete on key return ErrInjected while fail is true.
func (s *FailingStorage) FailPut(key string, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPut[key] = fail
}

// FailGet makes every Get return ErrInjected while fail is true.
func (s *FailingStorage) FailGet(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet = fail
}

// PutCalls returns the number of Put attempts on key, failed ones included.
func (s *FailingStorage) PutCalls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putCalls[key]
}

func (s *FailingStorage) Get(key string) ([]byte, error) {
	s.mu.Lock()
	fail := s.failGet
	s.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}
	return s.Storage.Get(key)
}

func (s *FailingStorage) Put(key string, value []byte) error {
	s.mu.Lock()
	s.putCalls[key]++
	fail := s.failPut[key]
	s.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return s.Storage.Put(key, value)
}

func (s *FailingStorage) Delete(key string) error {
	s.mu.Lock()
	fail := s.failPut[key]
	s.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return s.Storage.Delete(key)
}
