package testutil

import (
	"context"
	"errors"
	"maps"
	"sync"
)

// ErrInjected is returned by MemStore when a failure has been injected.
var ErrInjected = errors.New("injected storage failure")

// MemStore is an in-memory key/value store with failure injection.
// It satisfies the Storage interfaces of the ledger, session and station
// packages.
type MemStore struct {
	mu         sync.Mutex
	data       map[string]string
	failWrites bool
	failReads  bool
	writes     int
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]string)}
}

// Get returns the value under key.
func (s *MemStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return "", false, ErrInjected
	}
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *MemStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return ErrInjected
	}
	s.data[key] = value
	s.writes++
	return nil
}

// Delete removes key.
func (s *MemStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return ErrInjected
	}
	delete(s.data, key)
	return nil
}

// FailWrites makes every following Set and Delete fail until called with false.
func (s *MemStore) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = fail
}

// FailReads makes every following Get fail until called with false.
func (s *MemStore) FailReads(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads = fail
}

// Writes returns the number of successful Set calls.
func (s *MemStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Snapshot returns a copy of the stored data.
func (s *MemStore) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.data)
}
