package memory

import (
	"context"
	"sync"

	apperrors "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/errors"
)

// SnapshotStore is an in-process implementation of repository.SnapshotStore
// for local development and tests. Contents do not survive a restart.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{data: make(map[string]string)}
}

func (s *SnapshotStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return "", apperrors.NotFound("cart snapshot", key)
	}
	return v, nil
}

func (s *SnapshotStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *SnapshotStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Ping always succeeds.
func (s *SnapshotStore) Ping(context.Context) error { return nil }

// Len returns the number of stored keys.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
