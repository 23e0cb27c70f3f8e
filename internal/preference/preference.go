// Package preference persists the live table's boolean settings, chiefly the
// auto-refresh flag.
package preference

import (
	"context"
	"strconv"
	"sync"
)

// Store reads and writes boolean preferences by key.
type Store interface {
	// GetBool returns the stored value. found is false when the key was never written.
	GetBool(ctx context.Context, key string) (value, found bool, err error)
	SetBool(ctx context.Context, key string, value bool) error
	Close() error
}

// MemoryStore keeps preferences for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) GetBool(_ context.Context, key string) (value, found bool, err error) {
	s.mu.RLock()
	raw, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return false, false, nil
	}
	return parseBool(raw), true, nil
}

func (s *MemoryStore) SetBool(_ context.Context, key string, value bool) error {
	s.mu.Lock()
	s.values[key] = strconv.FormatBool(value)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// parseBool treats anything but "true" as false.
func parseBool(raw string) bool {
	return raw == "true"
}
