// Package memory provides in-process slot storage for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage"
)

type key struct {
	scope string
	slot  domain.Slot
}

// Store is a map-backed storage.Store.
type Store struct {
	mu    sync.RWMutex
	slots map[key]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{slots: make(map[key]string)}
}

// Get implements storage.Store.
func (s *Store) Get(_ context.Context, scope string, slot domain.Slot) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[key{scope, slot}]
	if !ok {
		return "", storage.ErrSlotNotFound(slot)
	}
	return v, nil
}

// Set implements storage.Store.
func (s *Store) Set(_ context.Context, scope string, slot domain.Slot, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key{scope, slot}] = value
	return nil
}

// Ping implements storage.Store.
func (s *Store) Ping(context.Context) error { return nil }
