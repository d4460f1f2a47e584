// Package storage defines the named, per-session slots that hold storefront
// state, and the watcher that carries preference changes between tabs.
package storage

import (
	"context"
	"errors"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Store reads and writes whole slot values. Every write replaces the slot.
type Store interface {
	// Get returns the slot value, or an error matching apperrors.ErrNotFound
	// when the slot was never written.
	Get(ctx context.Context, scope string, slot domain.Slot) (string, error)

	// Set overwrites the slot value.
	Set(ctx context.Context, scope string, slot domain.Slot, value string) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}

// Watcher broadcasts writes of watched slots to every tab of a session.
type Watcher interface {
	// Notify announces a change to all watchers of scope.
	Notify(ctx context.Context, scope string, change domain.PreferenceChange) error

	// Watch calls fn for each change announced on scope until stop is called
	// or ctx is done. Changes notified after Watch returns are delivered.
	Watch(ctx context.Context, scope string, fn func(domain.PreferenceChange)) (stop func(), err error)
}

// ErrSlotNotFound builds the not-found error returned by Store.Get.
func ErrSlotNotFound(slot domain.Slot) error {
	return apperrors.NotFound("slot", string(slot))
}

// IsNotFound reports whether err means the slot is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
