// Package service implements the storefront state operations on top of slot
// storage, the tab bus and the remote API.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/bus"
)

// Tab identifies the browser tab an operation originates from.
type Tab struct {
	SessionID string
	TabID     string
}

// Scope returns the bus scope of the tab.
func (t Tab) Scope() string {
	return bus.Scope(t.SessionID, t.TabID)
}

var (
	wishlistToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_wishlist_toggles_total",
		Help: "Wishlist toggles by resulting action",
	}, []string{"action"})

	cartAdds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_adds_total",
		Help: "Cart add sequences by mode and outcome",
	}, []string{"mode", "outcome"})

	persistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_slot_write_failures_total",
		Help: "Best-effort slot writes that failed, by slot",
	}, []string{"slot"})

	malformedSlots = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_slot_malformed_total",
		Help: "Stored slot values that could not be decoded, by slot",
	}, []string{"slot"})
)
