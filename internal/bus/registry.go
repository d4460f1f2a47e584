package bus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/domain"
)

var (
	activeBuses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_bus_active_tabs",
		Help: "Number of tab buses with at least one subscriber",
	})
	deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_bus_deliveries_total",
		Help: "Notifications delivered to handlers, by signal",
	}, []string{"signal"})
)

// Scope identifies a tab: the session it belongs to and the tab ID.
func Scope(sessionID, tabID string) string {
	return sessionID + "/" + tabID
}

// Registry holds one Bus per tab scope. A bus exists only while it has
// subscribers, so notifications never cross tabs and idle tabs cost nothing.
type Registry struct {
	mu    sync.Mutex
	buses map[string]*Bus
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{buses: make(map[string]*Bus)}
}

// Subscribe registers h on the bus for scope, creating it if needed.
func (r *Registry) Subscribe(scope string, signal domain.Signal, h Handler) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buses[scope]
	if !ok {
		b = New()
		b.onEmpty = func() { r.drop(scope, b) }
		r.buses[scope] = b
		activeBuses.Inc()
	}
	// Subscribe under the registry lock so a concurrent drop cannot orphan it.
	return b.Subscribe(signal, h)
}

// Publish delivers n on scope's bus. It is a no-op when nobody in that tab
// is listening.
func (r *Registry) Publish(scope string, n domain.Notification) int {
	r.mu.Lock()
	b := r.buses[scope]
	r.mu.Unlock()
	if b == nil {
		return 0
	}
	count := b.Publish(n)
	deliveries.WithLabelValues(string(n.Signal)).Add(float64(count))
	return count
}

// Len returns the number of live tab buses.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buses)
}

func (r *Registry) drop(scope string, b *Bus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buses[scope] != b || b.Len() > 0 {
		return
	}
	delete(r.buses, scope)
	activeBuses.Dec()
}
