package memory

import (
	"context"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
)

type watch struct {
	fn func(domain.PreferenceChange)
}

// Watcher fans preference changes out to watchers in the same process.
type Watcher struct {
	mu      sync.RWMutex
	watches map[string]map[*watch]struct{}
}

// NewWatcher creates a watcher with no subscriptions.
func NewWatcher() *Watcher {
	return &Watcher{watches: make(map[string]map[*watch]struct{})}
}

// Notify implements storage.Watcher. Callbacks run synchronously.
func (w *Watcher) Notify(_ context.Context, scope string, change domain.PreferenceChange) error {
	w.mu.RLock()
	targets := make([]*watch, 0, len(w.watches[scope]))
	for wt := range w.watches[scope] {
		targets = append(targets, wt)
	}
	w.mu.RUnlock()

	for _, wt := range targets {
		wt.fn(change)
	}
	return nil
}

// Watch implements storage.Watcher.
func (w *Watcher) Watch(ctx context.Context, scope string, fn func(domain.PreferenceChange)) (func(), error) {
	wt := &watch{fn: fn}

	w.mu.Lock()
	if w.watches[scope] == nil {
		w.watches[scope] = make(map[*watch]struct{})
	}
	w.watches[scope][wt] = struct{}{}
	w.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			w.mu.Lock()
			delete(w.watches[scope], wt)
			if len(w.watches[scope]) == 0 {
				delete(w.watches, scope)
			}
			w.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()
	return stop, nil
}

// Watching returns the number of active watches on scope.
func (w *Watcher) Watching(scope string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.watches[scope])
}
