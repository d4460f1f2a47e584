package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
)

const channelPrefix = "storefront:changes:"

// ChangeChannel returns the pub/sub channel carrying preference changes for scope.
func ChangeChannel(scope string) string {
	return channelPrefix + scope
}

// Watcher implements storage.Watcher over Redis pub/sub so tabs connected to
// different service instances observe each other's preference writes.
type Watcher struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewWatcher creates a pub/sub watcher.
func NewWatcher(client redis.UniversalClient, logger *slog.Logger) *Watcher {
	return &Watcher{client: client, logger: logger}
}

// Notify implements storage.Watcher.
func (w *Watcher) Notify(ctx context.Context, scope string, change domain.PreferenceChange) (err error) {
	channel := ChangeChannel(scope)
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "NotifyChange", "PUBLISH "+channel)
	defer func() { end(err) }()

	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal preference change: %w", err)
	}
	if err = w.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish preference change: %w", err)
	}
	return nil
}

// Watch implements storage.Watcher. It returns once the subscription is
// confirmed by the server.
func (w *Watcher) Watch(ctx context.Context, scope string, fn func(domain.PreferenceChange)) (func(), error) {
	channel := ChangeChannel(scope)
	sub := w.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}

	msgs := sub.Channel()
	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change domain.PreferenceChange
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					w.logger.Warn("dropping malformed preference change",
						slog.String("channel", channel),
						slog.String("error", err.Error()),
					)
					continue
				}
				fn(change)
			}
		}
	}()

	return stop, nil
}
