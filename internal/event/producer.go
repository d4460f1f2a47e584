// Package event forwards storefront state changes to Kafka for analytics.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Topics published by the storefront state service.
var (
	TopicWishlistChanged = pkgkafka.Topic("wishlist", "changed")
	TopicCartChanged     = pkgkafka.Topic("cart", "changed")
)

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront-state"

// WishlistChangedData is the payload of a wishlist.changed event.
type WishlistChangedData struct {
	ProductID string   `json:"product_id"`
	Added     bool     `json:"added"`
	ItemCount int      `json:"item_count"`
	Items     []string `json:"items"`
}

// CartChangedData is the payload of a cart.changed event.
type CartChangedData struct {
	ProductID string         `json:"product_id"`
	Mode      domain.AddMode `json:"mode"`
	Message   string         `json:"message,omitempty"`
}

// Publisher is what the services need from an analytics sink.
type Publisher interface {
	WishlistChanged(ctx context.Context, sessionID, tabID string, productID string, added bool, w domain.Wishlist)
	CartChanged(ctx context.Context, sessionID, tabID string, data CartChangedData)
}

type eventPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront events through a Kafka producer. Failures
// are logged and never returned to the caller.
type Producer struct {
	kafka  eventPublisher
	logger *slog.Logger
}

// NewProducer creates an event producer backed by kafka.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// WishlistChanged publishes a wishlist.changed event.
func (p *Producer) WishlistChanged(ctx context.Context, sessionID, tabID, productID string, added bool, w domain.Wishlist) {
	items := make([]string, 0, len(w))
	for _, e := range w {
		items = append(items, e.Key())
	}
	p.publish(ctx, TopicWishlistChanged, sessionID, tabID, WishlistChangedData{
		ProductID: productID,
		Added:     added,
		ItemCount: len(items),
		Items:     items,
	})
}

// CartChanged publishes a cart.changed event.
func (p *Producer) CartChanged(ctx context.Context, sessionID, tabID string, data CartChangedData) {
	p.publish(ctx, TopicCartChanged, sessionID, tabID, data)
}

func (p *Producer) publish(ctx context.Context, topic, sessionID, tabID string, data any) {
	if err := p.send(ctx, topic, sessionID, tabID, data); err != nil {
		p.logger.WarnContext(ctx, "analytics event dropped",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Producer) send(ctx context.Context, topic, sessionID, tabID string, data any) error {
	evt, err := pkgkafka.NewEvent(topic, sessionID, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	evt.WithTab(tabID)
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	return p.kafka.Publish(ctx, topic, evt)
}

// Noop discards events. It is used when no Kafka brokers are configured.
type Noop struct{}

// WishlistChanged implements Publisher.
func (Noop) WishlistChanged(context.Context, string, string, string, bool, domain.Wishlist) {}

// CartChanged implements Publisher.
func (Noop) CartChanged(context.Context, string, string, CartChangedData) {}
