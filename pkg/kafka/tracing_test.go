package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderCarrier_GetSetOverwrite(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "event_type", Value: []byte("storefront.cart.changed")}}}
	carrier := NewHeaderCarrier(&msg)

	assert.Equal(t, "storefront.cart.changed", carrier.Get("event_type"))
	assert.Empty(t, carrier.Get("missing"))

	carrier.Set("source", "storefront-state")
	carrier.Set("event_type", "storefront.wishlist.changed")

	assert.Equal(t, "storefront.wishlist.changed", carrier.Get("event_type"))
	assert.ElementsMatch(t, []string{"event_type", "source"}, carrier.Keys())
	assert.Len(t, msg.Headers, 2, "headers are written through to the message")
}

func TestHeaderCarrier_PropagatesTraceContext(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02},
		SpanID:     trace.SpanID{0x03},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	prop := propagation.TraceContext{}

	var msg kafka.Message
	prop.Inject(ctx, NewHeaderCarrier(&msg))
	assert.NotEmpty(t, NewHeaderCarrier(&msg).Get("traceparent"))

	extracted := trace.SpanContextFromContext(prop.Extract(context.Background(), NewHeaderCarrier(&msg)))
	assert.Equal(t, sc.TraceID(), extracted.TraceID())
	assert.Equal(t, sc.SpanID(), extracted.SpanID())
}

func TestHeaderCarrier_Empty(t *testing.T) {
	var msg kafka.Message
	carrier := NewHeaderCarrier(&msg)
	assert.Empty(t, carrier.Keys())
	assert.Empty(t, carrier.Get("anything"))
}
