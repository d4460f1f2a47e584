package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Failure reasons recorded on eventsFailed.
const (
	reasonEncode = "encode"
	reasonWrite  = "write"
)

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_events_published_total",
		Help: "Storefront analytics events written to Kafka.",
	}, []string{"topic", "event_type"})

	eventsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_events_failed_total",
		Help: "Storefront analytics events that could not be published.",
	}, []string{"topic", "event_type", "reason"})

	// Writes are synchronous with RequireAll, so the buckets start low.
	publishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_event_publish_duration_seconds",
		Help:    "Time spent writing one analytics event.",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"topic"})
)

// observePublish records the outcome of one Publish call. reason is ignored
// when err is nil.
func observePublish(topic, eventType string, start time.Time, err error, reason string) {
	publishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	if err != nil {
		eventsFailed.WithLabelValues(topic, eventType, reason).Inc()
		return
	}
	eventsPublished.WithLabelValues(topic, eventType).Inc()
}
