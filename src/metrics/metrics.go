// Package metrics holds the Prometheus collectors exported by the relay processes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ProduceAttempts counts publish attempts per topic, whether or not the broker acked.
	ProduceAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "custom_kafka_produce_total",
		Help: "Publish attempts per topic (attempts, not confirmed deliveries).",
	}, []string{"topic"})

	// ProduceFailures counts publish attempts the broker did not ack.
	ProduceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "custom_kafka_produce_failures_total",
		Help: "Failed publish attempts per topic.",
	}, []string{"topic"})

	MessagesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_messages_processed_total",
		Help: "Consumed messages per topic and processing outcome.",
	}, []string{"topic", "outcome"})

	OffsetCommits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_offset_commits_total",
		Help: "Offset commits per topic and consumer mode.",
	}, []string{"topic", "mode"})

	BrokerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_broker_errors_total",
		Help: "Poll or commit failures per topic and operation.",
	}, []string{"topic", "op"})

	BatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_batch_size",
		Help:    "Records returned by non-empty batch polls.",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})
)

func init() {
	prometheus.MustRegister(ProduceAttempts, ProduceFailures, MessagesProcessed, OffsetCommits, BrokerErrors, BatchSize)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
