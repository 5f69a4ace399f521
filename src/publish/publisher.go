// Package publish mirrors every accepted payload onto the delivery topics.
package publish

import (
	"context"
	"fmt"
	"strings"

	"kafka-relay/src/broker"
	"kafka-relay/src/logger"
	"kafka-relay/src/metrics"
)

// TopicResult is the outcome of publishing to one topic.
type TopicResult struct {
	Topic string
	Ack   broker.Ack
	Err   error
}

// FanoutError reports the topics a fan-out failed on. Successful topics stay
// written; nothing is rolled back.
type FanoutError struct {
	Results []TopicResult
}

func (e *FanoutError) Error() string {
	var failed []string
	written := 0
	for _, r := range e.Results {
		if r.Err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", r.Topic, r.Err))
		} else {
			written++
		}
	}
	return fmt.Sprintf("publish failed (%d of %d topics written): %s",
		written, len(e.Results), strings.Join(failed, "; "))
}

// Unwrap exposes every per-topic cause to errors.Is / errors.As.
func (e *FanoutError) Unwrap() []error {
	var errs []error
	for _, r := range e.Results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

// Partial reports whether at least one topic was written.
func (e *FanoutError) Partial() bool {
	for _, r := range e.Results {
		if r.Err == nil {
			return true
		}
	}
	return false
}

// Publisher sends the same body to each topic in order, as independent calls.
type Publisher struct {
	client broker.Client
	topics []string
	logger logger.Logger
}

// NewPublisher creates a publisher for topics, in fan-out order.
func NewPublisher(client broker.Client, topics []string, log logger.Logger) *Publisher {
	return &Publisher{
		client: client,
		topics: topics,
		logger: log,
	}
}

// PublishUnkeyed publishes body without a key; the broker spreads records round-robin.
func (p *Publisher) PublishUnkeyed(ctx context.Context, body []byte) ([]TopicResult, error) {
	return p.fanout(ctx, nil, body)
}

// PublishKeyed publishes body under key so all records for key share a partition.
func (p *Publisher) PublishKeyed(ctx context.Context, key string, body []byte) ([]TopicResult, error) {
	return p.fanout(ctx, []byte(key), body)
}

// fanout attempts every topic even after a failure and returns one result per topic.
func (p *Publisher) fanout(ctx context.Context, key []byte, body []byte) ([]TopicResult, error) {
	results := make([]TopicResult, 0, len(p.topics))
	failed := false

	for _, topic := range p.topics {
		// Counted per attempt; failures are tracked separately.
		metrics.ProduceAttempts.WithLabelValues(topic).Inc()

		ack, err := p.client.Publish(ctx, topic, key, body)
		results = append(results, TopicResult{Topic: topic, Ack: ack, Err: err})

		if err != nil {
			failed = true
			metrics.ProduceFailures.WithLabelValues(topic).Inc()
			p.logger.Error("[Publisher] Failed to send to %s: %v", topic, err)
			continue
		}

		if key != nil {
			p.logger.Info("[Publisher] Message sent to %s with key %s (partition %d, offset %d): %s",
				topic, key, ack.Partition, ack.Offset, body)
		} else {
			p.logger.Info("[Publisher] Message sent to %s (partition %d, offset %d): %s",
				topic, ack.Partition, ack.Offset, body)
		}
	}

	if failed {
		return results, &FanoutError{Results: results}
	}
	return results, nil
}
