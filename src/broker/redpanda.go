// Package broker provides Redpanda/Kafka broker implementation.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// RedpandaBroker is a Kafka-compatible broker implementation using franz-go.
type RedpandaBroker struct {
	client          *kgo.Client
	brokers         []string
	pollTimeout     time.Duration
	deliveryTimeout time.Duration // bounds one ProduceSync
	mu              sync.RWMutex
	consumers       map[string]*kgo.Client // topic+groupID -> consumer client
	closed          bool
}

// NewRedpandaBroker creates a new RedpandaBroker instance.
// brokers is a slice of broker addresses (e.g., ["localhost:19092"]).
// A record not acked within deliveryTimeout fails with ErrBrokerUnavailable.
func NewRedpandaBroker(brokers []string, pollTimeout, deliveryTimeout time.Duration) (*RedpandaBroker, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	if deliveryTimeout <= 0 {
		deliveryTimeout = DefaultDeliveryTimeout
	}

	// Create producer client
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
		kgo.RecordPartitioner(routingPartitioner()),
		kgo.RecordDeliveryTimeout(deliveryTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	return &RedpandaBroker{
		client:          client,
		brokers:         brokers,
		pollTimeout:     pollTimeout,
		deliveryTimeout: deliveryTimeout,
		consumers:       make(map[string]*kgo.Client),
	}, nil
}

// routingPartitioner hashes keyed records and round-robins unkeyed ones, per topic.
func routingPartitioner() kgo.Partitioner {
	return kgo.BasicConsistentPartitioner(func(topic string) func(*kgo.Record, int) int {
		rr := &roundRobin{}
		return func(r *kgo.Record, n int) int {
			return routePartition(rr, r.Key, n)
		}
	})
}

// Publish sends a message to a topic with the specified key and waits for the ack.
// The lock is not held while producing, so Close never waits on a slow broker.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key []byte, value []byte) (Ack, error) {
	b.mu.RLock()
	closed, client := b.closed, b.client
	b.mu.RUnlock()

	if closed {
		return Ack{}, ErrClosed
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: value,
	}

	produceCtx, cancel := context.WithTimeout(ctx, b.deliveryTimeout)
	defer cancel()

	results := client.ProduceSync(produceCtx, record)
	if err := results.FirstErr(); err != nil {
		switch {
		case errors.Is(err, kgo.ErrClientClosed):
			return Ack{}, ErrClosed
		case errors.Is(err, kerr.MessageTooLarge):
			return Ack{}, fmt.Errorf("%w: %v", ErrSerialization, err)
		default:
			return Ack{}, fmt.Errorf("%w: failed to produce to %s: %v", ErrBrokerUnavailable, topic, err)
		}
	}

	stored := results[0].Record
	return Ack{Topic: stored.Topic, Partition: stored.Partition, Offset: stored.Offset}, nil
}

// consumer returns the consumer client for topic and group, creating it on first use.
// Auto-commit is disabled: offsets only move through Commit.
func (b *RedpandaBroker) consumer(topic, groupID string) (*kgo.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	consumerKey := fmt.Sprintf("%s:%s", topic, groupID)
	if consumer, exists := b.consumers[consumerKey]; exists {
		return consumer, nil
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(b.brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()), // Start from beginning
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create consumer: %v", ErrBrokerUnavailable, err)
	}

	b.consumers[consumerKey] = consumer
	return consumer, nil
}

// Poll fetches up to maxRecords records for the group, waiting at most the poll timeout.
func (b *RedpandaBroker) Poll(ctx context.Context, topic string, groupID string, maxRecords int) ([]Message, error) {
	consumer, err := b.consumer(topic, groupID)
	if err != nil {
		return []Message{}, err
	}

	pollCtx, cancel := context.WithTimeout(ctx, b.pollTimeout)
	defer cancel()

	fetches := consumer.PollRecords(pollCtx, maxRecords)
	if fetches.IsClientClosed() {
		return []Message{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return []Message{}, err
	}

	records := fetches.Records()
	msgs := make([]Message, 0, len(records))
	for _, record := range records {
		msgs = append(msgs, Message{
			Topic:       record.Topic,
			Key:         record.Key,
			Value:       record.Value,
			Offset:      record.Offset,
			Partition:   record.Partition,
			Timestamp:   record.Timestamp.UnixMilli(),
			leaderEpoch: record.LeaderEpoch,
		})
	}
	if len(msgs) > 0 {
		return msgs, nil
	}

	// Only surface fetch errors when nothing was returned
	var fetchErr error
	fetches.EachError(func(t string, p int32, err error) {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return
		}
		if fetchErr == nil {
			fetchErr = fmt.Errorf("%w: fetch %s[%d]: %v", ErrBrokerUnavailable, t, p, err)
		}
	})
	return msgs, fetchErr
}

// Commit synchronously commits the given messages for the group.
func (b *RedpandaBroker) Commit(ctx context.Context, topic string, groupID string, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}

	consumer, err := b.consumer(topic, groupID)
	if err != nil {
		return err
	}

	records := make([]*kgo.Record, 0, len(msgs))
	for _, msg := range msgs {
		records = append(records, &kgo.Record{
			Topic:       topic,
			Partition:   msg.Partition,
			Offset:      msg.Offset,
			LeaderEpoch: msg.leaderEpoch,
		})
	}

	if err := consumer.CommitRecords(ctx, records...); err != nil {
		return fmt.Errorf("%w: commit %s for %s: %v", ErrBrokerUnavailable, topic, groupID, err)
	}
	return nil
}

// Close shuts down the broker and all consumer connections.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	// Close all consumers
	for _, consumer := range b.consumers {
		consumer.Close()
	}
	b.consumers = make(map[string]*kgo.Client)

	// Close producer client
	b.client.Close()

	return nil
}
