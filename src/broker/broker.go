// Package broker defines the interface for message brokers and provides implementations.
package broker

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrBrokerUnavailable means the broker could not be reached. Retryable.
	ErrBrokerUnavailable = errors.New("broker unavailable")
	// ErrSerialization means the record could not be encoded. Not retryable.
	ErrSerialization = errors.New("serialization error")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("broker is closed")
)

// DefaultPollTimeout bounds how long Poll waits for the first record.
const DefaultPollTimeout = 5 * time.Second

// DefaultDeliveryTimeout bounds how long Publish waits for the broker ack.
const DefaultDeliveryTimeout = 120 * time.Second

// Client abstracts publishing, polling and committing against a partitioned log.
// Implementations hold all network and session state; callers are stateless.
type Client interface {
	// Publish appends value to topic. A nil key spreads records round-robin across
	// partitions; a non-nil key (even empty) is hashed so equal keys share a partition.
	Publish(ctx context.Context, topic string, key []byte, value []byte) (Ack, error)

	// Poll blocks until at least one record is available for group on topic or the
	// poll timeout elapses. It returns at most maxRecords messages and an empty,
	// non-nil slice on timeout.
	Poll(ctx context.Context, topic string, groupID string, maxRecords int) ([]Message, error)

	// Commit records, per partition, the highest offset among msgs as processed by group.
	Commit(ctx context.Context, topic string, groupID string, msgs []Message) error

	// Close shuts down the broker connection gracefully.
	Close() error
}

// Message represents a consumed message from a broker.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Offset    int64
	Partition int32
	Timestamp int64

	// Set by drivers that need it to commit (franz-go).
	leaderEpoch int32
}

// Ack identifies where a published record was stored.
type Ack struct {
	Topic     string
	Partition int32
	Offset    int64
}

// commitOffsets reduces msgs to the highest offset seen per partition.
func commitOffsets(msgs []Message) map[int32]int64 {
	offsets := make(map[int32]int64)
	for _, msg := range msgs {
		if cur, ok := offsets[msg.Partition]; !ok || msg.Offset > cur {
			offsets[msg.Partition] = msg.Offset
		}
	}
	return offsets
}
