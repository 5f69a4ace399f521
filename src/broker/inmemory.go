// Package broker provides implementations of the Client interface.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultPartitions is the partition count of topics created by InMemoryBroker.
const DefaultPartitions = 3

// InMemoryBroker is a partitioned, offset-tracking log kept in memory.
// Topics are created on first publish or poll. Each topic+group pair keeps a
// fetch position (advanced by Poll) and a committed offset (advanced by Commit);
// Rewind moves the position back to the committed offset, like a restart would.
type InMemoryBroker struct {
	mu          sync.Mutex
	partitions  int
	pollTimeout time.Duration
	topics      map[string]*memTopic
	groups      map[string]*memGroup // topic+groupID -> cursors
	signal      chan struct{}        // closed and replaced on every publish
	closed      bool
}

type memTopic struct {
	logs [][]Message
	rr   roundRobin
}

type memGroup struct {
	position  []int64
	committed []int64
	start     int // partition the next poll starts from
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker(partitions int, pollTimeout time.Duration) *InMemoryBroker {
	if partitions <= 0 {
		partitions = DefaultPartitions
	}
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &InMemoryBroker{
		partitions:  partitions,
		pollTimeout: pollTimeout,
		topics:      make(map[string]*memTopic),
		groups:      make(map[string]*memGroup),
		signal:      make(chan struct{}),
	}
}

func (b *InMemoryBroker) topic(name string) *memTopic {
	t, ok := b.topics[name]
	if !ok {
		t = &memTopic{logs: make([][]Message, b.partitions)}
		b.topics[name] = t
	}
	return t
}

func (b *InMemoryBroker) group(topic, groupID string) *memGroup {
	key := topic + ":" + groupID
	g, ok := b.groups[key]
	if !ok {
		g = &memGroup{
			position:  make([]int64, b.partitions),
			committed: make([]int64, b.partitions),
		}
		b.groups[key] = g
	}
	return g
}

// Publish appends the record to the partition chosen by the routing policy.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key []byte, value []byte) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Ack{}, ErrClosed
	}

	t := b.topic(topic)
	partition := routePartition(&t.rr, key, b.partitions)
	offset := int64(len(t.logs[partition]))

	t.logs[partition] = append(t.logs[partition], Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    offset,
		Partition: int32(partition),
		Timestamp: time.Now().UnixMilli(),
	})

	close(b.signal)
	b.signal = make(chan struct{})

	return Ack{Topic: topic, Partition: int32(partition), Offset: offset}, nil
}

// Poll returns up to maxRecords unread records for the group, waiting for the
// first one at most the poll timeout.
func (b *InMemoryBroker) Poll(ctx context.Context, topic string, groupID string, maxRecords int) ([]Message, error) {
	if maxRecords <= 0 {
		maxRecords = 1
	}

	timer := time.NewTimer(b.pollTimeout)
	defer timer.Stop()

	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return []Message{}, ErrClosed
		}
		msgs := b.take(topic, groupID, maxRecords)
		wait := b.signal
		b.mu.Unlock()

		if len(msgs) > 0 {
			return msgs, nil
		}

		select {
		case <-wait:
		case <-timer.C:
			return []Message{}, nil
		case <-ctx.Done():
			return []Message{}, ctx.Err()
		}
	}
}

// take reads from the group's positions, rotating the starting partition
// between polls. Callers must hold b.mu.
func (b *InMemoryBroker) take(topic, groupID string, maxRecords int) []Message {
	t := b.topic(topic)
	g := b.group(topic, groupID)

	msgs := make([]Message, 0, maxRecords)
	for i := 0; i < b.partitions && len(msgs) < maxRecords; i++ {
		p := (g.start + i) % b.partitions
		log := t.logs[p]
		for g.position[p] < int64(len(log)) && len(msgs) < maxRecords {
			msgs = append(msgs, log[g.position[p]])
			g.position[p]++
		}
	}
	g.start = (g.start + 1) % b.partitions
	return msgs
}

// Commit advances the group's committed offsets past the highest offset per partition.
func (b *InMemoryBroker) Commit(ctx context.Context, topic string, groupID string, msgs []Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	g := b.group(topic, groupID)
	for partition, offset := range commitOffsets(msgs) {
		if int(partition) >= b.partitions || partition < 0 {
			return fmt.Errorf("commit %s: partition %d out of range", topic, partition)
		}
		if next := offset + 1; next > g.committed[partition] {
			g.committed[partition] = next
		}
	}
	return nil
}

// Committed returns the next offset to read for the group on each partition.
func (b *InMemoryBroker) Committed(topic, groupID string) []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	g := b.group(topic, groupID)
	out := make([]int64, len(g.committed))
	copy(out, g.committed)
	return out
}

// Rewind resets the group's fetch positions to its committed offsets, so
// uncommitted records are delivered again.
func (b *InMemoryBroker) Rewind(topic, groupID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g := b.group(topic, groupID)
	copy(g.position, g.committed)
}

// Records returns a copy of one partition's log.
func (b *InMemoryBroker) Records(topic string, partition int) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	if partition < 0 || partition >= b.partitions {
		return nil
	}
	log := b.topic(topic).logs[partition]
	out := make([]Message, len(log))
	copy(out, log)
	return out
}

// Close marks the broker closed and wakes any blocked Poll.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.signal)
	b.signal = make(chan struct{})
	return nil
}
