package broker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// fetchLinger is how long Poll keeps draining the reader buffer after the first record.
const fetchLinger = 20 * time.Millisecond

// KafkaGoBroker implements Client on segmentio/kafka-go.
// It is selected with BROKER_DRIVER=kafka-go.
type KafkaGoBroker struct {
	writer          *kafka.Writer
	brokers         []string
	pollTimeout     time.Duration
	deliveryTimeout time.Duration
	mu              sync.Mutex
	readers         map[string]*kafka.Reader
	closed          bool
}

// NewKafkaGoBroker creates a broker backed by a kafka-go Writer and one Reader per topic+group.
func NewKafkaGoBroker(brokers []string, pollTimeout, deliveryTimeout time.Duration) (*KafkaGoBroker, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	if deliveryTimeout <= 0 {
		deliveryTimeout = DefaultDeliveryTimeout
	}

	// Hash falls back to round-robin for nil keys and uses FNV-1a otherwise,
	// matching HashPartition.
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}

	return &KafkaGoBroker{
		writer:          writer,
		brokers:         brokers,
		pollTimeout:     pollTimeout,
		deliveryTimeout: deliveryTimeout,
		readers:         make(map[string]*kafka.Reader),
	}, nil
}

// Publish writes one message synchronously. kafka-go does not report where the
// record landed, so the Ack carries partition and offset -1.
func (b *KafkaGoBroker) Publish(ctx context.Context, topic string, key []byte, value []byte) (Ack, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return Ack{}, ErrClosed
	}

	writeCtx, cancel := context.WithTimeout(ctx, b.deliveryTimeout)
	defer cancel()

	err := b.writer.WriteMessages(writeCtx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
	if err != nil {
		var tooLarge kafka.MessageTooLargeError
		if errors.As(err, &tooLarge) {
			return Ack{}, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		return Ack{}, fmt.Errorf("%w: failed to write to %s: %v", ErrBrokerUnavailable, topic, err)
	}

	return Ack{Topic: topic, Partition: -1, Offset: -1}, nil
}

func (b *KafkaGoBroker) reader(topic, groupID string) (*kafka.Reader, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	readerKey := fmt.Sprintf("%s:%s", topic, groupID)
	if r, ok := b.readers[readerKey]; ok {
		return r, nil
	}

	// CommitInterval zero keeps CommitMessages synchronous.
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		GroupID:     groupID,
		Topic:       topic,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})
	b.readers[readerKey] = r
	return r, nil
}

// Poll fetches the first message within the poll timeout, then drains whatever
// the reader already buffered, up to maxRecords.
func (b *KafkaGoBroker) Poll(ctx context.Context, topic string, groupID string, maxRecords int) ([]Message, error) {
	r, err := b.reader(topic, groupID)
	if err != nil {
		return []Message{}, err
	}
	if maxRecords <= 0 {
		maxRecords = 1
	}

	msgs := make([]Message, 0, maxRecords)

	pollCtx, cancel := context.WithTimeout(ctx, b.pollTimeout)
	first, err := r.FetchMessage(pollCtx)
	cancel()
	if err != nil {
		return msgs, b.fetchError(ctx, err)
	}
	msgs = append(msgs, fromKafkaGo(first))

	for len(msgs) < maxRecords {
		lingerCtx, cancel := context.WithTimeout(ctx, fetchLinger)
		m, err := r.FetchMessage(lingerCtx)
		cancel()
		if err != nil {
			break
		}
		msgs = append(msgs, fromKafkaGo(m))
	}

	return msgs, nil
}

func (b *KafkaGoBroker) fetchError(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return nil
	case errors.Is(err, io.EOF):
		return ErrClosed
	default:
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}
}

func fromKafkaGo(m kafka.Message) Message {
	return Message{
		Topic:     m.Topic,
		Key:       m.Key,
		Value:     m.Value,
		Offset:    m.Offset,
		Partition: int32(m.Partition),
		Timestamp: m.Time.UnixMilli(),
	}
}

// Commit commits the given messages through the group's reader.
func (b *KafkaGoBroker) Commit(ctx context.Context, topic string, groupID string, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}

	r, err := b.reader(topic, groupID)
	if err != nil {
		return err
	}

	offsets := commitOffsets(msgs)
	toCommit := make([]kafka.Message, 0, len(offsets))
	for partition, offset := range offsets {
		toCommit = append(toCommit, kafka.Message{
			Topic:     topic,
			Partition: int(partition),
			Offset:    offset,
		})
	}

	if err := r.CommitMessages(ctx, toCommit...); err != nil {
		return fmt.Errorf("%w: commit %s for %s: %v", ErrBrokerUnavailable, topic, groupID, err)
	}
	return nil
}

// Close closes the writer and every reader.
func (b *KafkaGoBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for _, r := range b.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.readers = make(map[string]*kafka.Reader)

	if err := b.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
