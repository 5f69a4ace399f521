package consume

import (
	"context"

	"kafka-relay/src/broker"
	"kafka-relay/src/logger"
)

// RecordConsumer polls a single record per cycle and commits it right after
// the processing attempt.
type RecordConsumer struct {
	client    broker.Client
	processor Processor
	opts      Options
	logger    logger.Logger
	backoff   *backoff
}

// NewRecordConsumer creates a record consumer. opts.MaxBatchSize is ignored.
func NewRecordConsumer(client broker.Client, p Processor, opts Options, log logger.Logger) *RecordConsumer {
	opts.MaxBatchSize = 1
	return &RecordConsumer{
		client:    client,
		processor: p,
		opts:      opts,
		logger:    log,
		backoff:   newBackoff(opts.RetryBackoffMin, opts.RetryBackoffMax),
	}
}

// Run loops over Cycle until ctx is cancelled or the broker is closed.
func (c *RecordConsumer) Run(ctx context.Context) error {
	c.logger.Info("[RecordConsumer] Listening on '%s' as group '%s'", c.opts.Topic, c.opts.GroupID)
	return run(ctx, "RecordConsumer", c.Cycle, c.backoff, c.logger)
}

// Cycle polls one record, processes it and commits its offset whether it was
// logged or failed.
func (c *RecordConsumer) Cycle(ctx context.Context) (Report, error) {
	msgs, err := poll(ctx, c.client, c.opts, 1)
	if err != nil {
		return Report{}, err
	}

	var report Report
	// A driver may hand back more than asked; each record still gets its own commit.
	for _, msg := range msgs {
		report.Polled++
		c.logger.Debug("[RecordConsumer] Received single message from topic: %s", msg.Topic)

		report.add(c.processor.Process(ctx, msg))

		if err := commit(ctx, c.client, c.opts, "record", []broker.Message{msg}, c.backoff, c.logger); err != nil {
			return report, err
		}
		report.Committed++
	}
	return report, nil
}
