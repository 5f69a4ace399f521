package consume

import (
	"context"

	"kafka-relay/src/broker"
	"kafka-relay/src/contracts"
	"kafka-relay/src/logger"
	"kafka-relay/src/metrics"
)

// BatchConsumer polls up to MaxBatchSize records, processes them as a unit and
// commits once for the batch.
type BatchConsumer struct {
	client    broker.Client
	processor Processor
	opts      Options
	logger    logger.Logger
	backoff   *backoff
}

// NewBatchConsumer creates a batch consumer. MaxBatchSize defaults to 10.
func NewBatchConsumer(client broker.Client, p Processor, opts Options, log logger.Logger) *BatchConsumer {
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = contracts.DefaultMaxBatchSize
	}
	return &BatchConsumer{
		client:    client,
		processor: p,
		opts:      opts,
		logger:    log,
		backoff:   newBackoff(opts.RetryBackoffMin, opts.RetryBackoffMax),
	}
}

// Run loops over Cycle until ctx is cancelled or the broker is closed.
func (c *BatchConsumer) Run(ctx context.Context) error {
	c.logger.Info("[BatchConsumer] Listening on '%s' as group '%s' (max %d per poll)",
		c.opts.Topic, c.opts.GroupID, c.opts.MaxBatchSize)
	return run(ctx, "BatchConsumer", c.Cycle, c.backoff, c.logger)
}

// Cycle polls one batch, hands it to the processor and commits the last offset
// of each partition in it. An empty poll returns a zero Report.
func (c *BatchConsumer) Cycle(ctx context.Context) (Report, error) {
	msgs, err := poll(ctx, c.client, c.opts, c.opts.MaxBatchSize)
	if err != nil {
		return Report{}, err
	}
	if len(msgs) == 0 {
		return Report{}, nil
	}

	report := Report{Polled: len(msgs)}
	metrics.BatchSize.Observe(float64(len(msgs)))
	c.logger.Info("[BatchConsumer] Received batch of %d messages from topic: %s", len(msgs), c.opts.Topic)

	for _, outcome := range c.processor.ProcessBatch(ctx, msgs) {
		report.add(outcome)
	}

	if err := commit(ctx, c.client, c.opts, "batch", msgs, c.backoff, c.logger); err != nil {
		return report, err
	}
	report.Committed = 1

	c.logger.Info("[BatchConsumer] Completed processing batch from %s (%d logged, %d failed)",
		c.opts.Topic, report.Logged, report.Failed)
	return report, nil
}
