// Package consume drains the delivery topics with explicit poll loops.
//
// Both consumers cycle Idle -> Polling -> Processing -> Committing -> Idle.
// BatchConsumer commits once per batch, after every message was attempted;
// RecordConsumer commits after each message. A crash before the commit
// redelivers the whole batch or the single record respectively.
package consume

import (
	"context"
	"errors"
	"time"

	"kafka-relay/src/broker"
	"kafka-relay/src/logger"
	"kafka-relay/src/metrics"
	"kafka-relay/src/process"
)

// Processor handles consumed messages. *process.Processor implements it.
type Processor interface {
	Process(ctx context.Context, msg broker.Message) process.Outcome
	ProcessBatch(ctx context.Context, msgs []broker.Message) []process.Outcome
}

// Options configures a consumer.
type Options struct {
	Topic   string
	GroupID string
	// MaxBatchSize is only used by BatchConsumer.
	MaxBatchSize    int
	RetryBackoffMin time.Duration
	RetryBackoffMax time.Duration
}

// Report summarizes one cycle.
type Report struct {
	Polled    int
	Logged    int
	Failed    int
	Committed int
}

func (r *Report) add(outcome process.Outcome) {
	if outcome == process.Failed {
		r.Failed++
	} else {
		r.Logged++
	}
}

// cycleFunc runs one Polling -> Committing pass.
type cycleFunc func(ctx context.Context) (Report, error)

// run repeats cycle until ctx is done or the broker is closed. Broker errors are
// retried indefinitely with exponential backoff; a clean cycle resets the delay.
func run(ctx context.Context, name string, cycle cycleFunc, bo *backoff, log logger.Logger) error {
	log.Info("[%s] Starting...", name)

	for {
		if err := ctx.Err(); err != nil {
			log.Info("[%s] Context cancelled, shutting down", name)
			return err
		}

		_, err := cycle(ctx)
		switch {
		case err == nil:
			bo.reset()
		case errors.Is(err, broker.ErrClosed):
			log.Info("[%s] Broker closed, shutting down", name)
			return nil
		case ctx.Err() != nil:
			log.Info("[%s] Context cancelled, shutting down", name)
			return ctx.Err()
		default:
			delay := bo.duration()
			log.Error("[%s] Cycle failed, retrying in %s: %v", name, delay, err)
			if err := sleep(ctx, delay); err != nil {
				log.Info("[%s] Context cancelled, shutting down", name)
				return err
			}
		}
	}
}

// commit retries ErrBrokerUnavailable until the broker accepts the commit or
// ctx is done. Any other error is returned and the records are redelivered on
// the next poll. Processing is never repeated here.
func commit(ctx context.Context, client broker.Client, opts Options, mode string, msgs []broker.Message, bo *backoff, log logger.Logger) error {
	for {
		err := client.Commit(ctx, opts.Topic, opts.GroupID, msgs)
		if err == nil {
			metrics.OffsetCommits.WithLabelValues(opts.Topic, mode).Inc()
			return nil
		}

		metrics.BrokerErrors.WithLabelValues(opts.Topic, "commit").Inc()
		if !errors.Is(err, broker.ErrBrokerUnavailable) || ctx.Err() != nil {
			return err
		}

		delay := bo.duration()
		log.Error("[Consumer] Commit on %s failed, retrying in %s: %v", opts.Topic, delay, err)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func poll(ctx context.Context, client broker.Client, opts Options, max int) ([]broker.Message, error) {
	msgs, err := client.Poll(ctx, opts.Topic, opts.GroupID, max)
	if err != nil && ctx.Err() == nil && !errors.Is(err, broker.ErrClosed) {
		metrics.BrokerErrors.WithLabelValues(opts.Topic, "poll").Inc()
	}
	return msgs, err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
