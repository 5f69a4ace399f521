// Package process decodes consumed messages and records the outcome.
// A message that fails to decode is logged and reported as Failed; it never
// aborts the batch or the consumer loop it came from.
package process

import (
	"context"
	"time"

	"kafka-relay/src/broker"
	"kafka-relay/src/contracts"
	"kafka-relay/src/logger"
	"kafka-relay/src/metrics"
	"kafka-relay/src/sanitize"
	"kafka-relay/src/store"
)

// Outcome is the terminal result of processing one message.
type Outcome int

const (
	// Logged means the body decoded and its structured record was emitted.
	Logged Outcome = iota
	// Failed means the body was not valid JSON. The parse is not retried.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Logged:
		return "logged"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Codec is the JSON codec the processor decodes bodies with.
type Codec interface {
	Decode(data []byte) (interface{}, error)
	Encode(v interface{}) ([]byte, error)
}

// Processor turns consumed messages into log records and outcomes.
type Processor struct {
	codec  Codec
	logger logger.Logger
	store  store.Store
}

// NewProcessor creates a processor. st may be nil to skip outcome persistence.
func NewProcessor(c Codec, log logger.Logger, st store.Store) *Processor {
	return &Processor{
		codec:  c,
		logger: log,
		store:  st,
	}
}

// Process decodes msg.Value and logs the document, or logs the raw body and the
// parse error. It never returns an error.
func (p *Processor) Process(ctx context.Context, msg broker.Message) Outcome {
	log := p.logger.With(
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
	)

	rec := store.OutcomeRecord{
		Topic:       msg.Topic,
		Partition:   msg.Partition,
		Offset:      msg.Offset,
		ProcessedAt: time.Now().UTC(),
	}

	outcome := Logged
	doc, err := p.codec.Decode(msg.Value)
	if err != nil {
		outcome = Failed
		rec.Error = err.Error()
		log.With("outcome", outcome.String(), "raw", sanitize.RawBody(msg.Value, sanitize.DefaultLimit), "err", err).
			Error("[Processor] Failed to parse JSON message")
	} else {
		rec.TranID = tranID(doc)
		document, _ := p.codec.Encode(doc)
		log.With("outcome", outcome.String(), contracts.TranIDField, rec.TranID, "document", string(document)).
			Info("[Processor] Processed message")
	}

	rec.Outcome = outcome.String()
	metrics.MessagesProcessed.WithLabelValues(msg.Topic, rec.Outcome).Inc()

	if p.store != nil {
		if err := p.store.SaveOutcome(ctx, rec); err != nil {
			log.Error("[Processor] Failed to save outcome: %v", err)
		}
	}

	return outcome
}

// ProcessBatch processes every message in order and returns the outcomes.
func (p *Processor) ProcessBatch(ctx context.Context, msgs []broker.Message) []Outcome {
	p.logger.Info("[Processor] Processing batch of %d messages", len(msgs))

	outcomes := make([]Outcome, 0, len(msgs))
	for _, msg := range msgs {
		outcomes = append(outcomes, p.Process(ctx, msg))
	}

	p.logger.Info("[Processor] Completed processing batch of %d messages", len(msgs))
	return outcomes
}

func tranID(doc interface{}) string {
	obj, ok := doc.(map[string]interface{})
	if !ok {
		return ""
	}
	id, _ := obj[contracts.TranIDField].(string)
	return id
}
