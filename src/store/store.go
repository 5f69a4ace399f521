// Package store defines the interface for persisting processing outcomes.
package store

import (
	"context"
	"fmt"
	"time"
)

// OutcomeRecord is the audit entry written for every processing attempt.
type OutcomeRecord struct {
	// Transaction id read from the document, empty when absent or undecodable.
	TranID    string
	Topic     string
	Partition int32
	Offset    int64
	// "logged" or "failed".
	Outcome string
	// Decode error text for failed outcomes.
	Error       string
	ProcessedAt time.Time
}

// ErrNotFound is returned when no outcome exists for a transaction id.
type ErrNotFound struct {
	TranID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("no outcomes for api_tran_id %s", e.TranID)
}

// Store defines the interface for persisting processing outcomes.
type Store interface {
	// SaveOutcome records one processing attempt
	SaveOutcome(ctx context.Context, rec OutcomeRecord) error

	// GetOutcomes returns every attempt recorded for a transaction id, oldest first
	GetOutcomes(ctx context.Context, tranID string) ([]OutcomeRecord, error)

	// Close closes the store connection
	Close() error
}
