// Package store provides an in-memory store implementation.
package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store.
// Useful for testing and local mode.
type MemoryStore struct {
	mu       sync.RWMutex
	byTranID map[string][]OutcomeRecord
	failed   []OutcomeRecord // outcomes without a transaction id
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byTranID: make(map[string][]OutcomeRecord),
	}
}

// SaveOutcome records one processing attempt.
func (s *MemoryStore) SaveOutcome(ctx context.Context, rec OutcomeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.TranID == "" {
		s.failed = append(s.failed, rec)
		return nil
	}
	s.byTranID[rec.TranID] = append(s.byTranID[rec.TranID], rec)
	return nil
}

// GetOutcomes returns every attempt recorded for a transaction id.
func (s *MemoryStore) GetOutcomes(ctx context.Context, tranID string) ([]OutcomeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, ok := s.byTranID[tranID]
	if !ok {
		return nil, ErrNotFound{TranID: tranID}
	}
	out := make([]OutcomeRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// Untracked returns outcomes that carried no transaction id (typically decode failures).
func (s *MemoryStore) Untracked() []OutcomeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]OutcomeRecord, len(s.failed))
	copy(out, s.failed)
	return out
}

// Close is a no-op for in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
