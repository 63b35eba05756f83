// Package quota provides usage-record stores backing the daily counter.
package quota

import (
	"context"
	"sync"

	"readyscriptpro/internal/domain"
)

// MemoryStore keeps usage records in process memory. Records do not survive
// a restart; suitable for tests and single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*domain.UsageRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*domain.UsageRecord)}
}

// Get returns the record for a user or domain.ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, userID string) (*domain.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, domain.NewDomainError("MemoryStore.Get", domain.ErrNotFound, userID)
	}
	cp := *rec
	return &cp, nil
}

// Set stores or replaces a user's record.
func (s *MemoryStore) Set(_ context.Context, rec *domain.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.records[rec.UserID] = &cp
	return nil
}

// Clear removes a user's record. Clearing an absent record is not an error.
func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, userID)
	return nil
}

var _ domain.QuotaStore = (*MemoryStore)(nil)
