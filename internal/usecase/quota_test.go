package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"readyscriptpro/internal/domain"
)

// mapStore is a minimal in-process QuotaStore for counter tests.
type mapStore struct {
	mu   sync.Mutex
	recs map[string]*domain.UsageRecord
}

func newMapStore() *mapStore {
	return &mapStore{recs: make(map[string]*domain.UsageRecord)}
}

func (s *mapStore) Get(_ context.Context, userID string) (*domain.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *mapStore) Set(_ context.Context, rec *domain.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.recs[rec.UserID] = &cp
	return nil
}

func (s *mapStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, userID)
	return nil
}

func fixedCounter(store domain.QuotaStore, limit int, at time.Time) *UsageCounter {
	c := NewUsageCounter(store, limit)
	c.now = func() time.Time { return at }
	return c
}

func TestUsageCounterLifecycle(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)
	c := fixedCounter(newMapStore(), 3, at)

	for i := 0; i < 3; i++ {
		ok, err := c.CanGenerate(ctx, "user-1")
		if err != nil {
			t.Fatalf("CanGenerate: %v", err)
		}
		if !ok {
			t.Fatalf("generation %d should be allowed", i+1)
		}
		if err := c.UseGeneration(ctx, "user-1"); err != nil {
			t.Fatalf("UseGeneration: %v", err)
		}
	}

	ok, err := c.CanGenerate(ctx, "user-1")
	if err != nil {
		t.Fatalf("CanGenerate: %v", err)
	}
	if ok {
		t.Error("fourth generation should be blocked")
	}

	err = c.UseGeneration(ctx, "user-1")
	if !errors.Is(err, domain.ErrLimitReached) {
		t.Errorf("error = %v, want ErrLimitReached", err)
	}

	remaining, err := c.Remaining(ctx, "user-1")
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
}

func TestUsageCounterLazyDayReset(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	day1 := time.Date(2026, 8, 30, 23, 50, 0, 0, time.UTC)
	c := fixedCounter(store, 3, day1)

	for i := 0; i < 3; i++ {
		if err := c.UseGeneration(ctx, "user-1"); err != nil {
			t.Fatalf("UseGeneration: %v", err)
		}
	}

	// Next calendar day: the stale record counts as zero.
	c.now = func() time.Time { return day1.Add(time.Hour) }

	ok, err := c.CanGenerate(ctx, "user-1")
	if err != nil {
		t.Fatalf("CanGenerate: %v", err)
	}
	if !ok {
		t.Error("quota should reset on the next UTC day")
	}

	remaining, err := c.Remaining(ctx, "user-1")
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 3 {
		t.Errorf("remaining = %d, want full allowance", remaining)
	}

	if err := c.UseGeneration(ctx, "user-1"); err != nil {
		t.Fatalf("UseGeneration after reset: %v", err)
	}
	rec, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Day != "2026-08-31" || rec.Count != 1 {
		t.Errorf("record = %+v, want fresh day with count 1", rec)
	}
}

func TestUsageCounterUnknownUser(t *testing.T) {
	ctx := context.Background()
	c := fixedCounter(newMapStore(), 3, time.Now())

	remaining, err := c.Remaining(ctx, "new-user")
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 3 {
		t.Errorf("remaining = %d, want 3", remaining)
	}
}

func TestUsageCounterReset(t *testing.T) {
	ctx := context.Background()
	c := fixedCounter(newMapStore(), 3, time.Now())

	if err := c.UseGeneration(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	if err := c.Reset(ctx, "user-1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	remaining, _ := c.Remaining(ctx, "user-1")
	if remaining != 3 {
		t.Errorf("remaining = %d after reset, want 3", remaining)
	}
}

func TestTimeUntilReset(t *testing.T) {
	at := time.Date(2026, 8, 31, 22, 0, 0, 0, time.UTC)
	c := fixedCounter(newMapStore(), 3, at)

	if got := c.TimeUntilReset(); got != 2*time.Hour {
		t.Errorf("TimeUntilReset = %v, want 2h", got)
	}
}

func TestNewUsageCounterDefaultLimit(t *testing.T) {
	c := NewUsageCounter(newMapStore(), 0)
	if c.limit != DefaultDailyLimit {
		t.Errorf("limit = %d, want default %d", c.limit, DefaultDailyLimit)
	}
}
