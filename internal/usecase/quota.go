package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"readyscriptpro/internal/domain"
)

// DefaultDailyLimit is the free-tier generation allowance per calendar day.
const DefaultDailyLimit = 3

const dayFormat = "2006-01-02"

// UsageCounter enforces the per-user daily generation limit. Records reset
// lazily: a record from an earlier UTC day counts as zero on the next read,
// no background job needed.
type UsageCounter struct {
	store domain.QuotaStore
	limit int
	now   func() time.Time
}

// NewUsageCounter creates a counter over store. limit <= 0 selects the
// default daily limit.
func NewUsageCounter(store domain.QuotaStore, limit int) *UsageCounter {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &UsageCounter{
		store: store,
		limit: limit,
		now:   time.Now,
	}
}

// count returns today's consumed generations for userID.
func (c *UsageCounter) count(ctx context.Context, userID string) (int, error) {
	rec, err := c.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", domain.ErrQuotaStore, err)
	}
	if rec.Day != c.today() {
		// Stale record from a previous day: the quota has reset.
		return 0, nil
	}
	return rec.Count, nil
}

// CanGenerate reports whether userID has quota left today.
func (c *UsageCounter) CanGenerate(ctx context.Context, userID string) (bool, error) {
	n, err := c.count(ctx, userID)
	if err != nil {
		return false, err
	}
	return n < c.limit, nil
}

// UseGeneration consumes one generation. Returns ErrLimitReached when the
// daily allowance is exhausted.
func (c *UsageCounter) UseGeneration(ctx context.Context, userID string) error {
	n, err := c.count(ctx, userID)
	if err != nil {
		return err
	}
	if n >= c.limit {
		return domain.NewDomainError("UsageCounter.UseGeneration", domain.ErrLimitReached,
			fmt.Sprintf("daily limit of %d generations used", c.limit))
	}
	rec := &domain.UsageRecord{
		UserID: userID,
		Day:    c.today(),
		Count:  n + 1,
	}
	if err := c.store.Set(ctx, rec); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQuotaStore, err)
	}
	return nil
}

// Remaining returns how many generations userID has left today.
func (c *UsageCounter) Remaining(ctx context.Context, userID string) (int, error) {
	n, err := c.count(ctx, userID)
	if err != nil {
		return 0, err
	}
	remaining := c.limit - n
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the usage record for userID.
func (c *UsageCounter) Reset(ctx context.Context, userID string) error {
	if err := c.store.Clear(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQuotaStore, err)
	}
	return nil
}

// TimeUntilReset returns the duration until the next UTC midnight, when the
// daily quota resets.
func (c *UsageCounter) TimeUntilReset() time.Duration {
	now := c.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return midnight.Sub(now)
}

func (c *UsageCounter) today() string {
	return c.now().UTC().Format(dayFormat)
}
