package domain

import "context"

// UsageRecord tracks how many generations a user consumed on a calendar day.
type UsageRecord struct {
	UserID string `json:"user_id"`
	Day    string `json:"day"` // UTC calendar day, formatted 2006-01-02
	Count  int    `json:"count"`
}

// QuotaStore persists usage records. Get returns ErrNotFound when the user
// has no record.
type QuotaStore interface {
	Get(ctx context.Context, userID string) (*UsageRecord, error)
	Set(ctx context.Context, rec *UsageRecord) error
	Clear(ctx context.Context, userID string) error
}
