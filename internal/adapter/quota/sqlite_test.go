package quota

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"readyscriptpro/internal/domain"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "quota.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	rec := &domain.UsageRecord{UserID: "user-1", Day: "2026-08-31", Count: 2}
	if err := store.Set(ctx, rec); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "user-1" || got.Day != "2026-08-31" || got.Count != 2 {
		t.Errorf("record = %+v, want %+v", got, rec)
	}
}

func TestSQLiteStoreUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	if err := store.Set(ctx, &domain.UsageRecord{UserID: "user-1", Day: "2026-08-30", Count: 3}); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, &domain.UsageRecord{UserID: "user-1", Day: "2026-08-31", Count: 1}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Day != "2026-08-31" || got.Count != 1 {
		t.Errorf("record = %+v, want replaced day and count", got)
	}
}

func TestSQLiteStoreNotFound(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStoreClear(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	if err := store.Set(ctx, &domain.UsageRecord{UserID: "user-1", Day: "2026-08-31", Count: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(ctx, "user-1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := store.Get(ctx, "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error after clear = %v, want ErrNotFound", err)
	}

	// Clearing again is a no-op.
	if err := store.Clear(ctx, "user-1"); err != nil {
		t.Errorf("Clear absent: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Get(ctx, "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	if err := store.Set(ctx, &domain.UsageRecord{UserID: "user-1", Day: "2026-08-31", Count: 1}); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Count != 1 {
		t.Errorf("count = %d, want 1", got.Count)
	}

	// Mutating the returned record must not affect the stored copy.
	got.Count = 99
	again, _ := store.Get(ctx, "user-1")
	if again.Count != 1 {
		t.Errorf("stored count = %d, want 1", again.Count)
	}

	if err := store.Clear(ctx, "user-1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := store.Get(ctx, "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error after clear = %v, want ErrNotFound", err)
	}
}
