package testutil

import (
	"context"
	"testing"

	"github.com/vitrix/updates-center/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Seed creates each record (a struct with JSON tags) as entity in s.
func Seed(t *testing.T, s store.Store, entity string, records ...any) {
	t.Helper()

	for _, r := range records {
		fields, err := store.Fields(r)
		if err != nil {
			t.Fatalf("encoding %s seed: %v", entity, err)
		}
		if _, err := s.Create(context.Background(), entity, fields); err != nil {
			t.Fatalf("seeding %s: %v", entity, err)
		}
	}
}
