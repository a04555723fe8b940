package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/task-assistant/internal/model"
	"github.com/nhle/task-assistant/internal/store"
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

// NewTestUser inserts an active user reachable at address.
func NewTestUser(t *testing.T, s store.Store, address string) *model.User {
	t.Helper()

	u, err := s.CreateUser(context.Background(), model.User{
		Name:     "Test",
		Address:  address,
		Channel:  model.ChannelConsole,
		Timezone: "America/Mexico_City",
		Active:   true,
	})
	if err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return u
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
