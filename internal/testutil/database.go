// Package testutil provides shared test helpers for the timesage project:
// in-memory databases with migrations applied and builders for seeding
// projects, events, and rules.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oxleyb/timesage/internal/model"
	"github.com/oxleyb/timesage/internal/service"
	"github.com/oxleyb/timesage/internal/storage"
)

// TestDB wraps an in-memory storage with seeding helpers.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database with migrations applied
// and cleanup registered.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// SeedProject creates a project for the user, failing the test on error.
func (db *TestDB) SeedProject(ctx context.Context, userID, name string) *model.Project {
	db.t.Helper()

	project, err := db.Storage.CreateProject(ctx, userID, name)
	if err != nil {
		db.t.Fatalf("failed to seed project %q: %v", name, err)
	}
	return project
}

// SeedEvent saves one event, failing the test on error. Zero start times
// default to now.
func (db *TestDB) SeedEvent(ctx context.Context, event model.Event) model.Event {
	db.t.Helper()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.StartTime.IsZero() {
		event.StartTime = time.Now()
	}
	if event.EndTime.IsZero() {
		event.EndTime = event.StartTime.Add(time.Hour)
	}

	if err := db.Storage.SaveEvents(ctx, []model.Event{event}); err != nil {
		db.t.Fatalf("failed to seed event %q: %v", event.ID, err)
	}
	return event
}

// SeedCategorizedEvents saves count events assigned to the given project so
// a user clears the cold-start gate.
func (db *TestDB) SeedCategorizedEvents(ctx context.Context, userID, projectID string, count int) {
	db.t.Helper()

	events := make([]model.Event, count)
	for i := range events {
		start := time.Now().Add(time.Duration(-i) * 24 * time.Hour)
		events[i] = model.Event{
			ID:        uuid.NewString(),
			UserID:    userID,
			Title:     "seeded event",
			ProjectID: &projectID,
			StartTime: start,
			EndTime:   start.Add(time.Hour),
		}
	}

	if err := db.Storage.SaveEvents(ctx, events); err != nil {
		db.t.Fatalf("failed to seed categorized events: %v", err)
	}
}
