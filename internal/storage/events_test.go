package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxleyb/timesage/internal/common"
	"github.com/oxleyb/timesage/internal/model"
	"github.com/oxleyb/timesage/internal/testutil"
)

func TestSaveAndGetEvent(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	saved := db.SeedEvent(ctx, model.Event{
		ID:               "evt-1",
		UserID:           "user-1",
		Title:            "Roadmap Planning",
		CalendarID:       "work",
		RecurringEventID: "recur-1",
		StartTime:        start,
		EndTime:          start.Add(time.Hour),
		Attendees: []model.Attendee{
			{Email: "alice@acme.com"},
			{Email: "bob@acme.com"},
		},
	})

	got, err := db.Storage.GetEventByID(ctx, "user-1", saved.ID)
	require.NoError(t, err)

	assert.Equal(t, "Roadmap Planning", got.Title)
	assert.Equal(t, "work", got.CalendarID)
	assert.Equal(t, "recur-1", got.RecurringEventID)
	assert.Equal(t, saved.Attendees, got.Attendees)
	assert.Nil(t, got.ProjectID)
	assert.False(t, got.IsDeleted())
}

func TestSaveEventsUpsertKeepsProject(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	event := db.SeedEvent(ctx, model.Event{ID: "evt-1", UserID: "user-1", Title: "Original"})

	projectID := "proj-1"
	require.NoError(t, db.Storage.SetEventProject(ctx, "user-1", event.ID, &projectID))

	// Re-importing the same event updates its fields but leaves the
	// assignment alone.
	event.Title = "Renamed"
	require.NoError(t, db.Storage.SaveEvents(ctx, []model.Event{event}))

	got, err := db.Storage.GetEventByID(ctx, "user-1", event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	require.NotNil(t, got.ProjectID)
	assert.Equal(t, "proj-1", *got.ProjectID)
}

func TestGetEventByIDExcludesDeleted(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	deletedAt := time.Now()
	db.SeedEvent(ctx, model.Event{
		ID:        "evt-gone",
		UserID:    "user-1",
		Title:     "Cancelled",
		DeletedAt: &deletedAt,
	})

	_, err := db.Storage.GetEventByID(ctx, "user-1", "evt-gone")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetEventByIDWrongUser(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	db.SeedEvent(ctx, model.Event{ID: "evt-1", UserID: "user-1", Title: "Private"})

	_, err := db.Storage.GetEventByID(ctx, "user-2", "evt-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetEventsByIDs(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	db.SeedEvent(ctx, model.Event{ID: "evt-1", UserID: "user-1", Title: "One"})
	db.SeedEvent(ctx, model.Event{ID: "evt-2", UserID: "user-1", Title: "Two"})
	db.SeedEvent(ctx, model.Event{ID: "evt-other", UserID: "user-2", Title: "Theirs"})

	events, err := db.Storage.GetEventsByIDs(ctx, "user-1", []string{"evt-1", "evt-2", "evt-other", "evt-missing"})
	require.NoError(t, err)
	require.Len(t, events, 2)

	t.Run("empty ID list", func(t *testing.T) {
		events, err := db.Storage.GetEventsByIDs(ctx, "user-1", nil)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestSetEventProject(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	event := db.SeedEvent(ctx, model.Event{ID: "evt-1", UserID: "user-1", Title: "Standup"})

	projectID := "proj-1"
	require.NoError(t, db.Storage.SetEventProject(ctx, "user-1", event.ID, &projectID))

	got, err := db.Storage.GetEventByID(ctx, "user-1", event.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCategorized())

	t.Run("clearing the assignment", func(t *testing.T) {
		require.NoError(t, db.Storage.SetEventProject(ctx, "user-1", event.ID, nil))

		got, err := db.Storage.GetEventByID(ctx, "user-1", event.ID)
		require.NoError(t, err)
		assert.False(t, got.IsCategorized())
	})

	t.Run("unknown event", func(t *testing.T) {
		err := db.Storage.SetEventProject(ctx, "user-1", "evt-missing", &projectID)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestCountCategorizedEvents(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	db.SeedCategorizedEvents(ctx, "user-1", "proj-1", 3)
	db.SeedEvent(ctx, model.Event{ID: "evt-uncat", UserID: "user-1", Title: "Loose"})

	count, err := db.Storage.CountCategorizedEvents(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCountEventsInWindow(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	projectID := "proj-1"

	db.SeedEvent(ctx, model.Event{ID: "evt-in-1", UserID: "user-1", StartTime: base.Add(time.Hour), ProjectID: &projectID})
	db.SeedEvent(ctx, model.Event{ID: "evt-in-2", UserID: "user-1", StartTime: base.Add(2 * time.Hour)})
	db.SeedEvent(ctx, model.Event{ID: "evt-before", UserID: "user-1", StartTime: base.Add(-time.Hour), ProjectID: &projectID})
	db.SeedEvent(ctx, model.Event{ID: "evt-after", UserID: "user-1", StartTime: base.Add(48 * time.Hour)})

	from := base
	to := base.Add(24 * time.Hour)

	total, err := db.Storage.CountEventsInWindow(ctx, "user-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	categorized, err := db.Storage.CountCategorizedEventsInWindow(ctx, "user-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, categorized)
}

func TestSaveEventsValidation(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	t.Run("empty batch", func(t *testing.T) {
		assert.Error(t, db.Storage.SaveEvents(ctx, nil))
	})

	t.Run("event without ID", func(t *testing.T) {
		assert.Error(t, db.Storage.SaveEvents(ctx, []model.Event{{UserID: "user-1"}}))
	})

	t.Run("event without user", func(t *testing.T) {
		assert.Error(t, db.Storage.SaveEvents(ctx, []model.Event{{ID: "evt-1"}}))
	})
}
