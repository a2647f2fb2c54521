package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxleyb/timesage/internal/engine"
	"github.com/oxleyb/timesage/internal/model"
	"github.com/oxleyb/timesage/internal/testutil"
)

// Exercises the full loop against real SQLite: manual categorizations create
// rules, the suggestion engine picks them up, and a rejection weakens the
// rules enough to change later suggestions.
func TestLearnThenSuggest(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	project := db.SeedProject(ctx, "user-1", "Apollo")
	db.SeedCategorizedEvents(ctx, "user-1", project.ID, 5)

	cache := engine.NewRuleCache(db.Storage, time.Minute)
	feedback := engine.NewFeedbackEngine(db.Storage, cache)
	suggester := engine.NewSuggestionEngine(db.Storage, cache)

	event := db.SeedEvent(ctx, model.Event{
		ID:               "evt-standup",
		UserID:           "user-1",
		Title:            "Apollo Standup",
		RecurringEventID: "recur-standup",
		Attendees:        []model.Attendee{{Email: "alice@acme.com"}},
	})

	// Categorizing the event teaches rules for every signal; confirming it
	// a few times lifts them past the suggestion floor.
	for i := 0; i < 3; i++ {
		feedback.HandleCategorizationFeedback(ctx, "user-1", event.ID, project.ID, nil)
	}

	next := db.SeedEvent(ctx, model.Event{
		ID:               "evt-next",
		UserID:           "user-1",
		Title:            "Apollo Standup",
		RecurringEventID: "recur-standup",
		Attendees:        []model.Attendee{{Email: "alice@acme.com"}},
	})

	suggestion := suggester.GenerateSuggestion(ctx, next, "user-1")
	require.NotNil(t, suggestion)
	assert.Equal(t, project.ID, suggestion.ProjectID)
	assert.Equal(t, "Apollo", suggestion.ProjectName)
	assert.GreaterOrEqual(t, suggestion.Confidence, 0.6)
	assert.NotEmpty(t, suggestion.Reasoning)
}

func TestRejectionRedirectsLearning(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	apollo := db.SeedProject(ctx, "user-1", "Apollo")
	zephyr := db.SeedProject(ctx, "user-1", "Zephyr")
	db.SeedCategorizedEvents(ctx, "user-1", apollo.ID, 5)

	cache := engine.NewRuleCache(db.Storage, time.Minute)
	feedback := engine.NewFeedbackEngine(db.Storage, cache)

	event := db.SeedEvent(ctx, model.Event{
		ID:               "evt-1",
		UserID:           "user-1",
		Title:            "Budget Review",
		RecurringEventID: "recur-budget",
	})

	// Learn toward Apollo first.
	feedback.HandleCategorizationFeedback(ctx, "user-1", event.ID, apollo.ID, nil)

	apolloKey := model.RuleKey{
		UserID:    "user-1",
		ProjectID: apollo.ID,
		RuleType:  model.RuleTypeRecurringEvent,
		Condition: "recur-budget",
	}
	before, err := db.Storage.GetRuleByKey(ctx, apolloKey)
	require.NoError(t, err)

	// The user rejects an Apollo suggestion in favor of Zephyr.
	suggested := apollo.ID
	feedback.HandleCategorizationFeedback(ctx, "user-1", event.ID, zephyr.ID, &suggested)

	weakened, err := db.Storage.GetRuleByKey(ctx, apolloKey)
	require.NoError(t, err)
	assert.Less(t, weakened.ConfidenceScore, before.ConfidenceScore)
	assert.Equal(t, before.TotalSuggestions+1, weakened.TotalSuggestions)

	zephyrRule, err := db.Storage.GetRuleByKey(ctx, model.RuleKey{
		UserID:    "user-1",
		ProjectID: zephyr.ID,
		RuleType:  model.RuleTypeRecurringEvent,
		Condition: "recur-budget",
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.60, zephyrRule.ConfidenceScore, 1e-9)
}

func TestBatchSuggestionsAgainstDatabase(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	project := db.SeedProject(ctx, "user-1", "Apollo")
	db.SeedCategorizedEvents(ctx, "user-1", project.ID, 5)

	cache := engine.NewRuleCache(db.Storage, time.Minute)
	feedback := engine.NewFeedbackEngine(db.Storage, cache)
	suggester := engine.NewSuggestionEngine(db.Storage, cache)

	template := db.SeedEvent(ctx, model.Event{
		ID:               "evt-template",
		UserID:           "user-1",
		Title:            "Apollo Standup",
		RecurringEventID: "recur-standup",
	})
	for i := 0; i < 3; i++ {
		feedback.HandleCategorizationFeedback(ctx, "user-1", template.ID, project.ID, nil)
	}

	matching := db.SeedEvent(ctx, model.Event{
		ID:               "evt-matching",
		UserID:           "user-1",
		Title:            "Apollo Standup",
		RecurringEventID: "recur-standup",
	})
	unrelated := db.SeedEvent(ctx, model.Event{
		ID:     "evt-unrelated",
		UserID: "user-1",
		Title:  "Dentist",
	})

	results := suggester.GenerateBatchSuggestions(ctx,
		[]string{matching.ID, unrelated.ID, "evt-missing"}, "user-1")

	require.Len(t, results, 1)
	assert.Equal(t, project.ID, results[matching.ID].ProjectID)
}
