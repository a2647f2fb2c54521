package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxleyb/timesage/internal/engine"
	"github.com/oxleyb/timesage/internal/model"
)

func TestLogSuggestion(t *testing.T) {
	ctx := context.Background()
	storage := engine.NewMockStorage()
	reporter := NewReporter(storage)

	reporter.LogSuggestion(ctx, "user-1", "evt-1", "proj-1", 0.85, model.OutcomeAccepted)
	assert.Equal(t, 1, storage.CallCount("AppendSuggestionLog"))

	t.Run("storage failure is swallowed", func(t *testing.T) {
		storage.FailWith = errors.New("database is locked")
		reporter.LogSuggestion(ctx, "user-1", "evt-2", "proj-1", 0.85, model.OutcomeRejected)
	})
}

func TestGetSuggestionMetrics(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	from := now.Add(-30 * 24 * time.Hour)

	storage := engine.NewMockStorage()
	reporter := NewReporter(storage)
	reporter.now = func() time.Time { return now }

	inWindow := now.Add(-24 * time.Hour)
	projectID := "proj-1"

	// Two accepted, one rejected, one ignored.
	outcomes := []model.SuggestionOutcome{
		model.OutcomeAccepted,
		model.OutcomeAccepted,
		model.OutcomeRejected,
		model.OutcomeIgnored,
	}
	for i, outcome := range outcomes {
		require.NoError(t, storage.AppendSuggestionLog(ctx, model.SuggestionLog{
			UserID:             "user-1",
			EventID:            "evt",
			SuggestedProjectID: projectID,
			Confidence:         0.6 + 0.1*float64(i),
			Outcome:            outcome,
			CreatedAt:          inWindow,
		}))
	}

	// Four events in the window, three categorized.
	for i := 0; i < 4; i++ {
		event := model.Event{
			ID:        string(rune('a' + i)),
			UserID:    "user-1",
			StartTime: inWindow,
		}
		if i < 3 {
			event.ProjectID = &projectID
		}
		storage.SeedEvent(event)
	}

	metrics := reporter.GetSuggestionMetrics(ctx, "user-1", from, now)

	assert.Equal(t, 4, metrics.TotalSuggestions)
	assert.InDelta(t, 0.5, metrics.AcceptanceRate, 1e-9)
	assert.InDelta(t, 0.75, metrics.AverageConfidence, 1e-9)
	assert.InDelta(t, 0.75, metrics.CoverageRate, 1e-9)
	assert.Equal(t, 0, metrics.NewRulesThisWeek)
}

func TestGetSuggestionMetricsEmptyWindow(t *testing.T) {
	ctx := context.Background()
	storage := engine.NewMockStorage()
	reporter := NewReporter(storage)

	metrics := reporter.GetSuggestionMetrics(ctx, "user-1", time.Now().Add(-time.Hour), time.Now())

	assert.Equal(t, SuggestionMetrics{}, metrics)
}

func TestGetSuggestionMetricsFailsClosed(t *testing.T) {
	ctx := context.Background()
	storage := engine.NewMockStorage()
	storage.FailWith = errors.New("database is locked")
	reporter := NewReporter(storage)

	metrics := reporter.GetSuggestionMetrics(ctx, "user-1", time.Now().Add(-time.Hour), time.Now())
	assert.Equal(t, SuggestionMetrics{}, metrics)
}

func TestGetSuggestionMetricsCountsNewRules(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	storage := engine.NewMockStorage()
	reporter := NewReporter(storage)

	storage.SeedRule(model.CategoryRule{
		ID: "rule-new", UserID: "user-1", ProjectID: "proj-1",
		RuleType: model.RuleTypeTitleKeyword, Condition: "fresh",
		CreatedAt: now.Add(-2 * 24 * time.Hour),
	})
	storage.SeedRule(model.CategoryRule{
		ID: "rule-old", UserID: "user-1", ProjectID: "proj-1",
		RuleType: model.RuleTypeTitleKeyword, Condition: "stale",
		CreatedAt: now.Add(-20 * 24 * time.Hour),
	})

	metrics := reporter.GetSuggestionMetrics(ctx, "user-1", now.Add(-time.Hour), now)
	assert.Equal(t, 1, metrics.NewRulesThisWeek)
}

func TestGetProblematicPatterns(t *testing.T) {
	ctx := context.Background()
	storage := engine.NewMockStorage()
	storage.SeedProject(model.Project{ID: "proj-1", UserID: "user-1", Name: "Apollo"})

	// Worst performer.
	storage.SeedRule(model.CategoryRule{
		ID: "rule-worst", UserID: "user-1", ProjectID: "proj-1",
		RuleType: model.RuleTypeTitleKeyword, Condition: "sync",
		Accuracy: 0.1, TotalSuggestions: 8,
	})
	// Poor but better.
	storage.SeedRule(model.CategoryRule{
		ID: "rule-poor", UserID: "user-1", ProjectID: "proj-1",
		RuleType: model.RuleTypeAttendeeDomain, Condition: "acme.com",
		Accuracy: 0.4, TotalSuggestions: 5,
	})
	// Low accuracy, but not enough volume to be a signal.
	storage.SeedRule(model.CategoryRule{
		ID: "rule-quiet", UserID: "user-1", ProjectID: "proj-1",
		RuleType: model.RuleTypeTitleKeyword, Condition: "demo",
		Accuracy: 0.1, TotalSuggestions: 2,
	})
	// Healthy.
	storage.SeedRule(model.CategoryRule{
		ID: "rule-good", UserID: "user-1", ProjectID: "proj-1",
		RuleType: model.RuleTypeRecurringEvent, Condition: "recur-1",
		Accuracy: 0.95, TotalSuggestions: 20,
	})

	reporter := NewReporter(storage)
	problems := reporter.GetProblematicPatterns(ctx, "user-1")

	require.Len(t, problems, 2)
	assert.Equal(t, "rule-worst", problems[0].Rule.ID)
	assert.Equal(t, "rule-poor", problems[1].Rule.ID)
	assert.Contains(t, problems[0].Recommendation, "sync")
	assert.Contains(t, problems[1].Recommendation, "acme.com")
}

func TestGetProblematicPatternsFailsClosed(t *testing.T) {
	ctx := context.Background()
	storage := engine.NewMockStorage()
	storage.FailWith = errors.New("database is locked")

	reporter := NewReporter(storage)
	assert.Empty(t, reporter.GetProblematicPatterns(ctx, "user-1"))
}
