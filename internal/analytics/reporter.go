// Package analytics derives dashboard metrics from logged suggestion
// outcomes and learned rule state. Everything here is read-only apart from
// the append-only suggestion log, and every operation fails closed:
// repository errors produce zero-valued results, never failures.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/oxleyb/timesage/internal/model"
	"github.com/oxleyb/timesage/internal/service"
)

const (
	// problematicMinSuggestions is the minimum volume before a rule's low
	// accuracy is considered a real signal rather than noise.
	problematicMinSuggestions = 3
	problematicMaxAccuracy    = 0.5

	newRuleWindow = 7 * 24 * time.Hour
)

// Reporter computes suggestion analytics for dashboards and operators.
type Reporter struct {
	storage service.Storage
	now     func() time.Time
}

// NewReporter creates an analytics reporter over the given storage.
func NewReporter(storage service.Storage) *Reporter {
	return &Reporter{
		storage: storage,
		now:     time.Now,
	}
}

// SuggestionMetrics summarizes suggestion quality over a reporting window.
type SuggestionMetrics struct {
	AcceptanceRate    float64
	AverageConfidence float64
	CoverageRate      float64
	NewRulesThisWeek  int
	TotalSuggestions  int
}

// ProblematicPattern is a rule performing poorly enough to warrant operator
// attention, annotated with a rule-type-specific recommendation.
type ProblematicPattern struct {
	Rule           model.CategoryRule
	Recommendation string
}

// LogSuggestion appends a suggestion outcome to the analytics log. Logging
// is best-effort: failures are reported to operators but never to callers.
func (r *Reporter) LogSuggestion(ctx context.Context, userID, eventID, suggestedProjectID string, confidence float64, outcome model.SuggestionOutcome) {
	entry := model.SuggestionLog{
		UserID:             userID,
		EventID:            eventID,
		SuggestedProjectID: suggestedProjectID,
		Confidence:         confidence,
		Outcome:            outcome,
		CreatedAt:          r.now(),
	}

	if err := r.storage.AppendSuggestionLog(ctx, entry); err != nil {
		slog.Warn("Failed to log suggestion outcome",
			"user_id", userID,
			"event_id", eventID,
			"error", err)
	}
}

// GetSuggestionMetrics aggregates logged outcomes in [from, to) together
// with event coverage over the same window. Any repository failure yields
// all-zero metrics.
func (r *Reporter) GetSuggestionMetrics(ctx context.Context, userID string, from, to time.Time) SuggestionMetrics {
	var metrics SuggestionMetrics

	logs, err := r.storage.FindSuggestionLogs(ctx, userID, from, to)
	if err != nil {
		slog.Error("Failed to load suggestion logs", "user_id", userID, "error", err)
		return SuggestionMetrics{}
	}

	metrics.TotalSuggestions = len(logs)
	if len(logs) > 0 {
		accepted := 0
		confidenceSum := 0.0
		for _, entry := range logs {
			if entry.Outcome == model.OutcomeAccepted {
				accepted++
			}
			confidenceSum += entry.Confidence
		}
		metrics.AcceptanceRate = float64(accepted) / float64(len(logs))
		metrics.AverageConfidence = confidenceSum / float64(len(logs))
	}

	totalEvents, err := r.storage.CountEventsInWindow(ctx, userID, from, to)
	if err != nil {
		slog.Error("Failed to count events", "user_id", userID, "error", err)
		return SuggestionMetrics{}
	}
	if totalEvents > 0 {
		categorized, err := r.storage.CountCategorizedEventsInWindow(ctx, userID, from, to)
		if err != nil {
			slog.Error("Failed to count categorized events", "user_id", userID, "error", err)
			return SuggestionMetrics{}
		}
		metrics.CoverageRate = float64(categorized) / float64(totalEvents)
	}

	newRules, err := r.storage.CountRulesCreatedSince(ctx, userID, r.now().Add(-newRuleWindow))
	if err != nil {
		slog.Error("Failed to count new rules", "user_id", userID, "error", err)
		return SuggestionMetrics{}
	}
	metrics.NewRulesThisWeek = newRules

	return metrics
}

// GetProblematicPatterns returns the user's unreliable rules ordered worst
// first, each with a human-readable recommendation. Repository failures
// yield an empty slice.
func (r *Reporter) GetProblematicPatterns(ctx context.Context, userID string) []ProblematicPattern {
	rules, err := r.storage.GetActiveRulesForUser(ctx, userID)
	if err != nil {
		slog.Error("Failed to load rules for problem report", "user_id", userID, "error", err)
		return nil
	}

	var problems []ProblematicPattern
	for _, rule := range rules {
		if rule.TotalSuggestions < problematicMinSuggestions {
			continue
		}
		if rule.Accuracy >= problematicMaxAccuracy {
			continue
		}
		problems = append(problems, ProblematicPattern{
			Rule:           rule,
			Recommendation: recommendationFor(rule),
		})
	}

	sort.SliceStable(problems, func(i, j int) bool {
		if problems[i].Rule.Accuracy != problems[j].Rule.Accuracy {
			return problems[i].Rule.Accuracy < problems[j].Rule.Accuracy
		}
		return problems[i].Rule.TotalSuggestions > problems[j].Rule.TotalSuggestions
	})

	return problems
}

// recommendationFor explains why a rule type tends to misfire and what to
// do about it.
func recommendationFor(rule model.CategoryRule) string {
	switch rule.RuleType {
	case model.RuleTypeTitleKeyword:
		return fmt.Sprintf("keyword %q may be too short or generic to identify one project; rely on attendee or calendar signals instead", rule.Condition)
	case model.RuleTypeAttendeeEmail:
		return fmt.Sprintf("%s attends events across multiple projects; their presence is a weak signal on its own", rule.Condition)
	case model.RuleTypeAttendeeDomain:
		return fmt.Sprintf("the %s domain spans multiple projects; consider rules on individual attendees", rule.Condition)
	case model.RuleTypeCalendarName:
		return "this calendar holds events for multiple projects; calendar membership alone is unreliable"
	case model.RuleTypeRecurringEvent:
		return "this recurring series has been recategorized repeatedly; recent feedback should converge it"
	default:
		return "this rule frequently backs rejected suggestions"
	}
}
