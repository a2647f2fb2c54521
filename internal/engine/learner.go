package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/oxleyb/timesage/internal/common"
	"github.com/oxleyb/timesage/internal/model"
	"github.com/oxleyb/timesage/internal/pattern"
	"github.com/oxleyb/timesage/internal/service"
)

// Learning constants. The cap and floor are enforced atomically at the
// storage boundary so concurrent increments cannot overshoot them.
const (
	initialRuleConfidence = 0.60
	confidenceIncrement   = 0.10
	confidenceCap         = 0.95
	confidenceDecrement   = 0.10
	confidenceFloor       = 0.30

	pruneMaxAccuracy    = 0.4
	pruneMinSuggestions = 10
)

// FeedbackEngine turns user categorizations into rule updates: it
// strengthens rules that supported the chosen project, penalizes rules that
// backed a rejected suggestion, prunes unreliable rules, and reports debug
// statistics. No method surfaces repository errors to its caller.
type FeedbackEngine struct {
	storage service.Storage
	cache   *RuleCache
}

// NewFeedbackEngine creates a feedback engine sharing the suggestion
// engine's rule cache, so feedback writes invalidate served rules.
func NewFeedbackEngine(storage service.Storage, cache *RuleCache) *FeedbackEngine {
	return &FeedbackEngine{
		storage: storage,
		cache:   cache,
	}
}

// PruneStats summarizes a pruning pass.
type PruneStats struct {
	LowAccuracy     int
	DeletedProjects int
	Total           int
}

// RuleDebug is a rule annotated with its project's archival state.
type RuleDebug struct {
	Rule            model.CategoryRule
	ProjectArchived bool
}

// DebugInfo summarizes a user's learned rule state for audit tooling.
type DebugInfo struct {
	RulesByType      map[model.RuleType]int
	Rules            []RuleDebug
	TotalRules       int
	TotalSuggestions int
	TotalMatches     int
	OverallAccuracy  float64
}

// HandleCategorizationFeedback processes one user categorization. A manual
// categorization or an accepted suggestion strengthens rules under the
// selected project; a rejected suggestion additionally penalizes rules under
// the rejected project first. A missing event is a no-op.
func (e *FeedbackEngine) HandleCategorizationFeedback(ctx context.Context, userID, eventID, selectedProjectID string, suggestedProjectID *string) {
	event, err := e.storage.GetEventByID(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			slog.Debug("Ignoring feedback for unknown event",
				"user_id", userID,
				"event_id", eventID)
			return
		}
		slog.Error("Failed to load event for feedback",
			"user_id", userID,
			"event_id", eventID,
			"error", err)
		return
	}

	// Same extraction as suggestion time, so learned conditions line up
	// with queried conditions.
	patterns := orderPatterns(pattern.ExtractPatternsFromEvent(*event))
	if len(patterns) == 0 {
		return
	}

	if suggestedProjectID != nil && *suggestedProjectID != selectedProjectID {
		e.penalizeIncorrectRules(ctx, userID, *suggestedProjectID, patterns)
	}

	e.strengthenRules(ctx, userID, selectedProjectID, patterns)

	// Invalidate only after all writes so the next suggestion never sees
	// partially applied feedback.
	e.cache.Invalidate(userID)
}

// strengthenRules upserts one rule per pattern under the selected project.
// Each upsert is independent; a failed pattern does not stop the rest.
func (e *FeedbackEngine) strengthenRules(ctx context.Context, userID, projectID string, patterns []model.Pattern) {
	reinforcement := service.RuleReinforcement{
		InitialConfidence: initialRuleConfidence,
		Increment:         confidenceIncrement,
		Cap:               confidenceCap,
	}

	for _, p := range patterns {
		key := model.RuleKey{
			UserID:    userID,
			ProjectID: projectID,
			RuleType:  p.RuleType,
			Condition: p.Condition,
		}

		if err := e.storage.StrengthenRule(ctx, key, reinforcement); err != nil {
			slog.Error("Failed to strengthen rule",
				"user_id", userID,
				"project_id", projectID,
				"rule_type", p.RuleType,
				"condition", p.Condition,
				"error", err)
		}
	}
}

// penalizeIncorrectRules weakens every rule under the rejected project that
// matches one of the event's patterns.
func (e *FeedbackEngine) penalizeIncorrectRules(ctx context.Context, userID, projectID string, patterns []model.Pattern) {
	penalty := service.RulePenalty{
		Decrement: confidenceDecrement,
		Floor:     confidenceFloor,
	}

	for _, p := range patterns {
		key := model.RuleKey{
			UserID:    userID,
			ProjectID: projectID,
			RuleType:  p.RuleType,
			Condition: p.Condition,
		}

		if _, err := e.storage.PenalizeRule(ctx, key, penalty); err != nil {
			slog.Error("Failed to penalize rule",
				"user_id", userID,
				"project_id", projectID,
				"rule_type", p.RuleType,
				"condition", p.Condition,
				"error", err)
		}
	}
}

// UpdateRuleAccuracy records the outcome of one surfaced suggestion against
// the rule that backed it.
func (e *FeedbackEngine) UpdateRuleAccuracy(ctx context.Context, ruleID string, wasAccepted bool) {
	if err := e.storage.RecordRuleOutcome(ctx, ruleID, wasAccepted); err != nil {
		slog.Error("Failed to record rule outcome",
			"rule_id", ruleID,
			"accepted", wasAccepted,
			"error", err)
	}
}

// PruneIneffectiveRules deletes rules with persistently low accuracy after
// sufficient volume, plus rules whose project no longer exists. Repository
// failures yield all-zero counts.
func (e *FeedbackEngine) PruneIneffectiveRules(ctx context.Context, userID string) PruneStats {
	candidates, err := e.storage.FindPruneCandidates(ctx, userID, pruneMaxAccuracy, pruneMinSuggestions)
	if err != nil {
		slog.Error("Failed to find prune candidates", "user_id", userID, "error", err)
		return PruneStats{}
	}

	ids := make([]string, 0, len(candidates.LowAccuracy)+len(candidates.OrphanedProject))
	for _, rule := range candidates.LowAccuracy {
		ids = append(ids, rule.ID)
	}
	for _, rule := range candidates.OrphanedProject {
		ids = append(ids, rule.ID)
	}

	if len(ids) == 0 {
		return PruneStats{}
	}

	if err := e.storage.DeleteRulesByIDs(ctx, ids); err != nil {
		slog.Error("Failed to delete pruned rules", "user_id", userID, "error", err)
		return PruneStats{}
	}

	e.cache.Invalidate(userID)

	stats := PruneStats{
		LowAccuracy:     len(candidates.LowAccuracy),
		DeletedProjects: len(candidates.OrphanedProject),
		Total:           len(ids),
	}

	slog.Info("Pruned ineffective rules",
		"user_id", userID,
		"low_accuracy", stats.LowAccuracy,
		"orphaned_project", stats.DeletedProjects)

	return stats
}

// HandleProjectArchival audits the rules associated with an archived
// project. It never mutates rule state: archived-project exclusion is
// enforced at suggestion time. Returns the number of rules still
// referencing the project, or zero on any failure.
func (e *FeedbackEngine) HandleProjectArchival(ctx context.Context, projectID string) int {
	project, err := e.storage.GetProjectByID(ctx, projectID)
	if err != nil {
		slog.Error("Failed to load project for archival audit",
			"project_id", projectID,
			"error", err)
		return 0
	}

	if !project.IsArchived {
		slog.Warn("Archival audit requested for active project", "project_id", projectID)
		return 0
	}

	count, err := e.storage.CountRulesForProject(ctx, projectID)
	if err != nil {
		slog.Error("Failed to count rules for archived project",
			"project_id", projectID,
			"error", err)
		return 0
	}

	slog.Info("Archived project still has learned rules",
		"project_id", projectID,
		"rule_count", count)

	return count
}

// GetDebugInfo returns a summary of the user's rule state, ordered by
// accuracy then suggestion volume. Repository failures yield the empty
// shape.
func (e *FeedbackEngine) GetDebugInfo(ctx context.Context, userID string) DebugInfo {
	info := DebugInfo{RulesByType: make(map[model.RuleType]int)}

	rules, err := e.storage.GetActiveRulesForUser(ctx, userID)
	if err != nil {
		slog.Error("Failed to load rules for debug info", "user_id", userID, "error", err)
		return info
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Accuracy != rules[j].Accuracy {
			return rules[i].Accuracy > rules[j].Accuracy
		}
		return rules[i].TotalSuggestions > rules[j].TotalSuggestions
	})

	for _, rule := range rules {
		info.TotalRules++
		info.RulesByType[rule.RuleType]++
		info.TotalSuggestions += rule.TotalSuggestions
		info.TotalMatches += rule.MatchCount
		info.Rules = append(info.Rules, RuleDebug{
			Rule:            rule,
			ProjectArchived: rule.ProjectArchived(),
		})
	}

	if info.TotalSuggestions > 0 {
		info.OverallAccuracy = float64(info.TotalMatches) / float64(info.TotalSuggestions)
	}

	return info
}

// orderPatterns sorts patterns into the fixed rule-type priority order used
// for learning, keeping extraction order within a type.
func orderPatterns(patterns []model.Pattern) []model.Pattern {
	rank := make(map[model.RuleType]int, len(model.RuleTypePriority))
	for i, t := range model.RuleTypePriority {
		rank[t] = i
	}

	ordered := make([]model.Pattern, len(patterns))
	copy(ordered, patterns)

	sort.SliceStable(ordered, func(i, j int) bool {
		return rank[ordered[i].RuleType] < rank[ordered[j].RuleType]
	})

	return ordered
}
