package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oxleyb/timesage/internal/model"
	"github.com/oxleyb/timesage/internal/pattern"
	"github.com/oxleyb/timesage/internal/scoring"
	"github.com/oxleyb/timesage/internal/service"
)

// SuggestionEngine answers "which project fits this event" for single events
// and batches. Every public method fails closed: repository errors are
// logged and converted to empty results, never surfaced to the caller.
type SuggestionEngine struct {
	storage service.Storage
	cache   *RuleCache
	now     func() time.Time
	config  Config
}

// NewSuggestionEngine creates a suggestion engine with the default
// configuration.
func NewSuggestionEngine(storage service.Storage, cache *RuleCache) *SuggestionEngine {
	return NewSuggestionEngineWithConfig(storage, cache, DefaultConfig())
}

// NewSuggestionEngineWithConfig creates a suggestion engine with custom
// configuration.
func NewSuggestionEngineWithConfig(storage service.Storage, cache *RuleCache, config Config) *SuggestionEngine {
	return &SuggestionEngine{
		storage: storage,
		cache:   cache,
		config:  config,
		now:     time.Now,
	}
}

// GenerateSuggestion returns the single best project suggestion for an
// event, or nil when no rule matches, every match falls below the
// confidence threshold, the user is still in cold start, or storage fails.
func (e *SuggestionEngine) GenerateSuggestion(ctx context.Context, event model.Event, userID string) *model.ProjectSuggestion {
	suggestion, err := e.suggest(ctx, event, userID)
	if err != nil {
		slog.Error("Failed to generate suggestion",
			"user_id", userID,
			"event_id", event.ID,
			"error", err)
		return nil
	}
	return suggestion
}

// GenerateBatchSuggestions scores many events at once: one repository read
// for the events, one for the user's rules, then in-memory scoring. Events
// without a qualifying suggestion are absent from the result. Storage
// failures yield an empty map.
func (e *SuggestionEngine) GenerateBatchSuggestions(ctx context.Context, eventIDs []string, userID string) map[string]model.ProjectSuggestion {
	results, err := e.suggestBatch(ctx, eventIDs, userID)
	if err != nil {
		slog.Error("Failed to generate batch suggestions",
			"user_id", userID,
			"event_count", len(eventIDs),
			"error", err)
		return map[string]model.ProjectSuggestion{}
	}
	return results
}

func (e *SuggestionEngine) suggest(ctx context.Context, event model.Event, userID string) (*model.ProjectSuggestion, error) {
	cold, err := e.inColdStart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cold {
		return nil, nil
	}

	rules, err := e.cache.RulesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	scores := e.scoreEvent(event, rules)
	if len(scores) == 0 {
		return nil, nil
	}

	top := scores[0]
	if top.Confidence < e.config.MinSuggestionConfidence {
		return nil, nil
	}

	return e.buildSuggestion(top), nil
}

func (e *SuggestionEngine) suggestBatch(ctx context.Context, eventIDs []string, userID string) (map[string]model.ProjectSuggestion, error) {
	results := make(map[string]model.ProjectSuggestion)

	cold, err := e.inColdStart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cold {
		return results, nil
	}

	// One read for all events, one for all rules. Per-event fetching would
	// reintroduce the N+1 round-trips this path exists to avoid.
	events, err := e.storage.GetEventsByIDs(ctx, userID, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	rules, err := e.cache.RulesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	for _, event := range events {
		scores := e.scoreEvent(event, rules)
		if len(scores) == 0 {
			continue
		}
		if scores[0].Confidence < e.config.MinSuggestionConfidence {
			continue
		}
		results[event.ID] = *e.buildSuggestion(scores[0])
	}

	return results, nil
}

// inColdStart reports whether the user has too little categorization history
// for automated suggestions to be meaningful.
func (e *SuggestionEngine) inColdStart(ctx context.Context, userID string) (bool, error) {
	count, err := e.storage.CountCategorizedEvents(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to count categorizations: %w", err)
	}

	if count < e.config.MinCategorizedEvents {
		slog.Debug("Suppressing suggestions during cold start",
			"user_id", userID,
			"categorized_events", count,
			"required", e.config.MinCategorizedEvents)
		return true, nil
	}

	return false, nil
}

// scoreEvent matches the user's rules against the event's extracted patterns
// and aggregates the matches into ranked per-project scores.
func (e *SuggestionEngine) scoreEvent(event model.Event, rules []model.CategoryRule) []scoring.ProjectScore {
	patterns := pattern.ExtractPatternsFromEvent(event)
	if len(patterns) == 0 {
		return nil
	}

	patternSet := make(map[model.Pattern]struct{}, len(patterns))
	for _, p := range patterns {
		patternSet[p] = struct{}{}
	}

	ambiguous := e.ambiguousKeywords(rules)
	now := e.now()

	var scored []scoring.ScoredRule
	hasAmbiguousKeyword := make(map[string]bool)
	hasNonKeyword := make(map[string]bool)

	for _, rule := range rules {
		key := model.Pattern{RuleType: rule.RuleType, Condition: rule.Condition}
		if _, matched := patternSet[key]; !matched {
			continue
		}

		if rule.ProjectArchived() {
			slog.Debug("Rule matched but project is archived",
				"rule_id", rule.ID,
				"project_id", rule.ProjectID,
				"event_id", event.ID)
			continue
		}

		confidence := scoring.RuleConfidence(rule, now)

		if rule.RuleType == model.RuleTypeTitleKeyword {
			if ambiguous[rule.Condition] {
				confidence *= 1 - e.config.AmbiguousKeywordPenalty
				hasAmbiguousKeyword[rule.ProjectID] = true
			}
		} else {
			hasNonKeyword[rule.ProjectID] = true
		}

		scored = append(scored, scoring.ScoredRule{Rule: rule, Confidence: confidence})
	}

	// A project backed only by ambiguous title keywords is not worth
	// surfacing without corroboration from a stronger signal type.
	filtered := scored[:0]
	for _, sr := range scored {
		if hasAmbiguousKeyword[sr.Rule.ProjectID] && !hasNonKeyword[sr.Rule.ProjectID] {
			continue
		}
		filtered = append(filtered, sr)
	}

	return scoring.AggregateByProject(filtered, e.config.MinCombinedConfidence, e.config.MaxSuggestions)
}

// ambiguousKeywords returns the TITLE_KEYWORD conditions that point at
// enough distinct projects to be considered generic for this user.
func (e *SuggestionEngine) ambiguousKeywords(rules []model.CategoryRule) map[string]bool {
	projects := make(map[string]map[string]struct{})

	for _, rule := range rules {
		if rule.RuleType != model.RuleTypeTitleKeyword {
			continue
		}
		if projects[rule.Condition] == nil {
			projects[rule.Condition] = make(map[string]struct{})
		}
		projects[rule.Condition][rule.ProjectID] = struct{}{}
	}

	ambiguous := make(map[string]bool)
	for condition, projectIDs := range projects {
		if len(projectIDs) >= e.config.AmbiguousKeywordProjects {
			ambiguous[condition] = true
		}
	}

	return ambiguous
}

func (e *SuggestionEngine) buildSuggestion(score scoring.ProjectScore) *model.ProjectSuggestion {
	suggestion := &model.ProjectSuggestion{
		ProjectID:     score.ProjectID,
		Confidence:    score.Confidence,
		MatchingRules: score.Rules,
	}

	if score.Project != nil {
		suggestion.ProjectName = score.Project.Name
	}

	for _, rule := range score.Rules {
		suggestion.Reasoning = append(suggestion.Reasoning, reasonForRule(rule, suggestion.ProjectName))
	}

	return suggestion
}

// reasonForRule builds the human-readable explanation for one contributing
// rule.
func reasonForRule(rule model.CategoryRule, projectName string) string {
	if projectName == "" {
		projectName = rule.ProjectID
	}

	switch rule.RuleType {
	case model.RuleTypeRecurringEvent:
		return fmt.Sprintf("part of a recurring series you usually assign to %s", projectName)
	case model.RuleTypeAttendeeEmail:
		return fmt.Sprintf("events with %s are usually assigned to %s", rule.Condition, projectName)
	case model.RuleTypeAttendeeDomain:
		return fmt.Sprintf("events with attendees from %s are usually assigned to %s", rule.Condition, projectName)
	case model.RuleTypeCalendarName:
		return fmt.Sprintf("events on calendar %s are usually assigned to %s", rule.Condition, projectName)
	case model.RuleTypeTitleKeyword:
		return fmt.Sprintf("title keyword %q is usually assigned to %s", rule.Condition, projectName)
	default:
		return fmt.Sprintf("previously assigned to %s", projectName)
	}
}
