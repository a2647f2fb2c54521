package model

import (
	"fmt"
	"time"
)

// RuleType identifies the kind of event signal a rule matches on.
type RuleType string

// Rule type constants.
const (
	RuleTypeRecurringEvent RuleType = "RECURRING_EVENT_ID"
	RuleTypeAttendeeEmail  RuleType = "ATTENDEE_EMAIL"
	RuleTypeAttendeeDomain RuleType = "ATTENDEE_DOMAIN"
	RuleTypeCalendarName   RuleType = "CALENDAR_NAME"
	RuleTypeTitleKeyword   RuleType = "TITLE_KEYWORD"
)

// ruleTypeWeights holds the fixed base weight for each rule type. Weights are
// a property of the type, not of individual rules, so they are never persisted.
var ruleTypeWeights = map[RuleType]float64{
	RuleTypeRecurringEvent: 1.0,
	RuleTypeAttendeeEmail:  0.9,
	RuleTypeAttendeeDomain: 0.7,
	RuleTypeCalendarName:   0.6,
	RuleTypeTitleKeyword:   0.5,
}

// RuleTypePriority is the fixed order in which the learning engine processes
// patterns. Iteration order is explicit rather than relying on map ordering.
var RuleTypePriority = []RuleType{
	RuleTypeRecurringEvent,
	RuleTypeAttendeeEmail,
	RuleTypeAttendeeDomain,
	RuleTypeTitleKeyword,
	RuleTypeCalendarName,
}

// Weight returns the fixed base weight for the rule type. Unknown types
// weigh zero, so they can never produce a suggestion.
func (t RuleType) Weight() float64 {
	return ruleTypeWeights[t]
}

// Valid reports whether the rule type is one of the known types.
func (t RuleType) Valid() bool {
	_, ok := ruleTypeWeights[t]
	return ok
}

// Pattern is an ephemeral signal extracted from an event. Patterns are
// produced fresh per event and compared against persisted rules; they are
// never stored directly.
type Pattern struct {
	RuleType  RuleType
	Condition string
}

// RuleKey uniquely identifies a rule. Exactly one rule exists per key.
type RuleKey struct {
	UserID    string
	ProjectID string
	RuleType  RuleType
	Condition string
}

// CategoryRule is a learned association between an event pattern and a
// project. ConfidenceScore is the base strength grown and shrunk by feedback;
// Accuracy tracks how often the rule backed an accepted suggestion.
type CategoryRule struct {
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastMatchedAt    *time.Time
	Project          *Project
	ID               string
	UserID           string
	ProjectID        string
	Condition        string
	RuleType         RuleType
	ConfidenceScore  float64
	Accuracy         float64
	MatchCount       int
	TotalSuggestions int
}

// Key returns the unique key for this rule.
func (r *CategoryRule) Key() RuleKey {
	return RuleKey{
		UserID:    r.UserID,
		ProjectID: r.ProjectID,
		RuleType:  r.RuleType,
		Condition: r.Condition,
	}
}

// ProjectArchived reports whether the rule's project is known to be archived.
// Rules loaded without a joined project are treated as active.
func (r *CategoryRule) ProjectArchived() bool {
	return r.Project != nil && r.Project.IsArchived
}

// Validate ensures the rule has valid data.
func (r *CategoryRule) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("user ID is required")
	}

	if r.ProjectID == "" {
		return fmt.Errorf("project ID is required")
	}

	if !r.RuleType.Valid() {
		return fmt.Errorf("unknown rule type %q", r.RuleType)
	}

	if r.Condition == "" {
		return fmt.Errorf("condition is required")
	}

	if r.ConfidenceScore < 0 || r.ConfidenceScore > 1 {
		return fmt.Errorf("confidence score must be between 0.0 and 1.0, got %.2f", r.ConfidenceScore)
	}

	if r.Accuracy < 0 || r.Accuracy > 1 {
		return fmt.Errorf("accuracy must be between 0.0 and 1.0, got %.2f", r.Accuracy)
	}

	if r.MatchCount < 0 {
		return fmt.Errorf("match count cannot be negative")
	}

	if r.TotalSuggestions < 0 {
		return fmt.Errorf("total suggestions cannot be negative")
	}

	return nil
}
