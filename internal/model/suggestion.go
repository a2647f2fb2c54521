package model

import "time"

// SuggestionOutcome indicates how the user responded to a suggestion.
type SuggestionOutcome string

// Suggestion outcome constants.
const (
	OutcomeAccepted SuggestionOutcome = "ACCEPTED"
	OutcomeRejected SuggestionOutcome = "REJECTED"
	OutcomeIgnored  SuggestionOutcome = "IGNORED"
)

// ProjectSuggestion is a derived suggestion produced per call; it is never
// persisted except as a SuggestionLog entry for analytics.
type ProjectSuggestion struct {
	ProjectID     string
	ProjectName   string
	Reasoning     []string
	MatchingRules []CategoryRule
	Confidence    float64
}

// SuggestionLog records the outcome of a surfaced suggestion. Entries are
// append-only and written best-effort.
type SuggestionLog struct {
	CreatedAt          time.Time
	UserID             string
	EventID            string
	SuggestedProjectID string
	Outcome            SuggestionOutcome
	Confidence         float64
	ID                 int64
}
