// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/oxleyb/timesage/internal/model"
)

// RuleReinforcement describes how a rule is created or strengthened when a
// categorization confirms it. The cap must hold even under concurrent
// increments, so storage implementations apply increment-then-clamp
// atomically.
type RuleReinforcement struct {
	InitialConfidence float64
	Increment         float64
	Cap               float64
}

// RulePenalty describes how a rule is weakened when it backed a rejected
// suggestion.
type RulePenalty struct {
	Decrement float64
	Floor     float64
}

// PruneCandidates identifies rules eligible for deletion.
type PruneCandidates struct {
	LowAccuracy     []model.CategoryRule
	OrphanedProject []model.CategoryRule
}

// Storage defines the contract for our persistence layer. The suggestion and
// learning engines depend on storage only through this interface.
type Storage interface {
	// Event operations
	SaveEvents(ctx context.Context, events []model.Event) error
	GetEventByID(ctx context.Context, userID, eventID string) (*model.Event, error)
	GetEventsByIDs(ctx context.Context, userID string, eventIDs []string) ([]model.Event, error)
	SetEventProject(ctx context.Context, userID, eventID string, projectID *string) error
	CountCategorizedEvents(ctx context.Context, userID string) (int, error)
	CountCategorizedEventsInWindow(ctx context.Context, userID string, from, to time.Time) (int, error)
	CountEventsInWindow(ctx context.Context, userID string, from, to time.Time) (int, error)

	// Project operations
	CreateProject(ctx context.Context, userID, name string) (*model.Project, error)
	GetProjectByID(ctx context.Context, projectID string) (*model.Project, error)
	GetProjectsForUser(ctx context.Context, userID string) ([]model.Project, error)
	SetProjectArchived(ctx context.Context, projectID string, archived bool) error

	// Rule operations
	GetActiveRulesForUser(ctx context.Context, userID string) ([]model.CategoryRule, error)
	GetRuleByKey(ctx context.Context, key model.RuleKey) (*model.CategoryRule, error)
	StrengthenRule(ctx context.Context, key model.RuleKey, reinforcement RuleReinforcement) error
	PenalizeRule(ctx context.Context, key model.RuleKey, penalty RulePenalty) (int, error)
	RecordRuleOutcome(ctx context.Context, ruleID string, accepted bool) error
	FindPruneCandidates(ctx context.Context, userID string, maxAccuracy float64, minSuggestions int) (*PruneCandidates, error)
	CountRulesForProject(ctx context.Context, projectID string) (int, error)
	CountRulesCreatedSince(ctx context.Context, userID string, since time.Time) (int, error)
	DeleteRulesByIDs(ctx context.Context, ruleIDs []string) error

	// Suggestion log operations
	AppendSuggestionLog(ctx context.Context, entry model.SuggestionLog) error
	FindSuggestionLogs(ctx context.Context, userID string, from, to time.Time) ([]model.SuggestionLog, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
