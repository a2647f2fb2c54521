package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oxleyb/timesage/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrEmptySlice       = errors.New("slice cannot be empty")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidEvent     = errors.New("invalid event")
	ErrInvalidRuleKey   = errors.New("invalid rule key")
	ErrInvalidOutcome   = errors.New("invalid suggestion outcome")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateDateRange ensures a [from, to) window is well-formed.
func validateDateRange(from, to time.Time) error {
	if !from.Before(to) {
		return ErrInvalidDateRange
	}
	return nil
}

// validateEvents validates a slice of events before saving.
func validateEvents(events []model.Event) error {
	if events == nil {
		return fmt.Errorf("%w: events", ErrNilParameter)
	}
	if len(events) == 0 {
		return fmt.Errorf("%w: events", ErrEmptySlice)
	}

	for i, event := range events {
		if err := validateEvent(&event); err != nil {
			return fmt.Errorf("event at index %d: %w", i, err)
		}
	}
	return nil
}

// validateEvent validates a single event.
func validateEvent(event *model.Event) error {
	if event.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidEvent)
	}
	if event.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidEvent)
	}
	if event.StartTime.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidEvent)
	}
	return nil
}

// validateRuleKey ensures a rule key identifies exactly one rule.
func validateRuleKey(key model.RuleKey) error {
	if key.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidRuleKey)
	}
	if key.ProjectID == "" {
		return fmt.Errorf("%w: missing project ID", ErrInvalidRuleKey)
	}
	if !key.RuleType.Valid() {
		return fmt.Errorf("%w: unknown rule type %q", ErrInvalidRuleKey, key.RuleType)
	}
	if key.Condition == "" {
		return fmt.Errorf("%w: missing condition", ErrInvalidRuleKey)
	}
	return nil
}

// validateOutcome ensures a suggestion outcome is one of the known values.
func validateOutcome(outcome model.SuggestionOutcome) error {
	switch outcome {
	case model.OutcomeAccepted, model.OutcomeRejected, model.OutcomeIgnored:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
}
