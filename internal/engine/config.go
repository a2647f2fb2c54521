// Package engine implements the core suggestion and learning engines that
// categorize calendar events into projects.
package engine

import "time"

// Config holds tuning options for the suggestion engine.
type Config struct {
	// MinSuggestionConfidence is the floor a top-ranked project must clear
	// before it is surfaced to the caller.
	MinSuggestionConfidence float64

	// MinCombinedConfidence is the aggregator's per-project filter.
	MinCombinedConfidence float64

	// MaxSuggestions bounds how many projects the aggregator keeps.
	MaxSuggestions int

	// MinCategorizedEvents is the cold-start threshold: users with fewer
	// historical categorizations receive no automated suggestions.
	MinCategorizedEvents int

	// CacheTTL bounds how long a user's rules are served from cache.
	CacheTTL time.Duration

	// AmbiguousKeywordPenalty is the confidence reduction applied to a
	// TITLE_KEYWORD rule whose condition is shared across
	// AmbiguousKeywordProjects or more distinct projects.
	AmbiguousKeywordPenalty  float64
	AmbiguousKeywordProjects int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MinSuggestionConfidence:  0.6,
		MinCombinedConfidence:    0.5,
		MaxSuggestions:           3,
		MinCategorizedEvents:     5,
		CacheTTL:                 5 * time.Minute,
		AmbiguousKeywordPenalty:  0.15,
		AmbiguousKeywordProjects: 3,
	}
}
