package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/oxleyb/timesage/internal/analytics"
	"github.com/oxleyb/timesage/internal/config"
	"github.com/oxleyb/timesage/internal/engine"
	"github.com/oxleyb/timesage/internal/storage"
)

// openStorage opens the SQLite database configured via database.path,
// defaulting to the standard location under ~/.config/timesage.
func openStorage() (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}

	store, err := storage.NewSQLiteStorage(config.ExpandPath(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return store, nil
}

func engineConfig() engine.Config {
	cfg := engine.DefaultConfig()

	if viper.IsSet("engine.min_suggestion_confidence") {
		cfg.MinSuggestionConfidence = viper.GetFloat64("engine.min_suggestion_confidence")
	}
	if viper.IsSet("engine.min_combined_confidence") {
		cfg.MinCombinedConfidence = viper.GetFloat64("engine.min_combined_confidence")
	}
	if viper.IsSet("engine.max_suggestions") {
		cfg.MaxSuggestions = viper.GetInt("engine.max_suggestions")
	}
	if viper.IsSet("engine.min_categorized_events") {
		cfg.MinCategorizedEvents = viper.GetInt("engine.min_categorized_events")
	}
	if viper.IsSet("engine.cache_ttl") {
		cfg.CacheTTL = viper.GetDuration("engine.cache_ttl")
	}
	if viper.IsSet("engine.ambiguous_keyword_penalty") {
		cfg.AmbiguousKeywordPenalty = viper.GetFloat64("engine.ambiguous_keyword_penalty")
	}
	if viper.IsSet("engine.ambiguous_keyword_projects") {
		cfg.AmbiguousKeywordProjects = viper.GetInt("engine.ambiguous_keyword_projects")
	}

	return cfg
}

type engines struct {
	store     *storage.SQLiteStorage
	cache     *engine.RuleCache
	suggester *engine.SuggestionEngine
	feedback  *engine.FeedbackEngine
	reporter  *analytics.Reporter
}

// buildEngines wires the suggestion and feedback engines around a shared
// rule cache so feedback invalidation is visible to suggestion reads.
func buildEngines() (*engines, error) {
	store, err := openStorage()
	if err != nil {
		return nil, err
	}

	cfg := engineConfig()
	cache := engine.NewRuleCache(store, cfg.CacheTTL)

	return &engines{
		store:     store,
		cache:     cache,
		suggester: engine.NewSuggestionEngineWithConfig(store, cache, cfg),
		feedback:  engine.NewFeedbackEngine(store, cache),
		reporter:  analytics.NewReporter(store),
	}, nil
}

func (e *engines) Close() {
	if err := e.store.Close(); err != nil {
		fmt.Printf("Warning: failed to close database: %v\n", err)
	}
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format("2006-01-02 15:04")
}
