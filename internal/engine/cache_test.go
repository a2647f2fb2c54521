package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxleyb/timesage/internal/model"
)

func TestRuleCacheServesFromCacheWithinTTL(t *testing.T) {
	ctx := context.Background()
	storage := NewMockStorage()
	storage.SeedRule(model.CategoryRule{
		UserID:          "user-1",
		ProjectID:       "proj-1",
		RuleType:        model.RuleTypeTitleKeyword,
		Condition:       "standup",
		ConfidenceScore: 0.8,
	})

	cache := NewRuleCache(storage, 5*time.Minute)

	first, err := cache.RulesForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := cache.RulesForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, storage.CallCount("GetActiveRulesForUser"))
}

func TestRuleCacheRefetchesAfterTTL(t *testing.T) {
	ctx := context.Background()
	storage := NewMockStorage()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewRuleCache(storage, 5*time.Minute)
	cache.now = func() time.Time { return current }

	_, err := cache.RulesForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, storage.CallCount("GetActiveRulesForUser"))

	current = current.Add(4 * time.Minute)
	_, err = cache.RulesForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, storage.CallCount("GetActiveRulesForUser"))

	current = current.Add(2 * time.Minute)
	_, err = cache.RulesForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, storage.CallCount("GetActiveRulesForUser"))
}

func TestRuleCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	storage := NewMockStorage()
	cache := NewRuleCache(storage, time.Hour)

	_, err := cache.RulesForUser(ctx, "user-1")
	require.NoError(t, err)

	cache.Invalidate("user-1")

	_, err = cache.RulesForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, storage.CallCount("GetActiveRulesForUser"))
}

func TestRuleCacheInvalidateIsPerUser(t *testing.T) {
	ctx := context.Background()
	storage := NewMockStorage()
	cache := NewRuleCache(storage, time.Hour)

	_, err := cache.RulesForUser(ctx, "user-1")
	require.NoError(t, err)
	_, err = cache.RulesForUser(ctx, "user-2")
	require.NoError(t, err)

	cache.Invalidate("user-1")

	_, err = cache.RulesForUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, 2, storage.CallCount("GetActiveRulesForUser"))
}

func TestRuleCachePropagatesStorageErrors(t *testing.T) {
	ctx := context.Background()
	storage := NewMockStorage()
	storage.FailWith = errors.New("database is locked")
	cache := NewRuleCache(storage, time.Hour)

	_, err := cache.RulesForUser(ctx, "user-1")
	assert.Error(t, err)
}
