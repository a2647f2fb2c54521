package engine

import (
	"context"
	"sync"
	"time"

	"github.com/oxleyb/timesage/internal/model"
	"github.com/oxleyb/timesage/internal/service"
)

// RuleCache is a per-process, TTL-bounded cache of each user's active rules.
// It keeps batch suggestion generation down to a single repository read for
// rules. Concurrent misses for the same user may both hit the repository;
// the duplicate read is harmless and cheaper than serializing lookups.
type RuleCache struct {
	storage service.Storage
	now     func() time.Time
	entries map[string]ruleCacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

type ruleCacheEntry struct {
	expiresAt time.Time
	rules     []model.CategoryRule
}

// NewRuleCache creates a rule cache over the given storage with the given TTL.
func NewRuleCache(storage service.Storage, ttl time.Duration) *RuleCache {
	return &RuleCache{
		storage: storage,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]ruleCacheEntry),
	}
}

// RulesForUser returns the user's active rules, serving from cache while a
// live entry exists and fetching from storage otherwise.
func (c *RuleCache) RulesForUser(ctx context.Context, userID string) ([]model.CategoryRule, error) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()

	if ok && c.now().Before(entry.expiresAt) {
		return entry.rules, nil
	}

	rules, err := c.storage.GetActiveRulesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[userID] = ruleCacheEntry{
		rules:     rules,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()

	return rules, nil
}

// Invalidate eagerly drops the cache entry for a user. Called after any
// feedback mutation so the next suggestion reflects the updated rules.
func (c *RuleCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}
