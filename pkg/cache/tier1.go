// Package cache implements the two-tier search result cache: a short-TTL
// in-process map in front of the Postgres listing store.
package cache

import (
	"sync"
	"time"

	"github.com/cararth/marigold/pkg/metrics"
	"github.com/cararth/marigold/pkg/models"
)

// Tier1 is the in-process result cache, keyed by search fingerprint.
// Values are replaced wholesale on Put; readers never see partial updates.
type Tier1 struct {
	cache   map[string]*tier1Entry
	mu      sync.RWMutex
	maxSize int
	ttl     time.Duration
	hits    int64
	misses  int64
}

type tier1Entry struct {
	result    *models.CachedSearchResult
	storedAt  time.Time
	expiresAt time.Time
}

// Tier1Config configures the in-process cache
type Tier1Config struct {
	MaxSize int
	TTL     time.Duration
}

// DefaultTier1Config returns sensible defaults
func DefaultTier1Config() Tier1Config {
	return Tier1Config{
		MaxSize: 1000,
		TTL:     2 * time.Minute,
	}
}

// NewTier1 creates a new in-process cache
func NewTier1(config Tier1Config) *Tier1 {
	return &Tier1{
		cache:   make(map[string]*tier1Entry),
		maxSize: config.MaxSize,
		ttl:     config.TTL,
	}
}

// Get returns the cached result and its age, or nil on a miss. Expired
// entries count as misses; the sweep removes them later.
func (c *Tier1) Get(fingerprint string) (*models.CachedSearchResult, time.Duration) {
	c.mu.RLock()
	entry, exists := c.cache[fingerprint]
	c.mu.RUnlock()

	now := time.Now()
	if exists && now.Before(entry.expiresAt) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return entry.result, now.Sub(entry.storedAt)
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return nil, 0
}

// Put stores a result under its fingerprint, replacing any previous value.
func (c *Tier1) Put(fingerprint string, result *models.CachedSearchResult) {
	c.PutWithAge(fingerprint, result, 0)
}

// PutWithAge stores a result whose data is already age old. Used when
// promoting Tier-2 hits so the entry's reported age reflects the underlying
// data, not the promotion time. The entry still lives a full TTL.
func (c *Tier1) PutWithAge(fingerprint string, result *models.CachedSearchResult, age time.Duration) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache) >= c.maxSize {
		c.evictHalf()
	}

	c.cache[fingerprint] = &tier1Entry{
		result:    result,
		storedAt:  now.Add(-age),
		expiresAt: now.Add(c.ttl),
	}
	metrics.Tier1Entries.Set(float64(len(c.cache)))
}

// evictHalf removes half the cache entries (must be called with lock held)
func (c *Tier1) evictHalf() {
	count := 0
	target := len(c.cache) / 2
	for key := range c.cache {
		delete(c.cache, key)
		count++
		if count >= target {
			break
		}
	}
}

// Invalidate removes a specific fingerprint from the cache
func (c *Tier1) Invalidate(fingerprint string) {
	c.mu.Lock()
	delete(c.cache, fingerprint)
	c.mu.Unlock()
}

// Sweep removes expired entries and returns how many were evicted.
func (c *Tier1) Sweep() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, entry := range c.cache {
		if !now.Before(entry.expiresAt) {
			delete(c.cache, key)
			evicted++
		}
	}
	metrics.Tier1Entries.Set(float64(len(c.cache)))
	return evicted
}

// Clear removes all entries from the cache
func (c *Tier1) Clear() {
	c.mu.Lock()
	c.cache = make(map[string]*tier1Entry)
	c.mu.Unlock()
	metrics.Tier1Entries.Set(0)
}

// Stats returns cache statistics
type Stats struct {
	Size   int
	Hits   int64
	Misses int64
}

func (c *Tier1) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Size:   len(c.cache),
		Hits:   c.hits,
		Misses: c.misses,
	}
}
