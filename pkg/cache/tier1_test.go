package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cararth/marigold/pkg/models"
)

func testResult(fp string) *models.CachedSearchResult {
	return &models.CachedSearchResult{
		Fingerprint: fp,
		Listings:    []models.ListingSummary{{ContentHash: "h1", Portal: "cardekho", Title: "Honda City", Price: 750000}},
		CreatedAt:   time.Now().UTC(),
	}
}

func TestTier1_PutGet(t *testing.T) {
	c := NewTier1(Tier1Config{MaxSize: 10, TTL: time.Minute})

	c.Put("fp1", testResult("fp1"))

	got, age := c.Get("fp1")
	require.NotNil(t, got)
	assert.Equal(t, "fp1", got.Fingerprint)
	assert.Less(t, age, time.Second)
}

func TestTier1_MissOnUnknownKey(t *testing.T) {
	c := NewTier1(Tier1Config{MaxSize: 10, TTL: time.Minute})

	got, _ := c.Get("nope")
	assert.Nil(t, got)

	stats := c.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestTier1_PutReplacesWholeValue(t *testing.T) {
	c := NewTier1(Tier1Config{MaxSize: 10, TTL: time.Minute})

	first := testResult("fp1")
	c.Put("fp1", first)

	second := testResult("fp1")
	second.Listings = append(second.Listings, models.ListingSummary{ContentHash: "h2", Portal: "olx", Title: "Honda City ZX", Price: 700000})
	c.Put("fp1", second)

	got, _ := c.Get("fp1")
	require.NotNil(t, got)
	assert.Len(t, got.Listings, 2)
	assert.Equal(t, 1, c.Stats().Size)
}

func TestTier1_ExpiredEntryIsMiss(t *testing.T) {
	c := NewTier1(Tier1Config{MaxSize: 10, TTL: 10 * time.Millisecond})

	c.Put("fp1", testResult("fp1"))
	time.Sleep(20 * time.Millisecond)

	got, _ := c.Get("fp1")
	assert.Nil(t, got)
}

func TestTier1_PutWithAgeCarriesDataAge(t *testing.T) {
	c := NewTier1(Tier1Config{MaxSize: 10, TTL: time.Minute})

	c.PutWithAge("fp1", testResult("fp1"), 10*time.Minute)

	got, age := c.Get("fp1")
	require.NotNil(t, got)
	assert.GreaterOrEqual(t, age, 10*time.Minute)
}

func TestTier1_Sweep(t *testing.T) {
	c := NewTier1(Tier1Config{MaxSize: 10, TTL: 10 * time.Millisecond})

	c.Put("fp1", testResult("fp1"))
	c.Put("fp2", testResult("fp2"))
	time.Sleep(20 * time.Millisecond)
	c.Put("fp3", testResult("fp3"))

	evicted := c.Sweep()
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 1, c.Stats().Size)

	got, _ := c.Get("fp3")
	assert.NotNil(t, got)
}

func TestTier1_EvictsAtCapacity(t *testing.T) {
	c := NewTier1(Tier1Config{MaxSize: 4, TTL: time.Minute})

	c.Put("fp1", testResult("fp1"))
	c.Put("fp2", testResult("fp2"))
	c.Put("fp3", testResult("fp3"))
	c.Put("fp4", testResult("fp4"))
	c.Put("fp5", testResult("fp5"))

	assert.LessOrEqual(t, c.Stats().Size, 4)

	got, _ := c.Get("fp5")
	assert.NotNil(t, got)
}
