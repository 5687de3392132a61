package cache

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/cararth/marigold/pkg/fingerprint"
	"github.com/cararth/marigold/pkg/metrics"
	"github.com/cararth/marigold/pkg/models"
	"github.com/cararth/marigold/pkg/normalizers"
	"github.com/cararth/marigold/pkg/tracing"
)

// ListingStore is the Tier-2 persistence surface the orchestrator reads
// through and writes behind.
type ListingStore interface {
	UpsertBatch(ctx context.Context, recs []models.CachedListingRecord) (int, error)
	Search(ctx context.Context, filters models.SearchFilters, since time.Time, limit int) ([]models.CachedListingRecord, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds the orchestrator settings.
type Config struct {
	Tier1TTL    time.Duration
	Tier2TTL    time.Duration
	Tier1Max    int
	SearchLimit int
}

// DefaultConfig returns the default cache settings.
func DefaultConfig() Config {
	return Config{
		Tier1TTL:    2 * time.Minute,
		Tier2TTL:    24 * time.Hour,
		Tier1Max:    1000,
		SearchLimit: 200,
	}
}

// Orchestrator coordinates the two cache tiers: Tier-1 answers repeat
// searches, Tier-2 reconstructs results from stored listings and is promoted
// back into Tier-1 on a hit.
type Orchestrator struct {
	tier1  *Tier1
	store  ListingStore
	config Config
	logger ectologger.Logger
}

// NewOrchestrator creates a cache orchestrator.
func NewOrchestrator(store ListingStore, config Config, logger ectologger.Logger) *Orchestrator {
	if config.Tier1TTL <= 0 {
		config.Tier1TTL = DefaultConfig().Tier1TTL
	}
	if config.Tier2TTL <= 0 {
		config.Tier2TTL = DefaultConfig().Tier2TTL
	}
	if config.Tier1Max <= 0 {
		config.Tier1Max = DefaultConfig().Tier1Max
	}
	if config.SearchLimit <= 0 {
		config.SearchLimit = DefaultConfig().SearchLimit
	}

	return &Orchestrator{
		tier1:  NewTier1(Tier1Config{MaxSize: config.Tier1Max, TTL: config.Tier1TTL}),
		store:  store,
		config: config,
		logger: logger,
	}
}

// Get probes both tiers for the given filters. A Tier-2 hit is promoted into
// Tier-1 carrying its data age. Tier-2 failures degrade to a miss; a cache
// problem must never break search.
func (o *Orchestrator) Get(ctx context.Context, filters models.SearchFilters) (*models.CachedSearchResult, models.CacheMetadata) {
	ctx, span := tracing.StartSpan(ctx, "cache.Orchestrator.Get")
	defer span.End()

	fp := fingerprint.Search(filters)
	log := o.logger.WithContext(ctx).WithFields(map[string]any{"fingerprint": fp})

	if result, age := o.tier1.Get(fp); result != nil {
		meta := models.CacheMetadata{
			ServedFrom: models.ServedFromTier1,
			DataAgeMs:  age.Milliseconds(),
			Freshness:  models.FreshnessForAge(age),
		}
		metrics.RecordCacheLookup(string(meta.ServedFrom), string(meta.Freshness))
		return result, meta
	}

	since := time.Now().Add(-o.config.Tier2TTL)
	rows, err := o.store.Search(ctx, filters, since, o.config.SearchLimit)
	if err != nil {
		log.WithError(err).Warn("Tier-2 lookup failed, degrading to miss")
		metrics.RecordCacheLookup(string(models.ServedFromMiss), "")
		return nil, models.CacheMetadata{ServedFrom: models.ServedFromMiss}
	}
	if len(rows) == 0 {
		metrics.RecordCacheLookup(string(models.ServedFromMiss), "")
		return nil, models.CacheMetadata{ServedFrom: models.ServedFromMiss}
	}

	result := buildResult(fp, rows)

	// The result is only as fresh as its stalest row.
	age := time.Since(oldestFetchedAt(rows))
	if age < 0 {
		age = 0
	}

	o.tier1.PutWithAge(fp, result, age)

	meta := models.CacheMetadata{
		ServedFrom: models.ServedFromTier2,
		DataAgeMs:  age.Milliseconds(),
		Freshness:  models.FreshnessForAge(age),
	}
	metrics.RecordCacheLookup(string(meta.ServedFrom), string(meta.Freshness))
	return result, meta
}

// Put caches an aggregated search result and persists its source listings.
// The Tier-1 write always happens; Tier-2 failures are reported but do not
// undo it.
func (o *Orchestrator) Put(ctx context.Context, filters models.SearchFilters, result models.CachedSearchResult, sourceListings []models.ListingInput) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "cache.Orchestrator.Put")
	defer span.End()

	fp := fingerprint.Search(filters)
	result.Fingerprint = fp
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	o.tier1.Put(fp, &result)
	metrics.CacheWritesTotal.WithLabelValues("tier1", "ok").Inc()

	if len(sourceListings) == 0 {
		return fp, nil
	}

	now := time.Now().UTC()
	recs := make([]models.CachedListingRecord, 0, len(sourceListings))
	for _, in := range sourceListings {
		rec := normalizers.Listing(in, now)
		rec.ContentHash = fingerprint.Content(rec)
		recs = append(recs, rec)
	}

	written, err := o.store.UpsertBatch(ctx, recs)
	if err != nil {
		metrics.CacheWritesTotal.WithLabelValues("tier2", "error").Inc()
		o.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"fingerprint": fp, "listings": len(recs)}).Error("Failed to persist source listings")
		return fp, err
	}

	metrics.CacheWritesTotal.WithLabelValues("tier2", "ok").Inc()
	o.logger.WithContext(ctx).WithFields(map[string]any{"fingerprint": fp, "written": written}).Debug("Cached search result")
	return fp, nil
}

// CleanupReport summarizes an expiry sweep.
type CleanupReport struct {
	Tier1Evicted int   `json:"tier1_evicted"`
	Tier2Purged  int64 `json:"tier2_purged"`
}

// CleanupExpired sweeps expired Tier-1 entries and purges Tier-2 rows past
// their retention. Safe to run concurrently with reads and writes.
func (o *Orchestrator) CleanupExpired(ctx context.Context) (CleanupReport, error) {
	ctx, span := tracing.StartSpan(ctx, "cache.Orchestrator.CleanupExpired")
	defer span.End()

	report := CleanupReport{}
	report.Tier1Evicted = o.tier1.Sweep()
	metrics.CacheEntriesEvicted.WithLabelValues("tier1").Add(float64(report.Tier1Evicted))

	purged, err := o.store.PurgeOlderThan(ctx, time.Now().Add(-o.config.Tier2TTL))
	if err != nil {
		return report, err
	}
	report.Tier2Purged = purged
	metrics.CacheEntriesEvicted.WithLabelValues("tier2").Add(float64(purged))

	o.logger.WithContext(ctx).WithFields(map[string]any{
		"tier1_evicted": report.Tier1Evicted,
		"tier2_purged":  report.Tier2Purged,
	}).Info("Cache cleanup completed")
	return report, nil
}

// Stats exposes Tier-1 counters for the health surface.
func (o *Orchestrator) Stats() Stats {
	return o.tier1.Stats()
}

func buildResult(fp string, rows []models.CachedListingRecord) *models.CachedSearchResult {
	listings := make([]models.ListingSummary, 0, len(rows))
	analytics := models.AnalyticsSnapshot{
		TotalListings: len(rows),
		PortalCounts:  make(map[string]int),
	}

	var priceSum int64
	for i, rec := range rows {
		listings = append(listings, rec.Summary())
		analytics.PortalCounts[rec.Portal]++
		priceSum += rec.Price
		if i == 0 || rec.Price < analytics.MinPrice {
			analytics.MinPrice = rec.Price
		}
		if rec.Price > analytics.MaxPrice {
			analytics.MaxPrice = rec.Price
		}
	}
	if len(rows) > 0 {
		analytics.AveragePrice = priceSum / int64(len(rows))
	}

	return &models.CachedSearchResult{
		Fingerprint: fp,
		Listings:    listings,
		Analytics:   &analytics,
		CreatedAt:   time.Now().UTC(),
	}
}

func oldestFetchedAt(rows []models.CachedListingRecord) time.Time {
	oldest := rows[0].FetchedAt
	for _, rec := range rows[1:] {
		if rec.FetchedAt.Before(oldest) {
			oldest = rec.FetchedAt
		}
	}
	return oldest
}
