package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cararth/marigold/pkg/logging"
	"github.com/cararth/marigold/pkg/models"
)

type fakeStore struct {
	rows      []models.CachedListingRecord
	upserted  []models.CachedListingRecord
	searchErr error
	purged    int64
}

func (f *fakeStore) UpsertBatch(ctx context.Context, recs []models.CachedListingRecord) (int, error) {
	f.upserted = append(f.upserted, recs...)
	return len(recs), nil
}

func (f *fakeStore) Search(ctx context.Context, filters models.SearchFilters, since time.Time, limit int) ([]models.CachedListingRecord, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []models.CachedListingRecord
	for _, rec := range f.rows {
		if !rec.FetchedAt.Before(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	kept := f.rows[:0]
	for _, rec := range f.rows {
		if rec.FetchedAt.Before(cutoff) {
			f.purged++
		} else {
			kept = append(kept, rec)
		}
	}
	f.rows = kept
	return f.purged, nil
}

func listingRow(hash, portal string, price int64, fetchedAt time.Time) models.CachedListingRecord {
	return models.CachedListingRecord{
		ID:              hash,
		ContentHash:     hash,
		Portal:          portal,
		Title:           "Honda City VX",
		NormalizedTitle: "honda city vx",
		Brand:           "honda",
		Model:           "city",
		Year:            2019,
		Price:           price,
		City:            "hyderabad",
		FetchedAt:       fetchedAt,
	}
}

func newTestOrchestrator(store ListingStore, cfg Config) *Orchestrator {
	return NewOrchestrator(store, cfg, logging.NewNop())
}

func TestOrchestrator_MissWhenEmpty(t *testing.T) {
	o := newTestOrchestrator(&fakeStore{}, DefaultConfig())

	result, meta := o.Get(context.Background(), models.SearchFilters{City: "hyderabad"})
	assert.Nil(t, result)
	assert.Equal(t, models.ServedFromMiss, meta.ServedFrom)
}

func TestOrchestrator_PutThenGetHitsTier1(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store, DefaultConfig())
	filters := models.SearchFilters{City: "hyderabad", Brand: "honda"}

	result := models.CachedSearchResult{
		Listings: []models.ListingSummary{{ContentHash: "h1", Portal: "cardekho", Title: "Honda City", Price: 750000}},
	}
	source := []models.ListingInput{{
		Portal: "cardekho", Title: "Honda City VX", Price: 750000, City: "Hyderabad", Year: 2019,
	}}

	fp, err := o.Put(context.Background(), filters, result, source)
	require.NoError(t, err)
	require.NotEmpty(t, fp)
	require.Len(t, store.upserted, 1)
	assert.NotEmpty(t, store.upserted[0].ContentHash)

	got, meta := o.Get(context.Background(), filters)
	require.NotNil(t, got)
	assert.Equal(t, models.ServedFromTier1, meta.ServedFrom)
	assert.Equal(t, models.FreshnessFresh, meta.Freshness)
	assert.Equal(t, fp, got.Fingerprint)
}

func TestOrchestrator_PutIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store, DefaultConfig())
	filters := models.SearchFilters{City: "pune"}
	result := models.CachedSearchResult{Listings: []models.ListingSummary{{ContentHash: "h1", Price: 1}}}

	fp1, err := o.Put(context.Background(), filters, result, nil)
	require.NoError(t, err)
	fp2, err := o.Put(context.Background(), filters, result, nil)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.Equal(t, 1, o.Stats().Size)
}

func TestOrchestrator_Tier2HitPromotesToTier1(t *testing.T) {
	fetched := time.Now().Add(-30 * time.Minute)
	store := &fakeStore{rows: []models.CachedListingRecord{
		listingRow("h1", "cardekho", 750000, fetched),
		listingRow("h2", "olx", 720000, fetched.Add(10*time.Minute)),
	}}
	o := newTestOrchestrator(store, DefaultConfig())
	filters := models.SearchFilters{City: "Hyderabad", Brand: "Honda", Model: "City"}

	result, meta := o.Get(context.Background(), filters)
	require.NotNil(t, result)
	assert.Equal(t, models.ServedFromTier2, meta.ServedFrom)
	// Age reflects the oldest contributing row: ~30m, so warm not fresh.
	assert.Equal(t, models.FreshnessWarm, meta.Freshness)
	assert.GreaterOrEqual(t, meta.DataAgeMs, (29 * time.Minute).Milliseconds())
	assert.Len(t, result.Listings, 2)

	require.NotNil(t, result.Analytics)
	assert.Equal(t, 2, result.Analytics.TotalListings)
	assert.Equal(t, int64(720000), result.Analytics.MinPrice)
	assert.Equal(t, int64(750000), result.Analytics.MaxPrice)

	// Second read must come from Tier-1 and keep the underlying data age.
	promoted, meta2 := o.Get(context.Background(), filters)
	require.NotNil(t, promoted)
	assert.Equal(t, models.ServedFromTier1, meta2.ServedFrom)
	assert.GreaterOrEqual(t, meta2.DataAgeMs, meta.DataAgeMs)
}

func TestOrchestrator_StoreErrorDegradesToMiss(t *testing.T) {
	store := &fakeStore{searchErr: errors.New("connection refused")}
	o := newTestOrchestrator(store, DefaultConfig())

	result, meta := o.Get(context.Background(), models.SearchFilters{City: "hyderabad"})
	assert.Nil(t, result)
	assert.Equal(t, models.ServedFromMiss, meta.ServedFrom)
}

func TestOrchestrator_StaleRowsNotServed(t *testing.T) {
	cfg := DefaultConfig()
	store := &fakeStore{rows: []models.CachedListingRecord{
		listingRow("h1", "cardekho", 750000, time.Now().Add(-25*time.Hour)),
	}}
	o := newTestOrchestrator(store, cfg)

	result, meta := o.Get(context.Background(), models.SearchFilters{City: "hyderabad"})
	assert.Nil(t, result)
	assert.Equal(t, models.ServedFromMiss, meta.ServedFrom)
}

func TestOrchestrator_CleanupExpired(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tier1TTL = 10 * time.Millisecond
	store := &fakeStore{rows: []models.CachedListingRecord{
		listingRow("old", "cardekho", 1, time.Now().Add(-48*time.Hour)),
		listingRow("new", "olx", 2, time.Now()),
	}}
	o := newTestOrchestrator(store, cfg)

	_, err := o.Put(context.Background(), models.SearchFilters{City: "pune"}, models.CachedSearchResult{}, nil)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	report, err := o.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Tier1Evicted)
	assert.Equal(t, int64(1), report.Tier2Purged)
	assert.Len(t, store.rows, 1)
	assert.Equal(t, "new", store.rows[0].ContentHash)
}
