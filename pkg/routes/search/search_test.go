package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cararth/marigold/pkg/cache"
	"github.com/cararth/marigold/pkg/logging"
	"github.com/cararth/marigold/pkg/middleware"
	"github.com/cararth/marigold/pkg/models"
)

type fakeStore struct {
	listings []models.CachedListingRecord
	upserted int
}

func (f *fakeStore) UpsertBatch(_ context.Context, recs []models.CachedListingRecord) (int, error) {
	f.upserted += len(recs)
	return len(recs), nil
}

func (f *fakeStore) Search(_ context.Context, _ models.SearchFilters, since time.Time, _ int) ([]models.CachedListingRecord, error) {
	var out []models.CachedListingRecord
	for _, rec := range f.listings {
		if rec.FetchedAt.After(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) PurgeOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newTestServer(store *fakeStore) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logging.NewNop())
	orchestrator := cache.NewOrchestrator(store, cache.DefaultConfig(), logging.NewNop())
	NewHandler(orchestrator, logging.NewNop()).Register(e.Group("/api/v1"))
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSearchGet_MissIsNotAnError(t *testing.T) {
	e := newTestServer(&fakeStore{})

	rec := doJSON(t, e, http.MethodGet, "/api/v1/search?city=Hyderabad&brand=Honda", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.CachedSearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Result)
	assert.Equal(t, models.ServedFromMiss, resp.Metadata.ServedFrom)
}

func TestSearchCacheThenGet(t *testing.T) {
	store := &fakeStore{}
	e := newTestServer(store)

	body := models.CacheSearchResultsRequest{
		Filters: models.SearchFilters{City: "Hyderabad", Brand: "Honda"},
		Listings: []models.ListingSummary{
			{ContentHash: "abc", Portal: "olx", Title: "Honda City", Price: 850000},
		},
		SourceListings: []models.ListingInput{
			{Portal: "olx", Title: "Honda City VX", Price: 850000, Year: 2019, City: "Hyderabad"},
		},
	}

	rec := doJSON(t, e, http.MethodPost, "/api/v1/search/results", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created CacheResultsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Len(t, created.Fingerprint, 32)
	assert.Equal(t, 1, store.upserted)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/search?city=hyderabad&brand=HONDA", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.CachedSearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.Equal(t, models.ServedFromTier1, resp.Metadata.ServedFrom)
	assert.Equal(t, models.FreshnessFresh, resp.Metadata.Freshness)
	require.Len(t, resp.Result.Listings, 1)
	assert.Equal(t, "Honda City", resp.Result.Listings[0].Title)
}

func TestSearchCache_MissingListingsRejected(t *testing.T) {
	e := newTestServer(&fakeStore{})

	rec := doJSON(t, e, http.MethodPost, "/api/v1/search/results", models.CacheSearchResultsRequest{
		Filters: models.SearchFilters{City: "Pune"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
