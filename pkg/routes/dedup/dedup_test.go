package dedup

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dedupengine "github.com/cararth/marigold/pkg/dedup"
	"github.com/cararth/marigold/pkg/judges"
	"github.com/cararth/marigold/pkg/logging"
	"github.com/cararth/marigold/pkg/middleware"
	"github.com/cararth/marigold/pkg/models"
)

type staticRetriever struct {
	candidates []models.CandidateListing
}

func (s *staticRetriever) Retrieve(_ context.Context, _, _ string, limit int) ([]models.CandidateListing, error) {
	cands := s.candidates
	if len(cands) > limit {
		cands = cands[:limit]
	}
	return cands, nil
}

type staticJudge struct {
	name       string
	confidence float64
	url        string
}

func (s *staticJudge) Name() string { return s.name }

func (s *staticJudge) Evaluate(_ context.Context, _ models.CachedListingRecord, _ string, _ []models.CandidateListing) (*models.DuplicateJudgment, error) {
	return &models.DuplicateJudgment{
		Judge:       s.name,
		IsDuplicate: s.confidence >= 0.85,
		Confidence:  s.confidence,
		MatchedURL:  s.url,
	}, nil
}

type memoryLedger struct {
	rows []models.DeduplicationResult
}

func (m *memoryLedger) Insert(_ context.Context, result models.DeduplicationResult) (*models.DeduplicationResult, error) {
	m.rows = append(m.rows, result)
	return &result, nil
}

func (m *memoryLedger) ListByListing(_ context.Context, listingID string) ([]models.DeduplicationResult, error) {
	var out []models.DeduplicationResult
	for _, r := range m.rows {
		if r.ListingID == listingID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryLedger) LatestPerPlatform(_ context.Context, listingID string) ([]models.DeduplicationResult, error) {
	latest := map[string]models.DeduplicationResult{}
	for _, r := range m.rows {
		if r.ListingID == listingID {
			latest[r.Platform] = r
		}
	}
	out := make([]models.DeduplicationResult, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	return out, nil
}

func newTestServer(ledger *memoryLedger) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logging.NewNop())

	engine := dedupengine.NewEngine(
		dedupengine.Config{Platforms: []string{"olx"}},
		&staticRetriever{candidates: []models.CandidateListing{{URL: "https://olx.example/1", Title: "Honda City"}}},
		[]judges.Judge{
			&staticJudge{name: "a", confidence: 0.9, url: "https://olx.example/1"},
			&staticJudge{name: "b", confidence: 0.9},
			&staticJudge{name: "c", confidence: 0.9},
		},
		ledger,
		logging.NewNop(),
	)
	NewHandler(engine).Register(e.Group("/api/v1"))
	return e
}

func TestResolve(t *testing.T) {
	ledger := &memoryLedger{}
	e := newTestServer(ledger)

	body := models.ResolveDuplicatesRequest{
		ListingID: "listing-1",
		Listing: models.ListingInput{
			Portal: "cararth",
			Title:  "Honda City VX 2019",
			Price:  850000,
			Year:   2019,
			City:   "Hyderabad",
		},
	}
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/resolve", bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ResolveDuplicatesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Results[0].IsDuplicate)
	assert.Equal(t, "https://olx.example/1", resp.Results[0].MatchedURL)
	assert.Len(t, ledger.rows, 1)
}

func TestResolve_MissingListingID(t *testing.T) {
	e := newTestServer(&memoryLedger{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/resolve", bytes.NewReader([]byte(`{"listing":{"portal":"olx","title":"x","price":1}}`)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory_UnknownPlatformStatus(t *testing.T) {
	ledger := &memoryLedger{}
	e := newTestServer(ledger)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/listings/listing-9/dedup", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.DedupHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Latest, 1)
	assert.Equal(t, models.SyndicationStatusUnknown, resp.Latest[0].Status)
	assert.Empty(t, resp.History)
}
