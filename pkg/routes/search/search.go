// Package search exposes the cached-search endpoints: a read-through probe
// and the write path aggregators use to cache a fresh result set.
package search

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/cararth/marigold/pkg/cache"
	"github.com/cararth/marigold/pkg/models"
	"github.com/cararth/marigold/pkg/tracing"
)

var validate = validator.New()

// Handler serves search cache routes
type Handler struct {
	cache  *cache.Orchestrator
	logger ectologger.Logger
}

// NewHandler creates a search handler
func NewHandler(orchestrator *cache.Orchestrator, logger ectologger.Logger) *Handler {
	return &Handler{
		cache:  orchestrator,
		logger: logger,
	}
}

// Register registers search routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/search", h.Get)
	g.POST("/search/results", h.Cache)
}

// Get probes both cache tiers for the given filters. A miss is a normal
// response, not an error; the caller decides whether to trigger a live search.
func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "search_handler.Get")
	defer span.End()

	var filters models.SearchFilters
	if err := c.Bind(&filters); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid search filters")
	}

	result, meta := h.cache.Get(ctx, filters)
	return c.JSON(http.StatusOK, models.CachedSearchResponse{
		Result:   result,
		Metadata: meta,
	})
}

// CacheResultsResponse acknowledges a cache write.
type CacheResultsResponse struct {
	Fingerprint string `json:"fingerprint"`
	Cached      int    `json:"cached_listings"`
}

// Cache stores an aggregated search result in both tiers.
func (h *Handler) Cache(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "search_handler.Cache")
	defer span.End()

	var req models.CacheSearchResultsRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result := models.CachedSearchResult{
		Listings:        req.Listings,
		Analytics:       req.Analytics,
		Recommendations: req.Recommendations,
		CreatedAt:       time.Now().UTC(),
	}

	fp, err := h.cache.Put(ctx, req.Filters, result, req.SourceListings)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, CacheResultsResponse{
		Fingerprint: fp,
		Cached:      len(req.SourceListings),
	})
}
