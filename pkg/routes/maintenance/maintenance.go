// Package maintenance exposes operational endpoints for cache cleanup and
// inspection. These are called by the scheduler, not by user traffic.
package maintenance

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/cararth/marigold/internal/repositories/dedupresult"
	"github.com/cararth/marigold/pkg/cache"
	"github.com/cararth/marigold/pkg/tracing"
)

// Handler serves maintenance routes
type Handler struct {
	cache           *cache.Orchestrator
	ledger          *dedupresult.Repository
	ledgerRetention time.Duration
	logger          ectologger.Logger
}

// NewHandler creates a maintenance handler. ledgerRetention bounds how far
// back decision rows are kept; zero disables ledger purging.
func NewHandler(orchestrator *cache.Orchestrator, ledger *dedupresult.Repository, ledgerRetention time.Duration, logger ectologger.Logger) *Handler {
	return &Handler{
		cache:           orchestrator,
		ledger:          ledger,
		ledgerRetention: ledgerRetention,
		logger:          logger,
	}
}

// Register registers maintenance routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/maintenance/cleanup", h.Cleanup)
	g.GET("/maintenance/stats", h.Stats)
}

// CleanupResponse reports what a cleanup pass removed.
type CleanupResponse struct {
	Tier1Evicted int   `json:"tier1_evicted"`
	Tier2Purged  int64 `json:"tier2_purged"`
	LedgerPurged int64 `json:"ledger_purged"`
}

// Cleanup sweeps expired entries from both cache tiers and trims the
// decision ledger to its retention window.
func (h *Handler) Cleanup(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "maintenance_handler.Cleanup")
	defer span.End()

	report, err := h.cache.CleanupExpired(ctx)
	if err != nil {
		return err
	}

	resp := CleanupResponse{
		Tier1Evicted: report.Tier1Evicted,
		Tier2Purged:  report.Tier2Purged,
	}

	if h.ledger != nil && h.ledgerRetention > 0 {
		purged, err := h.ledger.PurgeOlderThan(ctx, time.Now().UTC().Add(-h.ledgerRetention))
		if err != nil {
			return err
		}
		resp.LedgerPurged = purged
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"tier1_evicted": resp.Tier1Evicted,
		"tier2_purged":  resp.Tier2Purged,
		"ledger_purged": resp.LedgerPurged,
	}).Info("Cleanup pass completed")
	return c.JSON(http.StatusOK, resp)
}

// Stats returns in-process cache counters.
func (h *Handler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.cache.Stats())
}
