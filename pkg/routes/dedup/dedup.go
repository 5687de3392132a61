// Package dedup exposes duplicate-resolution endpoints.
package dedup

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	dedupengine "github.com/cararth/marigold/pkg/dedup"
	"github.com/cararth/marigold/pkg/models"
	"github.com/cararth/marigold/pkg/tracing"
)

var validate = validator.New()

// Handler serves dedup routes
type Handler struct {
	engine *dedupengine.Engine
}

// NewHandler creates a dedup handler
func NewHandler(engine *dedupengine.Engine) *Handler {
	return &Handler{engine: engine}
}

// Register registers dedup routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/listings/resolve", h.Resolve)
	g.GET("/listings/:id/dedup", h.History)
}

// Resolve runs duplicate resolution for a listing across the requested
// platforms and returns the decisions that were reached.
func (h *Handler) Resolve(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dedup_handler.Resolve")
	defer span.End()

	var req models.ResolveDuplicatesRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.engine.Resolve(ctx, req.ListingID, req.Listing, req.Platforms)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// History returns the latest decision per platform plus the full ledger for
// a listing. Platforms never resolved report status unknown.
func (h *Handler) History(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dedup_handler.History")
	defer span.End()

	listingID := c.Param("id")
	if listingID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "listing id is required")
	}

	resp, err := h.engine.History(ctx, listingID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}
