// Package judges implements the LLM judge services consulted during
// duplicate resolution. Each judge independently compares a listing against
// cross-platform candidates and returns a confidence verdict.
package judges

import (
	"context"

	"github.com/cararth/marigold/pkg/models"
)

// Judge renders a duplicate verdict for one listing against candidates from
// one platform. Implementations must honor ctx cancellation; the engine
// enforces a per-judge timeout.
type Judge interface {
	Name() string
	Evaluate(ctx context.Context, listing models.CachedListingRecord, platform string, candidates []models.CandidateListing) (*models.DuplicateJudgment, error)
}
