// Package dedupresult persists the append-only ledger of duplicate-resolution
// decisions. Rows are never updated; the latest row per (listing, platform)
// is the current decision.
package dedupresult

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/cararth/marigold/pkg/database"
	"github.com/cararth/marigold/pkg/models"
	"github.com/cararth/marigold/pkg/tracing"
)

// Repository handles dedup result persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new dedup result repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

var resultColumns = []string{
	"id", "listing_id", "platform", "is_duplicate", "consensus_confidence",
	"matched_url", "matched_fields", "judge_count", "abstained_count",
	"rationale", "skip_syndication", "created_at",
}

// Insert appends one decision row. The ledger is append-only; corrections
// come in as new rows.
func (r *Repository) Insert(ctx context.Context, result models.DeduplicationResult) (*models.DeduplicationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupresult.Repository.Insert")
	defer span.End()

	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("dedup_results")
	ib.Cols(resultColumns...)
	ib.Values(
		result.ID, result.ListingID, result.Platform, result.IsDuplicate, result.ConsensusConfidence,
		result.MatchedURL, result.MatchedFields, result.JudgeCount, result.AbstainedCount,
		result.Rationale, result.SkipSyndication, result.CreatedAt,
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"listing_id": result.ListingID, "platform": result.Platform}).Error("Failed to insert dedup result")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert dedup result")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"listing_id":   result.ListingID,
		"platform":     result.Platform,
		"is_duplicate": result.IsDuplicate,
		"confidence":   result.ConsensusConfidence,
	}).Info("Recorded dedup decision")
	return &result, nil
}

// ListByListing returns the full decision history for a listing, newest first.
func (r *Repository) ListByListing(ctx context.Context, listingID string) ([]models.DeduplicationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupresult.Repository.ListByListing")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(resultColumns...)
	sb.From("dedup_results")
	sb.Where(sb.Equal("listing_id", listingID))
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var results []models.DeduplicationResult
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"listing_id": listingID}).Error("Failed to list dedup results")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list dedup results")
	}
	return results, nil
}

// LatestPerPlatform returns the most recent decision row for each platform
// the listing has been resolved against.
func (r *Repository) LatestPerPlatform(ctx context.Context, listingID string) ([]models.DeduplicationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupresult.Repository.LatestPerPlatform")
	defer span.End()

	query := `
		SELECT DISTINCT ON (platform)
			id, listing_id, platform, is_duplicate, consensus_confidence,
			matched_url, matched_fields, judge_count, abstained_count,
			rationale, skip_syndication, created_at
		FROM dedup_results
		WHERE listing_id = $1
		ORDER BY platform, created_at DESC
	`

	var results []models.DeduplicationResult
	if err := r.db.SelectContext(ctx, &results, query, listingID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"listing_id": listingID}).Error("Failed to get latest dedup results per platform")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get latest dedup results")
	}
	return results, nil
}

// PurgeOlderThan removes ledger rows created before the cutoff.
func (r *Repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupresult.Repository.PurgeOlderThan")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("dedup_results")
	sb.Where(sb.LessThan("created_at", cutoff))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"cutoff": cutoff}).Error("Failed to purge dedup results")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to purge dedup results")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
