// Package listingcache persists normalized listings in the Tier-2 Postgres
// store, keyed by content hash.
package listingcache

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
	"github.com/cararth/marigold/pkg/normalizers"
	"github.com/cararth/marigold/pkg/tracing"
)

// Repository handles cached listing persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new cached listing repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

var listingColumns = []string{
	"id", "content_hash", "portal", "external_id", "title", "normalized_title",
	"brand", "model", "variant", "year", "price", "mileage", "fuel_type",
	"transmission", "owner_count", "city", "state", "url", "images", "verified",
	"quality_score", "source_metadata", "listing_date", "fetched_at",
	"created_at", "updated_at",
}

// UpsertResult reports whether the upsert inserted a new row.
type UpsertResult struct {
	Record *models.CachedListingRecord
	IsNew  bool
}

// Upsert inserts a listing or refreshes the row already held for the same
// vehicle. Identity is (portal, external_id) when the portal supplies a
// stable listing id, so a re-fetch with a changed price updates the row in
// place. Listings without an external id fall back to content-hash identity,
// under which the hashed fields (portal, title, price, city, year) never
// change.
func (r *Repository) Upsert(ctx context.Context, rec models.CachedListingRecord) (*UpsertResult, error) {
	ctx, span := tracing.StartSpan(ctx, "listingcache.Repository.Upsert")
	defer span.End()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rec.UpdatedAt = now
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = now
	}

	query := upsertQuery(rec.ExternalID)

	var result struct {
		models.CachedListingRecord
		Inserted bool `db:"inserted"`
	}

	err := r.db.GetContext(ctx, &result, query,
		rec.ID, rec.ContentHash, rec.Portal, rec.ExternalID, rec.Title, rec.NormalizedTitle,
		rec.Brand, rec.Model, rec.Variant, rec.Year, rec.Price, rec.Mileage, rec.FuelType,
		rec.Transmission, rec.OwnerCount, rec.City, rec.State, rec.URL, rec.Images, rec.Verified,
		rec.QualityScore, rec.SourceMetadata, rec.ListingDate, rec.FetchedAt,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"content_hash": rec.ContentHash, "portal": rec.Portal}).Error("Failed to upsert cached listing")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert cached listing")
	}

	return &UpsertResult{Record: &result.CachedListingRecord, IsNew: result.Inserted}, nil
}

// upsertQuery picks the conflict arbiter for a listing. Rows with an
// external id converge on the portal-scoped unique index and may move to a
// new content hash on update; rows without one can only be recognized by
// their content hash, which freezes the hashed fields.
func upsertQuery(externalID string) string {
	conflict := `
		ON CONFLICT (content_hash)
		DO UPDATE SET
			external_id = EXCLUDED.external_id,
			mileage = EXCLUDED.mileage,
			owner_count = EXCLUDED.owner_count,
			url = EXCLUDED.url,
			images = EXCLUDED.images,
			verified = EXCLUDED.verified,
			quality_score = EXCLUDED.quality_score,
			source_metadata = EXCLUDED.source_metadata,
			listing_date = EXCLUDED.listing_date,
			fetched_at = EXCLUDED.fetched_at,
			updated_at = EXCLUDED.updated_at`
	if externalID != "" {
		conflict = `
		ON CONFLICT (portal, external_id) WHERE external_id <> ''
		DO UPDATE SET
			content_hash = EXCLUDED.content_hash,
			title = EXCLUDED.title,
			normalized_title = EXCLUDED.normalized_title,
			brand = EXCLUDED.brand,
			model = EXCLUDED.model,
			variant = EXCLUDED.variant,
			year = EXCLUDED.year,
			price = EXCLUDED.price,
			mileage = EXCLUDED.mileage,
			fuel_type = EXCLUDED.fuel_type,
			transmission = EXCLUDED.transmission,
			owner_count = EXCLUDED.owner_count,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			url = EXCLUDED.url,
			images = EXCLUDED.images,
			verified = EXCLUDED.verified,
			quality_score = EXCLUDED.quality_score,
			source_metadata = EXCLUDED.source_metadata,
			listing_date = EXCLUDED.listing_date,
			fetched_at = EXCLUDED.fetched_at,
			updated_at = EXCLUDED.updated_at`
	}

	return `
		INSERT INTO cached_listings (
			id, content_hash, portal, external_id, title, normalized_title,
			brand, model, variant, year, price, mileage, fuel_type,
			transmission, owner_count, city, state, url, images, verified,
			quality_score, source_metadata, listing_date, fetched_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)` + conflict + `
		RETURNING
			id, content_hash, portal, external_id, title, normalized_title,
			brand, model, variant, year, price, mileage, fuel_type,
			transmission, owner_count, city, state, url, images, verified,
			quality_score, source_metadata, listing_date, fetched_at,
			created_at, updated_at,
			(xmax = 0) AS inserted
	`
}

// UpsertBatch upserts listings with per-row isolation: a row that fails is
// logged and skipped, the rest of the batch goes through. Returns how many
// rows were written.
func (r *Repository) UpsertBatch(ctx context.Context, recs []models.CachedListingRecord) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "listingcache.Repository.UpsertBatch")
	defer span.End()

	written := 0
	for _, rec := range recs {
		if _, err := r.Upsert(ctx, rec); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"content_hash": rec.ContentHash}).Warn("Skipping failed row in listing batch")
			continue
		}
		written++
	}

	if written == 0 && len(recs) > 0 {
		return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "all %d rows in listing batch failed", len(recs))
	}
	return written, nil
}

// Search reconstructs the filter predicates in SQL against the normalized
// columns and returns rows listed since the given cutoff, newest first
// unless the filters say otherwise. The cutoff runs on listing_date, with
// fetched_at standing in for portals that never report one.
func (r *Repository) Search(ctx context.Context, filters models.SearchFilters, since time.Time, limit int) ([]models.CachedListingRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "listingcache.Repository.Search")
	defer span.End()

	query, args := searchQuery(filters, since, limit)
	var listings []models.CachedListingRecord
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"city": filters.City, "brand": filters.Brand, "model": filters.Model}).Error("Failed to search cached listings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search cached listings")
	}
	return listings, nil
}

func searchQuery(filters models.SearchFilters, since time.Time, limit int) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(listingColumns...)
	sb.From("cached_listings")

	where := []string{
		sb.GreaterEqualThan("COALESCE(listing_date, fetched_at)", since),
	}
	if filters.City != "" {
		where = append(where, sb.Equal("city", normalizers.NormalizeCity(filters.City)))
	}
	if filters.Brand != "" {
		where = append(where, sb.Equal("brand", normalizers.NormalizeBrand(filters.Brand)))
	}
	if filters.Model != "" {
		where = append(where, sb.Equal("model", normalizers.Lowercase(normalizers.CollapseWhitespace(filters.Model))))
	}
	if filters.PriceMin != nil {
		where = append(where, sb.GreaterEqualThan("price", *filters.PriceMin))
	}
	if filters.PriceMax != nil {
		where = append(where, sb.LessEqualThan("price", *filters.PriceMax))
	}
	if filters.YearMin != nil {
		where = append(where, sb.GreaterEqualThan("year", *filters.YearMin))
	}
	if filters.YearMax != nil {
		where = append(where, sb.LessEqualThan("year", *filters.YearMax))
	}
	if filters.MileageMax != nil {
		where = append(where, sb.LessEqualThan("mileage", *filters.MileageMax))
	}
	if len(filters.FuelTypes) > 0 {
		where = append(where, sb.In("fuel_type", sqlbuilder.Flatten(normalizeAll(filters.FuelTypes, normalizers.NormalizeFuelType))...))
	}
	if len(filters.Transmissions) > 0 {
		where = append(where, sb.In("transmission", sqlbuilder.Flatten(normalizeAll(filters.Transmissions, normalizers.NormalizeTransmission))...))
	}
	if len(filters.Portals) > 0 {
		where = append(where, sb.In("portal", sqlbuilder.Flatten(normalizeAll(filters.Portals, normalizers.Lowercase))...))
	}
	sb.Where(where...)

	sb.OrderBy(orderClause(filters))
	if limit > 0 {
		sb.Limit(limit)
	}

	return sb.Build()
}

// GetByContentHash retrieves one listing by its identity hash.
func (r *Repository) GetByContentHash(ctx context.Context, contentHash string) (*models.CachedListingRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "listingcache.Repository.GetByContentHash")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(listingColumns...)
	sb.From("cached_listings")
	sb.Where(sb.Equal("content_hash", contentHash))
	sb.Limit(1)

	query, args := sb.Build()
	var listing models.CachedListingRecord
	if err := r.db.GetContext(ctx, &listing, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"content_hash": contentHash}).Error("Failed to get cached listing")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get cached listing")
	}
	return &listing, nil
}

// PurgeOlderThan removes rows listed before the cutoff and returns how many
// were removed. Rows with no listing_date age by fetched_at.
func (r *Repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "listingcache.Repository.PurgeOlderThan")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("cached_listings")
	sb.Where(sb.LessThan("COALESCE(listing_date, fetched_at)", cutoff))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"cutoff": cutoff}).Error("Failed to purge cached listings")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to purge cached listings")
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		r.logger.WithContext(ctx).WithFields(map[string]any{"count": rows, "cutoff": cutoff}).Info("Purged expired cached listings")
	}
	return rows, nil
}

func normalizeAll(values []string, normalize normalizers.Normalizer) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := normalize(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// orderClause maps the filter sort onto indexed columns. Unknown sort keys
// fall back to recency.
func orderClause(filters models.SearchFilters) string {
	dir := "ASC"
	if filters.SortOrder == "desc" {
		dir = "DESC"
	}
	switch filters.SortBy {
	case "price":
		return "price " + dir
	case "year":
		return "year " + dir
	case "mileage":
		return "mileage " + dir + " NULLS LAST"
	case "listing_date":
		return "listing_date " + dir + " NULLS LAST"
	default:
		return "fetched_at DESC"
	}
}
