package models

import (
	"time"
)

// SearchFilters is the set of predicates a buyer search can carry.
// Pointer fields distinguish "absent" from zero; absent fields are omitted
// from fingerprints and from Tier-2 SQL predicates.
type SearchFilters struct {
	City          string   `json:"city,omitempty" query:"city"`
	Brand         string   `json:"brand,omitempty" query:"brand"`
	Model         string   `json:"model,omitempty" query:"model"`
	PriceMin      *int64   `json:"price_min,omitempty" query:"price_min"`
	PriceMax      *int64   `json:"price_max,omitempty" query:"price_max"`
	YearMin       *int     `json:"year_min,omitempty" query:"year_min"`
	YearMax       *int     `json:"year_max,omitempty" query:"year_max"`
	MileageMax    *int     `json:"mileage_max,omitempty" query:"mileage_max"`
	FuelTypes     []string `json:"fuel_types,omitempty" query:"fuel_types"`
	Transmissions []string `json:"transmissions,omitempty" query:"transmissions"`
	Portals       []string `json:"portals,omitempty" query:"portals"`
	SortBy        string   `json:"sort_by,omitempty" query:"sort_by"`
	SortOrder     string   `json:"sort_order,omitempty" query:"sort_order"`
}

// ListingSummary is the projection of a listing that search responses carry.
type ListingSummary struct {
	ContentHash  string `json:"content_hash"`
	Portal       string `json:"portal"`
	Title        string `json:"title"`
	Brand        string `json:"brand,omitempty"`
	Model        string `json:"model,omitempty"`
	Year         int    `json:"year,omitempty"`
	Price        int64  `json:"price"`
	Mileage      *int   `json:"mileage,omitempty"`
	FuelType     string `json:"fuel_type,omitempty"`
	Transmission string `json:"transmission,omitempty"`
	City         string `json:"city,omitempty"`
	URL          string `json:"url,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
}

// AnalyticsSnapshot is the aggregate view computed alongside a search result.
type AnalyticsSnapshot struct {
	TotalListings int            `json:"total_listings"`
	AveragePrice  int64          `json:"average_price,omitempty"`
	MinPrice      int64          `json:"min_price,omitempty"`
	MaxPrice      int64          `json:"max_price,omitempty"`
	PortalCounts  map[string]int `json:"portal_counts,omitempty"`
}

// CachedSearchResult is the value cached per search fingerprint.
type CachedSearchResult struct {
	Fingerprint     string             `json:"fingerprint"`
	Listings        []ListingSummary   `json:"listings"`
	Analytics       *AnalyticsSnapshot `json:"analytics,omitempty"`
	Recommendations []ListingSummary   `json:"recommendations,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// Freshness is a coarse age classification attached to cache responses.
type Freshness string

const (
	FreshnessFresh Freshness = "fresh"
	FreshnessWarm  Freshness = "warm"
	FreshnessStale Freshness = "stale"
)

const (
	freshMaxAge = 5 * time.Minute
	warmMaxAge  = time.Hour
)

// FreshnessForAge classifies a data age: fresh under 5 minutes, warm under
// an hour, stale beyond that.
func FreshnessForAge(age time.Duration) Freshness {
	switch {
	case age < freshMaxAge:
		return FreshnessFresh
	case age < warmMaxAge:
		return FreshnessWarm
	default:
		return FreshnessStale
	}
}

// ServedFrom names the cache tier that answered a lookup.
type ServedFrom string

const (
	ServedFromTier1 ServedFrom = "tier1"
	ServedFromTier2 ServedFrom = "tier2"
	ServedFromMiss  ServedFrom = "miss"
)

// CacheMetadata describes how a cached search lookup was answered.
type CacheMetadata struct {
	ServedFrom ServedFrom `json:"served_from"`
	DataAgeMs  int64      `json:"data_age_ms"`
	Freshness  Freshness  `json:"freshness,omitempty"`
}

// CachedSearchResponse is the envelope returned by the search probe endpoint.
// Result is nil on a miss.
type CachedSearchResponse struct {
	Result   *CachedSearchResult `json:"result,omitempty"`
	Metadata CacheMetadata       `json:"metadata"`
}

// CacheSearchResultsRequest is the request for caching an aggregated search
// result together with the listings it was built from.
type CacheSearchResultsRequest struct {
	Filters         SearchFilters      `json:"filters"`
	Listings        []ListingSummary   `json:"listings" validate:"required"`
	Analytics       *AnalyticsSnapshot `json:"analytics,omitempty"`
	Recommendations []ListingSummary   `json:"recommendations,omitempty"`
	SourceListings  []ListingInput     `json:"source_listings,omitempty" validate:"omitempty,dive"`
}
