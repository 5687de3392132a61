package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// CachedListingRecord is a normalized listing row in the Tier-2 store.
// Field order matches schema: id, content_hash, portal, external_id, title, ...
type CachedListingRecord struct {
	ID              string          `json:"id" db:"id"`
	ContentHash     string          `json:"content_hash" db:"content_hash"`
	Portal          string          `json:"portal" db:"portal"`
	ExternalID      string          `json:"external_id,omitempty" db:"external_id"`
	Title           string          `json:"title" db:"title"`
	NormalizedTitle string          `json:"normalized_title" db:"normalized_title"`
	Brand           string          `json:"brand,omitempty" db:"brand"`
	Model           string          `json:"model,omitempty" db:"model"`
	Variant         string          `json:"variant,omitempty" db:"variant"`
	Year            int             `json:"year,omitempty" db:"year"`
	Price           int64           `json:"price" db:"price"`
	Mileage         *int            `json:"mileage,omitempty" db:"mileage"`
	FuelType        string          `json:"fuel_type,omitempty" db:"fuel_type"`
	Transmission    string          `json:"transmission,omitempty" db:"transmission"`
	OwnerCount      *int            `json:"owner_count,omitempty" db:"owner_count"`
	City            string          `json:"city,omitempty" db:"city"`
	State           string          `json:"state,omitempty" db:"state"`
	URL             string          `json:"url,omitempty" db:"url"`
	Images          pq.StringArray  `json:"images,omitempty" db:"images"`
	Verified        bool            `json:"verified" db:"verified"`
	QualityScore    float64         `json:"quality_score" db:"quality_score"`
	SourceMetadata  json.RawMessage `json:"source_metadata,omitempty" db:"source_metadata"`
	ListingDate     *time.Time      `json:"listing_date,omitempty" db:"listing_date"`
	FetchedAt       time.Time       `json:"fetched_at" db:"fetched_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Summary projects the record into the shape search responses carry.
func (r CachedListingRecord) Summary() ListingSummary {
	s := ListingSummary{
		ContentHash:  r.ContentHash,
		Portal:       r.Portal,
		Title:        r.Title,
		Brand:        r.Brand,
		Model:        r.Model,
		Year:         r.Year,
		Price:        r.Price,
		Mileage:      r.Mileage,
		FuelType:     r.FuelType,
		Transmission: r.Transmission,
		City:         r.City,
		URL:          r.URL,
	}
	if len(r.Images) > 0 {
		s.ImageURL = r.Images[0]
	}
	return s
}

// ListingInput is a raw listing as scraped from a portal, before
// normalization and content hashing.
type ListingInput struct {
	Portal         string          `json:"portal" validate:"required"`
	ExternalID     string          `json:"external_id,omitempty"`
	Title          string          `json:"title" validate:"required"`
	Brand          string          `json:"brand,omitempty"`
	Model          string          `json:"model,omitempty"`
	Variant        string          `json:"variant,omitempty"`
	Year           int             `json:"year,omitempty" validate:"omitempty,gte=1980,lte=2100"`
	Price          int64           `json:"price" validate:"required,gt=0"`
	Mileage        *int            `json:"mileage,omitempty" validate:"omitempty,gte=0"`
	FuelType       string          `json:"fuel_type,omitempty"`
	Transmission   string          `json:"transmission,omitempty"`
	OwnerCount     *int            `json:"owner_count,omitempty" validate:"omitempty,gte=0"`
	City           string          `json:"city,omitempty"`
	State          string          `json:"state,omitempty"`
	URL            string          `json:"url,omitempty" validate:"omitempty,url"`
	Images         []string        `json:"images,omitempty"`
	Verified       bool            `json:"verified,omitempty"`
	QualityScore   float64         `json:"quality_score,omitempty" validate:"omitempty,gte=0,lte=1"`
	SourceMetadata json.RawMessage `json:"source_metadata,omitempty"`
	ListingDate    *time.Time      `json:"listing_date,omitempty"`
}
