package models

import (
	"time"

	"github.com/lib/pq"
)

// CandidateListing is a cross-platform listing considered as a possible
// duplicate of a listing under resolution.
type CandidateListing struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Price   int64  `json:"price,omitempty"`
	Year    int    `json:"year,omitempty"`
	City    string `json:"city,omitempty"`
	Mileage *int   `json:"mileage,omitempty"`
}

// DuplicateJudgment is a single judge's verdict for one platform.
// An abstained judgment carries no opinion and counts as zero confidence
// in the consensus mean.
type DuplicateJudgment struct {
	Judge         string   `json:"judge"`
	IsDuplicate   bool     `json:"is_duplicate"`
	Confidence    float64  `json:"confidence"`
	MatchedURL    string   `json:"matched_url,omitempty"`
	MatchedFields []string `json:"matched_fields,omitempty"`
	Reasoning     string   `json:"reasoning,omitempty"`
	Abstained     bool     `json:"abstained,omitempty"`
}

// DeduplicationResult is one ledger row: the consensus outcome for a
// (listing, platform) pair. Rows are append-only; the latest row per pair
// is the current decision.
type DeduplicationResult struct {
	ID                  string         `json:"id" db:"id"`
	ListingID           string         `json:"listing_id" db:"listing_id"`
	Platform            string         `json:"platform" db:"platform"`
	IsDuplicate         bool           `json:"is_duplicate" db:"is_duplicate"`
	ConsensusConfidence float64        `json:"consensus_confidence" db:"consensus_confidence"`
	MatchedURL          string         `json:"matched_url,omitempty" db:"matched_url"`
	MatchedFields       pq.StringArray `json:"matched_fields,omitempty" db:"matched_fields"`
	JudgeCount          int            `json:"judge_count" db:"judge_count"`
	AbstainedCount      int            `json:"abstained_count" db:"abstained_count"`
	Rationale           string         `json:"rationale,omitempty" db:"rationale"`
	SkipSyndication     bool           `json:"skip_syndication" db:"skip_syndication"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
}

// SyndicationStatus values for a (listing, platform) pair. A pair with no
// ledger rows is unknown, never "not a duplicate".
const (
	SyndicationStatusDuplicate = "duplicate"
	SyndicationStatusUnique    = "unique"
	SyndicationStatusUnknown   = "unknown"
)

// PlatformDecision pairs a platform with its latest ledger outcome, if any.
type PlatformDecision struct {
	Platform string               `json:"platform"`
	Status   string               `json:"status"`
	Result   *DeduplicationResult `json:"result,omitempty"`
}

// ResolveDuplicatesRequest asks the engine to resolve a listing against the
// configured platforms.
type ResolveDuplicatesRequest struct {
	ListingID string       `json:"listing_id" validate:"required"`
	Listing   ListingInput `json:"listing" validate:"required"`
	Platforms []string     `json:"platforms,omitempty"`
}

// ResolveDuplicatesResponse carries one result per platform that produced a
// decision. Platforms that failed or had no candidates are absent.
type ResolveDuplicatesResponse struct {
	ListingID string                `json:"listing_id"`
	Results   []DeduplicationResult `json:"results"`
}

// DedupHistoryResponse is the ledger read for one listing.
type DedupHistoryResponse struct {
	ListingID string                `json:"listing_id"`
	Latest    []PlatformDecision    `json:"latest"`
	History   []DeduplicationResult `json:"history"`
}
