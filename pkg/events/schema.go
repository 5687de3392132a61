package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of event
type EventType string

const (
	// Listing lifecycle events
	EventTypeListingCached  EventType = "listing.cached"
	EventTypeListingExpired EventType = "listing.expired"

	// Resolution events
	EventTypeDuplicateFound EventType = "listing.duplicate"
	EventTypeListingCleared EventType = "listing.cleared"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// ListingCachedEvent is emitted when a listing lands in the Tier-2 cache.
type ListingCachedEvent struct {
	BaseEvent
	ListingID   string `json:"listing_id"`
	ContentHash string `json:"content_hash"`
	Portal      string `json:"portal"`
	Inserted    bool   `json:"inserted"`
}

// DuplicateFoundEvent is emitted when consensus marks a listing as a
// duplicate on a platform. Syndication to that platform should be skipped.
type DuplicateFoundEvent struct {
	BaseEvent
	ListingID  string   `json:"listing_id"`
	Platform   string   `json:"platform"`
	MatchedURL string   `json:"matched_url,omitempty"`
	Fields     []string `json:"matched_fields,omitempty"`
	Confidence float64  `json:"confidence"`
}

// ListingClearedEvent is emitted when consensus finds no duplicate on a
// platform and the listing may syndicate there.
type ListingClearedEvent struct {
	BaseEvent
	ListingID  string  `json:"listing_id"`
	Platform   string  `json:"platform"`
	Confidence float64 `json:"confidence"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
