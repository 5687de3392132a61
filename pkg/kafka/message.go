package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cararth/marigold/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	ListingMessage *ListingMessage
}

// ListingSource identifies where a scraped listing batch came from.
type ListingSource struct {
	ScrapeJobID string `json:"scrape_job_id,omitempty"`
	Portal      string `json:"portal,omitempty"`
	SpiderRun   string `json:"spider_run,omitempty"`
}

// ListingMessage is the payload the scrape pipeline publishes for each
// scraped listing. ListingID is assigned upstream; when absent the processor
// derives one from the content hash.
type ListingMessage struct {
	ListingID string              `json:"listing_id,omitempty"`
	Listing   models.ListingInput `json:"listing"`
	Source    ListingSource       `json:"source,omitempty"`
	ScrapedAt time.Time           `json:"scraped_at,omitempty"`
}

// ParseListingMessage parses the message value as a scraped listing.
func (m *IncomingMessage) ParseListingMessage() error {
	var msg ListingMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return fmt.Errorf("unparseable listing message: %w", err)
	}
	if msg.Listing.Portal == "" && m.Headers["portal"] != "" {
		msg.Listing.Portal = m.Headers["portal"]
	}
	m.ListingMessage = &msg
	return nil
}

// GetPortal returns the source portal, preferring the parsed payload.
func (m *IncomingMessage) GetPortal() string {
	if m.ListingMessage != nil && m.ListingMessage.Listing.Portal != "" {
		return m.ListingMessage.Listing.Portal
	}
	return m.Headers["portal"]
}
