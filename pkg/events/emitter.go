// Package events publishes listing lifecycle events for downstream
// syndication and analytics consumers.
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/cararth/marigold/pkg/kafka"
	"github.com/cararth/marigold/pkg/models"
	"github.com/cararth/marigold/pkg/tracing"
)

// Emitter handles event emission
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitListingCached emits a listing.cached event after a Tier-2 upsert.
func (e *Emitter) EmitListingCached(ctx context.Context, record models.CachedListingRecord, inserted bool) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitListingCached")
	defer span.End()

	event := ListingCachedEvent{
		BaseEvent:   NewBaseEvent(EventTypeListingCached),
		ListingID:   record.ID,
		ContentHash: record.ContentHash,
		Portal:      record.Portal,
		Inserted:    inserted,
	}
	data, _ := json.Marshal(event)

	if err := e.producer.PublishListingEvent(ctx, &kafka.ListingEvent{
		EventType: string(event.EventType),
		ListingID: record.ID,
		Portal:    record.Portal,
		Data:      data,
		SchemaVer: SchemaVersion,
	}); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit listing.cached event")
		return err
	}
	return nil
}

// EmitResolution emits listing.duplicate or listing.cleared depending on the
// consensus outcome for one platform.
func (e *Emitter) EmitResolution(ctx context.Context, result models.DeduplicationResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitResolution")
	defer span.End()

	var (
		eventType EventType
		payload   any
	)
	if result.IsDuplicate {
		eventType = EventTypeDuplicateFound
		payload = DuplicateFoundEvent{
			BaseEvent:  NewBaseEvent(eventType),
			ListingID:  result.ListingID,
			Platform:   result.Platform,
			MatchedURL: result.MatchedURL,
			Fields:     result.MatchedFields,
			Confidence: result.ConsensusConfidence,
		}
	} else {
		eventType = EventTypeListingCleared
		payload = ListingClearedEvent{
			BaseEvent:  NewBaseEvent(eventType),
			ListingID:  result.ListingID,
			Platform:   result.Platform,
			Confidence: result.ConsensusConfidence,
		}
	}
	data, _ := json.Marshal(payload)

	if err := e.producer.PublishListingEvent(ctx, &kafka.ListingEvent{
		EventType:  string(eventType),
		ListingID:  result.ListingID,
		Platform:   result.Platform,
		Data:       data,
		Confidence: result.ConsensusConfidence,
		SchemaVer:  SchemaVersion,
	}); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"listing_id": result.ListingID,
			"platform":   result.Platform,
		}).Error("Failed to emit resolution event")
		return err
	}
	return nil
}
