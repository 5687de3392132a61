// Package processor handles incoming listing messages from the scrape
// pipeline. Each message is validated, normalized, written to the Tier-2
// cache, and optionally run through duplicate resolution. Search results are
// cached separately through the HTTP API; this path only feeds listings.
package processor

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cararth/marigold/internal/repositories/listingcache"
	"github.com/cararth/marigold/pkg/dedup"
	"github.com/cararth/marigold/pkg/events"
	"github.com/cararth/marigold/pkg/fingerprint"
	"github.com/cararth/marigold/pkg/kafka"
	"github.com/cararth/marigold/pkg/metrics"
	"github.com/cararth/marigold/pkg/models"
	"github.com/cararth/marigold/pkg/normalizers"
	"github.com/cararth/marigold/pkg/tracing"
)

// Config tunes the ingestion pipeline.
type Config struct {
	// AutoResolve runs duplicate resolution inline for every newly cached
	// listing. Refreshed listings keep their previous decisions.
	AutoResolve bool
}

// Processor handles message processing for the ingestion pipeline
type Processor struct {
	config      Config
	logger      ectologger.Logger
	listingRepo *listingcache.Repository
	engine      *dedup.Engine
	emitter     *events.Emitter
	validate    *validator.Validate
}

// NewProcessor creates a new message processor for ingestion. engine and
// emitter may be nil; the pipeline then only fills the Tier-2 cache.
func NewProcessor(
	config Config,
	logger ectologger.Logger,
	listingRepo *listingcache.Repository,
	engine *dedup.Engine,
	emitter *events.Emitter,
) *Processor {
	return &Processor{
		config:      config,
		logger:      logger,
		listingRepo: listingRepo,
		engine:      engine,
		emitter:     emitter,
		validate:    validator.New(),
	}
}

// HandleMessage is the Kafka consumer entrypoint.
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleMessage")
	defer span.End()

	if msg.ListingMessage == nil {
		metrics.IngestMessagesTotal.WithLabelValues("unparseable").Inc()
		return nil
	}

	listing := msg.ListingMessage.Listing
	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"portal": listing.Portal,
		"topic":  msg.Topic,
		"offset": msg.Offset,
	})

	if err := p.validate.Struct(listing); err != nil {
		// Invalid listings are dropped, not retried; the scrape pipeline
		// will re-send a corrected version on its next run.
		log.WithError(err).Warn("Dropping invalid listing")
		metrics.IngestMessagesTotal.WithLabelValues("invalid").Inc()
		return nil
	}

	fetchedAt := msg.ListingMessage.ScrapedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	record := normalizers.Listing(listing, fetchedAt)
	record.ContentHash = fingerprint.Content(record)
	record.ID = msg.ListingMessage.ListingID
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	result, err := p.listingRepo.Upsert(ctx, record)
	if err != nil {
		metrics.IngestMessagesTotal.WithLabelValues("store_error").Inc()
		return err
	}
	metrics.IngestMessagesTotal.WithLabelValues("ok").Inc()

	if p.emitter != nil {
		if err := p.emitter.EmitListingCached(ctx, *result.Record, result.IsNew); err != nil {
			log.WithError(err).Warn("Listing cached but event emission failed")
		}
	}

	if p.config.AutoResolve && result.IsNew && p.engine != nil {
		p.resolveAndEmit(ctx, result.Record.ID, listing)
	}

	return nil
}

// resolveAndEmit runs duplicate resolution for a new listing. Resolution
// failure never fails the ingest; the listing stays cached with an unknown
// syndication status and can be resolved again through the API.
func (p *Processor) resolveAndEmit(ctx context.Context, listingID string, listing models.ListingInput) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.resolveAndEmit")
	defer span.End()

	resp, err := p.engine.Resolve(ctx, listingID, listing, nil)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"listing_id": listingID,
		}).Warn("Duplicate resolution failed during ingest")
		return
	}

	if p.emitter == nil {
		return
	}
	for _, result := range resp.Results {
		if err := p.emitter.EmitResolution(ctx, result); err != nil {
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"listing_id": listingID,
				"platform":   result.Platform,
			}).Warn("Failed to emit resolution event")
		}
	}
}
