// Package dedup resolves whether a listing already exists on other platforms.
// Each platform is resolved independently: candidates are retrieved, a panel
// of judges scores them in parallel, and the consensus outcome is appended to
// the decision ledger. A platform that cannot be resolved simply produces no
// row; absence of evidence is never recorded as "not a duplicate".
package dedup

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/cararth/marigold/pkg/candidates"
	"github.com/cararth/marigold/pkg/judges"
	"github.com/cararth/marigold/pkg/metrics"
	"github.com/cararth/marigold/pkg/models"
	"github.com/cararth/marigold/pkg/normalizers"
	"github.com/cararth/marigold/pkg/tracing"
)

// Ledger persists and reads back resolution decisions.
type Ledger interface {
	Insert(ctx context.Context, result models.DeduplicationResult) (*models.DeduplicationResult, error)
	ListByListing(ctx context.Context, listingID string) ([]models.DeduplicationResult, error)
	LatestPerPlatform(ctx context.Context, listingID string) ([]models.DeduplicationResult, error)
}

// Config tunes the resolution engine.
type Config struct {
	Platforms          []string
	ConsensusThreshold float64
	MaxCandidates      int
	JudgeTimeout       time.Duration
	PlatformTimeout    time.Duration
}

// DefaultConfig returns the production resolution settings.
func DefaultConfig() Config {
	return Config{
		Platforms:          []string{"olx", "cardekho", "spinny", "cars24"},
		ConsensusThreshold: 0.85,
		MaxCandidates:      5,
		JudgeTimeout:       30 * time.Second,
		PlatformTimeout:    2 * time.Minute,
	}
}

// Engine fans a listing out across platforms and judge panels.
type Engine struct {
	config    Config
	retriever candidates.Retriever
	judges    []judges.Judge
	ledger    Ledger
	logger    ectologger.Logger
}

// NewEngine creates a resolution engine.
func NewEngine(config Config, retriever candidates.Retriever, panel []judges.Judge, ledger Ledger, logger ectologger.Logger) *Engine {
	if config.ConsensusThreshold <= 0 {
		config.ConsensusThreshold = 0.85
	}
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = 5
	}
	if config.JudgeTimeout <= 0 {
		config.JudgeTimeout = 30 * time.Second
	}
	if config.PlatformTimeout <= 0 {
		config.PlatformTimeout = 2 * time.Minute
	}
	return &Engine{
		config:    config,
		retriever: retriever,
		judges:    panel,
		ledger:    ledger,
		logger:    logger,
	}
}

// Resolve runs duplicate resolution for one listing across the requested
// platforms, defaulting to the configured set. The response carries one
// result per platform that reached a decision.
func (e *Engine) Resolve(ctx context.Context, listingID string, input models.ListingInput, platforms []string) (*models.ResolveDuplicatesResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Engine.Resolve")
	defer span.End()

	if len(e.judges) == 0 {
		return nil, fmt.Errorf("no judges configured")
	}
	if len(platforms) == 0 {
		platforms = e.config.Platforms
	}

	record := normalizers.Listing(input, time.Now().UTC())
	record.ID = listingID
	query := searchQuery(record)

	var (
		mu      sync.Mutex
		results []models.DeduplicationResult
		wg      sync.WaitGroup
	)
	for _, platform := range platforms {
		if strings.EqualFold(platform, record.Portal) {
			continue
		}
		wg.Add(1)
		go func(platform string) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, e.config.PlatformTimeout)
			defer cancel()

			result := e.resolvePlatform(pctx, record, platform, query)
			if result == nil {
				return
			}
			mu.Lock()
			results = append(results, *result)
			mu.Unlock()
		}(platform)
	}
	wg.Wait()

	return &models.ResolveDuplicatesResponse{
		ListingID: listingID,
		Results:   results,
	}, nil
}

// resolvePlatform produces one ledger row, or nil when the platform yields
// no decision (no candidates, retrieval failure, or a fully abstained panel).
func (e *Engine) resolvePlatform(ctx context.Context, record models.CachedListingRecord, platform, query string) *models.DeduplicationResult {
	ctx, span := tracing.StartSpan(ctx, "dedup.Engine.resolvePlatform")
	defer span.End()

	start := time.Now()
	log := e.logger.WithContext(ctx).WithFields(map[string]any{"listing_id": record.ID, "platform": platform})

	cands, err := e.retriever.Retrieve(ctx, platform, query, e.config.MaxCandidates)
	if err != nil {
		log.WithError(err).Warn("Candidate retrieval failed, skipping platform")
		metrics.RecordResolution(platform, "retrieval_failed", time.Since(start).Seconds())
		return nil
	}
	if len(cands) == 0 {
		log.Debug("No candidates on platform")
		metrics.RecordResolution(platform, "no_candidates", time.Since(start).Seconds())
		return nil
	}
	if len(cands) > e.config.MaxCandidates {
		cands = cands[:e.config.MaxCandidates]
	}

	judgments := e.collectJudgments(ctx, record, platform, cands)
	c := buildConsensus(judgments, e.config.ConsensusThreshold)
	if c.AbstainedCount == c.JudgeCount {
		log.Warn("All judges abstained, no decision recorded")
		metrics.RecordResolution(platform, "all_abstained", time.Since(start).Seconds())
		return nil
	}

	result := models.DeduplicationResult{
		ListingID:           record.ID,
		Platform:            platform,
		IsDuplicate:         c.IsDuplicate,
		ConsensusConfidence: c.Confidence,
		MatchedURL:          c.MatchedURL,
		MatchedFields:       c.MatchedFields,
		JudgeCount:          c.JudgeCount,
		AbstainedCount:      c.AbstainedCount,
		Rationale:           c.Rationale,
		SkipSyndication:     c.IsDuplicate,
	}

	stored, err := e.ledger.Insert(ctx, result)
	if err != nil {
		log.WithError(err).Error("Failed to record resolution decision")
		metrics.RecordResolution(platform, "ledger_failed", time.Since(start).Seconds())
		return nil
	}

	outcome := "unique"
	if stored.IsDuplicate {
		outcome = "duplicate"
	}
	metrics.RecordResolution(platform, outcome, time.Since(start).Seconds())
	return stored
}

// collectJudgments runs the panel in parallel. A judge error or timeout
// becomes an abstention so the verdict slice always has one entry per judge,
// in panel order.
func (e *Engine) collectJudgments(ctx context.Context, record models.CachedListingRecord, platform string, cands []models.CandidateListing) []models.DuplicateJudgment {
	judgments := make([]models.DuplicateJudgment, len(e.judges))
	var wg sync.WaitGroup
	for i, judge := range e.judges {
		wg.Add(1)
		go func(i int, judge judges.Judge) {
			defer wg.Done()
			jctx, cancel := context.WithTimeout(ctx, e.config.JudgeTimeout)
			defer cancel()

			j, err := judge.Evaluate(jctx, record, platform, cands)
			if err != nil {
				e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
					"judge":    judge.Name(),
					"platform": platform,
				}).Warn("Judge abstained")
				judgments[i] = models.DuplicateJudgment{Judge: judge.Name(), Abstained: true}
				return
			}
			judgments[i] = *j
		}(i, judge)
	}
	wg.Wait()
	return judgments
}

// History returns the ledger view for a listing: the latest decision per
// platform plus the full append-only history. Configured platforms with no
// ledger rows report status unknown.
func (e *Engine) History(ctx context.Context, listingID string) (*models.DedupHistoryResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Engine.History")
	defer span.End()

	latest, err := e.ledger.LatestPerPlatform(ctx, listingID)
	if err != nil {
		return nil, err
	}
	history, err := e.ledger.ListByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	byPlatform := make(map[string]*models.DeduplicationResult, len(latest))
	for i := range latest {
		byPlatform[latest[i].Platform] = &latest[i]
	}

	decisions := make([]models.PlatformDecision, 0, len(e.config.Platforms))
	covered := map[string]bool{}
	for _, platform := range e.config.Platforms {
		covered[platform] = true
		decisions = append(decisions, platformDecision(platform, byPlatform[platform]))
	}
	for i := range latest {
		if !covered[latest[i].Platform] {
			decisions = append(decisions, platformDecision(latest[i].Platform, &latest[i]))
		}
	}

	return &models.DedupHistoryResponse{
		ListingID: listingID,
		Latest:    decisions,
		History:   history,
	}, nil
}

func platformDecision(platform string, result *models.DeduplicationResult) models.PlatformDecision {
	d := models.PlatformDecision{Platform: platform, Status: models.SyndicationStatusUnknown, Result: result}
	if result == nil {
		return d
	}
	if result.IsDuplicate {
		d.Status = models.SyndicationStatusDuplicate
	} else {
		d.Status = models.SyndicationStatusUnique
	}
	return d
}

func searchQuery(record models.CachedListingRecord) string {
	parts := make([]string, 0, 4)
	if record.Brand != "" {
		parts = append(parts, record.Brand)
	}
	if record.Model != "" {
		parts = append(parts, record.Model)
	}
	if record.Year > 0 {
		parts = append(parts, strconv.Itoa(record.Year))
	}
	if record.City != "" {
		parts = append(parts, record.City)
	}
	if len(parts) == 0 {
		return record.NormalizedTitle
	}
	return strings.Join(parts, " ")
}
