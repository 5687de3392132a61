package dedup

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cararth/marigold/pkg/judges"
	"github.com/cararth/marigold/pkg/logging"
	"github.com/cararth/marigold/pkg/models"
)

type fakeRetriever struct {
	candidates map[string][]models.CandidateListing
	err        map[string]error
}

func (f *fakeRetriever) Retrieve(_ context.Context, platform, _ string, limit int) ([]models.CandidateListing, error) {
	if err := f.err[platform]; err != nil {
		return nil, err
	}
	cands := f.candidates[platform]
	if len(cands) > limit {
		cands = cands[:limit]
	}
	return cands, nil
}

type fakeJudge struct {
	name     string
	judgment *models.DuplicateJudgment
	err      error
}

func (f *fakeJudge) Name() string { return f.name }

func (f *fakeJudge) Evaluate(_ context.Context, _ models.CachedListingRecord, _ string, _ []models.CandidateListing) (*models.DuplicateJudgment, error) {
	if f.err != nil {
		return nil, f.err
	}
	j := *f.judgment
	j.Judge = f.name
	return &j, nil
}

type fakeLedger struct {
	mu       sync.Mutex
	inserted []models.DeduplicationResult
	latest   []models.DeduplicationResult
	history  []models.DeduplicationResult
}

func (f *fakeLedger) Insert(_ context.Context, result models.DeduplicationResult) (*models.DeduplicationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result.ID = fmt.Sprintf("row-%d", len(f.inserted)+1)
	result.CreatedAt = time.Now().UTC()
	f.inserted = append(f.inserted, result)
	return &result, nil
}

func (f *fakeLedger) ListByListing(_ context.Context, _ string) ([]models.DeduplicationResult, error) {
	return f.history, nil
}

func (f *fakeLedger) LatestPerPlatform(_ context.Context, _ string) ([]models.DeduplicationResult, error) {
	return f.latest, nil
}

func testInput() models.ListingInput {
	return models.ListingInput{
		Portal: "cararth",
		Title:  "Honda City VX 2019",
		Brand:  "Honda",
		Model:  "City",
		Year:   2019,
		Price:  850000,
		City:   "Hyderabad",
	}
}

func testCandidates(n int) []models.CandidateListing {
	cands := make([]models.CandidateListing, n)
	for i := range cands {
		cands[i] = models.CandidateListing{
			URL:   fmt.Sprintf("https://olx.example/%d", i+1),
			Title: "Honda City VX",
			Price: 840000,
			Year:  2019,
		}
	}
	return cands
}

func panelOf(panel ...*fakeJudge) []judges.Judge {
	out := make([]judges.Judge, len(panel))
	for i, j := range panel {
		out[i] = j
	}
	return out
}

// countingJudge records how many candidates it was shown.
type countingJudge struct {
	*fakeJudge
	seen *int
}

func (c countingJudge) Evaluate(ctx context.Context, record models.CachedListingRecord, platform string, cands []models.CandidateListing) (*models.DuplicateJudgment, error) {
	*c.seen = len(cands)
	return c.fakeJudge.Evaluate(ctx, record, platform, cands)
}

func TestEngine_ResolveDuplicateConsensus(t *testing.T) {
	retriever := &fakeRetriever{candidates: map[string][]models.CandidateListing{
		"olx": testCandidates(2),
	}}
	ledger := &fakeLedger{}
	engine := NewEngine(Config{Platforms: []string{"olx"}}, retriever, panelOf(
		&fakeJudge{name: "a", judgment: &models.DuplicateJudgment{IsDuplicate: true, Confidence: 0.9, MatchedURL: "https://olx.example/1"}},
		&fakeJudge{name: "b", judgment: &models.DuplicateJudgment{IsDuplicate: true, Confidence: 0.8}},
		&fakeJudge{name: "c", judgment: &models.DuplicateJudgment{IsDuplicate: true, Confidence: 1.0}},
	), ledger, logging.NewNop())

	resp, err := engine.Resolve(context.Background(), "listing-1", testInput(), nil)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	result := resp.Results[0]
	assert.Equal(t, "olx", result.Platform)
	assert.True(t, result.IsDuplicate)
	assert.InDelta(t, 0.9, result.ConsensusConfidence, 1e-9)
	assert.Equal(t, "https://olx.example/1", result.MatchedURL)
	assert.True(t, result.SkipSyndication)
	assert.Equal(t, 3, result.JudgeCount)
	assert.Len(t, ledger.inserted, 1)
}

func TestEngine_AbstentionCountsAsZero(t *testing.T) {
	retriever := &fakeRetriever{candidates: map[string][]models.CandidateListing{
		"olx": testCandidates(1),
	}}
	ledger := &fakeLedger{}
	engine := NewEngine(Config{Platforms: []string{"olx"}}, retriever, panelOf(
		&fakeJudge{name: "a", judgment: &models.DuplicateJudgment{IsDuplicate: true, Confidence: 0.9}},
		&fakeJudge{name: "b", err: fmt.Errorf("backend down")},
		&fakeJudge{name: "c", judgment: &models.DuplicateJudgment{IsDuplicate: true, Confidence: 0.8}},
	), ledger, logging.NewNop())

	resp, err := engine.Resolve(context.Background(), "listing-1", testInput(), nil)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	result := resp.Results[0]
	assert.False(t, result.IsDuplicate)
	assert.InDelta(t, 1.7/3, result.ConsensusConfidence, 1e-9)
	assert.Equal(t, 1, result.AbstainedCount)
	assert.False(t, result.SkipSyndication)
}

func TestEngine_ZeroCandidatesProducesNoResult(t *testing.T) {
	retriever := &fakeRetriever{candidates: map[string][]models.CandidateListing{
		"olx":      testCandidates(1),
		"cardekho": nil,
	}}
	ledger := &fakeLedger{}
	engine := NewEngine(Config{Platforms: []string{"olx", "cardekho"}}, retriever, panelOf(
		&fakeJudge{name: "a", judgment: &models.DuplicateJudgment{IsDuplicate: true, Confidence: 0.95}},
		&fakeJudge{name: "b", judgment: &models.DuplicateJudgment{IsDuplicate: true, Confidence: 0.9}},
		&fakeJudge{name: "c", judgment: &models.DuplicateJudgment{IsDuplicate: true, Confidence: 0.9}},
	), ledger, logging.NewNop())

	resp, err := engine.Resolve(context.Background(), "listing-1", testInput(), nil)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "olx", resp.Results[0].Platform)
}

func TestEngine_AllJudgesAbstainProducesNoResult(t *testing.T) {
	retriever := &fakeRetriever{candidates: map[string][]models.CandidateListing{
		"olx": testCandidates(1),
	}}
	ledger := &fakeLedger{}
	engine := NewEngine(Config{Platforms: []string{"olx"}}, retriever, panelOf(
		&fakeJudge{name: "a", err: fmt.Errorf("timeout")},
		&fakeJudge{name: "b", err: fmt.Errorf("timeout")},
		&fakeJudge{name: "c", err: fmt.Errorf("timeout")},
	), ledger, logging.NewNop())

	resp, err := engine.Resolve(context.Background(), "listing-1", testInput(), nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Empty(t, ledger.inserted)
}

func TestEngine_RetrievalFailureSkipsPlatform(t *testing.T) {
	retriever := &fakeRetriever{
		candidates: map[string][]models.CandidateListing{"olx": testCandidates(1)},
		err:        map[string]error{"cardekho": fmt.Errorf("scrape service unreachable")},
	}
	ledger := &fakeLedger{}
	engine := NewEngine(Config{Platforms: []string{"olx", "cardekho"}}, retriever, panelOf(
		&fakeJudge{name: "a", judgment: &models.DuplicateJudgment{IsDuplicate: false, Confidence: 0.1}},
		&fakeJudge{name: "b", judgment: &models.DuplicateJudgment{IsDuplicate: false, Confidence: 0.2}},
		&fakeJudge{name: "c", judgment: &models.DuplicateJudgment{IsDuplicate: false, Confidence: 0.1}},
	), ledger, logging.NewNop())

	resp, err := engine.Resolve(context.Background(), "listing-1", testInput(), nil)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "olx", resp.Results[0].Platform)
	assert.False(t, resp.Results[0].IsDuplicate)
}

func TestEngine_SkipsListingOwnPortal(t *testing.T) {
	retriever := &fakeRetriever{candidates: map[string][]models.CandidateListing{
		"cararth": testCandidates(3),
	}}
	ledger := &fakeLedger{}
	engine := NewEngine(Config{Platforms: []string{"cararth"}}, retriever, panelOf(
		&fakeJudge{name: "a", judgment: &models.DuplicateJudgment{IsDuplicate: true, Confidence: 0.99}},
	), ledger, logging.NewNop())

	resp, err := engine.Resolve(context.Background(), "listing-1", testInput(), nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestEngine_CandidateCapApplied(t *testing.T) {
	var seen int
	retriever := &fakeRetriever{candidates: map[string][]models.CandidateListing{
		"olx": testCandidates(9),
	}}
	capture := countingJudge{
		fakeJudge: &fakeJudge{name: "a", judgment: &models.DuplicateJudgment{IsDuplicate: true, Confidence: 0.9}},
		seen:      &seen,
	}
	engine := NewEngine(Config{Platforms: []string{"olx"}, MaxCandidates: 5}, retriever, []judges.Judge{capture}, &fakeLedger{}, logging.NewNop())

	_, err := engine.Resolve(context.Background(), "listing-1", testInput(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, seen)
}

func TestEngine_NoJudgesConfigured(t *testing.T) {
	engine := NewEngine(DefaultConfig(), &fakeRetriever{}, nil, &fakeLedger{}, logging.NewNop())
	_, err := engine.Resolve(context.Background(), "listing-1", testInput(), nil)
	assert.Error(t, err)
}

func TestEngine_History(t *testing.T) {
	now := time.Now().UTC()
	ledger := &fakeLedger{
		latest: []models.DeduplicationResult{
			{ID: "r1", ListingID: "listing-1", Platform: "olx", IsDuplicate: true, ConsensusConfidence: 0.9, CreatedAt: now},
			{ID: "r2", ListingID: "listing-1", Platform: "cardekho", IsDuplicate: false, ConsensusConfidence: 0.3, CreatedAt: now},
		},
		history: []models.DeduplicationResult{
			{ID: "r2", ListingID: "listing-1", Platform: "cardekho", CreatedAt: now},
			{ID: "r1", ListingID: "listing-1", Platform: "olx", CreatedAt: now},
		},
	}
	engine := NewEngine(Config{Platforms: []string{"olx", "cardekho", "spinny"}}, &fakeRetriever{}, nil, ledger, logging.NewNop())

	resp, err := engine.History(context.Background(), "listing-1")
	require.NoError(t, err)
	require.Len(t, resp.Latest, 3)

	statuses := map[string]string{}
	for _, d := range resp.Latest {
		statuses[d.Platform] = d.Status
	}
	assert.Equal(t, models.SyndicationStatusDuplicate, statuses["olx"])
	assert.Equal(t, models.SyndicationStatusUnique, statuses["cardekho"])
	assert.Equal(t, models.SyndicationStatusUnknown, statuses["spinny"])
	assert.Len(t, resp.History, 2)
}
