// Package candidates retrieves cross-platform listings that might duplicate
// a listing under resolution. Retrieval is delegated to the scrape service;
// this package only speaks its HTTP API.
package candidates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Gobusters/ectologger"

	"github.com/cararth/marigold/pkg/httpclient"
	"github.com/cararth/marigold/pkg/models"
	"github.com/cararth/marigold/pkg/tracing"
)

// Retriever finds candidate listings on a platform for a search query.
type Retriever interface {
	Retrieve(ctx context.Context, platform, query string, limit int) ([]models.CandidateListing, error)
}

// HTTPRetriever queries the scrape service's search endpoint.
type HTTPRetriever struct {
	baseURL string
	client  *httpclient.Client
	logger  ectologger.Logger
}

// NewHTTPRetriever creates a retriever against the scrape service.
func NewHTTPRetriever(baseURL string, client *httpclient.Client, logger ectologger.Logger) *HTTPRetriever {
	return &HTTPRetriever{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

type searchResponse struct {
	Candidates []models.CandidateListing `json:"candidates"`
}

// Retrieve returns up to limit candidates for the query on the platform.
func (r *HTTPRetriever) Retrieve(ctx context.Context, platform, query string, limit int) ([]models.CandidateListing, error) {
	ctx, span := tracing.StartSpan(ctx, "candidates.HTTPRetriever.Retrieve")
	defer span.End()

	q := url.Values{}
	q.Set("platform", platform)
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/api/v1/search?%s", r.baseURL, q.Encode())

	resp, err := r.client.Get(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("candidate search on %s failed: %w", platform, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("candidate search on %s returned status %d", platform, resp.StatusCode)
	}

	var sr searchResponse
	if err := json.Unmarshal(resp.Body, &sr); err != nil {
		return nil, fmt.Errorf("unparseable candidate search response from %s: %w", platform, err)
	}

	if len(sr.Candidates) > limit {
		sr.Candidates = sr.Candidates[:limit]
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"platform":   platform,
		"query":      query,
		"candidates": len(sr.Candidates),
	}).Debug("Retrieved duplicate candidates")
	return sr.Candidates, nil
}
