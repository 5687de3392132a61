package judges

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/cararth/marigold/pkg/httpclient"
	"github.com/cararth/marigold/pkg/metrics"
	"github.com/cararth/marigold/pkg/models"
	"github.com/cararth/marigold/pkg/redis"
	"github.com/cararth/marigold/pkg/tracing"
)

// LLMJudgeConfig configures one hosted LLM judge.
type LLMJudgeConfig struct {
	Name        string
	Endpoint    string
	Model       string
	APIKey      string
	MaxTokens   int
	QuotaLimit  int64
	QuotaWindow time.Duration
}

// LLMJudge calls a chat-completions style endpoint and parses the verdict
// out of the model's answer. Provider quotas are enforced through the shared
// rate limiter; a quota hit is surfaced as an error so the engine records an
// abstention rather than waiting.
type LLMJudge struct {
	config  LLMJudgeConfig
	client  *httpclient.Client
	limiter *redis.RateLimiter
	logger  ectologger.Logger
}

// NewLLMJudge creates an LLM judge. limiter may be nil, in which case no
// quota is enforced.
func NewLLMJudge(config LLMJudgeConfig, client *httpclient.Client, limiter *redis.RateLimiter, logger ectologger.Logger) *LLMJudge {
	if config.MaxTokens <= 0 {
		config.MaxTokens = 500
	}
	return &LLMJudge{
		config:  config,
		client:  client,
		limiter: limiter,
		logger:  logger,
	}
}

func (j *LLMJudge) Name() string {
	return j.config.Name
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Evaluate sends the comparison prompt and parses the verdict.
func (j *LLMJudge) Evaluate(ctx context.Context, listing models.CachedListingRecord, platform string, candidates []models.CandidateListing) (*models.DuplicateJudgment, error) {
	ctx, span := tracing.StartSpan(ctx, "judges.LLMJudge.Evaluate")
	defer span.End()

	start := time.Now()
	log := j.logger.WithContext(ctx).WithFields(map[string]any{"judge": j.config.Name, "platform": platform})

	if j.limiter != nil && j.config.QuotaLimit > 0 {
		res, err := j.limiter.Allow(ctx, j.config.Name, j.config.QuotaLimit, j.config.QuotaWindow)
		if err != nil {
			log.WithError(err).Warn("Judge quota check failed")
		} else if !res.Allowed {
			metrics.RateLimitHits.WithLabelValues(j.config.Name).Inc()
			metrics.RecordJudgeCall(j.config.Name, "throttled", time.Since(start).Seconds())
			return nil, fmt.Errorf("judge %s over quota, retry in %s: %w", j.config.Name, res.RetryIn, redis.ErrRateLimitExceeded)
		}
	}

	payload := chatRequest{
		Model: j.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(listing, platform, candidates)},
		},
		MaxTokens:   j.config.MaxTokens,
		Temperature: 0.1,
	}

	headers := map[string]string{}
	if j.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + j.config.APIKey
	}

	resp, err := j.client.PostJSON(ctx, j.config.Endpoint, payload, headers)
	if err != nil {
		metrics.RecordJudgeCall(j.config.Name, "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("judge %s call failed: %w", j.config.Name, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if retryIn := resp.RetryAfter(); retryIn > 0 && j.limiter != nil {
			if err := j.limiter.BlockFor(ctx, j.config.Name, retryIn); err != nil {
				log.WithError(err).Warn("Failed to record judge backoff")
			}
		}
		metrics.RecordJudgeCall(j.config.Name, "throttled", time.Since(start).Seconds())
		return nil, fmt.Errorf("judge %s throttled by backend: %w", j.config.Name, redis.ErrRateLimitExceeded)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.RecordJudgeCall(j.config.Name, "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("judge %s returned status %d", j.config.Name, resp.StatusCode)
	}

	content, err := parseChatContent(resp.Body)
	if err != nil {
		metrics.RecordJudgeCall(j.config.Name, "malformed", time.Since(start).Seconds())
		return nil, fmt.Errorf("judge %s: %w", j.config.Name, err)
	}

	v, err := extractVerdict(content)
	if err != nil {
		metrics.RecordJudgeCall(j.config.Name, "malformed", time.Since(start).Seconds())
		return nil, fmt.Errorf("judge %s: %w", j.config.Name, err)
	}

	metrics.RecordJudgeCall(j.config.Name, "ok", time.Since(start).Seconds())
	log.WithFields(map[string]any{"is_duplicate": v.IsDuplicate, "confidence": v.Confidence}).Debug("Judge verdict")

	return &models.DuplicateJudgment{
		Judge:         j.config.Name,
		IsDuplicate:   v.IsDuplicate,
		Confidence:    v.Confidence,
		MatchedURL:    v.MatchedURL,
		MatchedFields: v.MatchedFields,
		Reasoning:     v.Reasoning,
	}, nil
}

func parseChatContent(body []byte) (string, error) {
	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("unparseable chat response: %w", err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty chat response")
	}
	return cr.Choices[0].Message.Content, nil
}
