package dedup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cararth/marigold/pkg/models"
)

// consensus aggregates judge verdicts for one platform. The mean runs over
// every judgment, counting abstentions as zero confidence, so a silent judge
// drags the score toward "not a duplicate" instead of being ignored.
type consensus struct {
	Confidence     float64
	IsDuplicate    bool
	MatchedURL     string
	MatchedFields  []string
	JudgeCount     int
	AbstainedCount int
	Rationale      string
}

func buildConsensus(judgments []models.DuplicateJudgment, threshold float64) consensus {
	c := consensus{JudgeCount: len(judgments)}
	if len(judgments) == 0 {
		return c
	}

	var sum float64
	for _, j := range judgments {
		if j.Abstained {
			c.AbstainedCount++
			continue
		}
		sum += j.Confidence
	}
	c.Confidence = sum / float64(len(judgments))
	c.IsDuplicate = c.Confidence >= threshold

	// Judges iterate in a fixed order, so the first non-empty URL is stable
	// across repeated resolutions of the same inputs.
	for _, j := range judgments {
		if !j.Abstained && j.MatchedURL != "" {
			c.MatchedURL = j.MatchedURL
			c.MatchedFields = j.MatchedFields
			break
		}
	}
	if c.MatchedFields == nil {
		c.MatchedFields = mergeMatchedFields(judgments)
	}

	c.Rationale = buildRationale(judgments, c)
	return c
}

func mergeMatchedFields(judgments []models.DuplicateJudgment) []string {
	seen := map[string]bool{}
	for _, j := range judgments {
		if j.Abstained {
			continue
		}
		for _, f := range j.MatchedFields {
			seen[f] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func buildRationale(judgments []models.DuplicateJudgment, c consensus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "consensus %.3f over %d judges", c.Confidence, c.JudgeCount)
	if c.AbstainedCount > 0 {
		fmt.Fprintf(&b, " (%d abstained)", c.AbstainedCount)
	}
	for _, j := range judgments {
		if j.Abstained {
			fmt.Fprintf(&b, "; %s: abstained", j.Judge)
			continue
		}
		fmt.Fprintf(&b, "; %s: %.2f", j.Judge, j.Confidence)
		if j.Reasoning != "" {
			fmt.Fprintf(&b, " (%s)", j.Reasoning)
		}
	}
	return b.String()
}
