package judges

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// jsonRe grabs the outermost braces. Judge backends wrap their JSON in prose
// or markdown fences often enough that strict unmarshaling is not viable.
var jsonRe = regexp.MustCompile(`(?s)\{.*\}`)

// verdict is the JSON shape judges are instructed to answer with.
type verdict struct {
	IsDuplicate   bool     `json:"is_duplicate"`
	Confidence    float64  `json:"confidence"`
	MatchedURL    string   `json:"matched_url"`
	MatchedFields []string `json:"matched_fields"`
	Reasoning     string   `json:"reasoning"`
}

// extractVerdict pulls the verdict JSON out of a judge's free-form answer.
func extractVerdict(content string) (*verdict, error) {
	match := jsonRe.FindString(content)
	if match == "" {
		return nil, fmt.Errorf("no JSON object in judge response")
	}

	var v verdict
	if err := json.Unmarshal([]byte(match), &v); err != nil {
		return nil, fmt.Errorf("malformed judge verdict: %w", err)
	}

	if v.Confidence < 0 || v.Confidence > 1 {
		return nil, fmt.Errorf("judge confidence %f out of range", v.Confidence)
	}

	return &v, nil
}
