package judges

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVerdict(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    *verdict
		wantErr bool
	}{
		{
			name:    "clean JSON",
			content: `{"is_duplicate": true, "confidence": 0.92, "matched_url": "https://olx.example/1", "matched_fields": ["title", "price"], "reasoning": "same car"}`,
			want:    &verdict{IsDuplicate: true, Confidence: 0.92, MatchedURL: "https://olx.example/1", MatchedFields: []string{"title", "price"}, Reasoning: "same car"},
		},
		{
			name: "JSON wrapped in prose",
			content: `Based on my analysis, the listings match.
{"is_duplicate": true, "confidence": 0.88, "matched_url": "", "matched_fields": [], "reasoning": "identical specs"}
Let me know if you need more detail.`,
			want: &verdict{IsDuplicate: true, Confidence: 0.88, MatchedFields: []string{}, Reasoning: "identical specs"},
		},
		{
			name:    "JSON in markdown fence",
			content: "```json\n{\"is_duplicate\": false, \"confidence\": 0.2, \"reasoning\": \"different year\"}\n```",
			want:    &verdict{IsDuplicate: false, Confidence: 0.2, Reasoning: "different year"},
		},
		{
			name:    "no JSON at all",
			content: "I cannot determine this.",
			wantErr: true,
		},
		{
			name:    "malformed JSON",
			content: `{"is_duplicate": true, "confidence": }`,
			wantErr: true,
		},
		{
			name:    "confidence out of range",
			content: `{"is_duplicate": true, "confidence": 1.5}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractVerdict(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChatContent(t *testing.T) {
	body := []byte(`{"choices": [{"message": {"content": "{\"is_duplicate\": false, \"confidence\": 0.1}"}}]}`)
	content, err := parseChatContent(body)
	require.NoError(t, err)
	assert.Contains(t, content, "is_duplicate")

	_, err = parseChatContent([]byte(`{"choices": []}`))
	assert.Error(t, err)

	_, err = parseChatContent([]byte(`not json`))
	assert.Error(t, err)
}
