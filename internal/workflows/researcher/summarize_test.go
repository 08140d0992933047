package researcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tmc/langchaingo/llms"
)

type stubClient struct {
	content string
	err     error
}

func (c *stubClient) Complete(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentChoice, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &llms.ContentChoice{Content: c.content}, nil
}

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		answer     string
		source     string
		confidence string
	}{
		{
			name:       "well formed",
			input:      "ANSWER: Yes\nSOURCE: page 3\nCONFIDENCE: High",
			answer:     "Yes",
			source:     "page 3",
			confidence: "High",
		},
		{
			name:       "case insensitive with padding",
			input:      "  answer: Probably\nSource:   terms of service  \nconfidence: Medium",
			answer:     "Probably",
			source:     "terms of service",
			confidence: "Medium",
		},
		{
			name:       "empty output falls back to defaults",
			input:      "",
			answer:     DefaultAnswer,
			source:     DefaultSource,
			confidence: DefaultConfidence,
		},
		{
			name:       "missing fields keep defaults",
			input:      "ANSWER: No",
			answer:     "No",
			source:     DefaultSource,
			confidence: DefaultConfidence,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, source, confidence := parseSummary(tt.input)
			assert.Equal(t, tt.answer, answer)
			assert.Equal(t, tt.source, source)
			assert.Equal(t, tt.confidence, confidence)
		})
	}
}

func TestSummarizeDegradesOnBackendFault(t *testing.T) {
	s := &Summarizer{Client: &stubClient{err: errors.New("backend down")}}
	task := SubTask{Index: 4, Question: "q", Section: "sec"}

	ans := s.Summarize(context.Background(), "Acme", task, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "trace"),
	})
	assert.Contains(t, ans.Answer, "Error:")
	assert.Equal(t, DefaultSource, ans.Source)
	assert.Equal(t, DefaultConfidence, ans.Confidence)
	assert.Equal(t, 4, ans.TaskIndex)
	assert.Equal(t, "sec", ans.Section)
}

func TestSummarizeKeepsRawResearch(t *testing.T) {
	s := &Summarizer{Client: &stubClient{content: "ANSWER: Yes\nSOURCE: imprint\nCONFIDENCE: High"}}
	task := SubTask{Index: 0, Question: "q"}

	ans := s.Summarize(context.Background(), "Acme", task, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "the raw trace"),
	})
	assert.Equal(t, "Yes", ans.Answer)
	assert.Contains(t, ans.RawResearch, "the raw trace")
}
