package researcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"dsa-copilot/internal/agent"
	"dsa-copilot/pkg/llm"
	"dsa-copilot/pkg/prompts"
)

// Summarizer distills a branch's research trace into a structured answer.
type Summarizer struct {
	Client        llm.Client
	MaxTraceChars int
	MaxTokens     int
}

// Summarize renders the branch trace, asks the summarize model for the
// structured fields, and parses them out. A summarizer fault degrades the
// answer rather than failing the branch: the accumulator must end up with
// exactly one entry per dispatched sub-task.
func (s *Summarizer) Summarize(ctx context.Context, companyName string, task SubTask, trace []llms.MessageContent) SubQuestionAnswer {
	rendered := agent.RenderTrace(trace, s.MaxTraceChars)

	answer := SubQuestionAnswer{
		Section:     task.Section,
		Question:    task.Question,
		RawResearch: rendered,
		TaskIndex:   task.Index,
	}

	prompt, err := prompts.RenderSummarize(companyName, task.Question, rendered)
	if err != nil {
		answer.Answer = fmt.Sprintf("Error: %v", err)
		answer.Source = DefaultSource
		answer.Confidence = DefaultConfidence
		return answer
	}

	var opts []llms.CallOption
	if s.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(s.MaxTokens))
	}
	choice, err := s.Client.Complete(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, opts...)
	if err != nil {
		answer.Answer = fmt.Sprintf("Error: %v", err)
		answer.Source = DefaultSource
		answer.Confidence = DefaultConfidence
		return answer
	}

	answer.Answer, answer.Source, answer.Confidence = parseSummary(choice.Content)
	return answer
}

// parseSummary extracts the ANSWER/SOURCE/CONFIDENCE fields from the
// summarizer output. Matching is line-based and case-insensitive; a missing
// field falls back to its default rather than erroring.
func parseSummary(text string) (answer, source, confidence string) {
	answer = DefaultAnswer
	source = DefaultSource
	confidence = DefaultConfidence

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "ANSWER:"):
			if v := strings.TrimSpace(line[len("ANSWER:"):]); v != "" {
				answer = v
			}
		case strings.HasPrefix(upper, "SOURCE:"):
			if v := strings.TrimSpace(line[len("SOURCE:"):]); v != "" {
				source = v
			}
		case strings.HasPrefix(upper, "CONFIDENCE:"):
			if v := strings.TrimSpace(line[len("CONFIDENCE:"):]); v != "" {
				confidence = v
			}
		}
	}
	return answer, source, confidence
}
