package agent

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"

	"dsa-copilot/internal/tools"
)

// RenderTrace flattens a conversation log into one raw string for the
// summarizer: seed instruction, assistant turns, and tool results, in order.
// If a finish-sentinel argument was observed anywhere in the trace, it is
// appended as an explicit final-summary annotation to bias the summarizer.
// The result is truncated to maxChars to bound cost.
func RenderTrace(msgs []llms.MessageContent, maxChars int) string {
	parts := make([]string, 0, len(msgs))
	finishSummary := ""

	for _, m := range msgs {
		for _, p := range m.Parts {
			switch part := p.(type) {
			case llms.TextContent:
				if part.Text != "" {
					parts = append(parts, part.Text)
				}
			case llms.ToolCallResponse:
				if part.Content != "" {
					parts = append(parts, part.Content)
				}
			case llms.ToolCall:
				if part.FunctionCall != nil && part.FunctionCall.Name == tools.FinishName {
					var req tools.FinishRequest
					if err := json.Unmarshal([]byte(part.FunctionCall.Arguments), &req); err == nil && req.Summary != "" {
						finishSummary = req.Summary
					}
				}
			}
		}
	}

	raw := strings.Join(parts, "\n\n")
	if finishSummary != "" {
		raw += "\n\nFINAL AGENT SUMMARY: " + finishSummary
	}
	if maxChars > 0 && len(raw) > maxChars {
		// Never cut in the middle of a multi-byte rune.
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		raw = raw[:cut]
	}
	return raw
}

// LastText returns the text content of the most recent message that has any,
// searching backwards. Used by workflows that finalize from the trace rather
// than from a summarizer.
func LastText(msgs []llms.MessageContent) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		for _, p := range msgs[i].Parts {
			if part, ok := p.(llms.TextContent); ok && strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

// FinishSummaries collects every finish-sentinel argument in the log in
// order of appearance.
func FinishSummaries(msgs []llms.MessageContent) []string {
	var found []string
	for _, m := range msgs {
		for _, p := range m.Parts {
			part, ok := p.(llms.ToolCall)
			if !ok || part.FunctionCall == nil || part.FunctionCall.Name != tools.FinishName {
				continue
			}
			var req tools.FinishRequest
			if err := json.Unmarshal([]byte(part.FunctionCall.Arguments), &req); err == nil && req.Summary != "" {
				found = append(found, req.Summary)
			}
		}
	}
	return found
}
