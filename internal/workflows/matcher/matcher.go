// Package matcher resolves a user-entered company name and country to the
// official company identity, producing either an exact match or ranked
// suggestions.
package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"

	"dsa-copilot/internal/agent"
	"dsa-copilot/internal/streaming"
	"dsa-copilot/internal/tools"
	"dsa-copilot/pkg/data"
	"dsa-copilot/pkg/llm"
	"dsa-copilot/pkg/logger"
	"dsa-copilot/pkg/prompts"
)

// CompanyMatch is one candidate identity.
type CompanyMatch struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Confidence  string `json:"confidence"`
	Description string `json:"description"`
}

// Result is the outcome of a match run. ExactMatch is nil when the agent was
// not certain; Suggestions may be empty when nothing plausible was found.
type Result struct {
	InputName   string         `json:"input_name"`
	Country     string         `json:"country"`
	ExactMatch  *CompanyMatch  `json:"exact_match"`
	Suggestions []CompanyMatch `json:"suggestions"`
}

// Matcher runs a short bounded agent loop to identify a company.
type Matcher struct {
	Client llm.Client
	Exec   *tools.Executor

	MaxIterations  int
	MaxQueries     int
	MaxSuggestions int

	Emitter streaming.Emitter
	Log     zerolog.Logger
}

func (m *Matcher) Run(ctx context.Context, companyName, country string) (*Result, error) {
	companyName = strings.TrimSpace(companyName)
	if companyName == "" {
		return nil, fmt.Errorf("company name is required")
	}
	country = strings.TrimSpace(country)

	emitter := m.Emitter
	if emitter == nil {
		emitter = streaming.NopEmitter{}
	}
	emitter.Emit(streaming.Event{
		Type:    streaming.EventNodeStart,
		Node:    "match",
		Content: fmt.Sprintf("Identifying %s (%s)", companyName, country),
	})
	m.Log.Info().Str(logger.CompanyField, companyName).Str("country", country).Msg("starting company match")

	prompt, err := prompts.RenderMatcher(companyName, country, m.MaxIterations, m.MaxQueries, m.MaxSuggestions)
	if err != nil {
		return nil, err
	}
	seed := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}

	loop := &agent.Loop{
		Step: agent.Step{
			Client: m.Client,
			Tools:  tools.Definitions(tools.ResearchSet()),
		},
		Exec:          m.Exec,
		MaxIterations: m.MaxIterations,
		Emitter:       emitter,
		Node:          "match",
		Agent:         "matcher",
	}
	outcome, err := loop.Run(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("match loop: %w", err)
	}

	result := m.finalize(companyName, country, outcome)
	emitter.Emit(streaming.Event{
		Type:    streaming.EventNodeEnd,
		Node:    "match",
		Content: matchOutcomeLabel(result),
	})
	return result, nil
}

// finalize extracts the match payload from the trace. The finish-sentinel
// argument is the preferred carrier; the last free-text turn is the fallback.
// An unparseable payload degrades to an empty result rather than an error so
// the caller always gets a well-formed response.
func (m *Matcher) finalize(companyName, country string, outcome *agent.Outcome) *Result {
	result := &Result{
		InputName:   companyName,
		Country:     country,
		Suggestions: []CompanyMatch{},
	}

	candidates := agent.FinishSummaries(outcome.Messages)
	if text := agent.LastText(outcome.Messages); text != "" {
		candidates = append(candidates, text)
	}

	// Latest finish summary wins; walk backwards so stale turns never
	// shadow the final one.
	for i := len(candidates) - 1; i >= 0; i-- {
		raw, err := data.ExtractJSON(candidates[i])
		if err != nil {
			continue
		}
		var parsed struct {
			ExactMatch  *CompanyMatch  `json:"exact_match"`
			Suggestions []CompanyMatch `json:"suggestions"`
		}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			m.Log.Debug().Err(err).Msg("discarding unparseable match payload")
			continue
		}
		result.ExactMatch = parsed.ExactMatch
		if parsed.Suggestions != nil {
			result.Suggestions = parsed.Suggestions
		}
		if len(result.Suggestions) > m.MaxSuggestions && m.MaxSuggestions > 0 {
			result.Suggestions = result.Suggestions[:m.MaxSuggestions]
		}
		return result
	}

	m.Log.Warn().Str(logger.CompanyField, companyName).Msg("no usable match payload in trace")
	return result
}

func matchOutcomeLabel(r *Result) string {
	if r.ExactMatch != nil {
		return fmt.Sprintf("Exact match: %s", r.ExactMatch.Name)
	}
	return fmt.Sprintf("%d suggestion(s)", len(r.Suggestions))
}
