// Package categorizer classifies a researched company into the DSA service
// taxonomy based on its research profile.
package categorizer

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

// Category is one assigned service class with its reasoning.
type Category struct {
	Category      string `json:"category"`
	Justification string `json:"justification"`
}

// Report is the classification result for one company.
type Report struct {
	CompanyName string     `json:"company_name"`
	Categories  []Category `json:"categories"`
}

// Categorizer runs a bounded agent loop over a company profile.
type Categorizer struct {
	Client llm.Client
	Exec   *tools.Executor

	MaxIterations int

	Emitter streaming.Emitter
	Log     zerolog.Logger
}

// Run classifies the company described by profileJSON, typically a research
// report or a free-form company description.
func (c *Categorizer) Run(ctx context.Context, companyName, profileJSON string) (*Report, error) {
	companyName = strings.TrimSpace(companyName)
	if companyName == "" {
		return nil, fmt.Errorf("company name is required")
	}
	if strings.TrimSpace(profileJSON) == "" {
		return nil, fmt.Errorf("company profile is required")
	}

	emitter := c.Emitter
	if emitter == nil {
		emitter = streaming.NopEmitter{}
	}
	emitter.Emit(streaming.Event{
		Type:    streaming.EventNodeStart,
		Node:    "categorize",
		Content: fmt.Sprintf("Classifying %s", companyName),
	})
	c.Log.Info().Str(logger.CompanyField, companyName).Msg("starting service categorization")

	prompt, err := prompts.RenderCategorizer(profileJSON, c.MaxIterations)
	if err != nil {
		return nil, err
	}
	seed := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}

	loop := &agent.Loop{
		Step: agent.Step{
			Client: c.Client,
			Tools:  tools.Definitions(tools.ResearchSet()),
		},
		Exec:          c.Exec,
		MaxIterations: c.MaxIterations,
		Emitter:       emitter,
		Node:          "categorize",
		Agent:         "categorizer",
	}
	outcome, err := loop.Run(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("categorize loop: %w", err)
	}

	report := c.finalize(companyName, outcome)
	emitter.Emit(streaming.Event{
		Type:    streaming.EventNodeEnd,
		Node:    "categorize",
		Content: fmt.Sprintf("%d categor(ies) assigned", len(report.Categories)),
	})
	return report, nil
}

func (c *Categorizer) finalize(companyName string, outcome *agent.Outcome) *Report {
	report := &Report{CompanyName: companyName, Categories: []Category{}}

	candidates := agent.FinishSummaries(outcome.Messages)
	if text := agent.LastText(outcome.Messages); text != "" {
		candidates = append(candidates, text)
	}

	for i := len(candidates) - 1; i >= 0; i-- {
		raw, err := data.ExtractJSON(candidates[i])
		if err != nil {
			continue
		}
		var parsed struct {
			CompanyName string     `json:"company_name"`
			Categories  []Category `json:"categories"`
		}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			c.Log.Debug().Err(err).Msg("discarding unparseable category payload")
			continue
		}
		if parsed.CompanyName != "" {
			report.CompanyName = parsed.CompanyName
		}
		if parsed.Categories != nil {
			report.Categories = parsed.Categories
		}
		return report
	}

	c.Log.Warn().Str(logger.CompanyField, companyName).Msg("no usable category payload in trace")
	return report
}
