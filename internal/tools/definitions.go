package tools

import "github.com/tmc/langchaingo/llms"

// Set selects which tools a workflow binds to its agent step.
type Set struct {
	WebSearch bool
	Finish    bool
	Knowledge bool
}

// ResearchSet is the tool set for research-style loops (search + finish).
func ResearchSet() Set {
	return Set{WebSearch: true, Finish: true}
}

// AssistantSet is the tool set for the general assistant (search + knowledge;
// the assistant ends by answering in plain text, not via the sentinel).
func AssistantSet() Set {
	return Set{WebSearch: true, Knowledge: true}
}

// Definitions returns the tool schemas for the selected set, in a stable
// order, formatted for the inference backend.
func Definitions(set Set) []llms.Tool {
	var defs []llms.Tool
	if set.WebSearch {
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        WebSearchName,
				Description: "Search the web for information using one or more queries.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"queries": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Search queries to execute",
						},
					},
					"required": []string{"queries"},
				},
			},
		})
	}
	if set.Finish {
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        FinishName,
				Description: "Call this when you have gathered enough information to answer. Pass your final answer as the summary.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"summary": map[string]any{
							"type":        "string",
							"description": "Your final summary answering the question",
						},
					},
					"required": []string{"summary"},
				},
			},
		})
	}
	if set.Knowledge {
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        KnowledgeName,
				Description: "Retrieve relevant provisions from the Digital Services Act knowledge base.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{
							"type":        "string",
							"description": "What to look up in the DSA text",
						},
						"article": map[string]any{
							"type":        "string",
							"description": "Optional specific article number to fetch",
						},
					},
					"required": []string{"query"},
				},
			},
		})
	}
	return defs
}
