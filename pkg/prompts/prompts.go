package prompts

import (
	"fmt"

	langChainPrompts "github.com/tmc/langchaingo/prompts"
)

var (
	researchSkeleton = langChainPrompts.NewPromptTemplate(`
You are a researcher investigating "{{.CompanyName}}" under the EU Digital Services Act.

Your question: {{.Question}}

{{.Guidance}}

Use the web_search tool to gather evidence. You have at most {{.MaxIterations}} rounds of searching; be deliberate about your queries. When you have enough information, call finish_research with a concise summary of your findings, including the source you relied on.
`, []string{"CompanyName", "Question", "Guidance", "MaxIterations"})

	summarizeTemplate = langChainPrompts.NewPromptTemplate(`
You are summarizing research about "{{.CompanyName}}".

The research question was: {{.Question}}

Below is the raw research trace:
{{.RawOutput}}

Answer strictly in this format, one field per line:
ANSWER: <short factual answer to the question>
SOURCE: <where the answer came from>
CONFIDENCE: <High, Medium or Low>
`, []string{"CompanyName", "Question", "RawOutput"})

	matcherTemplate = langChainPrompts.NewPromptTemplate(`
You are identifying the company "{{.CompanyName}}" established in "{{.Country}}".

Find the official company and its website. You may search the web at most {{.MaxIterations}} time(s), with up to {{.MaxQueries}} queries per call.

When done, call finish_research and pass this JSON as the summary:
{
  "exact_match": {"name": "...", "url": "...", "confidence": "exact", "description": "..."} or null,
  "suggestions": [{"name": "...", "url": "...", "confidence": "high|medium|low", "description": "..."}]
}
Provide at most {{.MaxSuggestions}} suggestions. Only claim an exact match when name and country both fit.
`, []string{"CompanyName", "Country", "MaxIterations", "MaxQueries", "MaxSuggestions"})

	categorizerTemplate = langChainPrompts.NewPromptTemplate(`
You are classifying a company under the EU Digital Services Act service taxonomy.

Company profile:
{{.Profile}}

Decide which DSA service categories apply, choosing only from: Intermediary Service, Hosting Service, Online Platform, Online Marketplace, VLOP/VLOSE.

You may use web_search (at most {{.MaxIterations}} rounds) to verify what the company operates. When done, call finish_research and pass this JSON as the summary:
{
  "company_name": "...",
  "categories": [{"category": "...", "justification": "..."}]
}
`, []string{"Profile", "MaxIterations"})

	assistantSystemTemplate = langChainPrompts.NewPromptTemplate(`
You are Corinna, an assistant helping compliance teams understand the EU Digital Services Act.

Use retrieve_dsa_knowledge for questions about the regulation itself and web_search for current facts about companies and services. Cite articles and recitals by number when you rely on them. Answer in plain text when you are done; do not call tools you do not need.
{{if .Context}}
Context from the user's current screen:
{{.Context}}
{{end}}`, []string{"Context"})
)

func RenderSummarize(companyName, question, rawOutput string) (string, error) {
	return format(summarizeTemplate, map[string]any{
		"CompanyName": companyName,
		"Question":    question,
		"RawOutput":   rawOutput,
	})
}

func RenderMatcher(companyName, country string, maxIterations, maxQueries, maxSuggestions int) (string, error) {
	return format(matcherTemplate, map[string]any{
		"CompanyName":    companyName,
		"Country":        country,
		"MaxIterations":  maxIterations,
		"MaxQueries":     maxQueries,
		"MaxSuggestions": maxSuggestions,
	})
}

func RenderCategorizer(profileJSON string, maxIterations int) (string, error) {
	return format(categorizerTemplate, map[string]any{
		"Profile":       profileJSON,
		"MaxIterations": maxIterations,
	})
}

func RenderAssistantSystem(context string) (string, error) {
	return format(assistantSystemTemplate, map[string]any{"Context": context})
}

func format(t langChainPrompts.PromptTemplate, vars map[string]any) (string, error) {
	out, err := t.Format(vars)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}
