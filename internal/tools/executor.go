package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"dsa-copilot/internal/knowledge"
	"dsa-copilot/internal/search"
	"dsa-copilot/pkg/logger"
)

// Result is the outcome of one tool invocation, tagged with the correlation
// id of the request that produced it.
type Result struct {
	ID      string
	Name    string
	Content string
	IsError bool
}

// Executor runs tool invocations against their implementations. Malformed
// arguments and backend failures become error results the agent can read on
// the next turn; they are never fatal to the loop.
type Executor struct {
	Searcher  search.Searcher
	Knowledge *knowledge.Base

	MaxQueries         int
	MaxResults         int
	MaxKnowledgeChunks int
}

// Execute runs every requested invocation and returns exactly one result per
// request, in request order.
func (e *Executor) Execute(ctx context.Context, calls []llms.ToolCall) []Result {
	results := make([]Result, 0, len(calls))
	for _, call := range calls {
		results = append(results, e.executeOne(ctx, call))
	}
	return results
}

func (e *Executor) executeOne(ctx context.Context, call llms.ToolCall) Result {
	inv, err := ParseInvocation(call)
	if err != nil {
		log.Debug().Err(err).Str(logger.ToolField, inv.Name).Msg("rejecting malformed tool call")
		return Result{ID: inv.ID, Name: inv.Name, Content: fmt.Sprintf("Error: %v", err), IsError: true}
	}

	switch req := inv.Request.(type) {
	case SearchRequest:
		return e.runSearch(ctx, inv, req)
	case FinishRequest:
		// Pure sentinel: acknowledge, signal nothing else.
		return Result{ID: inv.ID, Name: inv.Name, Content: "Research complete: " + req.Summary}
	case KnowledgeRequest:
		return e.runKnowledge(ctx, inv, req)
	default:
		return Result{ID: inv.ID, Name: inv.Name, Content: fmt.Sprintf("Error: unhandled tool %q", inv.Name), IsError: true}
	}
}

func (e *Executor) runSearch(ctx context.Context, inv Invocation, req SearchRequest) Result {
	queries := req.Queries
	// Excess queries are truncated silently, not rejected.
	if e.MaxQueries > 0 && len(queries) > e.MaxQueries {
		queries = queries[:e.MaxQueries]
	}
	out, err := e.Searcher.Search(ctx, queries, e.MaxResults)
	if err != nil {
		log.Warn().Err(err).Str(logger.ToolField, WebSearchName).Msg("search backend failed")
		return Result{ID: inv.ID, Name: inv.Name, Content: fmt.Sprintf("Error: search failed: %v", err), IsError: true}
	}
	return Result{ID: inv.ID, Name: inv.Name, Content: out}
}

func (e *Executor) runKnowledge(ctx context.Context, inv Invocation, req KnowledgeRequest) Result {
	if e.Knowledge == nil {
		return Result{ID: inv.ID, Name: inv.Name, Content: "Error: knowledge base not available", IsError: true}
	}
	if num := strings.TrimSpace(req.Article); num != "" {
		chunk, err := e.Knowledge.Article(ctx, num)
		if err != nil {
			return Result{ID: inv.ID, Name: inv.Name, Content: fmt.Sprintf("Error: %v", err), IsError: true}
		}
		if chunk != nil {
			return Result{ID: inv.ID, Name: inv.Name, Content: fmt.Sprintf("## %s (%s)\n%s", chunk.Title, chunk.Section, chunk.Content)}
		}
		// Fall through to keyword retrieval when the article does not exist.
	}
	out, err := e.Knowledge.Retrieve(ctx, req.Query, e.MaxKnowledgeChunks)
	if err != nil {
		return Result{ID: inv.ID, Name: inv.Name, Content: fmt.Sprintf("Error: %v", err), IsError: true}
	}
	return Result{ID: inv.ID, Name: inv.Name, Content: out}
}

// Messages converts results into tool-result messages for the conversation
// log, one message per result, matched to requests by correlation id.
func Messages(results []Result) []llms.MessageContent {
	msgs := make([]llms.MessageContent, 0, len(results))
	for _, r := range results {
		msgs = append(msgs, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: r.ID,
				Name:       r.Name,
				Content:    r.Content,
			}},
		})
	}
	return msgs
}
