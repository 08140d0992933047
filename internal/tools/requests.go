package tools

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
)

// Tool names as exposed to the model.
const (
	WebSearchName = "web_search"
	FinishName    = "finish_research"
	KnowledgeName = "retrieve_dsa_knowledge"
)

// Request is the closed set of tool-invocation variants. Each tool has its own
// statically typed argument record; untyped argument maps never leave the
// parsing boundary.
type Request interface {
	toolName() string
}

// SearchRequest asks for a batch of web searches.
type SearchRequest struct {
	Queries []string `json:"queries"`
}

func (SearchRequest) toolName() string { return WebSearchName }

// FinishRequest is the loop-termination sentinel. Its argument is the content
// the agent intends as the final answer; executing it has no side effect.
type FinishRequest struct {
	Summary string `json:"summary"`
}

func (FinishRequest) toolName() string { return FinishName }

// KnowledgeRequest asks for a lookup against the DSA knowledge base.
type KnowledgeRequest struct {
	Query   string `json:"query"`
	Article string `json:"article,omitempty"`
}

func (KnowledgeRequest) toolName() string { return KnowledgeName }

// Invocation pairs a parsed request with its correlation id.
type Invocation struct {
	ID      string
	Name    string
	Request Request
}

// ParseInvocation converts a raw model tool call into a typed invocation.
// A missing correlation id gets a generated one so the result can still be
// matched to the request.
func ParseInvocation(call llms.ToolCall) (Invocation, error) {
	inv := Invocation{ID: call.ID}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if call.FunctionCall == nil {
		return inv, fmt.Errorf("tool call %s has no function payload", inv.ID)
	}
	inv.Name = call.FunctionCall.Name

	args := call.FunctionCall.Arguments
	switch call.FunctionCall.Name {
	case WebSearchName:
		var req SearchRequest
		if err := json.Unmarshal([]byte(args), &req); err != nil {
			return inv, fmt.Errorf("invalid %s arguments: %w", WebSearchName, err)
		}
		if len(req.Queries) == 0 {
			return inv, fmt.Errorf("%s requires at least one query", WebSearchName)
		}
		inv.Request = req
	case FinishName:
		var req FinishRequest
		if err := json.Unmarshal([]byte(args), &req); err != nil {
			return inv, fmt.Errorf("invalid %s arguments: %w", FinishName, err)
		}
		inv.Request = req
	case KnowledgeName:
		var req KnowledgeRequest
		if err := json.Unmarshal([]byte(args), &req); err != nil {
			return inv, fmt.Errorf("invalid %s arguments: %w", KnowledgeName, err)
		}
		inv.Request = req
	default:
		return inv, fmt.Errorf("unknown tool %q", call.FunctionCall.Name)
	}
	return inv, nil
}

// IsFinish reports whether the raw call names the finish sentinel.
func IsFinish(call llms.ToolCall) bool {
	return call.FunctionCall != nil && call.FunctionCall.Name == FinishName
}

// AllFinish reports whether every call in the turn is the finish sentinel.
// An empty turn is not considered all-finish.
func AllFinish(calls []llms.ToolCall) bool {
	if len(calls) == 0 {
		return false
	}
	for _, c := range calls {
		if !IsFinish(c) {
			return false
		}
	}
	return true
}

// FinishSummary extracts the summary argument from the first finish call in
// the turn, if any.
func FinishSummary(calls []llms.ToolCall) (string, bool) {
	for _, c := range calls {
		if !IsFinish(c) {
			continue
		}
		var req FinishRequest
		if err := json.Unmarshal([]byte(c.FunctionCall.Arguments), &req); err != nil {
			continue
		}
		return req.Summary, true
	}
	return "", false
}
