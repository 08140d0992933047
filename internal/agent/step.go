package agent

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	"dsa-copilot/pkg/llm"
)

// Step is a single request/response unit against the inference backend: the
// ordered conversation log goes out, one assistant choice comes back. The
// choice carries either free text or tool-invocation requests. Nothing is
// retained between invocations.
type Step struct {
	Client llm.Client
	Tools  []llms.Tool
}

func (s Step) Invoke(ctx context.Context, log []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentChoice, error) {
	if len(s.Tools) > 0 {
		opts = append(opts, llms.WithTools(s.Tools))
	}
	return s.Client.Complete(ctx, log, opts...)
}

// AssistantMessage converts a backend choice into a conversation log entry,
// preserving tool-invocation requests so they survive in the trace.
func AssistantMessage(choice *llms.ContentChoice) llms.MessageContent {
	msg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
	if choice.Content != "" {
		msg.Parts = append(msg.Parts, llms.TextContent{Text: choice.Content})
	}
	for _, tc := range choice.ToolCalls {
		msg.Parts = append(msg.Parts, tc)
	}
	return msg
}
