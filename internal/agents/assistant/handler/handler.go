package handler

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"dsa-copilot/internal/agent"
	"dsa-copilot/internal/tools"
	"dsa-copilot/pkg/llm"
	"dsa-copilot/pkg/memory/buffer"
	"dsa-copilot/pkg/messages"
	"dsa-copilot/pkg/models"
	"dsa-copilot/pkg/prompts"
)

// historyWindow bounds how many past exchanges are replayed into the model.
const historyWindow = 10

// Handler runs the assistant's tool loop for one chat turn. It is stateless;
// the owning actor holds the conversation buffer.
type Handler struct {
	client        llm.Client
	exec          *tools.Executor
	maxIterations int
}

func New(client llm.Client, exec *tools.Executor, maxIterations int) *Handler {
	return &Handler{
		client:        client,
		exec:          exec,
		maxIterations: maxIterations,
	}
}

// Chat answers one user message given the session history.
func (h *Handler) Chat(ctx context.Context, history buffer.Memories, msg messages.Chat) models.HandlerResult {
	system, err := prompts.RenderAssistantSystem(msg.Context)
	if err != nil {
		return models.HandlerResult{Error: fmt.Errorf("render system prompt: %w", err)}
	}

	seed := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
	}
	for _, m := range history.Window(historyWindow) {
		seed = append(seed,
			llms.TextParts(llms.ChatMessageTypeHuman, m.Question),
			llms.TextParts(llms.ChatMessageTypeAI, m.Answer),
		)
	}
	seed = append(seed, llms.TextParts(llms.ChatMessageTypeHuman, msg.Message))

	loop := &agent.Loop{
		Step: agent.Step{
			Client: h.client,
			Tools:  tools.Definitions(tools.AssistantSet()),
		},
		Exec:          h.exec,
		MaxIterations: h.maxIterations,
		Emitter:       msg.Emitter,
		Node:          "assistant",
		Agent:         "assistant",
		StreamTokens:  true,
	}
	outcome, err := loop.Run(ctx, seed)
	if err != nil {
		return models.HandlerResult{Error: fmt.Errorf("assistant loop: %w", err)}
	}

	reply := outcome.FinalText
	if reply == "" {
		if sums := agent.FinishSummaries(outcome.Messages); len(sums) > 0 {
			reply = sums[len(sums)-1]
		}
	}
	if reply == "" {
		reply = "I was unable to produce an answer, please try rephrasing your question."
	}
	return models.HandlerResult{Reply: reply, Iterations: outcome.Iterations}
}
