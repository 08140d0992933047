package agent

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"dsa-copilot/internal/streaming"
	"dsa-copilot/internal/tools"
	"dsa-copilot/pkg/logger"
)

// Loop drives one bounded ReAct task: alternate agent steps and tool
// execution until the agent stops requesting tools, every requested tool in a
// turn is the finish sentinel, or the iteration budget is exhausted. The
// caller owns whatever comes after (summarization, report finalization).
type Loop struct {
	Step          Step
	Exec          *tools.Executor
	MaxIterations int

	// Event labeling; Emitter may be nil.
	Emitter      streaming.Emitter
	Node         string
	Agent        string
	StreamTokens bool
}

// Outcome is the state of a finished loop.
type Outcome struct {
	// Messages is the full conversation log: seed, assistant turns with their
	// tool-invocation requests, and tool results.
	Messages []llms.MessageContent
	// Iterations is the number of agent-tools round trips consumed.
	Iterations int
	// FinalText is the assistant's last free-text output, if any.
	FinalText string
	// Exhausted is set when the iteration budget forced termination.
	Exhausted bool
}

// Run executes the loop over the seeded conversation log. A backend fault on
// an agent step is retried by re-entering the loop, each retry consuming one
// iteration; once the budget is gone the loop terminates with whatever trace
// has accumulated. Context cancellation is the only fatal error.
func (l *Loop) Run(ctx context.Context, seed []llms.MessageContent) (*Outcome, error) {
	out := &Outcome{Messages: seed}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		choice, err := l.invoke(ctx, out.Messages)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Str(logger.NodeField, l.Node).Int("iteration", out.Iterations).
				Msg("agent step failed, re-entering loop")
			if out.Iterations >= l.MaxIterations {
				out.Exhausted = true
				return out, nil
			}
			out.Iterations++
			continue
		}

		out.Messages = append(out.Messages, AssistantMessage(choice))
		calls := choice.ToolCalls

		// Terminal turns: no tool requests, or a turn of nothing but the
		// finish sentinel. A finish call mixed with real tool calls is NOT
		// terminal; the whole turn still executes.
		if len(calls) == 0 {
			out.FinalText = choice.Content
			return out, nil
		}
		if tools.AllFinish(calls) {
			out.FinalText = choice.Content
			return out, nil
		}
		if out.Iterations >= l.MaxIterations {
			// Budget exhaustion terminates even mid-tool-call.
			out.Exhausted = true
			return out, nil
		}

		out.Messages = append(out.Messages, l.runTools(ctx, calls)...)
		out.Iterations++
	}
}

func (l *Loop) invoke(ctx context.Context, msgs []llms.MessageContent) (*llms.ContentChoice, error) {
	l.emit(streaming.Event{Type: streaming.EventLLMStart, Node: l.Node, Agent: l.Agent})

	var opts []llms.CallOption
	if l.Emitter != nil && l.StreamTokens {
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			l.emit(streaming.Event{
				Type:    streaming.EventToken,
				Node:    l.Node,
				Agent:   l.Agent,
				Content: string(chunk),
			})
			return nil
		}))
	}
	return l.Step.Invoke(ctx, msgs, opts...)
}

func (l *Loop) runTools(ctx context.Context, calls []llms.ToolCall) []llms.MessageContent {
	for _, c := range calls {
		name, input := "", ""
		if c.FunctionCall != nil {
			name = c.FunctionCall.Name
			input = c.FunctionCall.Arguments
			if len(input) > 200 {
				input = input[:200]
			}
		}
		l.emit(streaming.Event{Type: streaming.EventToolStart, Node: l.Node, Name: name, Input: input})
	}

	results := l.Exec.Execute(ctx, calls)

	for _, r := range results {
		ev := streaming.Event{
			Type:         streaming.EventToolEnd,
			Node:         l.Node,
			Name:         r.Name,
			OutputLength: len(r.Content),
		}
		if r.Name == tools.WebSearchName && !r.IsError {
			ev.Sources = streaming.ExtractSources(r.Content)
		}
		l.emit(ev)
	}
	return tools.Messages(results)
}

func (l *Loop) emit(ev streaming.Event) {
	if l.Emitter != nil {
		l.Emitter.Emit(ev)
	}
}
