package researcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"

	"dsa-copilot/internal/agent"
	"dsa-copilot/internal/streaming"
	"dsa-copilot/internal/tools"
	"dsa-copilot/pkg/llm"
	"dsa-copilot/pkg/logger"
	"dsa-copilot/pkg/prompts"
)

// Researcher runs the full company research workflow: one bounded agent loop
// per question, fanned out concurrently, folded into a single report.
type Researcher struct {
	Research   llm.Client
	Summarizer *Summarizer
	Exec       *tools.Executor
	Questions  *QuestionTable

	MaxIterations int
	MaxConcurrent int
	JoinTimeout   time.Duration

	Emitter streaming.Emitter
	Log     zerolog.Logger
}

type branchResult struct {
	answer SubQuestionAnswer
}

// Run researches companyName against every question in the table and returns
// the assembled report. The only fatal errors are invalid input and caller
// cancellation; individual branch faults degrade to error answers so the
// report always carries one entry per question.
func (r *Researcher) Run(ctx context.Context, companyName string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	companyName = strings.TrimSpace(companyName)
	if companyName == "" {
		return nil, fmt.Errorf("company name is required")
	}
	if r.Questions == nil || len(r.Questions.Questions) == 0 {
		return nil, fmt.Errorf("no research questions configured")
	}

	emitter := r.Emitter
	if emitter == nil {
		emitter = streaming.NopEmitter{}
	}

	tasks := r.Questions.SubTasks()
	r.Log.Info().
		Str(logger.CompanyField, companyName).
		Int("questions", len(tasks)).
		Msg("starting company research")
	emitter.Emit(streaming.Event{
		Type:    streaming.EventNodeStart,
		Node:    "research",
		Content: fmt.Sprintf("Researching %s across %d questions", companyName, len(tasks)),
	})

	acc := &Accumulator{}
	if err := acc.Apply(Override{}); err != nil {
		return nil, err
	}

	// Fan out one goroutine per sub-task. The semaphore caps in-flight
	// branches; the results channel is sized to the task count so a branch
	// finishing after the join deadline never blocks on send. Branches run
	// under the join deadline themselves, so an abandoned branch stops
	// calling the backends instead of running until the request ends.
	branchCtx, cancelBranches := context.WithTimeout(ctx, r.joinTimeout())
	defer cancelBranches()

	results := make(chan branchResult, len(tasks))
	sema := make(chan struct{}, r.maxConcurrent())
	for _, task := range tasks {
		task := task
		go func() {
			sema <- struct{}{}
			defer func() { <-sema }()
			results <- branchResult{answer: r.runBranch(branchCtx, emitter, companyName, task)}
		}()
	}

	// Join: collect until every branch reports or the deadline passes.
	// Branches still running at the deadline are abandoned and represented
	// by a degraded answer, keeping the one-entry-per-question invariant.
	collected := make(map[int]bool, len(tasks))
	deadline := time.NewTimer(r.joinTimeout())
	defer deadline.Stop()

collect:
	for len(collected) < len(tasks) {
		select {
		case res := <-results:
			if err := acc.Apply(Append{Answers: []SubQuestionAnswer{res.answer}}); err != nil {
				return nil, err
			}
			collected[res.answer.TaskIndex] = true
		case <-deadline.C:
			break collect
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	for _, task := range tasks {
		if collected[task.Index] {
			continue
		}
		r.Log.Warn().
			Str(logger.CompanyField, companyName).
			Str(logger.QuestionField, task.Question).
			Msg("research branch missed join deadline")
		timedOut := SubQuestionAnswer{
			Section:    task.Section,
			Question:   task.Question,
			Answer:     "Error: research timed out",
			Source:     DefaultSource,
			Confidence: DefaultConfidence,
			TaskIndex:  task.Index,
		}
		if err := acc.Apply(Append{Answers: []SubQuestionAnswer{timedOut}}); err != nil {
			return nil, err
		}
	}

	report := AssembleReport(companyName, acc)
	emitter.Emit(streaming.Event{
		Type:    streaming.EventNodeEnd,
		Node:    "research",
		Content: fmt.Sprintf("Completed research for %s, %d answers", companyName, len(report.Answers)),
	})
	return report, nil
}

// runBranch executes one question's bounded agent loop followed by
// summarization. Never returns an error: every failure mode ends in a
// degraded answer.
func (r *Researcher) runBranch(ctx context.Context, emitter streaming.Emitter, companyName string, task SubTask) SubQuestionAnswer {
	node := fmt.Sprintf("question_%02d", task.Index)
	log := r.Log.With().
		Str(logger.BranchField, node).
		Str(logger.QuestionField, task.Question).
		Logger()

	emitter.Emit(streaming.Event{
		Type:    streaming.EventNodeStart,
		Node:    node,
		Content: task.Question,
	})

	prompt, err := prompts.RenderResearch(task.PromptVariant, companyName, task.Question, r.MaxIterations)
	if err != nil {
		log.Error().Err(err).Msg("prompt render failed")
		return degradedAnswer(task, err)
	}
	seed := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}

	loop := &agent.Loop{
		Step: agent.Step{
			Client: r.Research,
			Tools:  tools.Definitions(tools.ResearchSet()),
		},
		Exec:          r.Exec,
		MaxIterations: r.MaxIterations,
		Emitter:       emitter,
		Node:          node,
		Agent:         "researcher",
	}

	outcome, err := loop.Run(ctx, seed)
	if err != nil {
		log.Error().Err(err).Msg("research loop aborted")
		return degradedAnswer(task, err)
	}
	log.Debug().
		Int("iterations", outcome.Iterations).
		Bool("exhausted", outcome.Exhausted).
		Msg("research loop complete")

	answer := r.Summarizer.Summarize(ctx, companyName, task, outcome.Messages)
	emitter.Emit(streaming.Event{
		Type:    streaming.EventNodeEnd,
		Node:    node,
		Content: answer.Answer,
	})
	return answer
}

func degradedAnswer(task SubTask, err error) SubQuestionAnswer {
	return SubQuestionAnswer{
		Section:    task.Section,
		Question:   task.Question,
		Answer:     fmt.Sprintf("Error: %v", err),
		Source:     DefaultSource,
		Confidence: DefaultConfidence,
		TaskIndex:  task.Index,
	}
}

func (r *Researcher) maxConcurrent() int {
	if r.MaxConcurrent <= 0 {
		return 1
	}
	return r.MaxConcurrent
}

func (r *Researcher) joinTimeout() time.Duration {
	if r.JoinTimeout <= 0 {
		return 5 * time.Minute
	}
	return r.JoinTimeout
}
