package main

import (
	"context"
	"flag"
	stdlog "log"
	"os/signal"
	"syscall"

	protoactor "github.com/asynkron/protoactor-go/actor"
	zLog "github.com/rs/zerolog/log"

	assistantActor "dsa-copilot/internal/agents/assistant/actor"
	"dsa-copilot/internal/agents/assistant/handler"
	"dsa-copilot/internal/api"
	"dsa-copilot/internal/config"
	"dsa-copilot/internal/knowledge"
	"dsa-copilot/internal/search"
	"dsa-copilot/internal/streaming"
	"dsa-copilot/internal/tools"
	"dsa-copilot/internal/workflows/categorizer"
	"dsa-copilot/internal/workflows/matcher"
	"dsa-copilot/internal/workflows/researcher"
	"dsa-copilot/pkg/llm"
	"dsa-copilot/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Panicf("failed to load config: %v", err)
	}
	if err := logger.NewGlobal(cfg.Logging.Level, cfg.Logging.Pretty); err != nil {
		stdlog.Panicf("failed to initialize logger: %v", err)
	}

	researchClient, err := llm.New(cfg.Models.Research)
	if err != nil {
		zLog.Panic().Err(err).Msg("research model client")
	}
	summarizeClient, err := llm.New(cfg.Models.Summarize)
	if err != nil {
		zLog.Panic().Err(err).Msg("summarize model client")
	}
	assistantClient, err := llm.New(cfg.Models.Assistant)
	if err != nil {
		zLog.Panic().Err(err).Msg("assistant model client")
	}

	searcher := search.NewTavily(cfg.Search)
	kb := knowledge.NewBase(cfg.Knowledge.Path)

	questions, err := researcher.LoadQuestions(cfg.Researcher.QuestionsPath)
	if err != nil {
		zLog.Panic().Err(err).Msg("question table")
	}

	wf := api.Workflows{
		Researcher: func(emitter streaming.Emitter) *researcher.Researcher {
			return &researcher.Researcher{
				Research: researchClient,
				Summarizer: &researcher.Summarizer{
					Client:        summarizeClient,
					MaxTraceChars: cfg.Researcher.MaxTraceChars,
					MaxTokens:     cfg.Models.Summarize.MaxTokens,
				},
				Exec: &tools.Executor{
					Searcher:   searcher,
					MaxQueries: cfg.Researcher.MaxSearchQueries,
					MaxResults: cfg.Researcher.MaxSearchResults,
				},
				Questions:     questions,
				MaxIterations: cfg.Researcher.MaxIterations,
				MaxConcurrent: cfg.Researcher.MaxConcurrent,
				JoinTimeout:   cfg.Researcher.JoinTimeout,
				Emitter:       emitter,
				Log:           zLog.With().Str(logger.WorkflowField, "researcher").Logger(),
			}
		},
		Matcher: func(emitter streaming.Emitter) *matcher.Matcher {
			return &matcher.Matcher{
				Client: researchClient,
				Exec: &tools.Executor{
					Searcher:   searcher,
					MaxQueries: cfg.Matcher.MaxSearchQueries,
					MaxResults: cfg.Matcher.MaxSearchResults,
				},
				MaxIterations:  cfg.Matcher.MaxIterations,
				MaxQueries:     cfg.Matcher.MaxSearchQueries,
				MaxSuggestions: cfg.Matcher.MaxSuggestions,
				Emitter:        emitter,
				Log:            zLog.With().Str(logger.WorkflowField, "matcher").Logger(),
			}
		},
		Categorizer: func(emitter streaming.Emitter) *categorizer.Categorizer {
			return &categorizer.Categorizer{
				Client: researchClient,
				Exec: &tools.Executor{
					Searcher:   searcher,
					MaxQueries: cfg.Categorize.MaxSearchQueries,
					MaxResults: cfg.Categorize.MaxSearchResults,
				},
				MaxIterations: cfg.Categorize.MaxIterations,
				Emitter:       emitter,
				Log:           zLog.With().Str(logger.WorkflowField, "categorizer").Logger(),
			}
		},
	}

	assistantExec := &tools.Executor{
		Searcher:           searcher,
		Knowledge:          kb,
		MaxQueries:         cfg.Researcher.MaxSearchQueries,
		MaxResults:         cfg.Researcher.MaxSearchResults,
		MaxKnowledgeChunks: cfg.Assistant.MaxKnowledgeChunks,
	}
	assistantHandler := handler.New(assistantClient, assistantExec, cfg.Assistant.MaxIterations)

	decider := func(reason interface{}) protoactor.Directive {
		zLog.Error().Msgf("handling failure for session actor. reason: %v", reason)
		return protoactor.RestartDirective
	}
	strategy := protoactor.NewOneForOneStrategy(3, 10000, decider)
	assistantProps := protoactor.PropsFromProducer(
		assistantActor.New(assistantHandler, cfg.Assistant.RequestTimeout),
		protoactor.WithSupervisor(strategy),
	)

	system := protoactor.NewActorSystem().Root
	app := api.New(cfg, system, wf, assistantProps)

	go func() {
		if err := app.Start(); err != nil {
			zLog.Panic().Err(err).Msg("server crash")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	stop()
	zLog.Info().Msg("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := app.Stop(shutdownCtx); err != nil {
		zLog.Panic().Err(err).Msg("server forced to shutdown")
	}
	zLog.Info().Msg("server exiting")
}
