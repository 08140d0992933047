package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/justinas/alice"
	"github.com/rs/cors"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"dsa-copilot/internal/config"
	"dsa-copilot/internal/streaming"
	"dsa-copilot/internal/workflows/categorizer"
	"dsa-copilot/internal/workflows/matcher"
	"dsa-copilot/internal/workflows/researcher"
	"dsa-copilot/pkg/logger"
	"dsa-copilot/pkg/messages"
	"dsa-copilot/pkg/models"
)

// Workflows builds per-request workflow instances bound to an emitter. The
// non-streaming endpoints pass a NopEmitter.
type Workflows struct {
	Researcher  func(streaming.Emitter) *researcher.Researcher
	Matcher     func(streaming.Emitter) *matcher.Matcher
	Categorizer func(streaming.Emitter) *categorizer.Categorizer
}

type matchCommand struct {
	CompanyName string `json:"company_name"`
	Country     string `json:"country"`
}

type researchCommand struct {
	CompanyName string `json:"company_name"`
}

type categorizeCommand struct {
	CompanyName string          `json:"company_name"`
	Profile     json.RawMessage `json:"profile"`
}

type chatCommand struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Context   string `json:"context"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	ac       *actor.RootContext
	server   *http.Server
	cfg      *config.Config
	wf       Workflows
	sessions *sessionRegistry
	// assistantProps spawns one session actor per conversation.
	assistantProps *actor.Props
}

func New(cfg *config.Config, ac *actor.RootContext, wf Workflows, assistantProps *actor.Props) *Server {
	s := &Server{
		ac:             ac,
		cfg:            cfg,
		wf:             wf,
		sessions:       newSessionRegistry(),
		assistantProps: assistantProps,
	}

	r := chi.NewRouter()
	r.Use(logMiddleware())

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)

	r.Post("/agents/matcher", s.handleMatch)
	r.Post("/agents/matcher/stream", s.handleMatchStream)
	r.Post("/agents/researcher", s.handleResearch)
	r.Post("/agents/researcher/stream", s.handleResearchStream)
	r.Post("/agents/categorizer", s.handleCategorize)
	r.Post("/agents/categorizer/stream", s.handleCategorizeStream)
	r.Post("/agents/assistant", s.handleChat)
	r.Post("/agents/assistant/stream", s.handleChatStream)
	r.Get("/sessions/{id}", s.handleSessionStatus)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept"},
	})

	s.server = &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: c.Handler(r),
	}
	return s
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("http server starting")
	err := s.server.ListenAndServe()
	if err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"service": "dsa-copilot",
		"endpoints": []string{
			"GET /health",
			"POST /agents/matcher",
			"POST /agents/matcher/stream",
			"POST /agents/researcher",
			"POST /agents/researcher/stream",
			"POST /agents/categorizer",
			"POST /agents/categorizer/stream",
			"POST /agents/assistant",
			"POST /agents/assistant/stream",
			"GET /sessions/{id}",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status": "ok",
		"workflows": map[string]bool{
			"matcher":     s.wf.Matcher != nil,
			"researcher":  s.wf.Researcher != nil,
			"categorizer": s.wf.Categorizer != nil,
			"assistant":   s.assistantProps != nil,
		},
	})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var cmd matchCommand
	if err := unmarshalRequestBody(r, &cmd); err != nil {
		badRequest(w, r, "unable to parse body")
		return
	}
	result, err := s.wf.Matcher(streaming.NopEmitter{}).Run(r.Context(), cmd.CompanyName, cmd.Country)
	if err != nil {
		workflowError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (s *Server) handleMatchStream(w http.ResponseWriter, r *http.Request) {
	var cmd matchCommand
	if err := unmarshalRequestBody(r, &cmd); err != nil {
		badRequest(w, r, "unable to parse body")
		return
	}
	s.stream(w, r, func(ctx context.Context, emitter streaming.Emitter) (any, error) {
		return s.wf.Matcher(emitter).Run(ctx, cmd.CompanyName, cmd.Country)
	})
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var cmd researchCommand
	if err := unmarshalRequestBody(r, &cmd); err != nil {
		badRequest(w, r, "unable to parse body")
		return
	}
	report, err := s.wf.Researcher(streaming.NopEmitter{}).Run(r.Context(), cmd.CompanyName)
	if err != nil {
		workflowError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

func (s *Server) handleResearchStream(w http.ResponseWriter, r *http.Request) {
	var cmd researchCommand
	if err := unmarshalRequestBody(r, &cmd); err != nil {
		badRequest(w, r, "unable to parse body")
		return
	}
	s.stream(w, r, func(ctx context.Context, emitter streaming.Emitter) (any, error) {
		return s.wf.Researcher(emitter).Run(ctx, cmd.CompanyName)
	})
}

func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	var cmd categorizeCommand
	if err := unmarshalRequestBody(r, &cmd); err != nil {
		badRequest(w, r, "unable to parse body")
		return
	}
	report, err := s.wf.Categorizer(streaming.NopEmitter{}).Run(r.Context(), cmd.CompanyName, string(cmd.Profile))
	if err != nil {
		workflowError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

func (s *Server) handleCategorizeStream(w http.ResponseWriter, r *http.Request) {
	var cmd categorizeCommand
	if err := unmarshalRequestBody(r, &cmd); err != nil {
		badRequest(w, r, "unable to parse body")
		return
	}
	s.stream(w, r, func(ctx context.Context, emitter streaming.Emitter) (any, error) {
		return s.wf.Categorizer(emitter).Run(ctx, cmd.CompanyName, string(cmd.Profile))
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var cmd chatCommand
	if err := unmarshalRequestBody(r, &cmd); err != nil {
		badRequest(w, r, "unable to parse body")
		return
	}
	id, reply, err := s.chat(cmd, nil)
	if err != nil {
		workflowError(w, r, err)
		return
	}
	render.JSON(w, r, chatResponse{SessionID: id.String(), Reply: reply})
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var cmd chatCommand
	if err := unmarshalRequestBody(r, &cmd); err != nil {
		badRequest(w, r, "unable to parse body")
		return
	}
	s.stream(w, r, func(_ context.Context, emitter streaming.Emitter) (any, error) {
		id, reply, err := s.chat(cmd, emitter)
		if err != nil {
			return nil, err
		}
		return chatResponse{SessionID: id.String(), Reply: reply}, nil
	})
}

// chat resolves or creates the session actor and runs one turn through it.
// The actor mailbox serializes concurrent turns against the same session.
func (s *Server) chat(cmd chatCommand, emitter streaming.Emitter) (uuid.UUID, string, error) {
	if cmd.Message == "" {
		return uuid.Nil, "", errors.New("message is required")
	}

	var id uuid.UUID
	var pid *actor.PID
	if cmd.SessionID != "" {
		parsed, err := uuid.Parse(cmd.SessionID)
		if err != nil {
			return uuid.Nil, "", fmt.Errorf("invalid session id: %w", err)
		}
		id = parsed
		var ok bool
		pid, ok = s.sessions.get(id)
		if !ok {
			return uuid.Nil, "", fmt.Errorf("unknown session %s", id)
		}
	} else {
		id = uuid.New()
		pid = s.ac.Spawn(s.assistantProps)
		s.sessions.add(id, pid)
		log.Debug().Str(logger.SessionField, id.String()).Msg("assistant session created")
	}

	future := s.ac.RequestFuture(pid, messages.Chat{
		RequestID: id,
		Message:   cmd.Message,
		Context:   cmd.Context,
		Emitter:   emitter,
	}, s.cfg.Assistant.RequestTimeout)
	res, err := future.Result()
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("assistant session: %w", err)
	}
	if err, ok := res.(error); ok {
		return uuid.Nil, "", err
	}
	reply, ok := res.(messages.ChatReply)
	if !ok {
		return uuid.Nil, "", fmt.Errorf("unexpected session response %T", res)
	}
	return id, reply.Reply, nil
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		badRequest(w, r, "unable to parse id")
		return
	}
	pid, ok := s.sessions.get(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, errorResponse{Error: "unknown session"})
		return
	}

	future := s.ac.RequestFuture(pid, messages.GetStatus{}, time.Minute)
	res, err := future.Result()
	if err != nil {
		s.sessions.remove(id)
		w.WriteHeader(http.StatusInternalServerError)
		log.Error().Str(logger.SessionField, idParam).Err(err).Msg("unable to get status from session actor")
		return
	}
	session, ok := res.(models.Session)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		log.Error().Str(logger.SessionField, idParam).Msgf("unknown status from session actor: %T", res)
		return
	}
	render.JSON(w, r, session)
}

// stream runs one workflow invocation while relaying its events as SSE
// frames, ending with a result or error frame.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, run func(context.Context, streaming.Emitter) (any, error)) {
	emitter := streaming.NewChannelEmitter(256)

	go func() {
		defer emitter.Close()
		result, err := run(r.Context(), emitter)
		if err != nil {
			emitter.Emit(streaming.Event{Type: streaming.EventError, Message: err.Error()})
			return
		}
		emitter.Emit(streaming.Event{Type: streaming.EventResult, Data: result})
	}()

	streaming.WriteSSE(w, r, emitter.Events())

	// WriteSSE can return before Close when the client disconnects; keep
	// draining so a pending terminal Emit cannot strand the workflow
	// goroutine.
	go func() {
		for range emitter.Events() {
		}
	}()
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	w.WriteHeader(http.StatusBadRequest)
	render.JSON(w, r, errorResponse{Error: msg})
}

func workflowError(w http.ResponseWriter, r *http.Request, err error) {
	log.Error().Err(err).Msg("workflow failed")
	w.WriteHeader(http.StatusInternalServerError)
	render.JSON(w, r, errorResponse{Error: err.Error()})
}

func logMiddleware() func(http.Handler) http.Handler {
	c := alice.New()
	c = c.Append(hlog.NewHandler(log.Logger))
	c = c.Append(hlog.RemoteAddrHandler("ip"))
	c = c.Append(hlog.UserAgentHandler("agent"))
	c = c.Append(hlog.RequestIDHandler("req_id", "Request-Id"))
	c = c.Append(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("verb", r.Method).
			Stringer("url", r.URL).
			Int("size", size).
			Int("status", status).
			Int64("duration", duration.Milliseconds()).
			Msg("REQ")
	}))
	return c.Then
}

func unmarshalRequestBody(req *http.Request, output interface{}) error {
	if req.Body == nil {
		return errors.New("invalid body in request")
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	if err = req.Body.Close(); err != nil {
		return err
	}
	return json.Unmarshal(body, output)
}
