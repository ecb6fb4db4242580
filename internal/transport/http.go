package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ganot/dailylog/internal/chat"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Dispatcher handles normalized chat inputs.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd chat.Command) (*chat.Reply, error)
	HandleSignal(ctx context.Context, sig chat.Signal) (*chat.Reply, error)
}

// Options configures the router. Nil handlers are not mounted.
type Options struct {
	// Auth guards /webhook and /mcp.
	Auth func(http.Handler) http.Handler
	// Metrics is served at /metrics without auth.
	Metrics http.Handler
	// MCP is served at /mcp.
	MCP http.Handler
	// AllowedOrigins enables CORS for browser-based MCP clients.
	AllowedOrigins []string
	Logger         *slog.Logger
	Now            func() time.Time
}

// Server wires HTTP handlers.
type Server struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewServer creates an HTTP server router with middleware.
func NewServer(dispatcher Dispatcher, opts Options) *chi.Mux {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version"},
			ExposedHeaders: []string{"Mcp-Session-Id"},
			MaxAge:         300,
		}))
	}

	srv := &Server{dispatcher: dispatcher, logger: opts.Logger, now: opts.Now}

	r.Get("/health", srv.handleHealth)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}
		r.Post("/webhook", srv.handleWebhook)
		if opts.MCP != nil {
			r.Handle("/mcp", opts.MCP)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		code := ErrInvalidReq
		if !errors.Is(err, errInvalidRequest) {
			code = ErrParseCode
		}
		WriteError(w, nil, code, "invalid request", nil)
		return
	}

	log := s.logger.With("method", req.Method, "request_id", middleware.GetReqID(r.Context()))
	if caller, ok := CallerFromContext(r.Context()); ok {
		log = log.With("caller", caller)
	}

	var reply *chat.Reply
	switch req.Method {
	case "command":
		var cmd chat.Command
		if err := DecodeParams(req, &cmd); err != nil {
			WriteError(w, req.ID, ErrInvalidParams, err.Error(), nil)
			return
		}
		reply, err = s.dispatcher.HandleCommand(r.Context(), cmd)
		if errors.Is(err, chat.ErrUnknownCommand) {
			WriteError(w, req.ID, ErrMethodNotFound, err.Error(), nil)
			return
		}
	case "signal":
		var sig chat.Signal
		if err := DecodeParams(req, &sig); err != nil {
			WriteError(w, req.ID, ErrInvalidParams, err.Error(), nil)
			return
		}
		if sig.Kind != chat.SignalStart && sig.Kind != chat.SignalEnd {
			WriteError(w, req.ID, ErrInvalidParams, "kind must be start or end", nil)
			return
		}
		if sig.At.IsZero() {
			sig.At = s.now()
		}
		reply, err = s.dispatcher.HandleSignal(r.Context(), sig)
	default:
		WriteError(w, req.ID, ErrMethodNotFound, "method not found", nil)
		return
	}

	if err != nil {
		log.Error("webhook handling failed", "error", err)
		WriteError(w, req.ID, ErrInternal, "internal error", nil)
		return
	}
	WriteResult(w, req.ID, reply)
}
