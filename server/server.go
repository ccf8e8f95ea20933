// Package server exposes the chat exchange over HTTP and WebSocket.
//
// Information Hiding:
// - Routing and middleware hidden
// - Error to status code mapping hidden
// - Transcript recording hidden; failures are logged, never returned to clients
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/richinex/taskchat/agent"
	"github.com/richinex/taskchat/storage"
)

// Responder runs one chat exchange. *agent.Agent implements it.
type Responder interface {
	Respond(ctx context.Context, message string) (agent.Response, error)
}

// Config configures a Server.
type Config struct {
	// AllowedOrigins are the browser origins accepted by CORS and the WebSocket upgrade.
	AllowedOrigins []string

	// Store records finished exchanges. Nil disables the exchange log.
	Store storage.TranscriptStore

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server serves the chat API.
type Server struct {
	responder Responder
	store     storage.TranscriptStore
	origins   map[string]bool
	logger    *slog.Logger
	srv       *http.Server

	mu      sync.Mutex
	sockets map[*websocket.Conn]context.CancelFunc
	closing bool
}

// New creates a new Server.
func New(responder Responder, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		origins[strings.TrimRight(o, "/")] = true
	}
	return &Server{
		responder: responder,
		store:     cfg.Store,
		origins:   origins,
		logger:    logger,
		sockets:   make(map[*websocket.Conn]context.CancelFunc),
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat/ws", s.handleChatWebSocket)

	mux.HandleFunc("GET /api/exchanges", s.handleListExchanges)
	mux.HandleFunc("GET /api/exchanges/{id}", s.handleGetExchange)

	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.requestIDMiddleware(s.corsMiddleware(mux))
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting web server", "addr", addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight HTTP
// exchanges. WebSocket connections are not tracked by http.Server, so their
// exchanges are cancelled and the sockets closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelSockets()
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) allowedOrigin(origin string) bool {
	return s.origins[strings.TrimRight(origin, "/")]
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.allowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

// RequestID returns the ID assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))

		s.logger.Info("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrade reach the underlying connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}

func (s *Server) messageResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, chatReply{Message: message})
}
