// Package handler exposes the dialogue engine over HTTP and WebSocket.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Callcenter-Agent/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Callcenter-Agent/agent/calllog"
	toolx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/tool"
)

// SessionService is satisfied by *orchestrator.Manager.
type SessionService interface {
	Start(ctx context.Context, customerID string) (string, error)
	Send(ctx context.Context, sessionID, text string) (orchestrator.Turn, error)
	Reset(ctx context.Context, sessionID string) error
	End(ctx context.Context, sessionID, resolution string, satisfaction *int, notes string) error
}

// HistoryReader is satisfied by *calllog.Store.
type HistoryReader interface {
	SessionHistory(ctx context.Context, sessionID string) (*calllog.History, error)
	CustomerHistory(ctx context.Context, customerID string, limit int) ([]calllog.CallSession, error)
}

type Handler struct {
	sessions SessionService
	registry *toolx.Registry
	history  HistoryReader
	cfg      Config
	upgrader websocket.Upgrader
}

// New builds the handler. history may be nil when the call log is disabled.
func New(sessions SessionService, registry *toolx.Registry, history HistoryReader, cfg Config) *Handler {
	return &Handler{
		sessions: sessions,
		registry: registry,
		history:  history,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// NewRouter wires the REST and WebSocket routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ws", h.handleWebSocket)

	r.Route("/api", func(api chi.Router) {
		h.RegisterRoutes(api)
	})
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/specialists", h.handleListSpecialists)

	r.Post("/sessions", h.handleStartSession)
	r.Route("/sessions/{sessionID}", func(s chi.Router) {
		s.Post("/messages", h.handleSendMessage)
		s.Post("/reset", h.handleReset)
		s.Post("/end", h.handleEnd)
		s.Get("/history", h.handleHistory)
	})

	r.Get("/customers/{customerID}/history", h.handleCustomerHistory)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("http request")
	})
}
