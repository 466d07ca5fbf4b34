package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	statex "github.com/tanpawarit/Chative-Callcenter-Agent/agent/state"
)

// Frame types.
const (
	FrameMessage = "message"
	FrameReset   = "reset"
	FrameEnd     = "end"

	FrameSession = "session"
	FrameReply   = "reply"
	FrameEnded   = "ended"
	FrameError   = "error"
)

type inboundFrame struct {
	Type         string `json:"type"`
	Text         string `json:"text,omitempty"`
	Resolution   string `json:"resolution,omitempty"`
	Satisfaction *int   `json:"satisfaction,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

type outboundFrame struct {
	Type       string       `json:"type"`
	SessionID  string       `json:"session_id,omitempty"`
	Response   string       `json:"response,omitempty"`
	Layer      statex.Layer `json:"layer,omitempty"`
	Specialist string       `json:"specialist,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// handleWebSocket serves one call per connection. ?session_id= resumes an
// existing session, otherwise a new one is started for ?customer_id=.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	sessionID := strings.TrimSpace(query.Get("session_id"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if sessionID == "" {
		sessionID, err = h.sessions.Start(ctx, query.Get("customer_id"))
		if err != nil {
			log.Error().Err(err).Msg("websocket session start failed")
			_ = conn.WriteJSON(outboundFrame{Type: FrameError, Error: "session could not be started"})
			return
		}
	}
	logger := log.With().Str("session_id", sessionID).Logger()
	logger.Info().Msg("websocket connected")

	conn.SetPongHandler(func(string) error {
		h.extendDeadline(conn)
		return nil
	})
	go h.pingLoop(ctx, conn)

	if err := conn.WriteJSON(outboundFrame{Type: FrameSession, SessionID: sessionID}); err != nil {
		return
	}

	for {
		// The deadline covers the wait for the next frame only, not the turn
		// that follows it.
		h.extendDeadline(conn)

		var in inboundFrame
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		out, done := h.handleFrame(ctx, sessionID, in)
		if err := conn.WriteJSON(out); err != nil {
			logger.Warn().Err(err).Msg("websocket write failed")
			return
		}
		if done {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
				time.Now().Add(time.Second))
			logger.Info().Msg("websocket closed after session end")
			return
		}
	}
}

// handleFrame runs one inbound frame. done reports that the connection should
// close.
func (h *Handler) handleFrame(ctx context.Context, sessionID string, in inboundFrame) (outboundFrame, bool) {
	switch in.Type {
	case FrameMessage:
		if strings.TrimSpace(in.Text) == "" {
			return outboundFrame{Type: FrameError, SessionID: sessionID, Error: "text is required"}, false
		}
		turn, err := h.sessions.Send(ctx, sessionID, in.Text)
		if err != nil {
			return errorFrame(sessionID, err), isTerminal(err)
		}
		return outboundFrame{
			Type:       FrameReply,
			SessionID:  turn.SessionID,
			Response:   turn.Response,
			Layer:      turn.Layer,
			Specialist: turn.Specialist,
		}, false
	case FrameReset:
		if err := h.sessions.Reset(ctx, sessionID); err != nil {
			return errorFrame(sessionID, err), isTerminal(err)
		}
		return outboundFrame{Type: FrameReset, SessionID: sessionID}, false
	case FrameEnd:
		if err := h.sessions.End(ctx, sessionID, in.Resolution, in.Satisfaction, in.Notes); err != nil {
			return errorFrame(sessionID, err), true
		}
		return outboundFrame{Type: FrameEnded, SessionID: sessionID}, true
	default:
		return outboundFrame{Type: FrameError, SessionID: sessionID, Error: "unsupported frame type: " + in.Type}, false
	}
}

func (h *Handler) extendDeadline(conn *websocket.Conn) {
	if h.cfg.WSReadTimeout <= 0 {
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.WSReadTimeout))
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	if h.cfg.WSReadTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(h.cfg.WSReadTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// WriteControl may run concurrently with WriteJSON.
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
