package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Callcenter-Agent/agent/contract"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps session errors to status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contractx.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contractx.ErrSessionEnded):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, contractx.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody decodes an optional JSON body; an empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func errorFrame(sessionID string, err error) outboundFrame {
	msg := "internal error"
	if isTerminal(err) || errors.Is(err, contractx.ErrValidation) {
		msg = err.Error()
	} else {
		log.Error().Err(err).Str("session_id", sessionID).Msg("websocket frame failed")
	}
	return outboundFrame{Type: FrameError, SessionID: sessionID, Error: msg}
}

// isTerminal reports errors after which the session cannot take more turns.
func isTerminal(err error) bool {
	return errors.Is(err, contractx.ErrSessionNotFound) || errors.Is(err, contractx.ErrSessionEnded)
}
