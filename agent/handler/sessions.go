package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type specialistView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tools       []string `json:"tools"`
}

func (h *Handler) handleListSpecialists(w http.ResponseWriter, r *http.Request) {
	specialists := h.registry.Specialists()
	views := make([]specialistView, 0, len(specialists))
	for _, s := range specialists {
		views = append(views, specialistView{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Tools:       s.Tools,
		})
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CustomerID string `json:"customer_id"`
	}
	if err := decodeBody(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID, err := h.sessions.Start(r.Context(), payload.CustomerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := decodeBody(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	turn, err := h.sessions.Send(r.Context(), chi.URLParam(r, "sessionID"), payload.Message)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, turn)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.sessions.Reset(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"session_id": sessionID, "status": "reset"})
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Resolution   string `json:"resolution"`
		Satisfaction *int   `json:"satisfaction"`
		Notes        string `json:"notes"`
	}
	if err := decodeBody(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if s := payload.Satisfaction; s != nil && (*s < 1 || *s > 5) {
		respondError(w, http.StatusBadRequest, "satisfaction must be between 1 and 5")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if err := h.sessions.End(r.Context(), sessionID, payload.Resolution, payload.Satisfaction, payload.Notes); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"session_id": sessionID, "status": "ended"})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusNotImplemented, "call log is disabled")
		return
	}

	history, err := h.history.SessionHistory(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// handleCustomerHistory lists a customer's sessions, newest first. The
// optional limit query parameter caps the result.
func (h *Handler) handleCustomerHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusNotImplemented, "call log is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := h.history.CustomerHistory(r.Context(), chi.URLParam(r, "customerID"), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}
