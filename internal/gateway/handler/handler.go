// Package handler exposes the wizard engine over HTTP/JSON plus a
// websocket event stream. Handlers shape transport only; all decisions
// live in the services.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"consultify/internal/engine/catalog"
	"consultify/internal/engine/responder"
	"consultify/internal/gateway/service/export"
	"consultify/internal/gateway/service/wizard"

	"github.com/go-chi/chi/v5"
)

// Friendly retry prompt for conversational failures; the UI renders it
// as an agent message.
const retryPrompt = "Lo siento, tuve un problema procesando tu mensaje. ¿Puedes intentarlo de nuevo?"

type Handler struct {
	wizard *wizard.Service
	export *export.Service
}

func New(wizardSvc *wizard.Service, exportSvc *export.Service) *Handler {
	return &Handler{wizard: wizardSvc, export: exportSvc}
}

// Routes builds the chi router for the full API surface.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", h.handleCreateSession)
		r.Get("/sessions/{sessionID}", h.handleGetSession)
		r.Delete("/sessions/{sessionID}", h.handleResetSession)
		r.Post("/sessions/{sessionID}/messages", h.handleSubmitMessage)
		r.Get("/sessions/{sessionID}/readiness", h.handleReadiness)
		r.Get("/sessions/{sessionID}/events", h.handleEvents)
		r.Post("/archives", h.handleExportArchive)
	})
	return r
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("handler: encode response: %v", err)
	}
}

// respondError maps engine errors onto the HTTP surface. Degenerate
// input and configuration defects both carry the friendly retry prompt
// so the conversation UI can recover gracefully.
func respondError(w http.ResponseWriter, err error) {
	var cfgErr *catalog.ConfigurationError
	switch {
	case errors.Is(err, responder.ErrEmptyMessage):
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error":   err.Error(),
			"message": retryPrompt,
		})
	case errors.As(err, &cfgErr):
		log.Printf("handler: configuration error: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   err.Error(),
			"message": retryPrompt,
		})
	case errors.Is(err, wizard.ErrSessionNotFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		log.Printf("handler: internal error: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
