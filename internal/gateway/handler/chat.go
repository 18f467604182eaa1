package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type submitMessageRequest struct {
	Text string `json:"text"`
}

func (h *Handler) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var in submitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	result, err := h.wizard.SubmitMessage(r.Context(), sessionID, in.Text)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type exportArchiveRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Phases    []int  `json:"phases,omitempty"`
}

func (h *Handler) handleExportArchive(w http.ResponseWriter, r *http.Request) {
	var in exportArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	ar, err := h.export.Export(r.Context(), in.SessionID, in.Phases)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ar)
}
