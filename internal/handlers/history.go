package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ymatsuzawa/nenchobot/internal/db"
	"github.com/ymatsuzawa/nenchobot/internal/models"
)

const defaultHistoryLimit = 50

// HistoryHandler serves a user's recent conversation records so the UI can
// restore context after a reload.
type HistoryHandler struct {
	History db.HistoryStore
	Logger  *slog.Logger
}

type historyResponse struct {
	History []models.ChatRecord `json:"history"`
}

// Get returns the newest records first, like the store delivers them.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "userId is required")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.History.GetHistory(r.Context(), userID, limit)
	if err != nil {
		h.Logger.Error("could not fetch chat history", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "could not fetch history")
		return
	}
	if records == nil {
		records = []models.ChatRecord{}
	}

	writeJSON(w, http.StatusOK, historyResponse{History: records})
}
