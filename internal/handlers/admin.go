package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ymatsuzawa/nenchobot/internal/auth"
	"github.com/ymatsuzawa/nenchobot/internal/db"
	"github.com/ymatsuzawa/nenchobot/internal/models"
)

const defaultRecentQuestionsLimit = 20

// AdminHandler serves the operator views: per-user usage for the current
// month and the latest questions across all users. Guarded by a static
// bearer token.
type AdminHandler struct {
	Authorizer *auth.AccessTokenAuthorizer
	History    db.HistoryStore
	Now        func() time.Time
	Logger     *slog.Logger
}

type usageStatsResponse struct {
	Since time.Time          `json:"since"`
	Users []models.UserUsage `json:"users"`
}

type recentQuestionsResponse struct {
	Questions []models.ChatRecord `json:"questions"`
}

func (h *AdminHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	ok, err := h.Authorizer.CheckRequest(r)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "")
		return false
	}
	return true
}

// UsageStats aggregates query counts per user since the start of the current
// calendar month.
func (h *AdminHandler) UsageStats(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	now := h.now()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	users, err := h.History.UsageStats(r.Context(), startOfMonth)
	if err != nil {
		h.Logger.Error("could not fetch usage stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "could not fetch usage stats")
		return
	}
	if users == nil {
		users = []models.UserUsage{}
	}

	writeJSON(w, http.StatusOK, usageStatsResponse{Since: startOfMonth, Users: users})
}

// RecentQuestions returns the latest answered queries.
func (h *AdminHandler) RecentQuestions(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	limit := defaultRecentQuestionsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	questions, err := h.History.RecentQuestions(r.Context(), limit)
	if err != nil {
		h.Logger.Error("could not fetch recent questions", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "could not fetch recent questions")
		return
	}
	if questions == nil {
		questions = []models.ChatRecord{}
	}

	writeJSON(w, http.StatusOK, recentQuestionsResponse{Questions: questions})
}

func (h *AdminHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
