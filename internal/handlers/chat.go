package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ymatsuzawa/nenchobot/internal/db"
	"github.com/ymatsuzawa/nenchobot/internal/knowledge"
	"github.com/ymatsuzawa/nenchobot/internal/llm"
	"github.com/ymatsuzawa/nenchobot/internal/models"
	"github.com/ymatsuzawa/nenchobot/internal/prompt"
	"github.com/ymatsuzawa/nenchobot/internal/sources"
	"github.com/ymatsuzawa/nenchobot/internal/usage"
)

// Question length bounds.
const (
	minQuestionRunes = 5
	maxQuestionRunes = 1000
)

// ChatHandler runs the full query path: usage gate, knowledge retrieval,
// prompt assembly, generation call, source extraction, history write.
// Everything upstream of the generation call degrades silently; only a
// failing generation call reaches the user as an error.
type ChatHandler struct {
	Gate        *usage.Gate
	Retriever   *knowledge.Retriever
	Completer   llm.Completer
	History     db.HistoryStore
	Assembler   *prompt.Assembler
	Model       string
	MaxPerMonth int
	// APIKeyConfigured distinguishes a missing-configuration 500 from an
	// upstream generation failure.
	APIKeyConfigured bool
	Logger           *slog.Logger
}

type ChatRequest struct {
	Message             string                    `json:"message"`
	UserID              string                    `json:"userId"`
	ConversationHistory []models.ConversationTurn `json:"conversationHistory"`
}

type ChatResponse struct {
	Answer  string             `json:"answer"`
	Sources []models.Source    `json:"sources"`
	Model   string             `json:"model"`
	Usage   models.UsageStatus `json:"usage"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload", "")
		return
	}

	if msg := validateQuestion(req.Message); msg != "" {
		writeError(w, http.StatusBadRequest, "Invalid message", msg)
		return
	}

	if !h.APIKeyConfigured {
		writeError(w, http.StatusInternalServerError, "Server configuration error", "Missing API key")
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = "anonymous"
	}

	requestID := uuid.NewString()
	logger := h.Logger.With("request_id", requestID, "user_id", userID)
	logger.Info("chat request received", "question_runes", len([]rune(req.Message)), "history_turns", len(req.ConversationHistory))

	status, err := h.Gate.Check(r.Context(), userID, h.MaxPerMonth)
	if err != nil {
		logger.Error("usage check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "could not check usage limit")
		return
	}
	if !status.Allowed {
		logger.Info("monthly usage limit reached", "count", status.CurrentCount)
		writeError(w, http.StatusTooManyRequests, "Monthly usage limit reached", "来月までお待ちください")
		return
	}

	retrieved := h.Retriever.Retrieve(r.Context(), req.Message)

	messages := h.Assembler.BuildMessages(retrieved, req.ConversationHistory, req.Message)

	answer, err := h.Completer.ChatCompletion(r.Context(), messages)
	if err != nil {
		logger.Error("generation backend call failed", "error", err)
		writeError(w, http.StatusBadGateway, "AI service error", err.Error())
		return
	}

	answerSources := sources.Extract(answer, retrieved)

	record := models.ChatRecord{
		UserID:    userID,
		Question:  req.Message,
		Answer:    answer,
		Sources:   answerSources,
		CreatedAt: time.Now(),
	}
	if err := h.History.SaveChat(r.Context(), record); err != nil {
		// The answer is already generated; losing one history row is not
		// worth failing the request over.
		logger.Warn("could not save chat history", "error", err)
	} else {
		status.CurrentCount++
		if status.Remaining > 0 {
			status.Remaining--
		}
		status.Allowed = status.CurrentCount < status.MaxQueries
	}

	logger.Info("chat request answered", "retrieved", len(retrieved), "sources", len(answerSources))

	writeJSON(w, http.StatusOK, ChatResponse{
		Answer:  answer,
		Sources: answerSources,
		Model:   h.Model,
		Usage:   status,
	})
}

// validateQuestion applies the UI-facing message rules; it returns a
// human-readable reason or "" when the question is acceptable.
func validateQuestion(question string) string {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return "質問を入力してください"
	}
	if len([]rune(trimmed)) < minQuestionRunes {
		return "質問が短すぎます。もう少し詳しく入力してください"
	}
	if len([]rune(question)) > maxQuestionRunes {
		return "質問が長すぎます。1000文字以内で入力してください"
	}
	return ""
}
