package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ymatsuzawa/nenchobot/internal/knowledge"
)

// KnowledgeHandler exposes read-only statistics about the knowledge base.
type KnowledgeHandler struct {
	Lister knowledge.DocumentLister
	Logger *slog.Logger
}

type knowledgeStatsResponse struct {
	TotalChunks int            `json:"total_chunks"`
	PDFs        map[string]int `json:"pdfs"`
}

// Stats mirrors the ingestion tool's --stats view: total chunk count plus a
// per-document breakdown keyed by "name (year)". An unprovisioned knowledge
// base reports as empty, not as an error.
func (h *KnowledgeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Lister.ListDocuments(r.Context())
	if err != nil {
		if errors.Is(err, knowledge.ErrSearchUnavailable) {
			writeJSON(w, http.StatusOK, knowledgeStatsResponse{PDFs: map[string]int{}})
			return
		}
		h.Logger.Error("could not list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "could not read knowledge stats")
		return
	}

	response := knowledgeStatsResponse{PDFs: map[string]int{}}
	for _, s := range stats {
		year := s.Document.Year
		if year == "" {
			year = "不明"
		}
		response.PDFs[fmt.Sprintf("%s (%s)", s.Document.Name, year)] = s.ChunkCount
		response.TotalChunks += s.ChunkCount
	}

	writeJSON(w, http.StatusOK, response)
}
