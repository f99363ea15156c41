package handlers

import (
	"net/http"
	"time"
)

// HealthHandler reports liveness plus which external collaborators are
// configured, without leaking any secret material.
type HealthHandler struct {
	Model        string
	HasOpenAIKey bool
	HasPostgres  bool
}

type healthResponse struct {
	Status    string     `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Env       healthEnv  `json:"env"`
}

type healthEnv struct {
	HasOpenAI   bool   `json:"hasOpenAI"`
	HasPostgres bool   `json:"hasPostgres"`
	Model       string `json:"model"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Env: healthEnv{
			HasOpenAI:   h.HasOpenAIKey,
			HasPostgres: h.HasPostgres,
			Model:       h.Model,
		},
	})
}
