package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "nenchobot.db", cfg.SQLitePath)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 5, cfg.RetrievalLimit)
	assert.InDelta(t, 0.6, cfg.RetrievalThreshold, 1e-9)
	assert.Equal(t, 3*time.Second, cfg.RetrievalTimeout)
	assert.Equal(t, 100, cfg.MaxQueriesPerMonth)
	assert.Equal(t, 24000, cfg.MaxPromptRunes)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://localhost/nenchobot")
	t.Setenv("RETRIEVAL_TIMEOUT_MS", "1500")
	t.Setenv("MAX_QUERIES_PER_MONTH", "10")
	t.Setenv("ADMIN_TOKEN", "secret")

	cfg := Load()

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, "postgres://localhost/nenchobot", cfg.DatabaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.RetrievalTimeout)
	assert.Equal(t, 10, cfg.MaxQueriesPerMonth)
	assert.Equal(t, "secret", cfg.AdminToken)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("RETRIEVAL_THRESHOLD", "high")

	cfg := Load()

	assert.Equal(t, 3000, cfg.Port)
	assert.InDelta(t, 0.6, cfg.RetrievalThreshold, 1e-9)
}
