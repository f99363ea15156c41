// Package config reads the process configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the server and the ingestion tool need. Constructed
// once at process start and passed down; no component reads the environment
// on its own.
type Config struct {
	Host string
	Port int

	DatabaseURL string // Postgres; empty means SQLite fallback + degraded retrieval
	SQLitePath  string

	OpenAIEndpoint          string
	OpenAIEmbeddingEndpoint string
	OpenAIAPIKey            string
	Model                   string
	EmbeddingModel          string

	SystemPromptPath string

	RetrievalLimit     int
	RetrievalThreshold float64
	RetrievalTimeout   time.Duration

	MaxQueriesPerMonth int
	MaxPromptRunes     int

	AdminToken string
}

// Load reads the optional .env file, then the environment.
func Load() Config {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("could not load .env file: %v", err)
		}
	}

	return Config{
		Host: getEnv("HOST", "0.0.0.0"),
		Port: getEnvInt("PORT", 3000),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "nenchobot.db"),

		OpenAIEndpoint:          getEnv("OPENAI_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		OpenAIEmbeddingEndpoint: getEnv("OPENAI_EMBEDDING_ENDPOINT", "https://api.openai.com/v1/embeddings"),
		OpenAIAPIKey:            os.Getenv("OPENAI_API_KEY"),
		Model:                   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		EmbeddingModel:          getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),

		SystemPromptPath: getEnv("SYSTEM_PROMPT_PATH", "system_prompt.txt"),

		RetrievalLimit:     getEnvInt("RETRIEVAL_LIMIT", 5),
		RetrievalThreshold: getEnvFloat("RETRIEVAL_THRESHOLD", 0.6),
		RetrievalTimeout:   time.Duration(getEnvInt("RETRIEVAL_TIMEOUT_MS", 3000)) * time.Millisecond,

		MaxQueriesPerMonth: getEnvInt("MAX_QUERIES_PER_MONTH", 100),
		MaxPromptRunes:     getEnvInt("MAX_PROMPT_RUNES", 24000),

		AdminToken: os.Getenv("ADMIN_TOKEN"),
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
