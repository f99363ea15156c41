package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ymatsuzawa/nenchobot/internal/auth"
	"github.com/ymatsuzawa/nenchobot/internal/config"
	"github.com/ymatsuzawa/nenchobot/internal/db"
	"github.com/ymatsuzawa/nenchobot/internal/handlers"
	"github.com/ymatsuzawa/nenchobot/internal/knowledge"
	"github.com/ymatsuzawa/nenchobot/internal/llm"
	"github.com/ymatsuzawa/nenchobot/internal/prompt"
	"github.com/ymatsuzawa/nenchobot/internal/usage"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Role/policy instruction: file overrides the built-in default.
	basePolicy := prompt.DefaultBasePolicy
	if data, err := os.ReadFile(cfg.SystemPromptPath); err == nil {
		basePolicy = string(data)
	} else {
		logger.Info("system prompt file not found, using built-in policy", "path", cfg.SystemPromptPath)
	}

	// Stores. Postgres carries both the knowledge base and the chat
	// history; without it the process falls back to SQLite history and a
	// knowledge store that reports itself unavailable, so answers are
	// simply not augmented.
	var (
		historyStore db.HistoryStore
		searchStore  knowledge.SearchStore
		lister       knowledge.DocumentLister
		hasPostgres  bool
	)
	if cfg.DatabaseURL != "" {
		pg, err := db.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer pg.Close()
		historyStore = pg
		searchStore = pg
		lister = pg
		hasPostgres = true
		logger.Info("using PostgreSQL store", "knowledge", true)
	} else {
		sqlite, err := db.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to initialize sqlite database: %v", err)
		}
		defer sqlite.Close()
		historyStore = sqlite
		searchStore = db.NoopSearchStore{}
		lister = db.NoopSearchStore{}
		logger.Warn("DATABASE_URL not set: using SQLite history store, knowledge retrieval disabled", "path", cfg.SQLitePath)
	}

	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not configured, chat requests will fail")
	}

	llmClient := llm.NewOpenAIClient(cfg.OpenAIEndpoint, cfg.OpenAIEmbeddingEndpoint, cfg.OpenAIAPIKey, cfg.Model, cfg.EmbeddingModel)

	retriever := knowledge.NewRetriever(llmClient, searchStore, logger)
	retriever.Limit = cfg.RetrievalLimit
	retriever.Threshold = cfg.RetrievalThreshold
	retriever.Timeout = cfg.RetrievalTimeout

	gate := usage.NewGate(historyStore)
	assembler := &prompt.Assembler{BasePolicy: basePolicy, MaxPromptRunes: cfg.MaxPromptRunes}
	authorizer := auth.NewAccessTokenAuthorizer(cfg.AdminToken)

	chatHandler := &handlers.ChatHandler{
		Gate:             gate,
		Retriever:        retriever,
		Completer:        llmClient,
		History:          historyStore,
		Assembler:        assembler,
		Model:            cfg.Model,
		MaxPerMonth:      cfg.MaxQueriesPerMonth,
		APIKeyConfigured: cfg.OpenAIAPIKey != "",
		Logger:           logger,
	}
	healthHandler := &handlers.HealthHandler{
		Model:        cfg.Model,
		HasOpenAIKey: cfg.OpenAIAPIKey != "",
		HasPostgres:  hasPostgres,
	}
	knowledgeHandler := &handlers.KnowledgeHandler{Lister: lister, Logger: logger}
	historyHandler := &handlers.HistoryHandler{History: historyStore, Logger: logger}
	adminHandler := &handlers.AdminHandler{Authorizer: authorizer, History: historyStore, Logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", chatHandler.Chat)
	mux.HandleFunc("GET /api/health", healthHandler.Health)
	mux.HandleFunc("GET /api/knowledge/stats", knowledgeHandler.Stats)
	mux.HandleFunc("GET /api/history", historyHandler.Get)
	mux.HandleFunc("GET /api/admin/usage", adminHandler.UsageStats)
	mux.HandleFunc("GET /api/admin/questions", adminHandler.RecentQuestions)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("nenchobot server starting", "addr", cfg.Addr(), "model", cfg.Model)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	logger.Info("server stopped")
}
