package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"time"

	"medichat/internal/config"
	"medichat/internal/core"
	"medichat/internal/db"
	httpserver "medichat/internal/http"
	"medichat/internal/llm"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// Open database connection
	dbConn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	if err := db.Migrate(context.Background(), dbConn); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	repo := db.NewRepository(dbConn)
	notifier := db.NewNotifier(dbConn, cfg.NotifyChannel)
	// OpenAI-backed completion client (uses env: OPENAI_API_KEY, OPENAI_MODEL)
	llmClient := llm.NewOpenAIClient()
	engine := core.NewChatEngine(repo, repo, repo, llmClient)
	srv := httpserver.NewServer(engine, notifier)

	addr := ":" + cfg.Port
	slog.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
