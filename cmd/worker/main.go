package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/knowledgebase/internal/cache"
	"github.com/nikhilbhutani/knowledgebase/internal/config"
	"github.com/nikhilbhutani/knowledgebase/internal/database"
	"github.com/nikhilbhutani/knowledgebase/internal/document"
	"github.com/nikhilbhutani/knowledgebase/internal/queue"
	"github.com/nikhilbhutani/knowledgebase/internal/queue/workers"
	"github.com/nikhilbhutani/knowledgebase/internal/scrape"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	if cfg.Database.URL == "" {
		slog.Error("DATABASE_URL is required for the worker")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	extractor := scrape.NewExtractor(scrape.Options{
		Timeout:      cfg.Fetch.Timeout,
		MaxRedirects: cfg.Fetch.MaxRedirects,
		Budget:       cfg.Fetch.ContentBudget,
		UserAgent:    cfg.Fetch.UserAgent,
		Cache:        cache.NewCache(rdb, "fetch:"),
		CacheTTL:     cfg.Fetch.CacheTTL,
	})
	docSvc := document.NewService(document.NewPostgresStore(pool), document.WithFetcher(extractor))

	const concurrency = 10
	srv := queue.NewServer(cfg.Redis, concurrency)

	registry := queue.NewHandlersRegistry()
	backfill := workers.NewBackfillWorker(docSvc)
	registry.Register(queue.TypeDocumentBackfill, asynq.HandlerFunc(backfill.ProcessTask))

	slog.Info("starting worker", "concurrency", concurrency)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
