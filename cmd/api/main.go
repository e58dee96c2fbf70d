package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/knowledgebase/internal/api"
	"github.com/nikhilbhutani/knowledgebase/internal/api/handlers"
	"github.com/nikhilbhutani/knowledgebase/internal/api/middleware"
	"github.com/nikhilbhutani/knowledgebase/internal/auth"
	"github.com/nikhilbhutani/knowledgebase/internal/cache"
	"github.com/nikhilbhutani/knowledgebase/internal/chat"
	"github.com/nikhilbhutani/knowledgebase/internal/config"
	"github.com/nikhilbhutani/knowledgebase/internal/conversation"
	"github.com/nikhilbhutani/knowledgebase/internal/database"
	"github.com/nikhilbhutani/knowledgebase/internal/document"
	"github.com/nikhilbhutani/knowledgebase/internal/llm"
	"github.com/nikhilbhutani/knowledgebase/internal/queue"
	"github.com/nikhilbhutani/knowledgebase/internal/scrape"
	"github.com/nikhilbhutani/knowledgebase/internal/search"
	"github.com/nikhilbhutani/knowledgebase/internal/stats"
	"github.com/nikhilbhutani/knowledgebase/migrations"
)

type stores struct {
	docs    document.Store
	results search.ResultStore
	stats   stats.Store
	convs   conversation.Store
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Warn("incomplete configuration", "error", err)
	}
	if cfg.Auth.JWTSecret == "" {
		slog.Error("AUTH_JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()
	readiness := map[string]handlers.Pinger{}

	// Postgres is optional; without it everything lives in memory.
	st := stores{
		docs:    document.NewMemoryStore(),
		results: search.NewMemoryResultStore(),
		stats:   stats.NewMemoryStore(),
		convs:   conversation.NewMemoryStore(),
	}
	if cfg.Database.URL != "" {
		db, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			slog.Warn("database unavailable, using in-memory stores", "error", err)
		} else {
			defer db.Close()
			if err := database.RunMigrations(ctx, db, database.MigrationSource(cfg.Database.MigrationsPath, migrations.FS)); err != nil {
				slog.Warn("migrations failed", "error", err)
			}
			st = stores{
				docs:    document.NewPostgresStore(db),
				results: search.NewPostgresResultStore(db),
				stats:   stats.NewPostgresStore(db),
				convs:   conversation.NewPostgresStore(db),
			}
			readiness["database"] = db
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Redis backs the fetch cache and the job queue; both degrade without it.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	var fetchCache *cache.Cache
	var enqueuer document.BackfillEnqueuer
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache or background jobs", "error", err)
	} else {
		fetchCache = cache.NewCache(rdb, "fetch:")
		readiness["redis"] = fetchCache

		qc := queue.NewClient(cfg.Redis)
		defer qc.Close()
		enqueuer = qc
	}

	extractor := scrape.NewExtractor(scrape.Options{
		Timeout:      cfg.Fetch.Timeout,
		MaxRedirects: cfg.Fetch.MaxRedirects,
		Budget:       cfg.Fetch.ContentBudget,
		UserAgent:    cfg.Fetch.UserAgent,
		Cache:        fetchCache,
		CacheTTL:     cfg.Fetch.CacheTTL,
	})
	webSearch := scrape.NewWebSearcher(cfg.Fetch.WebSearchURL, cfg.Fetch.UserAgent, cfg.Fetch.Timeout)

	docOpts := []document.Option{document.WithFetcher(extractor)}
	if enqueuer != nil {
		docOpts = append(docOpts, document.WithBackfillEnqueuer(enqueuer))
	}
	docSvc := document.NewService(st.docs, docOpts...)

	gateway := llm.NewGateway(cfg.LLM)
	if !gateway.Configured() {
		slog.Warn("no AI provider configured; chat and search answers will fall back")
	}
	chatSvc := chat.NewService(gateway, cfg.LLM.DefaultModel, cfg.LLM.Temperature)
	statsSvc := stats.NewService(st.stats)
	generator := search.NewGenerator(gateway, chatSvc, webSearch, cfg.LLM.DefaultModel, cfg.LLM.Temperature)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-t.C:
				limiter.Sweep()
			}
		}
	}()

	router := api.NewRouter(api.Deps{
		Documents:     docSvc,
		PDF:           document.NewPDFIngester(cfg.Upload.MaxBytes),
		Extractor:     extractor,
		Chat:          chatSvc,
		Search:        search.NewService(docSvc, generator, st.results, statsSvc),
		Digester:      search.NewServiceDigester(docSvc, extractor),
		Stats:         statsSvc,
		Conversations: conversation.NewService(st.convs),
		Gateway:       gateway,
		JWT:           auth.NewJWTMiddleware(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		RateLimiter:   limiter,

		DefaultModel:   cfg.LLM.DefaultModel,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment: map[string]bool{
			"hasGoogleAI":  cfg.LLM.GeminiKey != "",
			"hasOpenAI":    cfg.LLM.OpenAIKey != "",
			"hasAnthropic": cfg.LLM.AnthropicKey != "",
			"hasOllama":    cfg.LLM.OllamaURL != "",
			"hasDatabase":  readiness["database"] != nil,
			"hasRedis":     readiness["redis"] != nil,
		},
		Readiness: readiness,
	})
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
