package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/knowledgebase/internal/config"
)

// Queue weights; backfill jobs go to "default".
var queues = map[string]int{
	"critical": 6,
	"default":  3,
	"low":      1,
}

func NewServer(cfg config.RedisConfig, concurrency int) *asynq.Server {
	return asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
		Logger:      slogAdapter{},
	})
}

// HandlersRegistry routes task types to handlers and logs every run.
type HandlersRegistry struct {
	mux *asynq.ServeMux
}

func NewHandlersRegistry() *HandlersRegistry {
	mux := asynq.NewServeMux()
	mux.Use(logTask)
	return &HandlersRegistry{mux: mux}
}

func (r *HandlersRegistry) Register(taskType string, handler asynq.Handler) {
	r.mux.Handle(taskType, handler)
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}

func logTask(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, t)
		retry, _ := asynq.GetRetryCount(ctx)
		attrs := []any{
			"type", t.Type(),
			"retry", retry,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			slog.Warn("task failed", append(attrs, "error", err)...)
			return err
		}
		slog.Info("task processed", attrs...)
		return nil
	})
}

// slogAdapter routes asynq's own logging through the default slog logger.
type slogAdapter struct{}

func (slogAdapter) Debug(args ...any) { slog.Debug("asynq", "msg", args) }
func (slogAdapter) Info(args ...any)  { slog.Info("asynq", "msg", args) }
func (slogAdapter) Warn(args ...any)  { slog.Warn("asynq", "msg", args) }
func (slogAdapter) Error(args ...any) { slog.Error("asynq", "msg", args) }
func (slogAdapter) Fatal(args ...any) { slog.Error("asynq fatal", "msg", args) }
