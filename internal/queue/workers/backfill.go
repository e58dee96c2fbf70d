package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
	"github.com/nikhilbhutani/knowledgebase/internal/queue"
)

// Backfiller fetches and stores the body of an empty web document.
type Backfiller interface {
	Backfill(ctx context.Context, ownerID string, id uuid.UUID) (*models.Document, error)
}

type BackfillWorker struct {
	docs Backfiller
}

func NewBackfillWorker(docs Backfiller) *BackfillWorker {
	return &BackfillWorker{docs: docs}
}

// ProcessTask leaves retries to asynq while the document is still empty.
// Documents that are gone or changed owner are dropped without retry.
func (w *BackfillWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, docID, err := queue.ParseBackfillPayload(t)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	slog.Info("backfilling document", "document_id", docID)

	doc, err := w.docs.Backfill(ctx, payload.OwnerID, docID)
	if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrForbidden) {
		slog.Warn("backfill target unavailable", "document_id", docID, "error", err)
		return fmt.Errorf("backfill %s: %w: %w", docID, err, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("backfill %s: %w", docID, err)
	}
	if doc.Type == models.DocTypeWeb && doc.Content.IsEmpty() {
		return fmt.Errorf("backfill %s: content still empty", docID)
	}

	slog.Info("document backfilled", "document_id", docID)
	return nil
}
