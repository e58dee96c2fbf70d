package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

// ContentFetcher downloads and extracts the readable body of a web page.
type ContentFetcher interface {
	FetchContent(ctx context.Context, rawURL string) (string, error)
}

// BackfillEnqueuer schedules a background content fetch for a web document.
type BackfillEnqueuer interface {
	EnqueueBackfill(ctx context.Context, docID uuid.UUID, ownerID string) error
}

type Service struct {
	store    Store
	fetcher  ContentFetcher
	enqueuer BackfillEnqueuer
	now      func() time.Time
}

type Option func(*Service)

func WithFetcher(f ContentFetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

func WithBackfillEnqueuer(e BackfillEnqueuer) Option {
	return func(s *Service) { s.enqueuer = e }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateRequest struct {
	Title   string
	Type    models.DocumentType
	Source  string
	Content models.Content
}

func (s *Service) Create(ctx context.Context, ownerID string, req CreateRequest) (*models.Document, error) {
	if ownerID == "" {
		return nil, apperr.ErrUnauthorized
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, apperr.Invalid("title is required")
	}
	if !req.Type.Valid() {
		return nil, apperr.Invalid("type must be \"file\" or \"web\"")
	}
	if req.Content.Kind == "" {
		req.Content = models.TextContent("")
	}

	now := s.now().UTC()
	doc := &models.Document{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       req.Title,
		Type:        req.Type,
		Source:      strings.TrimSpace(req.Source),
		Content:     req.Content,
		LastUpdated: now,
		CreatedAt:   now,
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	if doc.Type == models.DocTypeWeb && doc.Content.IsEmpty() && doc.Source != "" && s.enqueuer != nil {
		if err := s.enqueuer.EnqueueBackfill(ctx, doc.ID, ownerID); err != nil {
			slog.Warn("failed to enqueue content backfill", "document_id", doc.ID, "error", err)
		}
	}
	return doc, nil
}

// Get returns the document if the caller owns it. Records without an owner
// are never readable.
func (s *Service) Get(ctx context.Context, ownerID string, id uuid.UUID) (*models.Document, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID == "" || doc.OwnerID != ownerID {
		return nil, apperr.ErrForbidden
	}
	return doc, nil
}

// Backfill returns the document, first fetching and persisting the body of a
// web document whose content is still empty. Fetch failures are logged and
// the document is returned unchanged.
func (s *Service) Backfill(ctx context.Context, ownerID string, id uuid.UUID) (*models.Document, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if doc.Type != models.DocTypeWeb || !doc.Content.IsEmpty() || doc.Source == "" || s.fetcher == nil {
		return doc, nil
	}

	text, err := s.fetcher.FetchContent(ctx, doc.Source)
	if err != nil {
		slog.Warn("content backfill failed", "document_id", doc.ID, "source", doc.Source, "error", err)
		return doc, nil
	}

	doc.Content = models.TextContent(text)
	doc.LastUpdated = s.now().UTC()
	if err := s.store.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("persist backfilled content: %w", err)
	}
	slog.Info("backfilled web document", "document_id", doc.ID, "content_length", len(text))
	return doc, nil
}

func (s *Service) List(ctx context.Context, ownerID string, docType models.DocumentType) ([]models.Document, error) {
	if ownerID == "" {
		return nil, apperr.ErrUnauthorized
	}
	if docType != "" && !docType.Valid() {
		return nil, apperr.Invalid("type must be \"file\" or \"web\"")
	}
	docs, err := s.store.List(ctx, ListFilter{OwnerID: ownerID, Type: docType, Limit: PageSize})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// Update merges the patch over the stored document and refreshes LastUpdated.
func (s *Service) Update(ctx context.Context, ownerID string, id uuid.UUID, patch models.DocumentPatch) (*models.Document, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) != "" {
		doc.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Content != nil && !patch.Content.IsEmpty() {
		doc.Content = *patch.Content
	}
	doc.LastUpdated = s.now().UTC()
	if err := s.store.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	return doc, nil
}

// Delete removes a document owned by the caller. Ownerless records may be
// deleted by any authenticated caller so orphans can be cleaned up.
func (s *Service) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.OwnerID != "" && doc.OwnerID != ownerID {
		return apperr.ErrForbidden
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
