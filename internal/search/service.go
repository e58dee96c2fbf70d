package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

// DocumentLister returns the caller's documents, newest first.
type DocumentLister interface {
	List(ctx context.Context, ownerID string, docType models.DocumentType) ([]models.Document, error)
}

// QueryCounter records that the caller asked a question.
type QueryCounter interface {
	IncrementQueries(ctx context.Context, ownerID string) error
}

type Response struct {
	Answer             string             `json:"answer"`
	Sources            []models.SourceRef `json:"sources"`
	IsGeneralKnowledge bool               `json:"isGeneralKnowledge"`
	IsGoogleSearch     bool               `json:"isGoogleSearch"`
	Tier               Tier               `json:"tier"`
}

type Service struct {
	docs      DocumentLister
	generator *Generator
	results   ResultStore
	counter   QueryCounter
	now       func() time.Time
}

func NewService(docs DocumentLister, generator *Generator, results ResultStore, counter QueryCounter) *Service {
	return &Service{docs: docs, generator: generator, results: results, counter: counter, now: time.Now}
}

// Search answers query for the caller. ownerName, when known, is treated as
// a personal term by the classifier.
func (s *Service) Search(ctx context.Context, ownerID, ownerName, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Invalid("Missing query")
	}

	docs, err := s.docs.List(ctx, ownerID, "")
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	general := NewClassifier(ownerName).IsGeneralKnowledge(query)
	assembled := Assemble(docs, general)
	slog.Info("search started",
		"owner_id", ownerID,
		"documents", len(docs),
		"pdf_documents", len(assembled.PDFs),
		"general_knowledge", general,
	)

	res := s.generator.Generate(ctx, Question{Text: query, General: general, Docs: docs, Context: assembled})
	answered, ok := res.(Answered)
	if !ok {
		reason := "unknown"
		if f, isFailed := res.(Failed); isFailed {
			reason = f.Reason
		}
		return nil, fmt.Errorf("search %q: %w: %s", query, apperr.ErrUpstream, reason)
	}

	if answered.Sources == nil {
		answered.Sources = []models.SourceRef{}
	}
	s.record(ctx, ownerID, query, answered)

	return &Response{
		Answer:             answered.Text,
		Sources:            answered.Sources,
		IsGeneralKnowledge: general,
		IsGoogleSearch:     answered.Tier == TierWebSearch,
		Tier:               answered.Tier,
	}, nil
}

// record is best-effort; failures are logged and never reach the caller.
func (s *Service) record(ctx context.Context, ownerID, query string, a Answered) {
	if s.results != nil {
		err := s.results.Save(ctx, &models.SearchResult{
			ID:        uuid.New(),
			OwnerID:   ownerID,
			Question:  query,
			Answer:    a.Text,
			Sources:   a.Sources,
			Timestamp: s.now().UTC(),
		})
		if err != nil {
			slog.Warn("failed to save search result", "owner_id", ownerID, "error", err)
		}
	}
	if s.counter != nil {
		if err := s.counter.IncrementQueries(ctx, ownerID); err != nil {
			slog.Warn("failed to update query count", "owner_id", ownerID, "error", err)
		}
	}
}
