package document

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

// PageSize bounds every list query. There is no cursor.
const PageSize = 50

type ListFilter struct {
	// OwnerID scopes the list. Empty lists every owner and is only used by
	// the diagnostics endpoints.
	OwnerID string
	Type    models.DocumentType
	Limit   int
}

// Store persists documents. Get, Update and Delete return apperr.ErrNotFound
// for unknown ids.
type Store interface {
	Create(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id uuid.UUID) (*models.Document, error)
	List(ctx context.Context, f ListFilter) ([]models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}
