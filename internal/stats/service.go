package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Get returns the caller's counters, or zeros when none were recorded.
func (s *Service) Get(ctx context.Context, ownerID string) (*models.UsageStats, error) {
	if ownerID == "" {
		return nil, apperr.ErrUnauthorized
	}
	u, err := s.store.Get(ctx, ownerID)
	if errors.Is(err, apperr.ErrNotFound) {
		return &models.UsageStats{OwnerID: ownerID}, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Update creates the caller's row or overwrites the supplied counters.
func (s *Service) Update(ctx context.Context, ownerID string, c models.UsageCounters) (*models.UsageStats, error) {
	if ownerID == "" {
		return nil, apperr.ErrUnauthorized
	}
	for _, v := range []*int{c.TotalDocuments, c.TotalFiles, c.TotalLinks, c.QueriesThisMonth} {
		if v != nil && *v < 0 {
			return nil, apperr.Invalid("counters must not be negative")
		}
	}

	u, err := s.store.Get(ctx, ownerID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		u = &models.UsageStats{ID: uuid.New(), OwnerID: ownerID}
	case err != nil:
		return nil, err
	}

	apply(&u.TotalDocuments, c.TotalDocuments)
	apply(&u.TotalFiles, c.TotalFiles)
	apply(&u.TotalLinks, c.TotalLinks)
	apply(&u.QueriesThisMonth, c.QueriesThisMonth)
	u.LastUpdated = s.now().UTC()

	if err := s.store.Upsert(ctx, u); err != nil {
		return nil, fmt.Errorf("save usage stats: %w", err)
	}
	return u, nil
}

func (s *Service) IncrementQueries(ctx context.Context, ownerID string) error {
	return s.store.IncrementQueries(ctx, ownerID, s.now().UTC())
}

func apply(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
