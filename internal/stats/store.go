package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

// Store keeps one usage row per owner.
type Store interface {
	Get(ctx context.Context, ownerID string) (*models.UsageStats, error)
	Upsert(ctx context.Context, s *models.UsageStats) error
	IncrementQueries(ctx context.Context, ownerID string, at time.Time) error
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, ownerID string) (*models.UsageStats, error) {
	var u models.UsageStats
	err := s.db.QueryRow(ctx, `
		SELECT id, owner_id, total_documents, total_files, total_links, queries_this_month, last_updated
		FROM usage_stats WHERE owner_id = $1`, ownerID,
	).Scan(&u.ID, &u.OwnerID, &u.TotalDocuments, &u.TotalFiles, &u.TotalLinks, &u.QueriesThisMonth, &u.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get usage stats: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, u *models.UsageStats) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO usage_stats (id, owner_id, total_documents, total_files, total_links, queries_this_month, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id) DO UPDATE SET
			total_documents = EXCLUDED.total_documents,
			total_files = EXCLUDED.total_files,
			total_links = EXCLUDED.total_links,
			queries_this_month = EXCLUDED.queries_this_month,
			last_updated = EXCLUDED.last_updated`,
		u.ID, u.OwnerID, u.TotalDocuments, u.TotalFiles, u.TotalLinks, u.QueriesThisMonth, u.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert usage stats: %w", err)
	}
	return nil
}

func (s *PostgresStore) IncrementQueries(ctx context.Context, ownerID string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO usage_stats (id, owner_id, queries_this_month, last_updated)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (owner_id) DO UPDATE SET
			queries_this_month = usage_stats.queries_this_month + 1,
			last_updated = EXCLUDED.last_updated`,
		uuid.New(), ownerID, at,
	)
	if err != nil {
		return fmt.Errorf("increment queries: %w", err)
	}
	return nil
}

type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]models.UsageStats
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]models.UsageStats)}
}

func (m *MemoryStore) Get(_ context.Context, ownerID string) (*models.UsageStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[ownerID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) Upsert(_ context.Context, u *models.UsageStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rows[u.OwnerID]; ok {
		u.ID = existing.ID
	}
	m.rows[u.OwnerID] = *u
	return nil
}

func (m *MemoryStore) IncrementQueries(_ context.Context, ownerID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[ownerID]
	if !ok {
		u = models.UsageStats{ID: uuid.New(), OwnerID: ownerID}
	}
	u.QueriesThisMonth++
	u.LastUpdated = at
	m.rows[ownerID] = u
	return nil
}
