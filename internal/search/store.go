package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

// ResultStore persists answered queries.
type ResultStore interface {
	Save(ctx context.Context, r *models.SearchResult) error
	Count(ctx context.Context) (int, error)
}

type PostgresResultStore struct {
	db *pgxpool.Pool
}

func NewPostgresResultStore(db *pgxpool.Pool) *PostgresResultStore {
	return &PostgresResultStore{db: db}
}

func (s *PostgresResultStore) Save(ctx context.Context, r *models.SearchResult) error {
	sources, err := json.Marshal(r.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO search_results (id, owner_id, question, answer, sources, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.OwnerID, r.Question, r.Answer, sources, r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert search result: %w", err)
	}
	return nil
}

func (s *PostgresResultStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM search_results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count search results: %w", err)
	}
	return n, nil
}

type MemoryResultStore struct {
	mu      sync.Mutex
	results []models.SearchResult
}

func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{}
}

func (m *MemoryResultStore) Save(_ context.Context, r *models.SearchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, *r)
	return nil
}

func (m *MemoryResultStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results), nil
}

// All returns a copy of the saved results in insertion order.
func (m *MemoryResultStore) All() []models.SearchResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SearchResult(nil), m.results...)
}
