package document

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

// MemoryStore keeps documents in-process. Used in tests and when no
// DATABASE_URL is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[uuid.UUID]models.Document
	orders []uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[uuid.UUID]models.Document)}
}

func (m *MemoryStore) Create(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[doc.ID]; !exists {
		m.orders = append(m.orders, doc.ID)
	}
	m.docs[doc.ID] = *doc
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &d, nil
}

// List returns newest first.
func (m *MemoryStore) List(_ context.Context, f ListFilter) ([]models.Document, error) {
	limit := f.Limit
	if limit <= 0 || limit > PageSize {
		limit = PageSize
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []models.Document{}
	for i := len(m.orders) - 1; i >= 0 && len(res) < limit; i-- {
		d, ok := m.docs[m.orders[i]]
		if !ok {
			continue
		}
		if f.OwnerID != "" && d.OwnerID != f.OwnerID {
			continue
		}
		if f.Type != "" && d.Type != f.Type {
			continue
		}
		res = append(res, d)
	}
	return res, nil
}

func (m *MemoryStore) Update(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.docs[doc.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	existing.Title = doc.Title
	existing.Content = doc.Content
	existing.LastUpdated = doc.LastUpdated
	m.docs[doc.ID] = existing
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.docs, id)
	for i, oid := range m.orders {
		if oid == id {
			m.orders = append(m.orders[:i], m.orders[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}
