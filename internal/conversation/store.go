package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

type Store interface {
	Get(ctx context.Context, id string) (*models.Conversation, error)
	Save(ctx context.Context, c *models.Conversation) error
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.Conversation, error)
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Conversation, error) {
	c, err := scanConversation(s.db.QueryRow(ctx,
		`SELECT id, owner_id, messages, last_updated FROM conversations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}
	return c, nil
}

// Save inserts or replaces a conversation. An existing row held by another
// owner is left untouched and ErrForbidden is returned.
func (s *PostgresStore) Save(ctx context.Context, c *models.Conversation) error {
	msgs, err := json.Marshal(c.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO conversations (id, owner_id, messages, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET messages = EXCLUDED.messages, last_updated = EXCLUDED.last_updated
		WHERE conversations.owner_id = EXCLUDED.owner_id`,
		c.ID, c.OwnerID, msgs, c.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrForbidden
	}
	return nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.Conversation, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, messages, last_updated FROM conversations
		WHERE owner_id = $1 ORDER BY last_updated DESC LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var c models.Conversation
	var raw []byte
	if err := row.Scan(&c.ID, &c.OwnerID, &raw, &c.LastUpdated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &c.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return &c, nil
}

type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]models.Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]models.Conversation)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	c.Messages = append([]models.ChatMessage(nil), c.Messages...)
	return &c, nil
}

func (m *MemoryStore) Save(_ context.Context, c *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.convs[c.ID]; ok && existing.OwnerID != c.OwnerID {
		return apperr.ErrForbidden
	}
	cp := *c
	cp.Messages = append([]models.ChatMessage(nil), c.Messages...)
	m.convs[c.ID] = cp
	return nil
}

func (m *MemoryStore) ListByOwner(_ context.Context, ownerID string, limit int) ([]models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Conversation
	for _, c := range m.convs {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
