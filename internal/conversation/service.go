package conversation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

const (
	RecentLimit   = 20
	previewLength = 100
)

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Append records one question and its answer. An empty id starts a new
// conversation; an unknown id is created under the caller.
func (s *Service) Append(ctx context.Context, ownerID, id, message, response string) (string, error) {
	if ownerID == "" {
		return "", apperr.ErrUnauthorized
	}
	if strings.TrimSpace(message) == "" {
		return "", apperr.Invalid("message is required")
	}

	var conv *models.Conversation
	if id != "" {
		existing, err := s.store.Get(ctx, id)
		switch {
		case err == nil:
			if existing.OwnerID != ownerID {
				return "", apperr.ErrForbidden
			}
			conv = existing
		case !errors.Is(err, apperr.ErrNotFound):
			return "", err
		}
	} else {
		id = uuid.NewString()
	}
	if conv == nil {
		conv = &models.Conversation{ID: id, OwnerID: ownerID}
	}

	now := s.now().UTC()
	conv.Messages = append(conv.Messages,
		models.ChatMessage{Role: models.RoleUser, Content: message, Timestamp: now},
		models.ChatMessage{Role: models.RoleAssistant, Content: response, Timestamp: now},
	)
	conv.LastUpdated = now
	if err := s.store.Save(ctx, conv); err != nil {
		return "", fmt.Errorf("save conversation: %w", err)
	}
	return conv.ID, nil
}

// Messages returns one conversation ordered by timestamp.
func (s *Service) Messages(ctx context.Context, ownerID, id string) ([]models.ChatMessage, error) {
	if ownerID == "" {
		return nil, apperr.ErrUnauthorized
	}
	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.OwnerID != ownerID {
		return nil, apperr.ErrForbidden
	}
	msgs := conv.Messages
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	return msgs, nil
}

// Recent summarizes the caller's latest conversations.
func (s *Service) Recent(ctx context.Context, ownerID string) ([]models.ConversationSummary, error) {
	if ownerID == "" {
		return nil, apperr.ErrUnauthorized
	}
	convs, err := s.store.ListByOwner(ctx, ownerID, RecentLimit)
	if err != nil {
		return nil, err
	}

	out := make([]models.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		sum := models.ConversationSummary{ID: c.ID, LastUpdated: c.LastUpdated}
		for i := len(c.Messages) - 1; i >= 0; i-- {
			m := c.Messages[i]
			if m.Role == models.RoleAssistant && sum.LastResponse == "" {
				sum.LastResponse = preview(m.Content)
			}
			if m.Role == models.RoleUser && sum.LastMessage == "" {
				sum.LastMessage = m.Content
			}
		}
		out = append(out, sum)
	}
	return out, nil
}

func preview(s string) string {
	if len(s) > previewLength {
		s = strings.ToValidUTF8(s[:previewLength], "")
	}
	return s + "..."
}
