package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nikhilbhutani/knowledgebase/internal/auth"
	"github.com/nikhilbhutani/knowledgebase/internal/document"
	"github.com/nikhilbhutani/knowledgebase/internal/llm"
)

const (
	debugPreview  = 200
	aiPingTimeout = 15 * time.Second
)

type DebugHandler struct {
	docs    *document.Service
	gateway llm.Gateway
	model   string
	env     map[string]bool
	now     func() time.Time
}

// NewDebugHandler takes the environment flags to report, e.g. which API
// keys are present. Values are never echoed.
func NewDebugHandler(docs *document.Service, gateway llm.Gateway, model string, env map[string]bool) *DebugHandler {
	return &DebugHandler{docs: docs, gateway: gateway, model: model, env: env, now: time.Now}
}

type check struct {
	Working        bool   `json:"working"`
	Error          string `json:"error,omitempty"`
	Response       string `json:"response,omitempty"`
	DocumentsCount *int   `json:"documentsCount,omitempty"`
	UserDocuments  *int   `json:"userDocuments,omitempty"`
}

func (h *DebugHandler) Status(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerID(r.Context())

	ai := h.pingAI(r.Context())
	db := h.checkDatabase(r.Context(), owner)

	overall := "healthy"
	if !ai.Working || !db.Working {
		overall = "issues_detected"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp": h.now().UTC(),
		"userId":    owner,
		"checks": map[string]any{
			"environment": h.env,
			"ai":          ai,
			"database":    db,
		},
		"overallHealth": overall,
	})
}

func (h *DebugHandler) pingAI(ctx context.Context) check {
	if h.gateway == nil || !h.gateway.Configured() {
		return check{Error: "API key not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, aiPingTimeout)
	defer cancel()

	resp, err := h.gateway.Chat(ctx, llm.ChatRequest{
		Model:    h.model,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Say 'Hello world' to test the API"}},
	})
	if err != nil {
		slog.Warn("ai ping failed", "model", h.model, "error", err)
		return check{Error: "AI ping failed"}
	}
	return check{Working: true, Response: clip(resp.Content, 100)}
}

func (h *DebugHandler) checkDatabase(ctx context.Context, owner string) check {
	total, err := h.docs.Count(ctx)
	if err != nil {
		slog.Warn("database check failed", "error", err)
		return check{Error: "database check failed"}
	}
	mine, err := h.docs.List(ctx, owner, "")
	if err != nil {
		slog.Warn("database check failed", "error", err)
		return check{Error: "database check failed"}
	}
	n := len(mine)
	return check{Working: true, DocumentsCount: &total, UserDocuments: &n}
}

type documentPreview struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Type           string    `json:"type"`
	Source         string    `json:"source"`
	ContentLength  int       `json:"contentLength"`
	ContentPreview string    `json:"contentPreview"`
	HasFileData    bool      `json:"hasFileData"`
	UserID         string    `json:"userId"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (h *DebugHandler) Documents(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerID(r.Context())

	total, err := h.docs.Count(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	mine, err := h.docs.List(r.Context(), owner, "")
	if err != nil {
		writeError(w, r, err)
		return
	}

	previews := make([]documentPreview, 0, len(mine))
	for _, d := range mine {
		text := d.Content.PlainText()
		p := documentPreview{
			ID:             d.ID.String(),
			Title:          d.Title,
			Type:           string(d.Type),
			Source:         d.Source,
			ContentLength:  len(d.Content.Raw()),
			ContentPreview: "No content",
			HasFileData:    d.Content.IsPDF(),
			UserID:         d.OwnerID,
			CreatedAt:      d.CreatedAt,
		}
		if text != "" {
			p.ContentPreview = clip(text, debugPreview) + "..."
		}
		previews = append(previews, p)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totalDocuments": total,
		"userDocuments":  len(mine),
		"currentUserId":  owner,
		"documents":      previews,
	})
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
