package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/chat"
	"github.com/nikhilbhutani/knowledgebase/internal/llm"
)

type ChatHandler struct {
	svc *chat.Service
}

func NewChatHandler(svc *chat.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	reply, err := h.svc.Reply(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
	case errors.Is(err, apperr.ErrInvalidInput):
		writeError(w, r, err)
	case errors.Is(err, llm.ErrNoProvider):
		slog.Error("chat without AI provider", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Missing GOOGLE_GENAI_API_KEY"})
	default:
		slog.Error("chat failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate a reply"})
	}
}
