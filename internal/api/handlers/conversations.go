package handlers

import (
	"net/http"

	"github.com/nikhilbhutani/knowledgebase/internal/auth"
	"github.com/nikhilbhutani/knowledgebase/internal/conversation"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

type ConversationHandler struct {
	svc *conversation.Service
}

func NewConversationHandler(svc *conversation.Service) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// appendRequest accepts the question as either message or query.
type appendRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	Query          string `json:"query"`
	Response       string `json:"response"`
}

func (h *ConversationHandler) Append(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	message := req.Message
	if message == "" {
		message = req.Query
	}

	id, err := h.svc.Append(r.Context(), auth.OwnerID(r.Context()), req.ConversationID, message, req.Response)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"conversationId": id, "success": true})
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerID(r.Context())

	if id := r.URL.Query().Get("conversationId"); id != "" {
		msgs, err := h.svc.Messages(r.Context(), owner, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if msgs == nil {
			msgs = []models.ChatMessage{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
		return
	}

	recent, err := h.svc.Recent(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recent == nil {
		recent = []models.ConversationSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": recent})
}
