package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/auth"
	"github.com/nikhilbhutani/knowledgebase/internal/document"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
)

type DocumentHandler struct {
	svc *document.Service
}

func NewDocumentHandler(svc *document.Service) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type createDocumentRequest struct {
	Title   string              `json:"title"`
	Type    models.DocumentType `json:"type"`
	Source  string              `json:"source"`
	Content models.Content      `json:"content"`
}

type updateDocumentRequest struct {
	Title   *string         `json:"title"`
	Content *models.Content `json:"content"`
}

func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	doc, err := h.svc.Create(r.Context(), auth.OwnerID(r.Context()), document.CreateRequest{
		Title:   req.Title,
		Type:    req.Type,
		Source:  req.Source,
		Content: req.Content,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docType := models.DocumentType(r.URL.Query().Get("type"))

	docs, err := h.svc.List(r.Context(), auth.OwnerID(r.Context()), docType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	writeJSON(w, http.StatusOK, docs)
}

// Get fills in the body of an empty web document before returning it.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.svc.Backfill(r.Context(), auth.OwnerID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	var req updateDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	doc, err := h.svc.Update(r.Context(), auth.OwnerID(r.Context()), id, models.DocumentPatch{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), auth.OwnerID(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func documentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apperr.Invalid("invalid document ID"))
		return uuid.Nil, false
	}
	return id, true
}
