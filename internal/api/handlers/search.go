package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/auth"
	"github.com/nikhilbhutani/knowledgebase/internal/search"
)

type SearchHandler struct {
	svc      *search.Service
	digester *search.ServiceDigester
}

func NewSearchHandler(svc *search.Service, digester *search.ServiceDigester) *SearchHandler {
	return &SearchHandler{svc: svc, digester: digester}
}

type searchRequest struct {
	Query string `json:"query"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id, _ := auth.IdentityFromContext(r.Context())
	resp, err := h.svc.Search(r.Context(), id.OwnerID, id.Name, req.Query)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeError(w, r, err)
			return
		}
		slog.Error("search failed", "owner_id", id.OwnerID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Search failed"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Services digests the caller's saved websites. The query is optional and
// only echoed into the log.
func (h *SearchHandler) Services(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	owner := auth.OwnerID(r.Context())
	slog.Info("service digest requested", "owner_id", owner, "query", req.Query)

	digest, err := h.digester.Digest(r.Context(), owner)
	if err != nil {
		slog.Error("service digest failed", "owner_id", owner, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Search failed"})
		return
	}

	writeJSON(w, http.StatusOK, digest)
}
