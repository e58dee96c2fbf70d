package handlers

import (
	"net/http"

	"github.com/nikhilbhutani/knowledgebase/internal/auth"
	"github.com/nikhilbhutani/knowledgebase/internal/models"
	"github.com/nikhilbhutani/knowledgebase/internal/stats"
)

type StatsHandler struct {
	svc *stats.Service
}

func NewStatsHandler(svc *stats.Service) *StatsHandler {
	return &StatsHandler{svc: svc}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *StatsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var c models.UsageCounters
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.svc.Update(r.Context(), auth.OwnerID(r.Context()), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
