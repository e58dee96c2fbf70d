package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps err through the error taxonomy. 5xx details stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": apperr.Message(err)})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		slog.Debug("decode request body", "path", r.URL.Path, "error", err)
		return apperr.Invalid("invalid request body")
	}
	return nil
}
