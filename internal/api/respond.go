package api

import (
	"encoding/json"
	"net/http"

	apperr "parkpulse/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error chain to its HTTP status and emits a JSON
// error body. Unmapped errors become 500 with a generic message so
// internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	status := apperr.StatusCode(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
