// Package httpapi exposes the HTTP API layer of the service.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/inventory-pos-service/internal/sales"
)

// jsonError represents a JSON error payload.
type jsonError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// WriteJSONError writes a JSON error payload with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonError{Error: message, Detail: detail})
}

// writeSaleError maps the sales error taxonomy onto status codes.
func writeSaleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sales.ErrValidation):
		WriteJSONError(w, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, sales.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, sales.ErrInsufficientStock):
		WriteJSONError(w, http.StatusBadRequest, err.Error(), "")
	default:
		WriteJSONError(w, http.StatusInternalServerError, "db error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
