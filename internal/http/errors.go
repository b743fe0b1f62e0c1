// Package httpapi exposes the HTTP API layer of the service: the
// presentation glue reading from and writing to the entity store.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/store"
)

// jsonError represents a JSON error payload.
type jsonError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSONError writes a JSON error payload with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonError{Error: message, Details: details})
}

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeStoreError maps store errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	WriteJSONError(w, http.StatusInternalServerError, "internal_error", err.Error())
}

// writeValidationError renders validator failures field by field.
func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		WriteJSONError(w, http.StatusBadRequest, "validation_error", f.Field()+" failed on "+f.Tag())
		return
	}
	WriteJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
}
