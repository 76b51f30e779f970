// Package handlers contains HTTP handlers for the civicweb gateway.
// Handlers parse requests, call the backend through the service layer, and
// return JSON view models; page-level failures become one-shot notices
// rendered as transient toasts.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/civictide/civicweb/internal/backend"
	"github.com/go-playground/validator/v10"
)

// Helper: respond with JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper: respond with an error message
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondBackendError surfaces a failed backend call once, using the
// backend's message when present, else the fallback. No retry happens here
// or anywhere else.
func respondBackendError(w http.ResponseWriter, err error, fallback string) {
	status := http.StatusBadGateway
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	respondError(w, status, backend.Message(err, fallback))
}

// respondValidationError reports the first failed field check in plain words.
func respondValidationError(w http.ResponseWriter, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			respondError(w, http.StatusBadRequest, field+" is required")
		case "email":
			respondError(w, http.StatusBadRequest, "please enter a valid email address")
		case "min":
			respondError(w, http.StatusBadRequest, field+" must be at least "+fe.Param()+" characters")
		default:
			respondError(w, http.StatusBadRequest, field+" is invalid")
		}
		return
	}
	respondError(w, http.StatusBadRequest, "invalid input")
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(dst)
}
