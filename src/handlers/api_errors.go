package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/monbudget/backend/src/logger"
	"github.com/username/monbudget/backend/src/security/validation"
	"github.com/username/monbudget/backend/src/services"
)

// sendServiceError maps service errors onto HTTP status codes. Storage
// failures are logged with detail and reported generically.
func sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var refErr *services.ReferenceError
	switch {
	case errors.Is(err, validation.ErrValidationFailed),
		errors.Is(err, services.ErrInvalidDeleteMode):
		sendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrRecurrenceNotFound),
		errors.Is(err, services.ErrTransactionNotFound),
		errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrCategoryNotFound):
		sendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrRecurrenceInactive),
		errors.Is(err, services.ErrRecurrenceExhausted),
		errors.Is(err, services.ErrAlreadyRecurring),
		errors.Is(err, services.ErrConcurrencyConflict),
		errors.As(err, &refErr):
		sendJSONError(w, err.Error(), http.StatusConflict)
	default:
		logger.FromContext(r.Context()).Error("Request failed", "path", r.URL.Path, "error", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// pathID parses a positive int64 URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt reads an integer query parameter, returning fallback when absent or malformed.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
