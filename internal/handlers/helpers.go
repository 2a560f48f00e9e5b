package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/scrutor/internal/models"
)

type contextKey string

// userContextKey carries the authenticated user resolved by the API-key
// middleware.
const userContextKey contextKey = "user"

// WithUser attaches the authenticated user to the request context
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFrom extracts the authenticated user from the request context
func UserFrom(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	return user, ok
}

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteDomainError maps a service error to the right status code.
// Attribute faults are client errors, not-found hides cross-organization
// reads, and the rate limit gets 429.
func WriteDomainError(w http.ResponseWriter, err error) error {
	var checkErr *models.AttributeCheckingError
	var attrErr *models.AttributeError

	switch {
	case errors.Is(err, models.ErrNotFound):
		return WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrRateLimitExceeded):
		return WriteError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &checkErr), errors.As(err, &attrErr):
		return WriteError(w, http.StatusBadRequest, err.Error())
	default:
		return WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
