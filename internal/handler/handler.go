// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/picvault/picvault/internal/auth"
	"github.com/picvault/picvault/internal/handler/dto"
	"github.com/picvault/picvault/internal/service"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Handler serves the endpoints that have no dependencies.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Root reports the service name and version.
// GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Picvault API",
		"version": Version,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.MessageResponse{Message: message})
}

// decodeJSON reads a JSON body into v. Unknown fields are ignored.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// writeDecodeError reports a decodeJSON failure. A body cut off by
// http.MaxBytesReader is 413; anything else is a malformed request.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeMessage(w, http.StatusBadRequest, "invalid request body")
}

// errorStatuses maps service errors to HTTP statuses. The response message is
// the sentinel's text unless overridden.
var errorStatuses = []struct {
	err     error
	status  int
	message string
}{
	{service.ErrInvalidEmail, http.StatusBadRequest, ""},
	{service.ErrInvalidUsername, http.StatusBadRequest, ""},
	{service.ErrPasswordTooShort, http.StatusBadRequest, ""},
	{service.ErrMissingCredentials, http.StatusBadRequest, ""},
	{service.ErrMissingPassword, http.StatusBadRequest, ""},
	{service.ErrInvalidPictureURL, http.StatusBadRequest, ""},
	{service.ErrMissingPublicID, http.StatusBadRequest, ""},
	{service.ErrEmptyQuery, http.StatusBadRequest, ""},
	{service.ErrNoFile, http.StatusBadRequest, ""},
	{service.ErrUnsupportedType, http.StatusBadRequest, ""},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, ""},
	{service.ErrWrongPassword, http.StatusUnauthorized, ""},
	{auth.ErrTokenExpired, http.StatusUnauthorized, "token expired"},
	{auth.ErrTokenInvalid, http.StatusUnauthorized, "invalid token"},
	{service.ErrForbidden, http.StatusForbidden, ""},
	{service.ErrUserNotFound, http.StatusNotFound, ""},
	{service.ErrImageNotFound, http.StatusNotFound, ""},
	{service.ErrEmailTaken, http.StatusBadRequest, ""},
	{service.ErrUsernameTaken, http.StatusBadRequest, ""},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, ""},
}

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	for _, m := range errorStatuses {
		if !errors.Is(err, m.err) {
			continue
		}
		msg := m.message
		if msg == "" {
			msg = m.err.Error()
		}
		writeMessage(w, m.status, msg)
		return
	}

	logger.ErrorContext(r.Context(), "internal_error",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeMessage(w, http.StatusInternalServerError, "internal server error")
}
