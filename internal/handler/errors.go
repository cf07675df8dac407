package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkordes/tripline/internal/domain"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// notFoundBody returns an ErrorResponse for a missing resource.
// The caller supplies the human-readable message (e.g. "trip not found")
// because the handler is the layer that knows what was being looked up.
func notFoundBody(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "not_found", Message: message}}
}

// validationBody returns an ErrorResponse for a domain validation failure.
// The message is extracted from the wrapped domain.ErrValidation error.
func validationBody(err error) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: unwrapMessage(err)}}
}

// requestBody returns an ErrorResponse for a bad request rejected before
// reaching the service layer (e.g. missing or malformed body).
func requestBody(message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: "validation_error", Message: message}}
}

// commitBody returns the ErrorResponse and status for a failed save.
// Only transaction failures carry the technical detail.
func commitBody(ce *domain.CommitError) (int, ErrorResponse) {
	body := ErrorResponse{Error: ErrorDetail{Code: string(ce.Kind), Message: ce.UserMessage()}}
	switch ce.Kind {
	case domain.FailureValidation:
		return http.StatusConflict, body
	case domain.FailureGeocoding:
		return http.StatusUnprocessableEntity, body
	case domain.FailureAuthentication:
		return http.StatusUnauthorized, body
	case domain.FailureStale:
		return http.StatusConflict, body
	default:
		body.Error.Detail = ce.Error()
		return http.StatusInternalServerError, body
	}
}

// writeError maps err onto a status and error body. notFound names the
// resource for 404 responses.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var ce *domain.CommitError
	switch {
	case errors.As(err, &ce):
		status, body := commitBody(ce)
		writeJSON(w, status, body)
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: ErrorDetail{
			Code:    "save_in_progress",
			Message: "A save is already in progress. Please wait for it to finish.",
		}})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, notFoundBody(notFound))
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
	default:
		slog.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
			Code:    "internal_error",
			Message: "internal server error",
		}})
	}
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "session.Registry.Apply: validation error: unknown op \"x\"" → "unknown op \"x\""
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	prefix := domain.ErrValidation.Error() + ": "
	if i := strings.LastIndex(msg, prefix); i >= 0 && len(msg) > i+len(prefix) {
		return msg[i+len(prefix):]
	}
	return msg
}
