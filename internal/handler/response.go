package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError so the API has one
// shape for successes and one for failures:
//
//	{"error": "precondition_failed", "message": "Please upload or load a resume first."}
//
// The frontend can always read .message and show it as-is.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/resumatch/internal/apperror"
)

// errNoSession means auth.LoadSession is missing from the middleware chain.
var errNoSession = errors.New("no session in request context")

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the body is written.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation   → 400   ErrPrecondition → 412
//	ErrUnauthorized → 401   ErrPreprocess   → 422
//	ErrNotFound     → 404   ErrUpstream     → 502
//	ErrConflict     → 409
//
// Another user's résumé is reported as ErrNotFound, never as 403, so ids
// owned by someone else cannot be told apart from ids that do not exist.
//
// Anything that is not an *AppError is a store or internal failure: it is
// logged with its detail and the client only sees a generic message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError

	if errors.As(err, &appErr) {
		status, errorType := classify(err)

		if appErr.Cause != nil && status >= http.StatusInternalServerError {
			logger.Error("upstream failure",
				slog.String("message", appErr.Message),
				slog.String("cause", appErr.Cause.Error()),
			)
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// NEVER expose internal error details to the client: the raw message may
	// contain SQL or file paths.
	logger.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrPrecondition):
		return http.StatusPreconditionFailed, "precondition_failed"
	case errors.Is(err, apperror.ErrPreprocess):
		return http.StatusUnprocessableEntity, "preprocess_error"
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON reads a JSON request body into dst. Bodies over maxBytes and
// malformed JSON are reported as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}
