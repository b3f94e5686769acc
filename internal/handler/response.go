package handler

// RESPONSE HELPERS:
// Every error response from the API has the same shape:
//
//	{"error": "User already exists with this email", "statusCode": 409}
//
// The error field carries the human-readable message clients display; the
// optional message field carries extra detail (internal detail only in
// development mode). Handlers never write status codes or error bodies by
// hand — they call writeJSON / writeError so the shape stays uniform.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/afyapp/backend/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"statusCode"`
}

// writeJSON sends a JSON response with the given status code.
// Headers must be set before WriteHeader, and WriteHeader before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent — we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status and sends it.
//
// The service layer returns apperror sentinels; this is the single place
// they become status codes. Anything that doesn't match the taxonomy is an
// unexpected internal failure: the client gets a generic 500, and the raw
// error detail is included only when dev is true — production responses
// never leak storage or provider internals.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, dev bool) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
		}

		writeJSON(w, status, ErrorResponse{
			Error:      appErr.Message,
			StatusCode: status,
		})
		return
	}

	logger.Error("unexpected internal error", slog.String("error", err.Error()))

	resp := ErrorResponse{
		Error:      "Internal Server Error",
		StatusCode: http.StatusInternalServerError,
	}
	if dev {
		resp.Message = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

// writeValidationError is a shortcut for request-shape problems detected in
// the handler itself (missing fields, malformed JSON).
func writeValidationError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:      message,
		StatusCode: http.StatusBadRequest,
	})
}
