// ABOUTME: JSON response helpers for the HTTP API.
// ABOUTME: Wraps successes in an envelope and maps typed service errors to status codes.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/2389-research/streakhub/internal/errs"
	"github.com/2389-research/streakhub/internal/logger"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessEnvelope wraps every 2xx body.
type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

func writeSuccess(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(SuccessEnvelope{Success: true, Data: data}); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode success response", "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Code: code, Message: message}); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode error response", "err", err, "status", status, "code", code)
	}
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var (
		validation *errs.ValidationError
		notFound   *errs.NotFoundError
		conflict   *errs.ConflictError
		external   *errs.ExternalServiceError
	)
	switch {
	case errors.As(err, &validation):
		log.Warn("validation failed", "err", validation.Message)
		writeError(w, r, http.StatusBadRequest, "invalid_input", validation.Message)

	case errors.As(err, &notFound):
		log.Warn("resource not found", "err", notFound.Message)
		writeError(w, r, http.StatusNotFound, "not_found", notFound.Message)

	case errors.As(err, &conflict):
		log.Warn("request conflicts with current state", "err", conflict.Message)
		writeError(w, r, http.StatusConflict, "busy", conflict.Message)

	case errors.As(err, &external):
		status := http.StatusBadGateway
		if external.Transient {
			status = http.StatusServiceUnavailable
		}
		log.Error("external service error", "service", external.Service, "transient", external.Transient, "err", external.Message)
		writeError(w, r, status, "service_unavailable", external.Message)

	default:
		log.Error("unexpected error", "err", err, "type", fmt.Sprintf("%T", err))
		writeError(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
