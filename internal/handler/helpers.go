package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error    string `json:"error"`
	Field    string `json:"field,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &domain.ErrValidation{Field: "body", Message: "invalid request body"}
	}
	return nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var validation *domain.ErrValidation
	var precondition *domain.ErrPrecondition
	var transition *domain.ErrInvalidTransition
	var registry *domain.ErrRegistry
	var external *domain.ErrExternalService
	var signature *domain.ErrSignature
	var forbidden *domain.ErrForbidden
	var unauthorized *domain.ErrUnauthorized
	var conflict *domain.ErrConflict

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: validation.Field})
	case errors.As(err, &signature):
		logger.Warn("signature rejected", zap.String("reason", signature.Reason))
		writeError(w, http.StatusBadRequest, "invalid signature")
	case errors.As(err, &precondition):
		logger.Debug("precondition failed", zap.String("error", err.Error()), zap.String("redirect", precondition.Redirect))
		writeJSON(w, http.StatusPreconditionFailed, errorResponse{Error: err.Error(), Redirect: precondition.Redirect})
	case errors.As(err, &transition):
		logger.Debug("invalid transition", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &registry):
		logger.Warn("registry rejected request", zap.Int("status", registry.StatusCode), zap.String("body", registry.Body))
		writeError(w, http.StatusBadGateway, registry.Body)
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
