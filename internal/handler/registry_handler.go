package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Registry proxy
// ============================================================

// registryProxyHandler forwards one registry action. Failures use the
// envelope with success=false; registry rejections keep the registry's
// status code and carry its body in error.
func registryProxyHandler(svc *service.RegistryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/registry")
		defer span.End()

		var req domain.RegistryProxyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, domain.RegistryProxyResponse{Error: err.Error()})
			return
		}
		span.SetAttributes(attribute.String("registry.action", req.Action))

		resp, err := svc.Dispatch(ctx, &req)
		if err != nil {
			writeProxyError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeProxyError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var registry *domain.ErrRegistry
	var validation *domain.ErrValidation
	var circuitOpen *domain.ErrCircuitOpen

	switch {
	case errors.As(err, &registry):
		logger.Warn("registry rejected proxied request", zap.Int("status", registry.StatusCode))
		status := registry.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		resp := domain.RegistryProxyResponse{Error: registry.Body}
		if registry.Body == "" {
			resp.Error = err.Error()
		} else if json.Valid([]byte(registry.Body)) {
			resp.Errors = json.RawMessage(registry.Body)
		}
		writeJSON(w, status, resp)
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, domain.RegistryProxyResponse{Error: err.Error()})
	case errors.As(err, &circuitOpen):
		logger.Error("registry circuit open", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, domain.RegistryProxyResponse{Error: err.Error()})
	default:
		logger.Error("registry proxy failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, domain.RegistryProxyResponse{Error: err.Error()})
	}
}
