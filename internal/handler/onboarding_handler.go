package handler

import (
	"net/http"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Onboarding
// ============================================================

func onboardingStatusHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/onboarding/status")
		defer span.End()

		status, err := svc.Status(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func createCompanyHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/profile/company")
		defer span.End()

		var body struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		company, err := svc.CreateCompany(ctx, UserIDFromContext(ctx), body.Name)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, company)
	}
}

func submitBrandHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/brand")
		defer span.End()

		var form domain.BrandForm
		if err := decodeJSON(w, r, &form); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		sub, err := svc.SubmitBrand(ctx, UserIDFromContext(ctx), &form)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	}
}

func completeOnboardingHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/complete")
		defer span.End()

		status, err := svc.CompleteOnboarding(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}
