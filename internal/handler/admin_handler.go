package handler

import (
	"net/http"
	"strconv"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Admin reconciliation
// ============================================================

// defaultRepairLimit caps one repair sweep triggered over HTTP.
const defaultRepairLimit = 100

func listSubmissionsHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/submissions")
		defer span.End()

		rows, err := svc.ListSubmissions(ctx, r.URL.Query().Get("status"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if rows == nil {
			rows = []domain.SubmissionDetail{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data":  rows,
			"total": len(rows),
		})
	}
}

func refreshSubmissionHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/submissions/{submissionId}/refresh")
		defer span.End()

		res, err := svc.RefreshSubmission(ctx, chi.URLParam(r, "submissionId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func refreshAllHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/submissions/refresh")
		defer span.End()

		results, err := svc.RefreshAll(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if results == nil {
			results = []domain.RefreshResult{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data":  results,
			"total": len(results),
		})
	}
}

func submitBrandToRegistryHandler(svc *service.RegistryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/companies/{companyId}/registry/submit")
		defer span.End()

		sub, err := svc.SubmitLatestToRegistry(ctx, chi.URLParam(r, "companyId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

func submitCampaignToRegistryHandler(svc *service.RegistryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/companies/{companyId}/registry/campaign")
		defer span.End()

		sub, err := svc.SubmitLatestCampaign(ctx, chi.URLParam(r, "companyId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

func repairProvisioningHandler(rec *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/provisioning/repair")
		defer span.End()

		limit := defaultRepairLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				handleServiceError(w, &domain.ErrValidation{Field: "limit", Message: "must be a positive integer"}, logger)
				return
			}
			limit = n
		}

		report, err := rec.Repair(ctx, limit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func provisioningMetricsHandler(svc *service.AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.ProvisioningSnapshot())
	}
}
