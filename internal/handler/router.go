package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/observability"
	"github.com/boddenberg/sms-onboarding-bfa/internal/port"
	"github.com/boddenberg/sms-onboarding-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles what the router dispatches to. A nil Store disables the
// dependency probe in /healthz.
type Services struct {
	Store         port.Store
	Reconciler    *service.Reconciler
	Onboarding    *service.OnboardingService
	Registry      *service.RegistryService
	Admin         *service.AdminService
	Verifier      *TokenVerifier
	WebhookSecret string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Store))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Server-to-server; authenticated by the processor signature.
		if svc.Reconciler != nil {
			r.Post("/webhooks/payment", paymentWebhookHandler(svc.Reconciler, svc.WebhookSecret, metrics, logger))
		}

		if svc.Verifier == nil {
			return
		}

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svc.Verifier, logger))

			if svc.Registry != nil {
				r.Post("/registry", registryProxyHandler(svc.Registry, logger))
			}

			if svc.Onboarding != nil {
				r.Post("/profile/company", createCompanyHandler(svc.Onboarding, logger))
				r.Get("/onboarding/status", onboardingStatusHandler(svc.Onboarding, logger))

				// Brand and completion steps are only reachable once paid.
				r.Group(func(r chi.Router) {
					r.Use(RequirePaid(svc.Onboarding, logger))
					r.Post("/onboarding/brand", submitBrandHandler(svc.Onboarding, logger))
					r.Post("/onboarding/complete", completeOnboardingHandler(svc.Onboarding, logger))
				})
			}

			if svc.Store != nil && svc.Admin != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Use(RequireAdmin(svc.Store, logger))

					r.Get("/submissions", listSubmissionsHandler(svc.Admin, logger))
					r.Post("/submissions/refresh", refreshAllHandler(svc.Admin, logger))
					r.Post("/submissions/{submissionId}/refresh", refreshSubmissionHandler(svc.Admin, logger))
					r.Get("/provisioning/metrics", provisioningMetricsHandler(svc.Admin))

					if svc.Registry != nil {
						r.Post("/companies/{companyId}/registry/submit", submitBrandToRegistryHandler(svc.Registry, logger))
						r.Post("/companies/{companyId}/registry/campaign", submitCampaignToRegistryHandler(svc.Registry, logger))
					}
					if svc.Reconciler != nil {
						r.Post("/provisioning/repair", repairProvisioningHandler(svc.Reconciler, logger))
					}
				})
			}
		})
	})

	return r
}

// ============================================================
// Health
// ============================================================

func healthzHandler(store port.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "onboarding-api", Status: "healthy", LastChecked: now},
		}

		if store != nil {
			start := time.Now()
			err := store.Ping(r.Context())
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "store", Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
