package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/observability"
	"github.com/boddenberg/sms-onboarding-bfa/internal/service"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Payment webhook
// ============================================================

// maxWebhookBytes matches the processor's documented payload ceiling.
const maxWebhookBytes = 65536

// Webhook outcomes recorded in metrics.
const (
	webhookReceived  = "received"
	webhookRejected  = "rejected"
	webhookIgnored   = "ignored"
	webhookProcessed = "processed"
	webhookFailed    = "failed"
)

func paymentWebhookHandler(rec *service.Reconciler, secret string, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/webhooks/payment")
		defer span.End()
		metrics.IncrWebhook(webhookReceived)

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
		if err != nil {
			metrics.IncrWebhook(webhookRejected)
			writeError(w, http.StatusBadRequest, "unreadable body")
			return
		}

		event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), secret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			metrics.IncrWebhook(webhookRejected)
			handleServiceError(w, &domain.ErrSignature{Reason: err.Error()}, logger)
			return
		}
		span.SetAttributes(
			attribute.String("event.id", event.ID),
			attribute.String("event.type", string(event.Type)),
		)

		if event.Type != stripe.EventTypeCheckoutSessionCompleted {
			metrics.IncrWebhook(webhookIgnored)
			logger.Debug("ignoring payment event", zap.String("event_id", event.ID), zap.String("type", string(event.Type)))
			writeJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}

		var session stripe.CheckoutSession
		if event.Data == nil {
			metrics.IncrWebhook(webhookFailed)
			handleServiceError(w, &domain.ErrValidation{Field: "data", Message: "missing event data"}, logger)
			return
		}
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			metrics.IncrWebhook(webhookFailed)
			handleServiceError(w, &domain.ErrValidation{Field: "data.object", Message: "malformed checkout session"}, logger)
			return
		}

		run, err := rec.HandleCheckoutCompleted(ctx, checkoutFromSession(event, &session))
		if err != nil {
			metrics.IncrWebhook(webhookFailed)
			var validation *domain.ErrValidation
			if errors.As(err, &validation) {
				handleServiceError(w, err, logger)
				return
			}
			// Store failures stay internal; the processor retries on 5xx.
			logger.Error("payment webhook failed", zap.String("event_id", event.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		metrics.IncrWebhook(webhookProcessed)
		logger.Info("payment webhook processed",
			zap.String("event_id", event.ID),
			zap.String("run_status", string(run.Status)),
		)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}

// checkoutFromSession flattens a checkout session into the reconciler's input.
// The internal user id travels in session metadata.
func checkoutFromSession(event stripe.Event, s *stripe.CheckoutSession) *domain.CheckoutCompleted {
	ev := &domain.CheckoutCompleted{
		EventID:     event.ID,
		SessionID:   s.ID,
		UserID:      s.Metadata["user_id"],
		CompanyName: s.Metadata["company_name"],
		Email:       s.CustomerEmail,
		AmountTotal: s.AmountTotal,
		Currency:    string(s.Currency),
	}
	if event.Created > 0 {
		ev.OccurredAt = time.Unix(event.Created, 0).UTC()
	}
	if s.Customer != nil {
		ev.ProcessorCustomerID = s.Customer.ID
	}
	if d := s.CustomerDetails; d != nil {
		if d.Email != "" {
			ev.Email = d.Email
		}
		ev.Name = d.Name
		ev.Phone = d.Phone
	}
	return ev
}
