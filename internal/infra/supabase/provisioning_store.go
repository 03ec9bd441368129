package supabase

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// ProvisioningLog implementation: provisioning_runs
// ============================================================

func (c *Client) StartRun(ctx context.Context, run *domain.ProvisioningRun) (*domain.ProvisioningRun, error) {
	ctx, span := tracer.Start(ctx, "Supabase.StartRun")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", run.EventID))

	row := map[string]any{
		"event_id":   run.EventID,
		"user_id":    run.UserID,
		"session_id": run.SessionID,
		"amount":     run.Amount,
		"currency":   run.Currency,
		"steps":      run.Steps,
		"status":     run.Status,
		"attempts":   run.Attempts,
	}
	out, _, err := insertIfAbsent[domain.ProvisioningRun](ctx, c, "provisioning_runs", "event_id", row,
		fmt.Sprintf("provisioning_runs?event_id=%s&limit=1", eq(run.EventID)))
	return out, err
}

func (c *Client) SaveRun(ctx context.Context, run *domain.ProvisioningRun) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveRun")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", run.ID), attribute.String("status", run.Status))

	return c.update(ctx, "provisioning_runs", fmt.Sprintf("provisioning_runs?id=%s", eq(run.ID)), map[string]any{
		"steps":      run.Steps,
		"status":     run.Status,
		"last_error": run.LastError,
		"attempts":   run.Attempts,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Client) ListIncompleteRuns(ctx context.Context, olderThan time.Time, limit int) ([]domain.ProvisioningRun, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListIncompleteRuns")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}
	path := fmt.Sprintf("provisioning_runs?status=%s&updated_at=lt.%s&order=updated_at.asc&limit=%d",
		in(domain.RunRunning, domain.RunPartial),
		url.QueryEscape(olderThan.UTC().Format(time.RFC3339)),
		limit,
	)
	return fetch[domain.ProvisioningRun](ctx, c, "provisioning_runs", path)
}
