package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// ProfileStore implementation: profiles & user_roles
// ============================================================

func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	p, err := fetchOne[domain.Profile](ctx, c, "profiles", fmt.Sprintf("profiles?id=%s&limit=1", eq(userID)))
	if err != nil || p == nil {
		return nil, err
	}
	p.PaymentStatus = domain.ParsePaymentStatus(string(p.PaymentStatus))
	return p, nil
}

func (c *Client) CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", p.ID))

	status := p.PaymentStatus
	if status == "" {
		status = domain.PaymentPending
	}
	row := map[string]any{
		"id":             p.ID,
		"email":          p.Email,
		"full_name":      p.FullName,
		"phone":          p.Phone,
		"payment_status": string(status),
	}
	return insert[domain.Profile](ctx, c, "profiles", row)
}

func (c *Client) MarkProfilePaid(ctx context.Context, userID string, upd domain.PaymentUpdate) error {
	ctx, span := tracer.Start(ctx, "Supabase.MarkProfilePaid")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	return c.update(ctx, "profiles", fmt.Sprintf("profiles?id=%s", eq(userID)), map[string]any{
		"payment_status":     string(domain.PaymentPaid),
		"payment_date":       upd.PaidAt.UTC().Format(time.RFC3339),
		"stripe_customer_id": upd.ProcessorCustomerID,
		"stripe_session_id":  upd.ProcessorSessionID,
		"updated_at":         time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Client) EnsureUserRole(ctx context.Context, userID, role string) (*domain.UserRole, bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.EnsureUserRole")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("role", role))

	row := map[string]any{"user_id": userID, "role": role}
	existing := fmt.Sprintf("user_roles?user_id=%s&role=%s&limit=1", eq(userID), eq(role))
	return insertIfAbsent[domain.UserRole](ctx, c, "user_roles", "user_id,role", row, existing)
}

func (c *Client) HasUserRole(ctx context.Context, userID, role string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.HasUserRole")
	defer span.End()

	r, err := fetchOne[domain.UserRole](ctx, c, "user_roles",
		fmt.Sprintf("user_roles?user_id=%s&role=%s&limit=1", eq(userID), eq(role)))
	if err != nil {
		return false, err
	}
	return r != nil, nil
}
