package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// BillingStore implementation: conditional inserts on natural keys
// ============================================================

func (c *Client) EnsureCustomer(ctx context.Context, cu *domain.Customer) (*domain.Customer, bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.EnsureCustomer")
	defer span.End()

	row := map[string]any{
		"email":        cu.Email,
		"company_name": cu.CompanyName,
		"platform":     cu.Platform,
		"type":         cu.Type,
		"status":       cu.Status,
	}
	out, created, err := insertIfAbsent[domain.Customer](ctx, c, "customers", "email", row,
		fmt.Sprintf("customers?email=%s&limit=1", eq(cu.Email)))
	span.SetAttributes(attribute.Bool("created", created))
	return out, created, err
}

func (c *Client) EnsureSubscription(ctx context.Context, s *domain.Subscription) (*domain.Subscription, bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.EnsureSubscription")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", s.CustomerID))

	row := map[string]any{
		"customer_id":          s.CustomerID,
		"plan_name":            s.PlanName,
		"status":               s.Status,
		"current_period_start": s.CurrentPeriodStart.UTC().Format(time.RFC3339),
		"current_period_end":   s.CurrentPeriodEnd.UTC().Format(time.RFC3339),
	}
	return insertIfAbsent[domain.Subscription](ctx, c, "subscriptions", "customer_id", row,
		fmt.Sprintf("subscriptions?customer_id=%s&limit=1", eq(s.CustomerID)))
}

func (c *Client) EnsureCustomerAccess(ctx context.Context, a *domain.CustomerAccess) (*domain.CustomerAccess, bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.EnsureCustomerAccess")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", a.CustomerID))

	row := map[string]any{
		"customer_id":          a.CustomerID,
		"platform_user_id":     a.PlatformUserID,
		"access_level":         a.AccessLevel,
		"onboarding_completed": a.OnboardingCompleted,
	}
	return insertIfAbsent[domain.CustomerAccess](ctx, c, "customer_access", "customer_id", row,
		fmt.Sprintf("customer_access?customer_id=%s&limit=1", eq(a.CustomerID)))
}
