package sqlite

import (
	"context"
	"fmt"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"

	"github.com/google/uuid"
)

// EnsureCustomer inserts the customer unless one exists for the email.
func (s *Store) EnsureCustomer(ctx context.Context, c *domain.Customer) (*domain.Customer, bool, error) {
	ctx, span := tracer.Start(ctx, "SQLite.EnsureCustomer")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
INSERT INTO customers (id, email, company_name, platform, type, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (email) DO NOTHING`,
		uuid.NewString(), c.Email, c.CompanyName, c.Platform, c.Type, c.Status, millis(s.now()))
	if err != nil {
		return nil, false, fmt.Errorf("ensure customer: %w", err)
	}
	created, _ := res.RowsAffected()

	var (
		out       domain.Customer
		createdAt int64
	)
	err = s.db.QueryRowContext(ctx, `
SELECT id, email, company_name, platform, type, status, created_at
FROM customers WHERE email = ?`, c.Email).
		Scan(&out.ID, &out.Email, &out.CompanyName, &out.Platform, &out.Type, &out.Status, &createdAt)
	if err != nil {
		return nil, false, fmt.Errorf("read customer: %w", err)
	}
	out.CreatedAt = fromMillis(createdAt)
	return &out, created > 0, nil
}

// EnsureSubscription inserts the subscription unless the customer has one.
func (s *Store) EnsureSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, bool, error) {
	ctx, span := tracer.Start(ctx, "SQLite.EnsureSubscription")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
INSERT INTO subscriptions (id, customer_id, plan_name, status, current_period_start, current_period_end, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (customer_id) DO NOTHING`,
		uuid.NewString(), sub.CustomerID, sub.PlanName, sub.Status,
		millis(sub.CurrentPeriodStart), millis(sub.CurrentPeriodEnd), millis(s.now()))
	if err != nil {
		return nil, false, fmt.Errorf("ensure subscription: %w", err)
	}
	created, _ := res.RowsAffected()

	var (
		out                   domain.Subscription
		start, end, createdAt int64
	)
	err = s.db.QueryRowContext(ctx, `
SELECT id, customer_id, plan_name, status, current_period_start, current_period_end, created_at
FROM subscriptions WHERE customer_id = ?`, sub.CustomerID).
		Scan(&out.ID, &out.CustomerID, &out.PlanName, &out.Status, &start, &end, &createdAt)
	if err != nil {
		return nil, false, fmt.Errorf("read subscription: %w", err)
	}
	out.CurrentPeriodStart = fromMillis(start)
	out.CurrentPeriodEnd = fromMillis(end)
	out.CreatedAt = fromMillis(createdAt)
	return &out, created > 0, nil
}

// EnsureCustomerAccess inserts the access grant unless the customer has one.
func (s *Store) EnsureCustomerAccess(ctx context.Context, a *domain.CustomerAccess) (*domain.CustomerAccess, bool, error) {
	ctx, span := tracer.Start(ctx, "SQLite.EnsureCustomerAccess")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
INSERT INTO customer_access (id, customer_id, platform_user_id, access_level, onboarding_completed, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (customer_id) DO NOTHING`,
		uuid.NewString(), a.CustomerID, a.PlatformUserID, a.AccessLevel, boolInt(a.OnboardingCompleted), millis(s.now()))
	if err != nil {
		return nil, false, fmt.Errorf("ensure customer access: %w", err)
	}
	created, _ := res.RowsAffected()

	var (
		out       domain.CustomerAccess
		completed int
		createdAt int64
	)
	err = s.db.QueryRowContext(ctx, `
SELECT id, customer_id, platform_user_id, access_level, onboarding_completed, created_at
FROM customer_access WHERE customer_id = ?`, a.CustomerID).
		Scan(&out.ID, &out.CustomerID, &out.PlatformUserID, &out.AccessLevel, &completed, &createdAt)
	if err != nil {
		return nil, false, fmt.Errorf("read customer access: %w", err)
	}
	out.OnboardingCompleted = completed != 0
	out.CreatedAt = fromMillis(createdAt)
	return &out, created > 0, nil
}
