package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"

	"github.com/google/uuid"
)

const profileColumns = `id, email, full_name, phone, payment_status, payment_date,
	stripe_customer_id, stripe_session_id, company_id, created_at, updated_at`

func scanProfile(row scanner) (*domain.Profile, error) {
	var (
		p                    domain.Profile
		status               string
		paidAt               sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &status, &paidAt,
		&p.ProcessorCustomerID, &p.ProcessorSessionID, &p.CompanyID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.PaymentStatus = domain.ParsePaymentStatus(status)
	p.PaymentDate = fromNullMillis(paidAt)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

// GetProfile returns the profile or nil when absent.
func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetProfile")
	defer span.End()

	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, userID))
	if err != nil {
		return nil, noRows(err)
	}
	return p, nil
}

// CreateProfile inserts a profile row.
func (s *Store) CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateProfile")
	defer span.End()

	if p.ID == "" {
		return nil, &domain.ErrValidation{Field: "id", Message: "required"}
	}
	status := p.PaymentStatus
	if status == "" {
		status = domain.PaymentPending
	}
	now := millis(s.now())
	_, err := s.db.ExecContext(ctx, `
INSERT INTO profiles (id, email, full_name, phone, payment_status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Email, p.FullName, p.Phone, string(status), now, now)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return s.GetProfile(ctx, p.ID)
}

// MarkProfilePaid records a completed payment on the profile.
func (s *Store) MarkProfilePaid(ctx context.Context, userID string, upd domain.PaymentUpdate) error {
	ctx, span := tracer.Start(ctx, "SQLite.MarkProfilePaid")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
UPDATE profiles
SET payment_status = ?, payment_date = ?, stripe_customer_id = ?, stripe_session_id = ?, updated_at = ?
WHERE id = ?`,
		string(domain.PaymentPaid), millis(upd.PaidAt), upd.ProcessorCustomerID, upd.ProcessorSessionID,
		millis(s.now()), userID)
	if err != nil {
		return fmt.Errorf("mark profile paid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	return nil
}

// EnsureUserRole grants role to userID unless the grant exists.
func (s *Store) EnsureUserRole(ctx context.Context, userID, role string) (*domain.UserRole, bool, error) {
	ctx, span := tracer.Start(ctx, "SQLite.EnsureUserRole")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
INSERT INTO user_roles (id, user_id, role, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT (user_id, role) DO NOTHING`,
		uuid.NewString(), userID, role, millis(s.now()))
	if err != nil {
		return nil, false, fmt.Errorf("ensure user role: %w", err)
	}
	created, _ := res.RowsAffected()

	var (
		r         domain.UserRole
		createdAt int64
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, user_id, role, created_at FROM user_roles WHERE user_id = ? AND role = ?`, userID, role).
		Scan(&r.ID, &r.UserID, &r.Role, &createdAt)
	if err != nil {
		return nil, false, fmt.Errorf("read user role: %w", err)
	}
	r.CreatedAt = fromMillis(createdAt)
	return &r, created > 0, nil
}

// HasUserRole reports whether userID holds role.
func (s *Store) HasUserRole(ctx context.Context, userID, role string) (bool, error) {
	ctx, span := tracer.Start(ctx, "SQLite.HasUserRole")
	defer span.End()

	var found int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM user_roles WHERE user_id = ? AND role = ?`, userID, role).Scan(&found)
	if err != nil {
		if noRows(err) == nil {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
