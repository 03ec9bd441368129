package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"

	"github.com/google/uuid"
)

const companyColumns = `id, name, legal_company_name, dba_name, tax_number_ein, tax_issuing_country,
	country_of_registration, address_street, address_city, address_state, address_postal_code,
	address_country, website, business_phone, vertical_type, legal_form, registry_brand_id,
	brand_verification_status, brand_verification_date, created_at, updated_at`

func scanCompany(row scanner) (*domain.Company, error) {
	var (
		c                    domain.Company
		status               string
		verifiedAt           sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.LegalName, &c.DBAName, &c.TaxNumber, &c.TaxIssuingCountry,
		&c.CountryOfRegistration, &c.Street, &c.City, &c.State, &c.PostalCode,
		&c.Country, &c.Website, &c.BusinessPhone, &c.VerticalType, &c.LegalForm, &c.RegistryBrandID,
		&status, &verifiedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.BrandVerificationStatus = domain.BrandStatus(status)
	c.BrandVerificationDate = fromNullMillis(verifiedAt)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return &c, nil
}

// GetCompany returns the company or nil when absent.
func (s *Store) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetCompany")
	defer span.End()

	c, err := scanCompany(s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = ?`, companyID))
	if err != nil {
		return nil, noRows(err)
	}
	return c, nil
}

// GetPrimaryCompanyForUser resolves the user's primary company link.
func (s *Store) GetPrimaryCompanyForUser(ctx context.Context, userID string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetPrimaryCompanyForUser")
	defer span.End()

	var companyID string
	err := s.db.QueryRowContext(ctx, `
SELECT company_id FROM user_company_roles
WHERE user_id = ?
ORDER BY is_primary DESC, created_at ASC
LIMIT 1`, userID).Scan(&companyID)
	if err != nil {
		return nil, noRows(err)
	}
	return s.GetCompany(ctx, companyID)
}

// CreateCompany inserts a company, links userID as its primary owner and
// points the profile at it, in one transaction.
func (s *Store) CreateCompany(ctx context.Context, userID string, c *domain.Company) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateCompany")
	defer span.End()

	status := c.BrandVerificationStatus
	if status == "" {
		status = domain.BrandPending
	}
	id := uuid.NewString()
	now := millis(s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create company: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO companies (id, name, brand_verification_status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`, id, c.Name, string(status), now, now); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO user_company_roles (id, user_id, company_id, role, is_primary, created_at)
VALUES (?, ?, ?, ?, 1, ?)`, uuid.NewString(), userID, id, string(domain.CompanyOwner), now); err != nil {
		return nil, fmt.Errorf("link company: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE profiles SET company_id = ?, updated_at = ? WHERE id = ?`, id, now, userID); err != nil {
		return nil, fmt.Errorf("link profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create company: %w", err)
	}
	return s.GetCompany(ctx, id)
}

// UpdateCompanyLegal stores the legal fields and the brand status.
func (s *Store) UpdateCompanyLegal(ctx context.Context, companyID string, upd domain.CompanyLegalUpdate, status domain.BrandStatus) error {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateCompanyLegal")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
UPDATE companies SET
	legal_company_name = ?, dba_name = ?, tax_number_ein = ?, tax_issuing_country = ?,
	country_of_registration = ?, address_street = ?, address_city = ?, address_state = ?,
	address_postal_code = ?, address_country = ?, website = ?, business_phone = ?,
	vertical_type = ?, legal_form = ?, brand_verification_status = ?, updated_at = ?
WHERE id = ?`,
		upd.LegalName, upd.DBAName, upd.TaxNumber, upd.TaxIssuingCountry,
		upd.CountryOfRegistration, upd.Address.Street, upd.Address.City, upd.Address.State,
		upd.Address.PostalCode, upd.Address.Country, upd.Website, upd.BusinessPhone,
		upd.VerticalType, upd.LegalForm, string(status), millis(s.now()),
		companyID)
	return affectedOne(res, err, "company", companyID)
}

// SetCompanyBrandStatus writes the authoritative brand status.
func (s *Store) SetCompanyBrandStatus(ctx context.Context, companyID string, status domain.BrandStatus, at time.Time) error {
	ctx, span := tracer.Start(ctx, "SQLite.SetCompanyBrandStatus")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
UPDATE companies SET brand_verification_status = ?, brand_verification_date = ?, updated_at = ?
WHERE id = ?`, string(status), millis(at), millis(s.now()), companyID)
	return affectedOne(res, err, "company", companyID)
}

// SetCompanyRegistryBrandID stores the registry brand id on the company.
func (s *Store) SetCompanyRegistryBrandID(ctx context.Context, companyID, registryBrandID string) error {
	ctx, span := tracer.Start(ctx, "SQLite.SetCompanyRegistryBrandID")
	defer span.End()

	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET registry_brand_id = ?, updated_at = ? WHERE id = ?`,
		registryBrandID, millis(s.now()), companyID)
	return affectedOne(res, err, "company", companyID)
}

// affectedOne maps an UPDATE outcome to ErrNotFound when nothing matched.
func affectedOne(res sql.Result, err error, resource, id string) error {
	if err != nil {
		return fmt.Errorf("update %s: %w", resource, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return nil
}
