package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// CompanyStore implementation: companies & user_company_roles
// ============================================================

func (c *Client) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	return fetchOne[domain.Company](ctx, c, "companies", fmt.Sprintf("companies?id=%s&limit=1", eq(companyID)))
}

func (c *Client) GetPrimaryCompanyForUser(ctx context.Context, userID string) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPrimaryCompanyForUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	link, err := fetchOne[domain.UserCompanyRole](ctx, c, "user_company_roles",
		fmt.Sprintf("user_company_roles?user_id=%s&order=is_primary.desc,created_at.asc&limit=1", eq(userID)))
	if err != nil || link == nil {
		return nil, err
	}
	return c.GetCompany(ctx, link.CompanyID)
}

func (c *Client) CreateCompany(ctx context.Context, userID string, co *domain.Company) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCompany")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	status := co.BrandVerificationStatus
	if status == "" {
		status = domain.BrandPending
	}
	created, err := insert[domain.Company](ctx, c, "companies", map[string]any{
		"name":                      co.Name,
		"brand_verification_status": string(status),
	})
	if err != nil {
		return nil, err
	}

	if _, err := insert[domain.UserCompanyRole](ctx, c, "user_company_roles", map[string]any{
		"user_id":    userID,
		"company_id": created.ID,
		"role":       string(domain.CompanyOwner),
		"is_primary": true,
	}); err != nil {
		return nil, fmt.Errorf("linking company %s to user: %w", created.ID, err)
	}

	if err := c.update(ctx, "profiles", fmt.Sprintf("profiles?id=%s", eq(userID)), map[string]any{
		"company_id": created.ID,
	}); err != nil {
		return nil, fmt.Errorf("linking profile to company %s: %w", created.ID, err)
	}
	return created, nil
}

func (c *Client) UpdateCompanyLegal(ctx context.Context, companyID string, upd domain.CompanyLegalUpdate, status domain.BrandStatus) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateCompanyLegal")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	return c.update(ctx, "companies", fmt.Sprintf("companies?id=%s", eq(companyID)), map[string]any{
		"legal_company_name":        upd.LegalName,
		"dba_name":                  upd.DBAName,
		"tax_number_ein":            upd.TaxNumber,
		"tax_issuing_country":       upd.TaxIssuingCountry,
		"country_of_registration":   upd.CountryOfRegistration,
		"address_street":            upd.Address.Street,
		"address_city":              upd.Address.City,
		"address_state":             upd.Address.State,
		"address_postal_code":       upd.Address.PostalCode,
		"address_country":           upd.Address.Country,
		"website":                   upd.Website,
		"business_phone":            upd.BusinessPhone,
		"vertical_type":             upd.VerticalType,
		"legal_form":                upd.LegalForm,
		"brand_verification_status": string(status),
		"updated_at":                time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Client) SetCompanyBrandStatus(ctx context.Context, companyID string, status domain.BrandStatus, at time.Time) error {
	ctx, span := tracer.Start(ctx, "Supabase.SetCompanyBrandStatus")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID), attribute.String("status", string(status)))

	return c.update(ctx, "companies", fmt.Sprintf("companies?id=%s", eq(companyID)), map[string]any{
		"brand_verification_status": string(status),
		"brand_verification_date":   at.UTC().Format(time.RFC3339),
		"updated_at":                time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Client) SetCompanyRegistryBrandID(ctx context.Context, companyID, registryBrandID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SetCompanyRegistryBrandID")
	defer span.End()

	return c.update(ctx, "companies", fmt.Sprintf("companies?id=%s", eq(companyID)), map[string]any{
		"registry_brand_id": registryBrandID,
		"updated_at":        time.Now().UTC().Format(time.RFC3339),
	})
}
