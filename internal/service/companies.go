package service

import (
	"context"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/port"
)

// companyForUser resolves the user's company through the primary
// user_company_roles link, falling back to the company id on the profile.
// It returns (nil, nil) when the user has no company yet.
func companyForUser(ctx context.Context, store port.CompanyStore, userID, linkedCompanyID string) (*domain.Company, error) {
	company, err := store.GetPrimaryCompanyForUser(ctx, userID)
	if err != nil || company != nil {
		return company, err
	}
	if linkedCompanyID == "" {
		return nil, nil
	}
	return store.GetCompany(ctx, linkedCompanyID)
}
