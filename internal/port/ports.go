// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// ProfileStore reads and writes user profiles and platform roles.
// Lookups return (nil, nil) when the record does not exist.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
	MarkProfilePaid(ctx context.Context, userID string, upd domain.PaymentUpdate) error

	// EnsureUserRole inserts the grant unless (user_id, role) already exists.
	EnsureUserRole(ctx context.Context, userID, role string) (*domain.UserRole, bool, error)
	HasUserRole(ctx context.Context, userID, role string) (bool, error)
}

// CompanyStore reads and writes companies and their brand status.
type CompanyStore interface {
	GetCompany(ctx context.Context, companyID string) (*domain.Company, error)
	// GetPrimaryCompanyForUser resolves the user's company through
	// user_company_roles, preferring the is_primary row.
	GetPrimaryCompanyForUser(ctx context.Context, userID string) (*domain.Company, error)
	CreateCompany(ctx context.Context, userID string, c *domain.Company) (*domain.Company, error)
	UpdateCompanyLegal(ctx context.Context, companyID string, upd domain.CompanyLegalUpdate, status domain.BrandStatus) error
	SetCompanyBrandStatus(ctx context.Context, companyID string, status domain.BrandStatus, at time.Time) error
	SetCompanyRegistryBrandID(ctx context.Context, companyID, registryBrandID string) error
}

// SubmissionStore persists onboarding submissions, brands and campaigns.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, s *domain.Submission) (*domain.Submission, error)
	GetSubmission(ctx context.Context, submissionID string) (*domain.Submission, error)
	// LatestSubmission returns the most recently created submission for the company.
	LatestSubmission(ctx context.Context, companyID string) (*domain.Submission, error)
	ListSubmissionDetails(ctx context.Context, status []domain.SubmissionStatus) ([]domain.SubmissionDetail, error)
	UpdateSubmission(ctx context.Context, submissionID string, upd domain.SubmissionUpdate) error

	CreateBrand(ctx context.Context, b *domain.Brand) (*domain.Brand, error)
	// GetBrandForCompany returns the company's internal brand row, written
	// only when onboarding completes.
	GetBrandForCompany(ctx context.Context, companyID string) (*domain.Brand, error)
	SetBrandStatus(ctx context.Context, companyID string, status domain.BrandStatus, at time.Time) error
	CreateCampaign(ctx context.Context, c *domain.Campaign) (*domain.Campaign, error)
	SetCampaignStatus(ctx context.Context, registryCampaignID, status string, at time.Time) error
}

// BillingStore provisions billing records. Every Ensure* call is a
// conditional insert on the record's natural key and reports whether a row
// was created.
type BillingStore interface {
	EnsureCustomer(ctx context.Context, c *domain.Customer) (*domain.Customer, bool, error)
	EnsureSubscription(ctx context.Context, s *domain.Subscription) (*domain.Subscription, bool, error)
	EnsureCustomerAccess(ctx context.Context, a *domain.CustomerAccess) (*domain.CustomerAccess, bool, error)
}

// ProvisioningLog is the durable step log of the payment reconciler.
type ProvisioningLog interface {
	// StartRun returns the run for eventID, creating it when absent.
	StartRun(ctx context.Context, run *domain.ProvisioningRun) (*domain.ProvisioningRun, error)
	SaveRun(ctx context.Context, run *domain.ProvisioningRun) error
	ListIncompleteRuns(ctx context.Context, olderThan time.Time, limit int) ([]domain.ProvisioningRun, error)
}

// Store groups every persistence port. Implemented by the Supabase and
// SQLite adapters.
type Store interface {
	ProfileStore
	CompanyStore
	SubmissionStore
	BillingStore
	ProvisioningLog
	Ping(ctx context.Context) error
}

// RegistryClient talks to the external sender registry.
type RegistryClient interface {
	SubmitBrand(ctx context.Context, req *domain.BrandRequest) (*domain.BrandResult, error)
	SubmitCampaign(ctx context.Context, req *domain.CampaignRequest) (*domain.CampaignResult, error)
	CheckBrandStatus(ctx context.Context, brandID string) (*domain.BrandResult, error)
	CheckCampaignStatus(ctx context.Context, campaignID string) (*domain.CampaignResult, error)
}
