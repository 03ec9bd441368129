package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/observability"
	"github.com/boddenberg/sms-onboarding-bfa/internal/onboarding"
	"github.com/boddenberg/sms-onboarding-bfa/internal/port"
	"github.com/boddenberg/sms-onboarding-bfa/internal/registry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var onboardingTracer = otel.Tracer("service/onboarding")

// statusCacheKey is the per-user key of the onboarding status cache.
func statusCacheKey(userID string) string {
	return "status:" + userID
}

// OnboardingService drives a paid user through brand capture and
// onboarding completion.
type OnboardingService struct {
	store    port.Store
	registry port.RegistryClient
	cache    port.Cache[*domain.OnboardingStatus]
	metrics  *observability.Metrics
	logger   *zap.Logger

	// skipVerification approves brand and campaign without asking the
	// registry. Staging only.
	skipVerification bool
	now              func() time.Time
}

// NewOnboardingService creates the onboarding service with all dependencies injected.
func NewOnboardingService(
	store port.Store,
	registry port.RegistryClient,
	cache port.Cache[*domain.OnboardingStatus],
	metrics *observability.Metrics,
	logger *zap.Logger,
	skipVerification bool,
) *OnboardingService {
	return &OnboardingService{
		store:            store,
		registry:         registry,
		cache:            cache,
		metrics:          metrics,
		logger:           logger,
		skipVerification: skipVerification,
		now:              time.Now,
	}
}

// RequirePaid returns a precondition error unless the user's onboarding fee
// has been paid.
func (s *OnboardingService) RequirePaid(ctx context.Context, userID string) error {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.RequirePaid")
	defer span.End()

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}
	if !profile.IsPaid() {
		return &domain.ErrPrecondition{Condition: "onboarding fee not paid", Redirect: "/payment"}
	}
	return nil
}

// CreateCompany creates the user's company when it has none. An existing
// company is returned unchanged.
func (s *OnboardingService) CreateCompany(ctx context.Context, userID, name string) (*domain.Company, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.CreateCompany")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	linked := ""
	if profile != nil {
		linked = profile.CompanyID
	}
	existing, err := companyForUser(ctx, s.store, userID, linked)
	if err != nil {
		return nil, fmt.Errorf("loading company: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	company, err := s.store.CreateCompany(ctx, userID, &domain.Company{Name: name, BrandVerificationStatus: domain.BrandPending})
	if err != nil {
		return nil, fmt.Errorf("creating company: %w", err)
	}
	s.cache.Delete(statusCacheKey(userID))
	s.logger.Info("company created", zap.String("user_id", userID), zap.String("company_id", company.ID))
	return company, nil
}

// SubmitBrand records brand verification data: legal fields go onto the
// company, whose status becomes submitted, and a new submission row keeps
// the full versioned form. The registry is not contacted here.
func (s *OnboardingService) SubmitBrand(ctx context.Context, userID string, form *domain.BrandForm) (*domain.Submission, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.SubmitBrand")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := s.now()
	defer func() {
		s.metrics.RecordRequestDuration("submit_brand", time.Since(start))
	}()

	// Local checks first; nothing is read or written for an incomplete form.
	form.SchemaVersion = domain.BrandFormVersion
	form.ApplyDefaults()
	if err := form.CheckRequired(); err != nil {
		s.metrics.IncrTransition(string(onboarding.EventSubmitBrand), err)
		return nil, err
	}

	company, err := s.userCompany(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Resubmitting from the campaign step is an implicit Back.
	state, err := s.stateOf(ctx, company)
	if err != nil {
		return nil, err
	}
	if state == onboarding.StateCampaign {
		state, _ = onboarding.Next(state, onboarding.EventBack)
	}
	if _, err := onboarding.Next(state, onboarding.EventSubmitBrand); err != nil {
		s.metrics.IncrTransition(string(onboarding.EventSubmitBrand), err)
		return nil, err
	}

	payload, err := json.Marshal(form)
	if err != nil {
		return nil, fmt.Errorf("encoding form: %w", err)
	}

	if err := s.store.UpdateCompanyLegal(ctx, company.ID, registry.NormalizeLegal(form.LegalUpdate()), domain.BrandSubmitted); err != nil {
		s.metrics.IncrTransition(string(onboarding.EventSubmitBrand), err)
		return nil, fmt.Errorf("saving company legal data: %w", err)
	}

	sub, err := s.store.CreateSubmission(ctx, &domain.Submission{
		UserID:    userID,
		CompanyID: company.ID,
		FormData:  payload,
		Status:    domain.SubmissionSubmitted,
	})
	s.cache.Delete(statusCacheKey(userID))
	s.metrics.IncrTransition(string(onboarding.EventSubmitBrand), err)
	if err != nil {
		return nil, fmt.Errorf("recording submission: %w", err)
	}

	s.logger.Info("brand submitted",
		zap.String("user_id", userID),
		zap.String("company_id", company.ID),
		zap.String("submission_id", sub.ID),
	)
	return sub, nil
}

// CompleteOnboarding approves the brand internally. Unless verification is
// skipped, the registry must already report the brand approved. The writes
// run in order and stop at the first failure; earlier writes are kept.
func (s *OnboardingService) CompleteOnboarding(ctx context.Context, userID string) (*domain.OnboardingStatus, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.CompleteOnboarding")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	err := s.complete(ctx, userID)
	s.metrics.IncrTransition(string(onboarding.EventComplete), err)
	if err != nil {
		return nil, err
	}
	return s.Status(ctx, userID)
}

func (s *OnboardingService) complete(ctx context.Context, userID string) error {
	company, err := s.userCompany(ctx, userID)
	if err != nil {
		return err
	}
	state, err := s.stateOf(ctx, company)
	if err != nil {
		return err
	}
	if _, err := onboarding.Next(state, onboarding.EventComplete); err != nil {
		return err
	}

	latest, err := s.store.LatestSubmission(ctx, company.ID)
	if err != nil {
		return fmt.Errorf("loading latest submission: %w", err)
	}
	if latest == nil {
		return &domain.ErrPrecondition{Condition: "no brand submission", Redirect: "/onboarding/brand"}
	}
	form, err := latest.Form()
	if err != nil {
		return fmt.Errorf("decoding submission %s: %w", latest.ID, err)
	}

	campaignStatus, err := s.verifyWithRegistry(ctx, latest)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	brandName := form.LegalCompanyName
	if brandName == "" {
		brandName = company.Name
	}

	brand, err := s.store.CreateBrand(ctx, &domain.Brand{
		CompanyID:          company.ID,
		Name:               brandName,
		RegistryBrandID:    latest.RegistryBrandID,
		VerificationStatus: domain.BrandApproved,
		VerificationDate:   &now,
	})
	if err != nil {
		return fmt.Errorf("creating brand: %w", err)
	}

	campaign := &domain.Campaign{
		BrandID:            brand.ID,
		Name:               brandName + " campaign",
		UseCase:            form.CampaignUseCase,
		RegistryCampaignID: latest.RegistryCampaignID,
		ApprovalStatus:     campaignStatus,
	}
	if campaignStatus == string(domain.BrandApproved) {
		campaign.ApprovalDate = &now
	}
	if _, err := s.store.CreateCampaign(ctx, campaign); err != nil {
		return fmt.Errorf("creating campaign: %w", err)
	}

	if err := s.store.SetCompanyBrandStatus(ctx, company.ID, domain.BrandApproved, now); err != nil {
		return fmt.Errorf("approving company: %w", err)
	}

	approved := domain.SubmissionApproved
	if !latest.Status.CanTransition(approved) {
		return &domain.ErrInvalidTransition{From: string(latest.Status), Event: "approve submission"}
	}
	if err := s.store.UpdateSubmission(ctx, latest.ID, domain.SubmissionUpdate{
		Status:      &approved,
		ProcessedAt: &now,
	}); err != nil {
		return fmt.Errorf("approving submission: %w", err)
	}

	s.cache.Delete(statusCacheKey(userID))
	s.logger.Info("onboarding complete",
		zap.String("user_id", userID),
		zap.String("company_id", company.ID),
		zap.String("submission_id", latest.ID),
	)
	return nil
}

// verifyWithRegistry gates completion on the registry brand status and
// returns the campaign approval status to record.
func (s *OnboardingService) verifyWithRegistry(ctx context.Context, latest *domain.Submission) (string, error) {
	if s.skipVerification {
		s.logger.Warn("registry verification skipped", zap.String("submission_id", latest.ID))
		return string(domain.BrandApproved), nil
	}

	if latest.RegistryBrandID == "" {
		return "", &domain.ErrPrecondition{Condition: "brand not yet submitted to the registry", Redirect: "/onboarding/campaign"}
	}
	brand, err := s.registry.CheckBrandStatus(ctx, latest.RegistryBrandID)
	if err != nil {
		return "", fmt.Errorf("checking brand status: %w", err)
	}
	if st := domain.NormalizeBrandStatus(brand.Status); st != domain.BrandApproved {
		return "", &domain.ErrPrecondition{
			Condition: fmt.Sprintf("registry brand status is %s", strings.ToLower(brand.Status)),
			Redirect:  "/onboarding/campaign",
		}
	}

	if latest.RegistryCampaignID == "" {
		return "pending", nil
	}
	campaign, err := s.registry.CheckCampaignStatus(ctx, latest.RegistryCampaignID)
	if err != nil {
		return "", fmt.Errorf("checking campaign status: %w", err)
	}
	return strings.ToLower(campaign.Status), nil
}

// Status returns the onboarding read model for the user. Results are cached
// per user until the next transition.
func (s *OnboardingService) Status(ctx context.Context, userID string) (*domain.OnboardingStatus, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.Status")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	key := statusCacheKey(userID)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("status")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("status")

	var (
		profile *domain.Profile
		company *domain.Company
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.store.GetProfile(gCtx, userID)
		if err != nil {
			return fmt.Errorf("loading profile: %w", err)
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		c, err := s.store.GetPrimaryCompanyForUser(gCtx, userID)
		if err != nil {
			return fmt.Errorf("loading company: %w", err)
		}
		company = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	if company == nil && profile.CompanyID != "" {
		c, err := s.store.GetCompany(ctx, profile.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("loading company: %w", err)
		}
		company = c
	}

	state, err := s.stateOf(ctx, company)
	if err != nil {
		return nil, err
	}
	status := &domain.OnboardingStatus{
		UserID:        userID,
		State:         string(state),
		PaymentStatus: profile.PaymentStatus,
		CompanyStatus: company.Status(),
	}
	if company != nil {
		status.CompanyID = company.ID
		latest, err := s.store.LatestSubmission(ctx, company.ID)
		if err != nil {
			return nil, fmt.Errorf("loading latest submission: %w", err)
		}
		status.LatestSubmission = latest
	}

	s.cache.Set(key, status)
	return status, nil
}

// stateOf derives the onboarding state of company from its stored records.
func (s *OnboardingService) stateOf(ctx context.Context, company *domain.Company) (onboarding.State, error) {
	if company == nil {
		return onboarding.Derive(nil, nil), nil
	}
	brand, err := s.store.GetBrandForCompany(ctx, company.ID)
	if err != nil {
		return "", fmt.Errorf("loading brand: %w", err)
	}
	return onboarding.Derive(company, brand), nil
}

// userCompany loads the user's company or asks them to create one.
func (s *OnboardingService) userCompany(ctx context.Context, userID string) (*domain.Company, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	linked := ""
	if profile != nil {
		linked = profile.CompanyID
	}
	company, err := companyForUser(ctx, s.store, userID, linked)
	if err != nil {
		return nil, fmt.Errorf("loading company: %w", err)
	}
	if company == nil {
		return nil, &domain.ErrPrecondition{Condition: "no company for user", Redirect: "/profile"}
	}
	return company, nil
}
