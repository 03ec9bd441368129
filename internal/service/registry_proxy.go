package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/observability"
	"github.com/boddenberg/sms-onboarding-bfa/internal/port"
	"github.com/boddenberg/sms-onboarding-bfa/internal/registry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var registryTracer = otel.Tracer("service/registry")

// RegistryService exposes the sender registry to authenticated callers and
// to admin actions that forward stored submissions.
type RegistryService struct {
	store    port.Store
	registry port.RegistryClient
	cache    port.Cache[*domain.OnboardingStatus]
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewRegistryService creates the registry proxy service.
func NewRegistryService(
	store port.Store,
	registry port.RegistryClient,
	cache port.Cache[*domain.OnboardingStatus],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *RegistryService {
	return &RegistryService{
		store:    store,
		registry: registry,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// idRequest is the data of the status-check actions.
type idRequest struct {
	BrandID    string `json:"brandId"`
	CampaignID string `json:"campaignId"`
}

// Dispatch runs one proxy action. Validation failures never reach the
// registry; registry errors are returned unchanged so the caller can relay
// the registry's body.
func (s *RegistryService) Dispatch(ctx context.Context, req *domain.RegistryProxyRequest) (*domain.RegistryProxyResponse, error) {
	ctx, span := registryTracer.Start(ctx, "RegistryService.Dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("registry.action", req.Action))

	start := s.now()
	defer func() {
		s.metrics.RecordRequestDuration("registry_"+req.Action, time.Since(start))
	}()

	switch req.Action {
	case domain.ActionSubmitBrand:
		var form domain.BrandForm
		if err := decodeData(req.Data, &form); err != nil {
			return nil, err
		}
		brandReq, err := registry.BuildBrandRequest(&form)
		if err != nil {
			return nil, err
		}
		res, err := s.registry.SubmitBrand(ctx, brandReq)
		if err != nil {
			return nil, err
		}
		return brandResponse(res), nil

	case domain.ActionSubmitCampaign:
		var cr domain.CampaignRequest
		if err := decodeData(req.Data, &cr); err != nil {
			return nil, err
		}
		campaignReq, err := normalizeCampaign(&cr)
		if err != nil {
			return nil, err
		}
		res, err := s.registry.SubmitCampaign(ctx, campaignReq)
		if err != nil {
			return nil, err
		}
		return campaignResponse(res), nil

	case domain.ActionCheckBrandStatus:
		var ids idRequest
		if err := decodeData(req.Data, &ids); err != nil {
			return nil, err
		}
		if strings.TrimSpace(ids.BrandID) == "" {
			return nil, &domain.ErrValidation{Field: "brandId", Message: "required"}
		}
		res, err := s.registry.CheckBrandStatus(ctx, ids.BrandID)
		if err != nil {
			return nil, err
		}
		return brandResponse(res), nil

	case domain.ActionCheckCampaignStatus:
		var ids idRequest
		if err := decodeData(req.Data, &ids); err != nil {
			return nil, err
		}
		if strings.TrimSpace(ids.CampaignID) == "" {
			return nil, &domain.ErrValidation{Field: "campaignId", Message: "required"}
		}
		res, err := s.registry.CheckCampaignStatus(ctx, ids.CampaignID)
		if err != nil {
			return nil, err
		}
		return campaignResponse(res), nil

	default:
		return nil, &domain.ErrValidation{Field: "action", Message: fmt.Sprintf("unknown action %q", req.Action)}
	}
}

// SubmitLatestToRegistry registers the company's latest submission as a
// registry brand. The returned brand id is stored on the submission and the
// company, and the submission moves to processing.
func (s *RegistryService) SubmitLatestToRegistry(ctx context.Context, companyID string) (*domain.Submission, error) {
	ctx, span := registryTracer.Start(ctx, "RegistryService.SubmitLatestToRegistry")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	latest, form, err := s.latestForm(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if !latest.Status.CanTransition(domain.SubmissionProcessing) {
		return nil, &domain.ErrInvalidTransition{From: string(latest.Status), Event: "submit to registry"}
	}

	brandReq, err := registry.BuildBrandRequest(form)
	if err != nil {
		return nil, err
	}
	res, err := s.registry.SubmitBrand(ctx, brandReq)
	if err != nil {
		return nil, fmt.Errorf("submitting brand: %w", err)
	}

	processing := domain.SubmissionProcessing
	if err := s.store.UpdateSubmission(ctx, latest.ID, domain.SubmissionUpdate{
		Status:          &processing,
		RegistryBrandID: &res.BrandID,
	}); err != nil {
		return nil, fmt.Errorf("recording registry brand id: %w", err)
	}
	if err := s.store.SetCompanyRegistryBrandID(ctx, companyID, res.BrandID); err != nil {
		return nil, fmt.Errorf("recording registry brand id on company: %w", err)
	}
	s.cache.Delete(statusCacheKey(latest.UserID))

	s.logger.Info("brand registered",
		zap.String("company_id", companyID),
		zap.String("submission_id", latest.ID),
		zap.String("registry_brand_id", res.BrandID),
		zap.String("registry_status", res.Status),
	)

	latest.Status = processing
	latest.RegistryBrandID = res.BrandID
	return latest, nil
}

// SubmitLatestCampaign registers the campaign described by the latest
// submission for the brand it was registered under.
func (s *RegistryService) SubmitLatestCampaign(ctx context.Context, companyID string) (*domain.Submission, error) {
	ctx, span := registryTracer.Start(ctx, "RegistryService.SubmitLatestCampaign")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	latest, form, err := s.latestForm(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if latest.RegistryBrandID == "" {
		return nil, &domain.ErrPrecondition{Condition: "brand not registered", Redirect: "/admin/submissions"}
	}

	campaignReq, err := registry.BuildCampaignRequest(latest.RegistryBrandID, form)
	if err != nil {
		return nil, err
	}
	res, err := s.registry.SubmitCampaign(ctx, campaignReq)
	if err != nil {
		return nil, fmt.Errorf("submitting campaign: %w", err)
	}

	if err := s.store.UpdateSubmission(ctx, latest.ID, domain.SubmissionUpdate{
		RegistryCampaignID: &res.CampaignID,
	}); err != nil {
		return nil, fmt.Errorf("recording registry campaign id: %w", err)
	}
	s.cache.Delete(statusCacheKey(latest.UserID))

	s.logger.Info("campaign registered",
		zap.String("company_id", companyID),
		zap.String("submission_id", latest.ID),
		zap.String("registry_campaign_id", res.CampaignID),
	)

	latest.RegistryCampaignID = res.CampaignID
	return latest, nil
}

func (s *RegistryService) latestForm(ctx context.Context, companyID string) (*domain.Submission, *domain.BrandForm, error) {
	latest, err := s.store.LatestSubmission(ctx, companyID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading latest submission: %w", err)
	}
	if latest == nil {
		return nil, nil, &domain.ErrNotFound{Resource: "submission for company", ID: companyID}
	}
	form, err := latest.Form()
	if err != nil {
		return nil, nil, err
	}
	return latest, form, nil
}

// normalizeCampaign maps the caller's use case onto registry vocabulary.
func normalizeCampaign(cr *domain.CampaignRequest) (*domain.CampaignRequest, error) {
	return registry.BuildCampaignRequest(cr.BrandID, &domain.BrandForm{
		CampaignUseCase:     cr.UseCase,
		CampaignDescription: cr.Description,
		SampleMessages:      cr.SampleMessages,
		MessageFlow:         cr.MessageFlow,
	})
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return &domain.ErrValidation{Field: "data", Message: "required"}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return &domain.ErrValidation{Field: "data", Message: "malformed JSON"}
		}
		return &domain.ErrValidation{Field: "data", Message: err.Error()}
	}
	return nil
}

func brandResponse(res *domain.BrandResult) *domain.RegistryProxyResponse {
	return &domain.RegistryProxyResponse{
		Success: true,
		BrandID: res.BrandID,
		Status:  res.Status,
		Message: res.Message,
		Errors:  res.Errors,
	}
}

func campaignResponse(res *domain.CampaignResult) *domain.RegistryProxyResponse {
	return &domain.RegistryProxyResponse{
		Success:    true,
		CampaignID: res.CampaignID,
		Status:     res.Status,
		Message:    res.Message,
		Errors:     res.Errors,
	}
}
