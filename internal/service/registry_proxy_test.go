package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/cache"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/observability"
	"github.com/boddenberg/sms-onboarding-bfa/internal/service"

	"go.uber.org/zap"
)

func newRegistryService(t *testing.T, store *memStore, reg *mockRegistry) *service.RegistryService {
	t.Helper()
	c := cache.New[*domain.OnboardingStatus](time.Minute)
	t.Cleanup(c.Close)
	return service.NewRegistryService(store, reg, c, observability.NewMetrics(), zap.NewNop())
}

func proxyRequest(t *testing.T, action string, data any) *domain.RegistryProxyRequest {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	return &domain.RegistryProxyRequest{Action: action, Data: raw}
}

func TestDispatch_SubmitBrand(t *testing.T) {
	reg := &mockRegistry{brand: &domain.BrandResult{BrandID: "B1", Status: "PENDING"}}
	svc := newRegistryService(t, newMemStore(), reg)

	resp, err := svc.Dispatch(context.Background(), proxyRequest(t, domain.ActionSubmitBrand, validBrandForm()))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !resp.Success || resp.BrandID != "B1" || resp.Status != "PENDING" {
		t.Errorf("unexpected response %+v", resp)
	}
	sent := reg.submittedBrands[0]
	if sent.TaxNumber != "12-3456789" || sent.BusinessPhone != "+15125550100" || sent.Address.StateRegion != "TX" {
		t.Errorf("expected normalised request, got %+v", sent)
	}
	if sent.VerticalType != "TECHNOLOGY" || sent.LegalForm != "PRIVATE_PROFIT" {
		t.Errorf("expected registry vocabulary, got %s %s", sent.VerticalType, sent.LegalForm)
	}
}

func TestDispatch_InvalidEINNeverReachesRegistry(t *testing.T) {
	reg := &mockRegistry{}
	svc := newRegistryService(t, newMemStore(), reg)

	form := validBrandForm()
	form.TaxNumberEIN = "12345"

	_, err := svc.Dispatch(context.Background(), proxyRequest(t, domain.ActionSubmitBrand, form))
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) || valErr.Field != "tax_number_ein" {
		t.Fatalf("expected validation error naming tax_number_ein, got %v", err)
	}
	if reg.calls() != 0 {
		t.Errorf("expected no registry call, got %d", reg.calls())
	}
}

func TestDispatch_SubmitCampaign(t *testing.T) {
	reg := &mockRegistry{campaign: &domain.CampaignResult{CampaignID: "K1", Status: "PENDING"}}
	svc := newRegistryService(t, newMemStore(), reg)

	resp, err := svc.Dispatch(context.Background(), proxyRequest(t, domain.ActionSubmitCampaign, map[string]any{
		"brandId":        "B1",
		"useCase":        "marketing",
		"description":    "Weekly offers",
		"sampleMessages": []string{"20% off this week"},
	}))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.CampaignID != "K1" {
		t.Errorf("unexpected response %+v", resp)
	}
	if got := reg.submittedCampaigns[0].UseCase; got != "MARKETING" {
		t.Errorf("expected MARKETING, got %s", got)
	}
}

func TestDispatch_SubmitCampaignRequiresBrand(t *testing.T) {
	reg := &mockRegistry{}
	svc := newRegistryService(t, newMemStore(), reg)

	_, err := svc.Dispatch(context.Background(), proxyRequest(t, domain.ActionSubmitCampaign, map[string]any{
		"useCase": "marketing", "description": "x", "sampleMessages": []string{"y"},
	}))
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) || valErr.Field != "brandId" {
		t.Fatalf("expected brandId validation error, got %v", err)
	}
	if reg.calls() != 0 {
		t.Error("expected no registry call")
	}
}

func TestDispatch_StatusChecks(t *testing.T) {
	reg := &mockRegistry{
		brandStatus:    map[string]string{"B1": "VERIFIED"},
		campaignStatus: map[string]string{"K1": "ACTIVE"},
	}
	svc := newRegistryService(t, newMemStore(), reg)

	resp, err := svc.Dispatch(context.Background(), proxyRequest(t, domain.ActionCheckBrandStatus, map[string]string{"brandId": "B1"}))
	if err != nil || resp.Status != "VERIFIED" || resp.BrandID != "B1" {
		t.Errorf("unexpected brand check %+v %v", resp, err)
	}
	resp, err = svc.Dispatch(context.Background(), proxyRequest(t, domain.ActionCheckCampaignStatus, map[string]string{"campaignId": "K1"}))
	if err != nil || resp.Status != "ACTIVE" || resp.CampaignID != "K1" {
		t.Errorf("unexpected campaign check %+v %v", resp, err)
	}

	_, err = svc.Dispatch(context.Background(), proxyRequest(t, domain.ActionCheckBrandStatus, map[string]string{}))
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) {
		t.Errorf("expected validation error for missing brandId, got %v", err)
	}
}

func TestDispatch_UnknownAction(t *testing.T) {
	svc := newRegistryService(t, newMemStore(), &mockRegistry{})

	_, err := svc.Dispatch(context.Background(), proxyRequest(t, "deleteBrand", map[string]string{}))
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) || valErr.Field != "action" {
		t.Fatalf("expected action validation error, got %v", err)
	}
}

func TestDispatch_RegistryErrorPassesThrough(t *testing.T) {
	regErr := &domain.ErrRegistry{StatusCode: 422, Body: `{"errors":["taxNumber invalid"]}`}
	svc := newRegistryService(t, newMemStore(), &mockRegistry{brandErr: regErr})

	_, err := svc.Dispatch(context.Background(), proxyRequest(t, domain.ActionSubmitBrand, validBrandForm()))
	var got *domain.ErrRegistry
	if !errors.As(err, &got) || got.Body != regErr.Body {
		t.Fatalf("expected registry error verbatim, got %v", err)
	}
}

func TestSubmitLatestToRegistry(t *testing.T) {
	store := newMemStore()
	store.seedPaidUser("U1", "C1", domain.BrandSubmitted)
	store.CreateSubmission(context.Background(), &domain.Submission{
		UserID: "U1", CompanyID: "C1", FormData: mustForm(t), Status: domain.SubmissionSubmitted,
	})
	reg := &mockRegistry{brand: &domain.BrandResult{BrandID: "B7", Status: "PENDING"}}
	svc := newRegistryService(t, store, reg)

	sub, err := svc.SubmitLatestToRegistry(context.Background(), "C1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sub.Status != domain.SubmissionProcessing || sub.RegistryBrandID != "B7" {
		t.Errorf("unexpected submission %+v", sub)
	}
	if store.submissions[0].RegistryBrandID != "B7" || store.companies["C1"].RegistryBrandID != "B7" {
		t.Error("expected brand id stored on submission and company")
	}
}

func TestSubmitLatestToRegistry_NoSubmission(t *testing.T) {
	store := newMemStore()
	store.seedPaidUser("U1", "C1", domain.BrandPending)
	svc := newRegistryService(t, store, &mockRegistry{})

	_, err := svc.SubmitLatestToRegistry(context.Background(), "C1")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmitLatestToRegistry_RegistryFailureWritesNothing(t *testing.T) {
	store := newMemStore()
	store.seedPaidUser("U1", "C1", domain.BrandSubmitted)
	store.CreateSubmission(context.Background(), &domain.Submission{
		UserID: "U1", CompanyID: "C1", FormData: mustForm(t), Status: domain.SubmissionSubmitted,
	})
	store.calls = nil
	svc := newRegistryService(t, store, &mockRegistry{brandErr: &domain.ErrRegistry{StatusCode: 500, Body: "oops"}})

	if _, err := svc.SubmitLatestToRegistry(context.Background(), "C1"); err == nil {
		t.Fatal("expected error")
	}
	if len(store.writes()) != 0 {
		t.Errorf("expected no writes, got %v", store.writes())
	}
}

func TestSubmitLatestCampaign(t *testing.T) {
	store := newMemStore()
	store.seedPaidUser("U1", "C1", domain.BrandSubmitted)
	store.CreateSubmission(context.Background(), &domain.Submission{
		UserID: "U1", CompanyID: "C1", FormData: mustForm(t), Status: domain.SubmissionProcessing, RegistryBrandID: "B7",
	})
	reg := &mockRegistry{campaign: &domain.CampaignResult{CampaignID: "K7", Status: "PENDING"}}
	svc := newRegistryService(t, store, reg)

	sub, err := svc.SubmitLatestCampaign(context.Background(), "C1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sub.RegistryCampaignID != "K7" || store.submissions[0].RegistryCampaignID != "K7" {
		t.Errorf("expected campaign id stored, got %+v", sub)
	}
	if reg.submittedCampaigns[0].BrandID != "B7" || reg.submittedCampaigns[0].UseCase != "ACCOUNT_NOTIFICATION" {
		t.Errorf("unexpected campaign request %+v", reg.submittedCampaigns[0])
	}
}

func TestSubmitLatestCampaign_RequiresRegisteredBrand(t *testing.T) {
	store := newMemStore()
	store.seedPaidUser("U1", "C1", domain.BrandSubmitted)
	store.CreateSubmission(context.Background(), &domain.Submission{
		UserID: "U1", CompanyID: "C1", FormData: mustForm(t), Status: domain.SubmissionSubmitted,
	})
	reg := &mockRegistry{}
	svc := newRegistryService(t, store, reg)

	_, err := svc.SubmitLatestCampaign(context.Background(), "C1")
	var pre *domain.ErrPrecondition
	if !errors.As(err, &pre) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if reg.calls() != 0 {
		t.Error("expected no registry call")
	}
}
