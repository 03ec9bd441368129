package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// SubmissionStore implementation: onboarding_submissions, brands, campaigns
// ============================================================

func (c *Client) CreateSubmission(ctx context.Context, s *domain.Submission) (*domain.Submission, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateSubmission")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", s.CompanyID))

	status := s.Status
	if status == "" {
		status = domain.SubmissionSubmitted
	}
	return insert[domain.Submission](ctx, c, "onboarding_submissions", map[string]any{
		"user_id":    s.UserID,
		"company_id": s.CompanyID,
		"form_data":  s.FormData,
		"status":     string(status),
	})
}

func (c *Client) GetSubmission(ctx context.Context, submissionID string) (*domain.Submission, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetSubmission")
	defer span.End()
	span.SetAttributes(attribute.String("submission.id", submissionID))

	return fetchOne[domain.Submission](ctx, c, "onboarding_submissions",
		fmt.Sprintf("onboarding_submissions?id=%s&limit=1", eq(submissionID)))
}

func (c *Client) LatestSubmission(ctx context.Context, companyID string) (*domain.Submission, error) {
	ctx, span := tracer.Start(ctx, "Supabase.LatestSubmission")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	return fetchOne[domain.Submission](ctx, c, "onboarding_submissions",
		fmt.Sprintf("onboarding_submissions?company_id=%s&order=created_at.desc,id.desc&limit=1", eq(companyID)))
}

// ListSubmissionDetails embeds the company and the submitting user's profile
// through PostgREST resource embedding.
func (c *Client) ListSubmissionDetails(ctx context.Context, status []domain.SubmissionStatus) ([]domain.SubmissionDetail, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListSubmissionDetails")
	defer span.End()

	path := "onboarding_submissions?select=*,company:companies(*),profile:profiles(*)&order=created_at.desc,id.desc"
	if len(status) > 0 {
		values := make([]string, len(status))
		for i, s := range status {
			values[i] = string(s)
		}
		path += "&status=" + in(values...)
	}

	rows, err := fetch[domain.SubmissionDetail](ctx, c, "onboarding_submissions", path)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.SubmissionDetail{}
	}
	return rows, nil
}

func (c *Client) UpdateSubmission(ctx context.Context, submissionID string, upd domain.SubmissionUpdate) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateSubmission")
	defer span.End()
	span.SetAttributes(attribute.String("submission.id", submissionID))

	data := map[string]any{"updated_at": time.Now().UTC().Format(time.RFC3339)}
	if upd.Status != nil {
		data["status"] = string(*upd.Status)
	}
	if upd.RegistryBrandID != nil {
		data["registry_brand_id"] = *upd.RegistryBrandID
	}
	if upd.RegistryCampaignID != nil {
		data["registry_campaign_id"] = *upd.RegistryCampaignID
	}
	if upd.ProcessedAt != nil {
		data["processed_at"] = upd.ProcessedAt.UTC().Format(time.RFC3339)
	}
	return c.update(ctx, "onboarding_submissions", fmt.Sprintf("onboarding_submissions?id=%s", eq(submissionID)), data)
}

func (c *Client) CreateBrand(ctx context.Context, b *domain.Brand) (*domain.Brand, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateBrand")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", b.CompanyID))

	row := map[string]any{
		"company_id":          b.CompanyID,
		"brand_name":          b.Name,
		"registry_brand_id":   b.RegistryBrandID,
		"verification_status": string(b.VerificationStatus),
	}
	if b.VerificationDate != nil {
		row["verification_date"] = b.VerificationDate.UTC().Format(time.RFC3339)
	}
	return insert[domain.Brand](ctx, c, "brands", row)
}

func (c *Client) GetBrandForCompany(ctx context.Context, companyID string) (*domain.Brand, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetBrandForCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	return fetchOne[domain.Brand](ctx, c, "brands",
		fmt.Sprintf("brands?company_id=%s&order=created_at.asc,id.asc&limit=1", eq(companyID)))
}

func (c *Client) SetBrandStatus(ctx context.Context, companyID string, status domain.BrandStatus, at time.Time) error {
	ctx, span := tracer.Start(ctx, "Supabase.SetBrandStatus")
	defer span.End()

	return c.update(ctx, "brands", fmt.Sprintf("brands?company_id=%s", eq(companyID)), map[string]any{
		"verification_status": string(status),
		"verification_date":   at.UTC().Format(time.RFC3339),
	})
}

func (c *Client) CreateCampaign(ctx context.Context, cp *domain.Campaign) (*domain.Campaign, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCampaign")
	defer span.End()
	span.SetAttributes(attribute.String("brand.id", cp.BrandID))

	row := map[string]any{
		"brand_id":             cp.BrandID,
		"campaign_name":        cp.Name,
		"use_case":             cp.UseCase,
		"registry_campaign_id": cp.RegistryCampaignID,
		"approval_status":      cp.ApprovalStatus,
	}
	if cp.ApprovalDate != nil {
		row["approval_date"] = cp.ApprovalDate.UTC().Format(time.RFC3339)
	}
	return insert[domain.Campaign](ctx, c, "campaigns", row)
}

func (c *Client) SetCampaignStatus(ctx context.Context, registryCampaignID, status string, at time.Time) error {
	ctx, span := tracer.Start(ctx, "Supabase.SetCampaignStatus")
	defer span.End()
	span.SetAttributes(attribute.String("registry.campaign_id", registryCampaignID))

	return c.update(ctx, "campaigns", fmt.Sprintf("campaigns?registry_campaign_id=%s", eq(registryCampaignID)), map[string]any{
		"approval_status": status,
		"approval_date":   at.UTC().Format(time.RFC3339),
	})
}
