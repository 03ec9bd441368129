package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"

	"github.com/google/uuid"
)

const submissionColumns = `id, user_id, company_id, form_data, status, registry_brand_id,
	registry_campaign_id, processed_at, created_at, updated_at`

func scanSubmission(row scanner) (*domain.Submission, error) {
	var (
		sub                  domain.Submission
		form, status         string
		processedAt          sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.CompanyID, &form, &status, &sub.RegistryBrandID,
		&sub.RegistryCampaignID, &processedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	sub.FormData = json.RawMessage(form)
	sub.Status = domain.SubmissionStatus(status)
	sub.ProcessedAt = fromNullMillis(processedAt)
	sub.CreatedAt = fromMillis(createdAt)
	sub.UpdatedAt = fromMillis(updatedAt)
	return &sub, nil
}

// CreateSubmission appends a submission row.
func (s *Store) CreateSubmission(ctx context.Context, sub *domain.Submission) (*domain.Submission, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateSubmission")
	defer span.End()

	status := sub.Status
	if status == "" {
		status = domain.SubmissionSubmitted
	}
	id := uuid.NewString()
	now := millis(s.now())
	_, err := s.db.ExecContext(ctx, `
INSERT INTO onboarding_submissions (id, user_id, company_id, form_data, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, sub.UserID, sub.CompanyID, string(sub.FormData), string(status), now, now)
	if err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	return s.GetSubmission(ctx, id)
}

// GetSubmission returns the submission or nil when absent.
func (s *Store) GetSubmission(ctx context.Context, submissionID string) (*domain.Submission, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetSubmission")
	defer span.End()

	sub, err := scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM onboarding_submissions WHERE id = ?`, submissionID))
	if err != nil {
		return nil, noRows(err)
	}
	return sub, nil
}

// LatestSubmission returns the newest submission of the company. Rows
// created in the same millisecond are ordered by insertion.
func (s *Store) LatestSubmission(ctx context.Context, companyID string) (*domain.Submission, error) {
	ctx, span := tracer.Start(ctx, "SQLite.LatestSubmission")
	defer span.End()

	sub, err := scanSubmission(s.db.QueryRowContext(ctx, `
SELECT `+submissionColumns+` FROM onboarding_submissions
WHERE company_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT 1`, companyID))
	if err != nil {
		return nil, noRows(err)
	}
	return sub, nil
}

// ListSubmissionDetails lists submissions newest first with their company
// and submitting profile attached.
func (s *Store) ListSubmissionDetails(ctx context.Context, status []domain.SubmissionStatus) ([]domain.SubmissionDetail, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListSubmissionDetails")
	defer span.End()

	query := `SELECT ` + submissionColumns + ` FROM onboarding_submissions`
	args := make([]any, 0, len(status))
	if len(status) > 0 {
		marks := make([]string, len(status))
		for i, st := range status {
			marks[i] = "?"
			args = append(args, string(st))
		}
		query += ` WHERE status IN (` + strings.Join(marks, ", ") + `)`
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	var subs []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	companies := map[string]*domain.Company{}
	profiles := map[string]*domain.Profile{}
	out := make([]domain.SubmissionDetail, 0, len(subs))
	for _, sub := range subs {
		co, ok := companies[sub.CompanyID]
		if !ok {
			if co, err = s.GetCompany(ctx, sub.CompanyID); err != nil {
				return nil, err
			}
			companies[sub.CompanyID] = co
		}
		p, ok := profiles[sub.UserID]
		if !ok {
			if p, err = s.GetProfile(ctx, sub.UserID); err != nil {
				return nil, err
			}
			profiles[sub.UserID] = p
		}
		out = append(out, domain.SubmissionDetail{Submission: sub, Company: co, Profile: p})
	}
	return out, nil
}

// UpdateSubmission patches the non-nil fields of upd.
func (s *Store) UpdateSubmission(ctx context.Context, submissionID string, upd domain.SubmissionUpdate) error {
	ctx, span := tracer.Start(ctx, "SQLite.UpdateSubmission")
	defer span.End()

	sets := []string{"updated_at = ?"}
	args := []any{millis(s.now())}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}
	if upd.RegistryBrandID != nil {
		sets = append(sets, "registry_brand_id = ?")
		args = append(args, *upd.RegistryBrandID)
	}
	if upd.RegistryCampaignID != nil {
		sets = append(sets, "registry_campaign_id = ?")
		args = append(args, *upd.RegistryCampaignID)
	}
	if upd.ProcessedAt != nil {
		sets = append(sets, "processed_at = ?")
		args = append(args, millis(*upd.ProcessedAt))
	}
	args = append(args, submissionID)

	res, err := s.db.ExecContext(ctx,
		`UPDATE onboarding_submissions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	return affectedOne(res, err, "submission", submissionID)
}

// CreateBrand inserts a brand mirror row.
func (s *Store) CreateBrand(ctx context.Context, b *domain.Brand) (*domain.Brand, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateBrand")
	defer span.End()

	out := *b
	out.ID = uuid.NewString()
	out.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO brands (id, company_id, brand_name, registry_brand_id, verification_status, verification_date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.CompanyID, out.Name, out.RegistryBrandID, string(out.VerificationStatus),
		nullMillis(out.VerificationDate), millis(out.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("create brand: %w", err)
	}
	return &out, nil
}

// GetBrandForCompany returns the oldest brand row of the company or nil.
func (s *Store) GetBrandForCompany(ctx context.Context, companyID string) (*domain.Brand, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetBrandForCompany")
	defer span.End()

	var (
		b          domain.Brand
		status     string
		verifiedAt sql.NullInt64
		createdAt  int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, company_id, brand_name, registry_brand_id, verification_status, verification_date, created_at
FROM brands WHERE company_id = ? ORDER BY created_at, rowid LIMIT 1`, companyID).
		Scan(&b.ID, &b.CompanyID, &b.Name, &b.RegistryBrandID, &status, &verifiedAt, &createdAt)
	if err != nil {
		return nil, noRows(err)
	}
	b.VerificationStatus = domain.BrandStatus(status)
	b.VerificationDate = fromNullMillis(verifiedAt)
	b.CreatedAt = fromMillis(createdAt)
	return &b, nil
}

// SetBrandStatus projects the company brand status onto its brand rows.
func (s *Store) SetBrandStatus(ctx context.Context, companyID string, status domain.BrandStatus, at time.Time) error {
	ctx, span := tracer.Start(ctx, "SQLite.SetBrandStatus")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`UPDATE brands SET verification_status = ?, verification_date = ? WHERE company_id = ?`,
		string(status), millis(at), companyID)
	if err != nil {
		return fmt.Errorf("set brand status: %w", err)
	}
	return nil
}

// CreateCampaign inserts a campaign mirror row.
func (s *Store) CreateCampaign(ctx context.Context, c *domain.Campaign) (*domain.Campaign, error) {
	ctx, span := tracer.Start(ctx, "SQLite.CreateCampaign")
	defer span.End()

	out := *c
	out.ID = uuid.NewString()
	out.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO campaigns (id, brand_id, campaign_name, use_case, registry_campaign_id, approval_status, approval_date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.BrandID, out.Name, out.UseCase, out.RegistryCampaignID, out.ApprovalStatus,
		nullMillis(out.ApprovalDate), millis(out.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	return &out, nil
}

// SetCampaignStatus updates the approval status of campaigns mirroring
// registryCampaignID.
func (s *Store) SetCampaignStatus(ctx context.Context, registryCampaignID, status string, at time.Time) error {
	ctx, span := tracer.Start(ctx, "SQLite.SetCampaignStatus")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET approval_status = ?, approval_date = ? WHERE registry_campaign_id = ?`,
		status, millis(at), registryCampaignID)
	if err != nil {
		return fmt.Errorf("set campaign status: %w", err)
	}
	return nil
}
