package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/observability"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/resilience"
	"github.com/boddenberg/sms-onboarding-bfa/internal/port"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var adminTracer = otel.Tracer("service/admin")

// AdminService backs the staff reconciliation view: it lists submissions
// with their company and profile, and pulls registry status back into the
// store.
type AdminService struct {
	store    port.Store
	registry port.RegistryClient
	cache    port.Cache[*domain.OnboardingStatus]
	metrics  *observability.Metrics
	logger   *zap.Logger
	bulkhead *resilience.Bulkhead
	now      func() time.Time
}

// NewAdminService creates the admin service. maxConcurrency bounds the
// registry calls made by RefreshAll.
func NewAdminService(
	store port.Store,
	registry port.RegistryClient,
	cache port.Cache[*domain.OnboardingStatus],
	metrics *observability.Metrics,
	logger *zap.Logger,
	maxConcurrency int,
) *AdminService {
	return &AdminService{
		store:    store,
		registry: registry,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		bulkhead: resilience.NewBulkhead(maxConcurrency),
		now:      time.Now,
	}
}

// ListSubmissions returns submissions newest first, optionally narrowed to
// one bucket: pending, approved or rejected. "" and "all" list everything.
func (s *AdminService) ListSubmissions(ctx context.Context, bucket string) ([]domain.SubmissionDetail, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.ListSubmissions")
	defer span.End()

	bucket = strings.ToLower(strings.TrimSpace(bucket))
	span.SetAttributes(attribute.String("bucket", bucket))

	var filter []domain.SubmissionStatus
	switch bucket {
	case "", "all", "pending":
	case "approved":
		filter = []domain.SubmissionStatus{domain.SubmissionApproved}
	case "rejected":
		filter = []domain.SubmissionStatus{domain.SubmissionRejected}
	default:
		return nil, &domain.ErrValidation{Field: "status", Message: "must be one of pending, approved, rejected, all"}
	}

	rows, err := s.store.ListSubmissionDetails(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}

	now := s.now()
	out := make([]domain.SubmissionDetail, 0, len(rows))
	for _, row := range rows {
		row.Bucket = row.Status.Bucket()
		if bucket == "pending" && row.Bucket != "pending" {
			continue
		}
		row.Age = humanize.RelTime(row.CreatedAt, now, "ago", "from now")
		out = append(out, row)
	}
	return out, nil
}

// RefreshSubmission re-reads registry status for one submission. The
// company status, campaign status and submission status are written
// independently; a failed write is logged and reported without stopping
// the others.
func (s *AdminService) RefreshSubmission(ctx context.Context, submissionID string) (*domain.RefreshResult, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.RefreshSubmission")
	defer span.End()
	span.SetAttributes(attribute.String("submission.id", submissionID))

	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("loading submission: %w", err)
	}
	if sub == nil {
		return nil, &domain.ErrNotFound{Resource: "submission", ID: submissionID}
	}
	return s.refresh(ctx, sub), nil
}

func (s *AdminService) refresh(ctx context.Context, sub *domain.Submission) *domain.RefreshResult {
	log := s.logger.With(zap.String("submission_id", sub.ID), zap.String("company_id", sub.CompanyID))
	res := &domain.RefreshResult{SubmissionID: sub.ID, SubmissionStatus: sub.Status}
	now := s.now().UTC()

	fail := func(what string, err error) {
		log.Error("refresh write failed", zap.String("write", what), zap.Error(err))
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", what, err))
	}

	if sub.RegistryBrandID != "" {
		brand, err := s.registry.CheckBrandStatus(ctx, sub.RegistryBrandID)
		if err != nil {
			fail("brand status", err)
		} else {
			status := domain.NormalizeBrandStatus(brand.Status)
			res.BrandStatus = string(status)
			// A submitted company is never moved back to pending; the
			// registry reports pending until vetting starts.
			if status != domain.BrandPending {
				if err := s.store.SetCompanyBrandStatus(ctx, sub.CompanyID, status, now); err != nil {
					fail("company status", err)
				}
			}
			if err := s.store.SetBrandStatus(ctx, sub.CompanyID, status, now); err != nil {
				fail("brand projection", err)
			}
		}
	}

	if sub.RegistryCampaignID != "" {
		campaign, err := s.registry.CheckCampaignStatus(ctx, sub.RegistryCampaignID)
		if err != nil {
			fail("campaign status", err)
		} else {
			res.CampaignStatus = strings.ToLower(campaign.Status)
			if err := s.store.SetCampaignStatus(ctx, sub.RegistryCampaignID, res.CampaignStatus, now); err != nil {
				fail("campaign approval", err)
			}
		}
	}

	next := domain.SubmissionSubmitted
	if sub.RegistryBrandID != "" && sub.RegistryCampaignID != "" {
		next = domain.SubmissionApproved
	}
	if !sub.Status.CanTransition(next) {
		fail("submission status", &domain.ErrInvalidTransition{From: string(sub.Status), Event: "set " + string(next)})
	} else if err := s.store.UpdateSubmission(ctx, sub.ID, domain.SubmissionUpdate{Status: &next, ProcessedAt: &now}); err != nil {
		fail("submission status", err)
	} else {
		res.SubmissionStatus = next
	}

	s.cache.Delete(statusCacheKey(sub.UserID))
	log.Info("submission refreshed",
		zap.String("brand_status", res.BrandStatus),
		zap.String("campaign_status", res.CampaignStatus),
		zap.String("submission_status", string(res.SubmissionStatus)),
		zap.Int("errors", len(res.Errors)),
	)
	return res
}

// RefreshAll refreshes every submission that carries a registry id, with at
// most maxConcurrency refreshes in flight.
func (s *AdminService) RefreshAll(ctx context.Context) ([]domain.RefreshResult, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.RefreshAll")
	defer span.End()

	rows, err := s.store.ListSubmissionDetails(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}

	var (
		mu      sync.Mutex
		results = make([]domain.RefreshResult, 0, len(rows))
	)
	g, gCtx := errgroup.WithContext(ctx)
	for i := range rows {
		sub := rows[i].Submission
		if sub.RegistryBrandID == "" && sub.RegistryCampaignID == "" {
			continue
		}
		g.Go(func() error {
			if err := s.bulkhead.Acquire(gCtx); err != nil {
				return err
			}
			defer s.bulkhead.Release()

			res := s.refresh(gCtx, &sub)
			mu.Lock()
			results = append(results, *res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	span.SetAttributes(attribute.Int("refreshed", len(results)))
	return results, nil
}

// ProvisioningSnapshot reports reconciler counters since process start.
func (s *AdminService) ProvisioningSnapshot() *domain.ProvisioningSnapshot {
	return s.metrics.ProvisioningSnapshot()
}
