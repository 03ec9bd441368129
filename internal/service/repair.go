package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Repair finishes provisioning runs that stayed running or partial for
// longer than the grace period. Identity comes from the stored profile;
// every step is idempotent so completed steps are simply confirmed again.
func (r *Reconciler) Repair(ctx context.Context, limit int) (*domain.RepairReport, error) {
	ctx, span := reconcilerTracer.Start(ctx, "Reconciler.Repair")
	defer span.End()

	cutoff := r.now().Add(-r.grace)
	runs, err := r.store.ListIncompleteRuns(ctx, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("listing incomplete runs: %w", err)
	}
	span.SetAttributes(attribute.Int("runs", len(runs)))

	report := &domain.RepairReport{Scanned: len(runs)}
	for i := range runs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		run := &runs[i]
		if r.repairRun(ctx, run) {
			report.Repaired++
			report.RunIDs = append(report.RunIDs, run.ID)
			r.metrics.IncrRepair()
		} else {
			report.Failed++
		}
	}

	r.logger.Info("repair sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("repaired", report.Repaired),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// repairRun re-drives one run and reports whether it is now complete.
func (r *Reconciler) repairRun(ctx context.Context, run *domain.ProvisioningRun) bool {
	log := r.logger.With(
		zap.String("run_id", run.ID),
		zap.String("event_id", run.EventID),
		zap.String("user_id", run.UserID),
	)
	run.Attempts++

	profile, err := r.store.GetProfile(ctx, run.UserID)
	if err == nil && profile == nil {
		err = &domain.ErrNotFound{Resource: "profile", ID: run.UserID}
	}
	if err == nil && !profile.IsPaid() {
		paidAt := run.CreatedAt
		if paidAt.IsZero() {
			paidAt = r.now()
		}
		err = r.store.MarkProfilePaid(ctx, run.UserID, domain.PaymentUpdate{
			ProcessorCustomerID: profile.ProcessorCustomerID,
			ProcessorSessionID:  run.SessionID,
			PaidAt:              paidAt,
		})
		if err == nil {
			profile.PaymentStatus = domain.PaymentPaid
			profile.PaymentDate = &paidAt
		}
	}
	r.record(run, domain.StepProfile, err, log)
	if err != nil {
		run.Finish()
		r.saveRun(ctx, run, log)
		return false
	}

	paidAt := run.CreatedAt
	if profile.PaymentDate != nil {
		paidAt = *profile.PaymentDate
	}
	r.provision(ctx, run, provisionInput{
		UserID:      run.UserID,
		Email:       profile.Email,
		CompanyName: r.companyName(ctx, profile, "", log),
		PaidAt:      paidAt,
	}, log)

	run.Finish()
	r.saveRun(ctx, run, log)
	return run.Status == domain.RunComplete
}
