package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/observability"
	"github.com/boddenberg/sms-onboarding-bfa/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var reconcilerTracer = otel.Tracer("service/reconciler")

// zeroDecimalCurrencies are charged in whole units by the payment processor.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// errNoCustomer marks steps skipped because the customer step failed.
var errNoCustomer = errors.New("customer record unavailable")

// Reconciler provisions billing records when a checkout completes. Every
// step after the profile update is attempted independently and recorded in
// the provisioning run log, so a later repair sweep can finish the job.
type Reconciler struct {
	store   port.Store
	metrics *observability.Metrics
	logger  *zap.Logger
	grace   time.Duration
	now     func() time.Time
}

// NewReconciler creates the payment reconciler. grace is how long a run
// must sit unfinished before Repair picks it up.
func NewReconciler(store port.Store, metrics *observability.Metrics, logger *zap.Logger, grace time.Duration) *Reconciler {
	return &Reconciler{
		store:   store,
		metrics: metrics,
		logger:  logger,
		grace:   grace,
		now:     time.Now,
	}
}

// provisionInput is the identity the billing steps are keyed on.
type provisionInput struct {
	UserID      string
	Email       string
	CompanyName string
	PaidAt      time.Time
}

// HandleCheckoutCompleted applies a verified checkout completion. It returns
// an error only when the event is unusable or the profile could not be
// marked paid; billing step failures are reported through the returned run.
func (r *Reconciler) HandleCheckoutCompleted(ctx context.Context, ev *domain.CheckoutCompleted) (*domain.ProvisioningRun, error) {
	ctx, span := reconcilerTracer.Start(ctx, "Reconciler.HandleCheckoutCompleted")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.id", ev.EventID),
		attribute.String("user.id", ev.UserID),
	)

	start := r.now()
	defer func() {
		r.metrics.RecordRequestDuration("reconcile", time.Since(start))
	}()

	if strings.TrimSpace(ev.UserID) == "" {
		return nil, &domain.ErrValidation{Field: "metadata.user_id", Message: "required"}
	}
	log := r.logger.With(zap.String("event_id", ev.EventID), zap.String("user_id", ev.UserID))

	paidAt := ev.OccurredAt
	if paidAt.IsZero() {
		paidAt = r.now()
	}

	run := r.startRun(ctx, ev, log)
	if run.Status == domain.RunComplete {
		log.Info("checkout already provisioned, skipping")
		return run, nil
	}
	run.Attempts++

	// Profile first: nothing else is provisioned for an unpaid profile.
	profile, err := r.markPaid(ctx, ev, paidAt)
	run.Mark(domain.StepProfile, err)
	r.metrics.IncrProvisionStep(domain.StepProfile, err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Error("failed to mark profile paid", zap.Error(err))
		run.Finish()
		r.saveRun(ctx, run, log)
		return run, fmt.Errorf("marking profile paid: %w", err)
	}

	// Customers are keyed on the profile email; the checkout email only
	// fills in for a profile without one.
	email := profile.Email
	if email == "" {
		email = ev.Email
	}
	in := provisionInput{
		UserID:      ev.UserID,
		Email:       email,
		CompanyName: r.companyName(ctx, profile, ev.CompanyName, log),
		PaidAt:      paidAt,
	}
	r.provision(ctx, run, in, log)

	run.Finish()
	r.saveRun(ctx, run, log)

	if run.Status == domain.RunComplete {
		log.Info("checkout provisioned", zap.Int("attempt", run.Attempts))
	} else {
		log.Warn("checkout partially provisioned",
			zap.String("last_error", run.LastError),
			zap.Strings("pending_steps", stepNames(run.PendingSteps())),
		)
	}
	return run, nil
}

// markPaid loads or self-heals the profile and promotes it to paid.
func (r *Reconciler) markPaid(ctx context.Context, ev *domain.CheckoutCompleted, paidAt time.Time) (*domain.Profile, error) {
	profile, err := r.store.GetProfile(ctx, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if profile == nil {
		r.logger.Warn("profile missing at checkout, creating it", zap.String("user_id", ev.UserID))
		profile, err = r.store.CreateProfile(ctx, &domain.Profile{
			ID:            ev.UserID,
			Email:         ev.Email,
			FullName:      ev.Name,
			Phone:         ev.Phone,
			PaymentStatus: domain.PaymentPending,
		})
		if err != nil {
			return nil, fmt.Errorf("creating profile: %w", err)
		}
	}

	upd := domain.PaymentUpdate{
		ProcessorCustomerID: ev.ProcessorCustomerID,
		ProcessorSessionID:  ev.SessionID,
		PaidAt:              paidAt,
	}
	if err := r.store.MarkProfilePaid(ctx, ev.UserID, upd); err != nil {
		return nil, err
	}
	profile.PaymentStatus = domain.PaymentPaid
	profile.PaymentDate = &paidAt
	return profile, nil
}

// companyName prefers the linked company, then the checkout metadata.
// Lookup failures are logged and never fatal.
func (r *Reconciler) companyName(ctx context.Context, profile *domain.Profile, fallback string, log *zap.Logger) string {
	company, err := companyForUser(ctx, r.store, profile.ID, profile.CompanyID)
	if err != nil {
		log.Warn("company lookup failed, using checkout metadata", zap.Error(err))
	}
	if company != nil {
		if company.LegalName != "" {
			return company.LegalName
		}
		if company.Name != "" {
			return company.Name
		}
	}
	return fallback
}

// provision runs the four billing steps. Each is attempted regardless of
// the others; subscription and access need the customer id.
func (r *Reconciler) provision(ctx context.Context, run *domain.ProvisioningRun, in provisionInput, log *zap.Logger) {
	var customer *domain.Customer
	err := func() error {
		if in.Email == "" {
			return &domain.ErrValidation{Field: "email", Message: "no email on checkout or profile"}
		}
		c, created, err := r.store.EnsureCustomer(ctx, &domain.Customer{
			Email:       in.Email,
			CompanyName: in.CompanyName,
			Platform:    domain.CustomerPlatform,
			Type:        domain.CustomerType,
			Status:      domain.CustomerStatusActive,
		})
		if err == nil {
			customer = c
			log.Debug("customer ensured", zap.String("customer_id", c.ID), zap.Bool("created", created))
		}
		return err
	}()
	r.record(run, domain.StepCustomer, err, log)

	err = errNoCustomer
	if customer != nil {
		_, _, err = r.store.EnsureSubscription(ctx, &domain.Subscription{
			CustomerID:         customer.ID,
			PlanName:           domain.SubscriptionPlan,
			Status:             domain.SubscriptionActive,
			CurrentPeriodStart: in.PaidAt,
			CurrentPeriodEnd:   in.PaidAt.Add(domain.SubscriptionTerm),
		})
	}
	r.record(run, domain.StepSubscription, err, log)

	err = errNoCustomer
	if customer != nil {
		_, _, err = r.store.EnsureCustomerAccess(ctx, &domain.CustomerAccess{
			CustomerID:          customer.ID,
			PlatformUserID:      in.UserID,
			AccessLevel:         domain.AccessLevelStandard,
			OnboardingCompleted: false,
		})
	}
	r.record(run, domain.StepCustomerAccess, err, log)

	_, _, err = r.store.EnsureUserRole(ctx, in.UserID, domain.RoleCustomer)
	r.record(run, domain.StepRole, err, log)
}

func (r *Reconciler) record(run *domain.ProvisioningRun, step domain.ProvisioningStep, err error, log *zap.Logger) {
	run.Mark(step, err)
	r.metrics.IncrProvisionStep(step, err)
	if err != nil {
		log.Error("provisioning step failed", zap.String("step", string(step)), zap.Error(err))
	}
}

// startRun opens the run log entry for the event. A failing log store does
// not block provisioning; the run is then kept in memory only.
func (r *Reconciler) startRun(ctx context.Context, ev *domain.CheckoutCompleted, log *zap.Logger) *domain.ProvisioningRun {
	run := domain.NewProvisioningRun(ev.EventID, ev.UserID)
	run.SessionID = ev.SessionID
	run.Amount = formatAmount(ev.AmountTotal, ev.Currency)
	run.Currency = strings.ToLower(ev.Currency)

	if ev.EventID == "" {
		return run
	}
	stored, err := r.store.StartRun(ctx, run)
	if err != nil {
		log.Error("failed to open provisioning run", zap.Error(err))
		return run
	}
	return stored
}

func (r *Reconciler) saveRun(ctx context.Context, run *domain.ProvisioningRun, log *zap.Logger) {
	if run.ID == "" {
		return
	}
	if err := r.store.SaveRun(ctx, run); err != nil {
		log.Error("failed to save provisioning run", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// formatAmount renders a minor-unit amount as a decimal string in major units.
func formatAmount(minor int64, currency string) string {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return decimal.NewFromInt(minor).StringFixed(0)
	}
	return decimal.New(minor, -2).StringFixed(2)
}

func stepNames(steps []domain.ProvisioningStep) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = string(s)
	}
	return out
}
