package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/port"
)

var _ port.Store = (*Store)(nil)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "onboarding.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onboarding.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()

	if err := second.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestProfile_CreateAndMarkPaid(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if p, err := store.GetProfile(ctx, "u1"); err != nil || p != nil {
		t.Fatalf("expected (nil, nil) for absent profile, got (%v, %v)", p, err)
	}

	p, err := store.CreateProfile(ctx, &domain.Profile{ID: "u1", Email: "a@b.co", FullName: "Ada"})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if p.PaymentStatus != domain.PaymentPending {
		t.Fatalf("payment status = %s, want pending", p.PaymentStatus)
	}

	paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.MarkProfilePaid(ctx, "u1", domain.PaymentUpdate{
		ProcessorCustomerID: "cus_1",
		ProcessorSessionID:  "cs_1",
		PaidAt:              paidAt,
	}); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	p, err = store.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if !p.IsPaid() || p.ProcessorCustomerID != "cus_1" || p.ProcessorSessionID != "cs_1" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if p.PaymentDate == nil || !p.PaymentDate.Equal(paidAt) {
		t.Fatalf("payment date = %v, want %v", p.PaymentDate, paidAt)
	}

	if err := store.MarkProfilePaid(ctx, "missing", domain.PaymentUpdate{PaidAt: paidAt}); err == nil {
		t.Fatal("expected error for missing profile")
	}
}

func TestEnsure_IsIdempotent(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	c1, created, err := store.EnsureCustomer(ctx, &domain.Customer{
		Email: "a@b.co", CompanyName: "Acme", Platform: domain.CustomerPlatform,
		Type: domain.CustomerType, Status: domain.CustomerStatusActive,
	})
	if err != nil || !created {
		t.Fatalf("first ensure customer: created=%v err=%v", created, err)
	}
	c2, created, err := store.EnsureCustomer(ctx, &domain.Customer{Email: "a@b.co", CompanyName: "Other"})
	if err != nil || created {
		t.Fatalf("second ensure customer: created=%v err=%v", created, err)
	}
	if c1.ID != c2.ID || c2.CompanyName != "Acme" {
		t.Fatalf("expected original customer, got %+v", c2)
	}

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sub := &domain.Subscription{
		CustomerID:         c1.ID,
		PlanName:           domain.SubscriptionPlan,
		Status:             domain.SubscriptionActive,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.Add(domain.SubscriptionTerm),
	}
	if _, created, err := store.EnsureSubscription(ctx, sub); err != nil || !created {
		t.Fatalf("first ensure subscription: created=%v err=%v", created, err)
	}
	got, created, err := store.EnsureSubscription(ctx, sub)
	if err != nil || created {
		t.Fatalf("second ensure subscription: created=%v err=%v", created, err)
	}
	if !got.CurrentPeriodEnd.Equal(start.Add(domain.SubscriptionTerm)) {
		t.Fatalf("period end = %v", got.CurrentPeriodEnd)
	}

	access := &domain.CustomerAccess{CustomerID: c1.ID, PlatformUserID: "u1", AccessLevel: domain.AccessLevelStandard}
	if _, created, err := store.EnsureCustomerAccess(ctx, access); err != nil || !created {
		t.Fatalf("first ensure access: created=%v err=%v", created, err)
	}
	if _, created, err := store.EnsureCustomerAccess(ctx, access); err != nil || created {
		t.Fatalf("second ensure access: created=%v err=%v", created, err)
	}

	if _, created, err := store.EnsureUserRole(ctx, "u1", domain.RoleCustomer); err != nil || !created {
		t.Fatalf("first ensure role: created=%v err=%v", created, err)
	}
	if _, created, err := store.EnsureUserRole(ctx, "u1", domain.RoleCustomer); err != nil || created {
		t.Fatalf("second ensure role: created=%v err=%v", created, err)
	}
	ok, err := store.HasUserRole(ctx, "u1", domain.RoleCustomer)
	if err != nil || !ok {
		t.Fatalf("has role: %v %v", ok, err)
	}
	ok, err = store.HasUserRole(ctx, "u1", domain.RoleAdmin)
	if err != nil || ok {
		t.Fatalf("unexpected admin role: %v %v", ok, err)
	}
}

func TestCompany_CreateLinksUserAndProfile(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.CreateProfile(ctx, &domain.Profile{ID: "u1", Email: "a@b.co"}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	co, err := store.CreateCompany(ctx, "u1", &domain.Company{Name: "Acme"})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	if co.Status() != domain.BrandPending {
		t.Fatalf("status = %s, want pending", co.Status())
	}

	primary, err := store.GetPrimaryCompanyForUser(ctx, "u1")
	if err != nil || primary == nil || primary.ID != co.ID {
		t.Fatalf("primary company = %+v (%v), want %s", primary, err, co.ID)
	}
	p, _ := store.GetProfile(ctx, "u1")
	if p.CompanyID != co.ID {
		t.Fatalf("profile company = %q, want %q", p.CompanyID, co.ID)
	}

	upd := domain.CompanyLegalUpdate{
		LegalName: "Acme Messaging LLC",
		TaxNumber: "12-3456789",
		Address:   domain.Address{Street: "1 Market St", City: "San Francisco", State: "CA", PostalCode: "94105", Country: "US"},
	}
	if err := store.UpdateCompanyLegal(ctx, co.ID, upd, domain.BrandSubmitted); err != nil {
		t.Fatalf("update legal: %v", err)
	}
	co, _ = store.GetCompany(ctx, co.ID)
	if co.LegalName != "Acme Messaging LLC" || co.State != "CA" || co.Status() != domain.BrandSubmitted {
		t.Fatalf("unexpected company %+v", co)
	}

	if err := store.UpdateCompanyLegal(ctx, "missing", upd, domain.BrandSubmitted); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestSubmissions_LatestAndList(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	store.CreateProfile(ctx, &domain.Profile{ID: "u1", Email: "a@b.co"})
	co, err := store.CreateCompany(ctx, "u1", &domain.Company{Name: "Acme"})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}

	first, err := store.CreateSubmission(ctx, &domain.Submission{
		UserID: "u1", CompanyID: co.ID, FormData: json.RawMessage(`{"schema_version":1,"legal_company_name":"First"}`),
	})
	if err != nil {
		t.Fatalf("create first submission: %v", err)
	}
	second, err := store.CreateSubmission(ctx, &domain.Submission{
		UserID: "u1", CompanyID: co.ID, FormData: json.RawMessage(`{"schema_version":1,"legal_company_name":"Second"}`),
	})
	if err != nil {
		t.Fatalf("create second submission: %v", err)
	}

	latest, err := store.LatestSubmission(ctx, co.ID)
	if err != nil || latest.ID != second.ID {
		t.Fatalf("latest = %+v (%v), want %s", latest, err, second.ID)
	}

	approved := domain.SubmissionApproved
	brandID := "B1"
	if err := store.UpdateSubmission(ctx, first.ID, domain.SubmissionUpdate{Status: &approved, RegistryBrandID: &brandID}); err != nil {
		t.Fatalf("update submission: %v", err)
	}

	all, err := store.ListSubmissionDetails(ctx, nil)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if all[0].Company == nil || all[0].Company.ID != co.ID || all[0].Profile == nil || all[0].Profile.Email != "a@b.co" {
		t.Fatalf("expected joined company and profile, got %+v", all[0])
	}

	onlyApproved, err := store.ListSubmissionDetails(ctx, []domain.SubmissionStatus{domain.SubmissionApproved})
	if err != nil {
		t.Fatalf("list approved: %v", err)
	}
	if len(onlyApproved) != 1 || onlyApproved[0].RegistryBrandID != "B1" {
		t.Fatalf("unexpected approved list %+v", onlyApproved)
	}
}

func TestBrandAndCampaignStatus(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if got, err := store.GetBrandForCompany(ctx, "c1"); err != nil || got != nil {
		t.Fatalf("expected no brand yet, got (%+v, %v)", got, err)
	}
	b, err := store.CreateBrand(ctx, &domain.Brand{CompanyID: "c1", Name: "Acme", VerificationStatus: domain.BrandSubmitted})
	if err != nil {
		t.Fatalf("create brand: %v", err)
	}
	got, err := store.GetBrandForCompany(ctx, "c1")
	if err != nil || got == nil || got.ID != b.ID || got.Name != "Acme" {
		t.Fatalf("expected brand %s, got (%+v, %v)", b.ID, got, err)
	}
	if _, err := store.CreateCampaign(ctx, &domain.Campaign{
		BrandID: b.ID, Name: "Acme campaign", RegistryCampaignID: "C1", ApprovalStatus: "pending",
	}); err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	now := time.Now()
	if err := store.SetBrandStatus(ctx, "c1", domain.BrandApproved, now); err != nil {
		t.Fatalf("set brand status: %v", err)
	}
	if err := store.SetCampaignStatus(ctx, "C1", "active", now); err != nil {
		t.Fatalf("set campaign status: %v", err)
	}

	var brandStatus, campaignStatus string
	store.db.QueryRow(`SELECT verification_status FROM brands WHERE id = ?`, b.ID).Scan(&brandStatus)
	store.db.QueryRow(`SELECT approval_status FROM campaigns WHERE registry_campaign_id = 'C1'`).Scan(&campaignStatus)
	if brandStatus != "approved" || campaignStatus != "active" {
		t.Fatalf("brand=%s campaign=%s", brandStatus, campaignStatus)
	}
}

func TestProvisioningRuns(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	run := domain.NewProvisioningRun("evt_1", "u1")
	run.Amount = "499.00"
	started, err := store.StartRun(ctx, run)
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if started.ID == "" || started.Steps[domain.StepProfile] != domain.StepPending {
		t.Fatalf("unexpected run %+v", started)
	}

	again, err := store.StartRun(ctx, domain.NewProvisioningRun("evt_1", "someone-else"))
	if err != nil {
		t.Fatalf("restart run: %v", err)
	}
	if again.ID != started.ID || again.UserID != "u1" {
		t.Fatalf("expected existing run, got %+v", again)
	}

	started.Mark(domain.StepProfile, nil)
	started.Mark(domain.StepCustomer, context.DeadlineExceeded)
	started.Finish()
	started.Attempts = 1
	if err := store.SaveRun(ctx, started); err != nil {
		t.Fatalf("save run: %v", err)
	}

	runs, err := store.ListIncompleteRuns(ctx, base.Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != domain.RunPartial || runs[0].Steps[domain.StepCustomer] != domain.StepFailed {
		t.Fatalf("unexpected runs %+v", runs)
	}

	runs, err = store.ListIncompleteRuns(ctx, base, 10)
	if err != nil || len(runs) != 0 {
		t.Fatalf("expected grace period to exclude fresh runs, got %d (%v)", len(runs), err)
	}
}
