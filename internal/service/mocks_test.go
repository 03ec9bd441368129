package service_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
)

// --- In-memory store ---

// memStore is a port.Store keeping rows in maps. Failures are injected per
// method name through fail; calls records every write in order.
type memStore struct {
	mu sync.Mutex

	profiles      map[string]*domain.Profile
	companies     map[string]*domain.Company
	companyLinks  map[string]string // user id -> primary company id
	submissions   []*domain.Submission
	brands        []*domain.Brand
	campaigns     []*domain.Campaign
	customers     map[string]*domain.Customer // by email
	subscriptions map[string]*domain.Subscription
	access        map[string]*domain.CustomerAccess
	roles         map[string]bool // user id + "|" + role
	runs          map[string]*domain.ProvisioningRun

	fail  map[string]error
	calls []string
	seq   int
	clock time.Time
}

func newMemStore() *memStore {
	return &memStore{
		profiles:      map[string]*domain.Profile{},
		companies:     map[string]*domain.Company{},
		companyLinks:  map[string]string{},
		customers:     map[string]*domain.Customer{},
		subscriptions: map[string]*domain.Subscription{},
		access:        map[string]*domain.CustomerAccess{},
		roles:         map[string]bool{},
		runs:          map[string]*domain.ProvisioningRun{},
		fail:          map[string]error{},
		clock:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// record logs the call and returns the injected failure, if any.
func (m *memStore) record(method string) error {
	m.calls = append(m.calls, method)
	return m.fail[method]
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) callCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (m *memStore) writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.calls {
		if !strings.HasPrefix(c, "Get") && !strings.HasPrefix(c, "Latest") &&
			!strings.HasPrefix(c, "List") && !strings.HasPrefix(c, "Has") {
			out = append(out, c)
		}
	}
	return out
}

// seedPaidUser adds a paid profile with a linked company in the given status.
func (m *memStore) seedPaidUser(userID, companyID string, status domain.BrandStatus) {
	m.profiles[userID] = &domain.Profile{
		ID: userID, Email: userID + "@example.com", PaymentStatus: domain.PaymentPaid, CompanyID: companyID,
	}
	if companyID != "" {
		m.companies[companyID] = &domain.Company{ID: companyID, Name: "Acme", BrandVerificationStatus: status}
		m.companyLinks[userID] = companyID
	}
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetProfile"); err != nil {
		return nil, err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) CreateProfile(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CreateProfile"); err != nil {
		return nil, err
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return p, nil
}

func (m *memStore) MarkProfilePaid(_ context.Context, userID string, upd domain.PaymentUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("MarkProfilePaid"); err != nil {
		return err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	paidAt := upd.PaidAt
	p.PaymentStatus = domain.PaymentPaid
	p.PaymentDate = &paidAt
	p.ProcessorCustomerID = upd.ProcessorCustomerID
	p.ProcessorSessionID = upd.ProcessorSessionID
	return nil
}

func (m *memStore) EnsureUserRole(_ context.Context, userID, role string) (*domain.UserRole, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("EnsureUserRole"); err != nil {
		return nil, false, err
	}
	key := userID + "|" + role
	created := !m.roles[key]
	m.roles[key] = true
	return &domain.UserRole{UserID: userID, Role: role}, created, nil
}

func (m *memStore) HasUserRole(_ context.Context, userID, role string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("HasUserRole"); err != nil {
		return false, err
	}
	return m.roles[userID+"|"+role], nil
}

func (m *memStore) GetCompany(_ context.Context, companyID string) (*domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetCompany"); err != nil {
		return nil, err
	}
	c, ok := m.companies[companyID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetPrimaryCompanyForUser(_ context.Context, userID string) (*domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetPrimaryCompanyForUser"); err != nil {
		return nil, err
	}
	c, ok := m.companies[m.companyLinks[userID]]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) CreateCompany(_ context.Context, userID string, c *domain.Company) (*domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CreateCompany"); err != nil {
		return nil, err
	}
	cp := *c
	cp.ID = m.nextID("company")
	m.companies[cp.ID] = &cp
	m.companyLinks[userID] = cp.ID
	if p, ok := m.profiles[userID]; ok {
		p.CompanyID = cp.ID
	}
	out := cp
	return &out, nil
}

func (m *memStore) UpdateCompanyLegal(_ context.Context, companyID string, upd domain.CompanyLegalUpdate, status domain.BrandStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpdateCompanyLegal"); err != nil {
		return err
	}
	c, ok := m.companies[companyID]
	if !ok {
		return &domain.ErrNotFound{Resource: "company", ID: companyID}
	}
	c.LegalName = upd.LegalName
	c.TaxNumber = upd.TaxNumber
	c.Website = upd.Website
	c.BusinessPhone = upd.BusinessPhone
	c.State = upd.Address.State
	c.PostalCode = upd.Address.PostalCode
	c.BrandVerificationStatus = status
	return nil
}

func (m *memStore) SetCompanyBrandStatus(_ context.Context, companyID string, status domain.BrandStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SetCompanyBrandStatus"); err != nil {
		return err
	}
	c, ok := m.companies[companyID]
	if !ok {
		return &domain.ErrNotFound{Resource: "company", ID: companyID}
	}
	c.BrandVerificationStatus = status
	c.BrandVerificationDate = &at
	return nil
}

func (m *memStore) SetCompanyRegistryBrandID(_ context.Context, companyID, registryBrandID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SetCompanyRegistryBrandID"); err != nil {
		return err
	}
	c, ok := m.companies[companyID]
	if !ok {
		return &domain.ErrNotFound{Resource: "company", ID: companyID}
	}
	c.RegistryBrandID = registryBrandID
	return nil
}

func (m *memStore) CreateSubmission(_ context.Context, s *domain.Submission) (*domain.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CreateSubmission"); err != nil {
		return nil, err
	}
	cp := *s
	cp.ID = m.nextID("sub")
	cp.CreatedAt = m.tick()
	m.submissions = append(m.submissions, &cp)
	out := cp
	return &out, nil
}

func (m *memStore) GetSubmission(_ context.Context, id string) (*domain.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetSubmission"); err != nil {
		return nil, err
	}
	for _, s := range m.submissions {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) LatestSubmission(_ context.Context, companyID string) (*domain.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("LatestSubmission"); err != nil {
		return nil, err
	}
	for i := len(m.submissions) - 1; i >= 0; i-- {
		if m.submissions[i].CompanyID == companyID {
			cp := *m.submissions[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListSubmissionDetails(_ context.Context, status []domain.SubmissionStatus) ([]domain.SubmissionDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListSubmissionDetails"); err != nil {
		return nil, err
	}
	want := map[domain.SubmissionStatus]bool{}
	for _, s := range status {
		want[s] = true
	}
	var out []domain.SubmissionDetail
	for _, s := range m.submissions {
		if len(want) > 0 && !want[s.Status] {
			continue
		}
		d := domain.SubmissionDetail{Submission: *s}
		if c, ok := m.companies[s.CompanyID]; ok {
			cp := *c
			d.Company = &cp
		}
		if p, ok := m.profiles[s.UserID]; ok {
			cp := *p
			d.Profile = &cp
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) UpdateSubmission(_ context.Context, id string, upd domain.SubmissionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("UpdateSubmission"); err != nil {
		return err
	}
	for _, s := range m.submissions {
		if s.ID != id {
			continue
		}
		if upd.Status != nil {
			s.Status = *upd.Status
		}
		if upd.RegistryBrandID != nil {
			s.RegistryBrandID = *upd.RegistryBrandID
		}
		if upd.RegistryCampaignID != nil {
			s.RegistryCampaignID = *upd.RegistryCampaignID
		}
		if upd.ProcessedAt != nil {
			s.ProcessedAt = upd.ProcessedAt
		}
		return nil
	}
	return &domain.ErrNotFound{Resource: "submission", ID: id}
}

func (m *memStore) CreateBrand(_ context.Context, b *domain.Brand) (*domain.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CreateBrand"); err != nil {
		return nil, err
	}
	cp := *b
	cp.ID = m.nextID("brand")
	m.brands = append(m.brands, &cp)
	out := cp
	return &out, nil
}

func (m *memStore) GetBrandForCompany(_ context.Context, companyID string) (*domain.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("GetBrandForCompany"); err != nil {
		return nil, err
	}
	for _, b := range m.brands {
		if b.CompanyID == companyID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) SetBrandStatus(_ context.Context, companyID string, status domain.BrandStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SetBrandStatus"); err != nil {
		return err
	}
	for _, b := range m.brands {
		if b.CompanyID == companyID {
			b.VerificationStatus = status
			b.VerificationDate = &at
		}
	}
	return nil
}

func (m *memStore) CreateCampaign(_ context.Context, c *domain.Campaign) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("CreateCampaign"); err != nil {
		return nil, err
	}
	cp := *c
	cp.ID = m.nextID("campaign")
	m.campaigns = append(m.campaigns, &cp)
	out := cp
	return &out, nil
}

func (m *memStore) SetCampaignStatus(_ context.Context, registryCampaignID, status string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SetCampaignStatus"); err != nil {
		return err
	}
	for _, c := range m.campaigns {
		if c.RegistryCampaignID == registryCampaignID {
			c.ApprovalStatus = status
			c.ApprovalDate = &at
		}
	}
	return nil
}

func (m *memStore) EnsureCustomer(_ context.Context, c *domain.Customer) (*domain.Customer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("EnsureCustomer"); err != nil {
		return nil, false, err
	}
	if existing, ok := m.customers[c.Email]; ok {
		return existing, false, nil
	}
	cp := *c
	cp.ID = m.nextID("cust")
	m.customers[c.Email] = &cp
	return &cp, true, nil
}

func (m *memStore) EnsureSubscription(_ context.Context, s *domain.Subscription) (*domain.Subscription, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("EnsureSubscription"); err != nil {
		return nil, false, err
	}
	if existing, ok := m.subscriptions[s.CustomerID]; ok {
		return existing, false, nil
	}
	cp := *s
	cp.ID = m.nextID("subscr")
	m.subscriptions[s.CustomerID] = &cp
	return &cp, true, nil
}

func (m *memStore) EnsureCustomerAccess(_ context.Context, a *domain.CustomerAccess) (*domain.CustomerAccess, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("EnsureCustomerAccess"); err != nil {
		return nil, false, err
	}
	if existing, ok := m.access[a.CustomerID]; ok {
		return existing, false, nil
	}
	cp := *a
	cp.ID = m.nextID("access")
	m.access[a.CustomerID] = &cp
	return &cp, true, nil
}

func (m *memStore) StartRun(_ context.Context, run *domain.ProvisioningRun) (*domain.ProvisioningRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("StartRun"); err != nil {
		return nil, err
	}
	if existing, ok := m.runs[run.EventID]; ok {
		cp := *existing
		cp.Steps = copySteps(existing.Steps)
		return &cp, nil
	}
	cp := *run
	cp.ID = m.nextID("run")
	cp.CreatedAt = m.clock
	cp.UpdatedAt = m.clock
	cp.Steps = copySteps(run.Steps)
	m.runs[run.EventID] = &cp
	out := cp
	out.Steps = copySteps(cp.Steps)
	return &out, nil
}

func (m *memStore) SaveRun(_ context.Context, run *domain.ProvisioningRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("SaveRun"); err != nil {
		return err
	}
	cp := *run
	cp.Steps = copySteps(run.Steps)
	m.runs[run.EventID] = &cp
	return nil
}

func (m *memStore) ListIncompleteRuns(_ context.Context, olderThan time.Time, limit int) ([]domain.ProvisioningRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("ListIncompleteRuns"); err != nil {
		return nil, err
	}
	var out []domain.ProvisioningRun
	for _, r := range m.runs {
		if r.Status == domain.RunComplete || !r.UpdatedAt.Before(olderThan) {
			continue
		}
		cp := *r
		cp.Steps = copySteps(r.Steps)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) run(eventID string) *domain.ProvisioningRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[eventID]
}

func copySteps(in map[domain.ProvisioningStep]string) map[domain.ProvisioningStep]string {
	out := make(map[domain.ProvisioningStep]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// --- Registry ---

type mockRegistry struct {
	mu sync.Mutex

	brand       *domain.BrandResult
	campaign    *domain.CampaignResult
	brandErr    error
	campaignErr error

	brandStatus    map[string]string
	campaignStatus map[string]string
	statusErr      error

	submittedBrands    []*domain.BrandRequest
	submittedCampaigns []*domain.CampaignRequest
	checks             int
}

func (m *mockRegistry) SubmitBrand(_ context.Context, req *domain.BrandRequest) (*domain.BrandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submittedBrands = append(m.submittedBrands, req)
	if m.brandErr != nil {
		return nil, m.brandErr
	}
	return m.brand, nil
}

func (m *mockRegistry) SubmitCampaign(_ context.Context, req *domain.CampaignRequest) (*domain.CampaignResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submittedCampaigns = append(m.submittedCampaigns, req)
	if m.campaignErr != nil {
		return nil, m.campaignErr
	}
	return m.campaign, nil
}

func (m *mockRegistry) CheckBrandStatus(_ context.Context, brandID string) (*domain.BrandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return &domain.BrandResult{BrandID: brandID, Status: m.brandStatus[brandID]}, nil
}

func (m *mockRegistry) CheckCampaignStatus(_ context.Context, campaignID string) (*domain.CampaignResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks++
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return &domain.CampaignResult{CampaignID: campaignID, Status: m.campaignStatus[campaignID]}, nil
}

func (m *mockRegistry) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checks + len(m.submittedBrands) + len(m.submittedCampaigns)
}

// --- Fixtures ---

func validBrandForm() *domain.BrandForm {
	return &domain.BrandForm{
		LegalCompanyName:    "Acme Messaging LLC",
		TaxNumberEIN:        "123456789",
		AddressStreet:       "1 Main St",
		AddressCity:         "Austin",
		AddressState:        "TX",
		AddressPostalCode:   "73301",
		Website:             "acme.example.com",
		BusinessPhone:       "(512) 555-0100",
		VerticalType:        "technology",
		LegalForm:           "llc",
		ContactFirstName:    "Ada",
		ContactLastName:     "Lovelace",
		ContactEmail:        "ada@acme.example.com",
		ContactPhone:        "512-555-0101",
		CampaignUseCase:     "account_notifications",
		CampaignDescription: "Order updates",
		SampleMessages:      []string{"Your order has shipped."},
	}
}
