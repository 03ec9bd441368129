package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ============================================================
// Onboarding submissions
// ============================================================

// SubmissionStatus is the lifecycle of one submission attempt:
//
//	submitted -> processing -> approved | rejected
//	submitted -> approved | rejected
//
// approved and rejected are terminal for the attempt; a new attempt is a new row.
type SubmissionStatus string

const (
	SubmissionSubmitted  SubmissionStatus = "submitted"
	SubmissionProcessing SubmissionStatus = "processing"
	SubmissionApproved   SubmissionStatus = "approved"
	SubmissionRejected   SubmissionStatus = "rejected"
)

// CanTransition reports whether a submission may move from s to next.
// Re-applying the current status is always allowed.
func (s SubmissionStatus) CanTransition(next SubmissionStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case SubmissionSubmitted:
		return next == SubmissionProcessing || next == SubmissionApproved || next == SubmissionRejected
	case SubmissionProcessing:
		return next == SubmissionApproved || next == SubmissionRejected || next == SubmissionSubmitted
	case SubmissionApproved, SubmissionRejected:
		// An admin refresh may reopen an attempt whose registry ids are incomplete.
		return next == SubmissionSubmitted
	}
	return false
}

// Bucket is the coarse admin filter a submission falls into.
func (s SubmissionStatus) Bucket() string {
	switch s {
	case SubmissionApproved:
		return "approved"
	case SubmissionRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Submission is one recorded attempt to provide brand data
// (table: onboarding_submissions). Rows are append-only.
type Submission struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"user_id"`
	CompanyID          string           `json:"company_id"`
	FormData           json.RawMessage  `json:"form_data"`
	Status             SubmissionStatus `json:"status"`
	RegistryBrandID    string           `json:"registry_brand_id,omitempty"`
	RegistryCampaignID string           `json:"registry_campaign_id,omitempty"`
	ProcessedAt        *time.Time       `json:"processed_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Form decodes the stored payload.
func (s *Submission) Form() (*BrandForm, error) {
	return DecodeBrandForm(s.FormData)
}

// SubmissionUpdate patches registry-side fields of a submission.
// Nil fields are left untouched.
type SubmissionUpdate struct {
	Status             *SubmissionStatus
	RegistryBrandID    *string
	RegistryCampaignID *string
	ProcessedAt        *time.Time
}

// ============================================================
// Brand form (versioned submission payload)
// ============================================================

// BrandFormVersion is the schema version written by this build.
const BrandFormVersion = 1

// BrandForm is the brand-verification form as captured from the user.
type BrandForm struct {
	SchemaVersion int `json:"schema_version"`

	LegalCompanyName      string `json:"legal_company_name"`
	DBAName               string `json:"dba_name,omitempty"`
	TaxNumberEIN          string `json:"tax_number_ein"`
	TaxIssuingCountry     string `json:"tax_issuing_country"`
	CountryOfRegistration string `json:"country_of_registration"`

	AddressStreet     string `json:"address_street"`
	AddressCity       string `json:"address_city"`
	AddressState      string `json:"address_state"`
	AddressPostalCode string `json:"address_postal_code"`
	AddressCountry    string `json:"address_country"`

	Website       string `json:"website"`
	BusinessPhone string `json:"business_phone"`
	VerticalType  string `json:"vertical_type"`
	LegalForm     string `json:"legal_form"`

	ContactFirstName string `json:"contact_first_name"`
	ContactLastName  string `json:"contact_last_name"`
	ContactEmail     string `json:"contact_email"`
	ContactPhone     string `json:"contact_phone"`

	// Campaign details; optional at brand time, required for registry campaign submission.
	CampaignUseCase     string   `json:"campaign_use_case,omitempty"`
	CampaignDescription string   `json:"campaign_description,omitempty"`
	SampleMessages      []string `json:"sample_messages,omitempty"`
	MessageFlow         string   `json:"message_flow,omitempty"`
}

// RequiredFields lists the form fields that must be non-empty, in display order.
func (f *BrandForm) RequiredFields() []struct{ Name, Value string } {
	return []struct{ Name, Value string }{
		{"legal_company_name", f.LegalCompanyName},
		{"tax_number_ein", f.TaxNumberEIN},
		{"address_street", f.AddressStreet},
		{"address_city", f.AddressCity},
		{"address_state", f.AddressState},
		{"address_postal_code", f.AddressPostalCode},
		{"website", f.Website},
		{"business_phone", f.BusinessPhone},
		{"vertical_type", f.VerticalType},
		{"legal_form", f.LegalForm},
		{"contact_first_name", f.ContactFirstName},
		{"contact_last_name", f.ContactLastName},
		{"contact_email", f.ContactEmail},
		{"contact_phone", f.ContactPhone},
	}
}

// CheckRequired returns an ErrValidation naming the first missing required field.
func (f *BrandForm) CheckRequired() error {
	for _, fld := range f.RequiredFields() {
		if strings.TrimSpace(fld.Value) == "" {
			return &ErrValidation{Field: fld.Name, Message: "required"}
		}
	}
	return nil
}

// ApplyDefaults fills country fields and the schema version.
func (f *BrandForm) ApplyDefaults() {
	if f.SchemaVersion == 0 {
		f.SchemaVersion = BrandFormVersion
	}
	if f.TaxIssuingCountry == "" {
		f.TaxIssuingCountry = "US"
	}
	if f.CountryOfRegistration == "" {
		f.CountryOfRegistration = "US"
	}
	if f.AddressCountry == "" {
		f.AddressCountry = "US"
	}
}

// DecodeBrandForm parses a stored payload. Payloads without a version are
// treated as version 1; newer versions are refused rather than guessed at.
func DecodeBrandForm(raw json.RawMessage) (*BrandForm, error) {
	if len(raw) == 0 {
		return nil, &ErrValidation{Field: "form_data", Message: "empty payload"}
	}
	var f BrandForm
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, &ErrValidation{Field: "form_data", Message: fmt.Sprintf("malformed payload: %v", err)}
	}
	if f.SchemaVersion == 0 {
		f.SchemaVersion = 1
	}
	if f.SchemaVersion > BrandFormVersion {
		return nil, &ErrValidation{
			Field:   "schema_version",
			Message: fmt.Sprintf("unsupported version %d", f.SchemaVersion),
		}
	}
	f.ApplyDefaults()
	if err := f.CheckRequired(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LegalUpdate projects the form onto the company legal fields.
func (f *BrandForm) LegalUpdate() CompanyLegalUpdate {
	return CompanyLegalUpdate{
		LegalName:             f.LegalCompanyName,
		DBAName:               f.DBAName,
		TaxNumber:             f.TaxNumberEIN,
		TaxIssuingCountry:     f.TaxIssuingCountry,
		CountryOfRegistration: f.CountryOfRegistration,
		Address: Address{
			Street:     f.AddressStreet,
			City:       f.AddressCity,
			State:      f.AddressState,
			PostalCode: f.AddressPostalCode,
			Country:    f.AddressCountry,
		},
		Website:       f.Website,
		BusinessPhone: f.BusinessPhone,
		VerticalType:  f.VerticalType,
		LegalForm:     f.LegalForm,
	}
}

// ============================================================
// Brands & campaigns (internal mirrors of registry objects)
// ============================================================

// Brand mirrors a registry brand (table: brands).
type Brand struct {
	ID                 string      `json:"id"`
	CompanyID          string      `json:"company_id"`
	Name               string      `json:"brand_name"`
	RegistryBrandID    string      `json:"registry_brand_id,omitempty"`
	VerificationStatus BrandStatus `json:"verification_status"`
	VerificationDate   *time.Time  `json:"verification_date,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// Campaign mirrors a registry campaign (table: campaigns).
type Campaign struct {
	ID                 string     `json:"id"`
	BrandID            string     `json:"brand_id"`
	Name               string     `json:"campaign_name"`
	UseCase            string     `json:"use_case,omitempty"`
	RegistryCampaignID string     `json:"registry_campaign_id,omitempty"`
	ApprovalStatus     string     `json:"approval_status"`
	ApprovalDate       *time.Time `json:"approval_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ============================================================
// Onboarding status read model
// ============================================================

// OnboardingStatus is returned by GET /v1/onboarding/status.
type OnboardingStatus struct {
	UserID           string        `json:"user_id"`
	State            string        `json:"state"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	CompanyID        string        `json:"company_id,omitempty"`
	CompanyStatus    BrandStatus   `json:"company_status"`
	LatestSubmission *Submission   `json:"latest_submission,omitempty"`
}
