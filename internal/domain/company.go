package domain

import (
	"strings"
	"time"
)

// ============================================================
// Companies
// ============================================================

// BrandStatus is the authoritative brand-verification status. It lives on
// the company row; submissions and brand rows only mirror it.
type BrandStatus string

const (
	BrandPending   BrandStatus = "pending"
	BrandSubmitted BrandStatus = "submitted"
	BrandApproved  BrandStatus = "approved"
	BrandRejected  BrandStatus = "rejected"
)

// NormalizeBrandStatus folds legacy and registry vocabularies onto BrandStatus.
// Input is matched case-insensitively.
func NormalizeBrandStatus(raw string) BrandStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved", "verified", "vetted_verified", "active", "self_declared":
		return BrandApproved
	case "rejected", "failed", "suspended", "deactivated":
		return BrandRejected
	case "submitted", "processing", "in_progress", "review", "in_review":
		return BrandSubmitted
	default:
		// "", "pending", "unverified" and anything unknown.
		return BrandPending
	}
}

// CompanyRole is a user's relationship to a company.
type CompanyRole string

const (
	CompanyOwner  CompanyRole = "owner"
	CompanyAdmin  CompanyRole = "admin"
	CompanyMember CompanyRole = "member"
	CompanyViewer CompanyRole = "viewer"
)

// Address is a postal address in registry-ready form.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Company is the legal entity behind a customer (table: companies).
type Company struct {
	ID                      string      `json:"id"`
	Name                    string      `json:"name"`
	LegalName               string      `json:"legal_company_name,omitempty"`
	DBAName                 string      `json:"dba_name,omitempty"`
	TaxNumber               string      `json:"tax_number_ein,omitempty"`
	TaxIssuingCountry       string      `json:"tax_issuing_country,omitempty"`
	CountryOfRegistration   string      `json:"country_of_registration,omitempty"`
	Street                  string      `json:"address_street,omitempty"`
	City                    string      `json:"address_city,omitempty"`
	State                   string      `json:"address_state,omitempty"`
	PostalCode              string      `json:"address_postal_code,omitempty"`
	Country                 string      `json:"address_country,omitempty"`
	Website                 string      `json:"website,omitempty"`
	BusinessPhone           string      `json:"business_phone,omitempty"`
	VerticalType            string      `json:"vertical_type,omitempty"`
	LegalForm               string      `json:"legal_form,omitempty"`
	RegistryBrandID         string      `json:"registry_brand_id,omitempty"`
	BrandVerificationStatus BrandStatus `json:"brand_verification_status,omitempty"`
	BrandVerificationDate   *time.Time  `json:"brand_verification_date,omitempty"`
	CreatedAt               time.Time   `json:"created_at"`
	UpdatedAt               time.Time   `json:"updated_at"`
}

// Status returns the normalised brand status of the company.
func (c *Company) Status() BrandStatus {
	if c == nil {
		return BrandPending
	}
	return NormalizeBrandStatus(string(c.BrandVerificationStatus))
}

// CompanyLegalUpdate carries the legal/brand fields captured by the
// brand-verification step.
type CompanyLegalUpdate struct {
	LegalName             string
	DBAName               string
	TaxNumber             string
	TaxIssuingCountry     string
	CountryOfRegistration string
	Address               Address
	Website               string
	BusinessPhone         string
	VerticalType          string
	LegalForm             string
}

// UserCompanyRole links a user to a company (table: user_company_roles).
type UserCompanyRole struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	CompanyID string      `json:"company_id"`
	Role      CompanyRole `json:"role"`
	IsPrimary bool        `json:"is_primary"`
	CreatedAt time.Time   `json:"created_at"`
}
