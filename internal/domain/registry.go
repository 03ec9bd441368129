package domain

import "encoding/json"

// ============================================================
// Registry wire types
// ============================================================

// RegistryAddress is the address block of a brand request.
type RegistryAddress struct {
	Street      string `json:"street"`
	City        string `json:"city"`
	StateRegion string `json:"stateRegion"`
	PostalCode  string `json:"postalCode"`
	Country     string `json:"country"`
}

// RegistryContact is the brand point of contact.
type RegistryContact struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// BrandRequest is the body of POST /v2/brands.
type BrandRequest struct {
	BrandID               string          `json:"brandId,omitempty"`
	BrandName             string          `json:"brandName"`
	DBAName               string          `json:"dbaName,omitempty"`
	CountryOfRegistration string          `json:"countryOfRegistration"`
	TaxNumber             string          `json:"taxNumber"`
	TaxIssuingCountry     string          `json:"taxIssuingCountry"`
	Address               RegistryAddress `json:"address"`
	Website               string          `json:"website"`
	VerticalType          string          `json:"verticalType"`
	LegalForm             string          `json:"legalForm"`
	BusinessPhone         string          `json:"businessPhone"`
	PointOfContact        RegistryContact `json:"pointOfContact"`
}

// CampaignRequest is the body of POST /v2/campaigns.
type CampaignRequest struct {
	BrandID        string   `json:"brandId"`
	UseCase        string   `json:"useCase"`
	Description    string   `json:"description"`
	SampleMessages []string `json:"sampleMessages"`
	MessageFlow    string   `json:"messageFlow,omitempty"`
}

// BrandResult is returned by brand submission and status checks.
type BrandResult struct {
	BrandID string          `json:"brandId"`
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Errors  json.RawMessage `json:"errors,omitempty"`
}

// CampaignResult is returned by campaign submission and status checks.
type CampaignResult struct {
	CampaignID string          `json:"campaignId"`
	Status     string          `json:"status"`
	Message    string          `json:"message,omitempty"`
	Errors     json.RawMessage `json:"errors,omitempty"`
}

// ============================================================
// Registry proxy envelope
// ============================================================

// Proxy actions accepted by POST /v1/registry.
const (
	ActionSubmitBrand         = "submitBrand"
	ActionSubmitCampaign      = "submitCampaign"
	ActionCheckBrandStatus    = "checkBrandStatus"
	ActionCheckCampaignStatus = "checkCampaignStatus"
)

// RegistryProxyRequest is the inbound proxy body.
type RegistryProxyRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// RegistryProxyResponse is the proxy reply.
type RegistryProxyResponse struct {
	Success    bool            `json:"success"`
	BrandID    string          `json:"brandId,omitempty"`
	CampaignID string          `json:"campaignId,omitempty"`
	Status     string          `json:"status,omitempty"`
	Message    string          `json:"message,omitempty"`
	Errors     json.RawMessage `json:"errors,omitempty"`
	Error      string          `json:"error,omitempty"`
}
