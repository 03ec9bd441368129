package registry

import (
	"strings"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/validate"
)

// BuildBrandRequest converts an onboarding form into a registry brand
// request. Every format check runs before the request is assembled, so an
// error here means no network call should be made.
func BuildBrandRequest(f *domain.BrandForm) (*domain.BrandRequest, error) {
	if f == nil {
		return nil, &domain.ErrValidation{Field: "form", Message: "required"}
	}
	f.ApplyDefaults()
	if err := f.CheckRequired(); err != nil {
		return nil, err
	}

	ein := validate.EIN(f.TaxNumberEIN)
	if !ein.IsValid {
		return nil, &domain.ErrValidation{Field: "tax_number_ein", Message: ein.Error}
	}
	phone := validate.Phone(f.BusinessPhone)
	if !phone.IsValid {
		return nil, &domain.ErrValidation{Field: "business_phone", Message: phone.Error}
	}
	state := validate.State(f.AddressState)
	if !state.IsValid {
		return nil, &domain.ErrValidation{Field: "address_state", Message: state.Error}
	}
	postal := validate.PostalCode(f.AddressPostalCode)
	if !postal.IsValid {
		return nil, &domain.ErrValidation{Field: "address_postal_code", Message: postal.Error}
	}
	website := validate.Website(f.Website)
	if !website.IsValid {
		return nil, &domain.ErrValidation{Field: "website", Message: website.Error}
	}
	contactPhone := validate.Phone(f.ContactPhone)
	if !contactPhone.IsValid {
		return nil, &domain.ErrValidation{Field: "contact_phone", Message: contactPhone.Error}
	}
	email := validate.Email(f.ContactEmail)
	if !email.IsValid {
		return nil, &domain.ErrValidation{Field: "contact_email", Message: email.Error}
	}
	vertical, ok := VerticalType(f.VerticalType)
	if !ok {
		return nil, &domain.ErrValidation{Field: "vertical_type", Message: "unsupported vertical " + f.VerticalType}
	}
	legalForm, ok := LegalForm(f.LegalForm)
	if !ok {
		return nil, &domain.ErrValidation{Field: "legal_form", Message: "unsupported legal form " + f.LegalForm}
	}

	return &domain.BrandRequest{
		BrandName:             strings.TrimSpace(f.LegalCompanyName),
		DBAName:               strings.TrimSpace(f.DBAName),
		CountryOfRegistration: strings.ToUpper(f.CountryOfRegistration),
		TaxNumber:             ein.Value,
		TaxIssuingCountry:     strings.ToUpper(f.TaxIssuingCountry),
		Address: domain.RegistryAddress{
			Street:      strings.TrimSpace(f.AddressStreet),
			City:        strings.TrimSpace(f.AddressCity),
			StateRegion: state.Value,
			PostalCode:  postal.Value,
			Country:     strings.ToUpper(f.AddressCountry),
		},
		Website:       website.Value,
		VerticalType:  vertical,
		LegalForm:     legalForm,
		BusinessPhone: phone.Value,
		PointOfContact: domain.RegistryContact{
			FirstName: strings.TrimSpace(f.ContactFirstName),
			LastName:  strings.TrimSpace(f.ContactLastName),
			Email:     email.Value,
			Phone:     contactPhone.Value,
		},
	}, nil
}

// NormalizeLegal rewrites the legal fields captured on a company into the
// formats the registry receives. Values that fail a format check are kept
// as entered; BuildBrandRequest reports them when the brand is submitted.
func NormalizeLegal(upd domain.CompanyLegalUpdate) domain.CompanyLegalUpdate {
	upd.TaxNumber = normalized(validate.EIN, upd.TaxNumber)
	upd.BusinessPhone = normalized(validate.Phone, upd.BusinessPhone)
	upd.Website = normalized(validate.Website, upd.Website)
	upd.Address.State = normalized(validate.State, upd.Address.State)
	upd.Address.PostalCode = normalized(validate.PostalCode, upd.Address.PostalCode)
	return upd
}

func normalized(check func(string) validate.Result, raw string) string {
	if r := check(raw); r.IsValid {
		return r.Value
	}
	return raw
}

// BuildCampaignRequest converts the campaign part of a form into a registry
// campaign request for an already registered brand.
func BuildCampaignRequest(brandID string, f *domain.BrandForm) (*domain.CampaignRequest, error) {
	if strings.TrimSpace(brandID) == "" {
		return nil, &domain.ErrValidation{Field: "brandId", Message: "a registered brand is required"}
	}
	if f == nil {
		return nil, &domain.ErrValidation{Field: "form", Message: "required"}
	}
	useCase, ok := UseCase(f.CampaignUseCase)
	if !ok {
		return nil, &domain.ErrValidation{Field: "campaign_use_case", Message: "unsupported use case " + f.CampaignUseCase}
	}
	if strings.TrimSpace(f.CampaignDescription) == "" {
		return nil, &domain.ErrValidation{Field: "campaign_description", Message: "required"}
	}
	samples := make([]string, 0, len(f.SampleMessages))
	for _, m := range f.SampleMessages {
		if m = strings.TrimSpace(m); m != "" {
			samples = append(samples, m)
		}
	}
	if len(samples) == 0 {
		return nil, &domain.ErrValidation{Field: "sample_messages", Message: "at least one sample message is required"}
	}

	return &domain.CampaignRequest{
		BrandID:        brandID,
		UseCase:        useCase,
		Description:    strings.TrimSpace(f.CampaignDescription),
		SampleMessages: samples,
		MessageFlow:    strings.TrimSpace(f.MessageFlow),
	}, nil
}
