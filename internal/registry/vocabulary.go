// Package registry maps onboarding data onto the sender registry's request
// shapes. Nothing here performs I/O; the HTTP transport lives in
// internal/infra/client.
package registry

import "strings"

// verticals maps form values to the registry's verticalType vocabulary.
var verticals = map[string]string{
	"agriculture":           "AGRICULTURE",
	"automotive":            "AUTOMOTIVE",
	"communication":         "COMMUNICATION",
	"construction":          "CONSTRUCTION",
	"education":             "EDUCATION",
	"energy":                "ENERGY",
	"entertainment":         "ENTERTAINMENT",
	"financial":             "FINANCIAL",
	"finance":               "FINANCIAL",
	"government":            "GOVERNMENT",
	"healthcare":            "HEALTHCARE",
	"hospitality":           "HOSPITALITY",
	"insurance":             "INSURANCE",
	"legal":                 "LEGAL",
	"manufacturing":         "MANUFACTURING",
	"nonprofit":             "NGO",
	"non_profit":            "NGO",
	"professional_services": "PROFESSIONAL",
	"professional":          "PROFESSIONAL",
	"real_estate":           "REAL_ESTATE",
	"retail":                "RETAIL",
	"technology":            "TECHNOLOGY",
	"transportation":        "TRANSPORTATION",
}

// legalForms maps form values to the registry's legalForm vocabulary.
var legalForms = map[string]string{
	"llc":                 "PRIVATE_PROFIT",
	"corporation":         "PRIVATE_PROFIT",
	"private_company":     "PRIVATE_PROFIT",
	"partnership":         "PRIVATE_PROFIT",
	"public_company":      "PUBLIC_PROFIT",
	"public_corporation":  "PUBLIC_PROFIT",
	"nonprofit":           "NON_PROFIT",
	"non_profit":          "NON_PROFIT",
	"government":          "GOVERNMENT",
	"sole_proprietor":     "SOLE_PROPRIETOR",
	"sole_proprietorship": "SOLE_PROPRIETOR",
}

// useCases maps form values to the registry's campaign use-case vocabulary.
var useCases = map[string]string{
	"2fa":                    "2FA",
	"account_notifications":  "ACCOUNT_NOTIFICATION",
	"customer_care":          "CUSTOMER_CARE",
	"delivery_notifications": "DELIVERY_NOTIFICATION",
	"fraud_alerts":           "FRAUD_ALERT",
	"higher_education":       "HIGHER_EDUCATION",
	"marketing":              "MARKETING",
	"mixed":                  "MIXED",
	"polling_voting":         "POLLING_VOTING",
	"public_service":         "PUBLIC_SERVICE_ANNOUNCEMENT",
	"security_alerts":        "SECURITY_ALERT",
	"low_volume":             "LOW_VOLUME",
}

func lookup(table map[string]string, raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if v, ok := table[key]; ok {
		return v, true
	}
	// Already in registry vocabulary.
	upper := strings.ToUpper(strings.TrimSpace(raw))
	for _, v := range table {
		if v == upper {
			return v, true
		}
	}
	return "", false
}

// VerticalType maps an internal industry value to the registry vocabulary.
func VerticalType(raw string) (string, bool) { return lookup(verticals, raw) }

// LegalForm maps an internal legal-form value to the registry vocabulary.
func LegalForm(raw string) (string, bool) { return lookup(legalForms, raw) }

// UseCase maps an internal campaign use case to the registry vocabulary.
func UseCase(raw string) (string, bool) { return lookup(useCases, raw) }
