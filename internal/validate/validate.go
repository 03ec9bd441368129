// Package validate normalises business identifiers into the formats the
// sender registry expects. Every function is pure.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Result is the outcome of a single field check.
type Result struct {
	Value   string `json:"value"`
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

func ok(v string) Result {
	return Result{Value: v, IsValid: true}
}

func fail(v, msg string) Result {
	return Result{Value: v, Error: msg}
}

var nonDigit = regexp.MustCompile(`[^0-9]`)

func digits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// EIN validates a US employer identification number and formats it as NN-NNNNNNN.
func EIN(raw string) Result {
	d := digits(raw)
	if len(d) != 9 {
		return fail(raw, "EIN must be 9 digits")
	}
	return ok(d[:2] + "-" + d[2:])
}

// Phone validates a US phone number and formats it as +1NNNNNNNNNN.
// Accepts 10 digits, or 11 digits with a leading country code 1.
func Phone(raw string) Result {
	d := digits(raw)
	switch {
	case len(d) == 10:
		return ok("+1" + d)
	case len(d) == 11 && d[0] == '1':
		return ok("+" + d)
	default:
		return fail(raw, "phone must be a 10-digit US number")
	}
}

// State validates a US state or territory given as a two-letter code or a
// full name, and returns the two-letter code.
func State(raw string) Result {
	s := strings.TrimSpace(raw)
	if len(s) == 2 {
		code := strings.ToUpper(s)
		if _, known := stateNames[code]; known {
			return ok(code)
		}
		return fail(raw, "unknown state code")
	}
	if code, known := stateCodes[strings.ToLower(s)]; known {
		return ok(code)
	}
	return fail(raw, "state must be a two-letter code or full state name")
}

// Website validates a business website and returns it with an https scheme.
func Website(raw string) Result {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fail(raw, "website is required")
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "https://"):
	case strings.HasPrefix(lower, "http://"):
		s = "https://" + s[len("http://"):]
	case strings.Contains(lower, "://"):
		return fail(raw, "website must use http or https")
	default:
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return fail(raw, fmt.Sprintf("invalid url: %v", err))
	}
	host := u.Hostname()
	if host == "" || !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return fail(raw, "website must include a domain name")
	}
	if strings.ContainsAny(host, " _") {
		return fail(raw, "website host contains invalid characters")
	}
	return ok(s)
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email performs a shape check on an email address.
func Email(raw string) Result {
	s := strings.TrimSpace(raw)
	if !emailPattern.MatchString(s) {
		return fail(raw, "invalid email address")
	}
	return ok(strings.ToLower(s))
}

// PostalCode validates a US ZIP or ZIP+4.
func PostalCode(raw string) Result {
	s := strings.TrimSpace(raw)
	d := digits(s)
	switch {
	case len(d) == 5 && len(s) == 5:
		return ok(d)
	case len(d) == 9 && (len(s) == 9 || len(s) == 10):
		return ok(d[:5] + "-" + d[5:])
	default:
		return fail(raw, "postal code must be a 5-digit ZIP or ZIP+4")
	}
}
