package validate_test

import (
	"testing"

	"github.com/boddenberg/sms-onboarding-bfa/internal/validate"
)

func TestEIN(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"123456789", "12-3456789", true},
		{"12-3456789", "12-3456789", true},
		{" 12 345 6789 ", "12-3456789", true},
		{"12345", "12345", false},
		{"1234567890", "1234567890", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got := validate.EIN(tt.in)
		if got.IsValid != tt.valid {
			t.Errorf("EIN(%q).IsValid = %v, want %v", tt.in, got.IsValid, tt.valid)
		}
		if got.Value != tt.want {
			t.Errorf("EIN(%q).Value = %q, want %q", tt.in, got.Value, tt.want)
		}
		if !tt.valid && got.Error == "" {
			t.Errorf("EIN(%q): expected an error message", tt.in)
		}
	}
}

func TestEIN_ErrorNamesEIN(t *testing.T) {
	got := validate.EIN("12345")
	if got.IsValid {
		t.Fatal("expected invalid")
	}
	if got.Error != "EIN must be 9 digits" {
		t.Errorf("unexpected error %q", got.Error)
	}
}

func TestPhone_RoundTrip(t *testing.T) {
	raw := validate.Phone("(415) 555-0132")
	pre := validate.Phone("+14155550132")

	if !raw.IsValid || !pre.IsValid {
		t.Fatalf("expected both valid, got %+v and %+v", raw, pre)
	}
	if raw.Value != "+14155550132" {
		t.Errorf("expected +14155550132, got %s", raw.Value)
	}
	if raw.Value != pre.Value {
		t.Errorf("normalised values differ: %s vs %s", raw.Value, pre.Value)
	}

	again := validate.Phone(raw.Value)
	if !again.IsValid || again.Value != raw.Value {
		t.Errorf("normalising twice changed the value: %+v", again)
	}
}

func TestPhone_Invalid(t *testing.T) {
	for _, in := range []string{"", "555-0132", "24155550132", "+44 20 7946 0958"} {
		if got := validate.Phone(in); got.IsValid {
			t.Errorf("Phone(%q) should be invalid, got %+v", in, got)
		}
	}
}

func TestState(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"California", "CA", true},
		{"CA", "CA", true},
		{"ca", "CA", true},
		{" new york ", "NY", true},
		{"District of Columbia", "DC", true},
		{"Calif", "", false},
		{"ZZ", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got := validate.State(tt.in)
		if got.IsValid != tt.valid {
			t.Errorf("State(%q).IsValid = %v, want %v", tt.in, got.IsValid, tt.valid)
			continue
		}
		if tt.valid && got.Value != tt.want {
			t.Errorf("State(%q).Value = %q, want %q", tt.in, got.Value, tt.want)
		}
	}
}

func TestWebsite(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"example.com", "https://example.com", true},
		{"http://example.com/about", "https://example.com/about", true},
		{"https://www.example.com", "https://www.example.com", true},
		{"HTTPS://Example.com", "HTTPS://Example.com", true},
		{"ftp://example.com", "", false},
		{"localhost", "", false},
		{"", "", false},
		{"https://exa mple.com", "", false},
	}

	for _, tt := range tests {
		got := validate.Website(tt.in)
		if got.IsValid != tt.valid {
			t.Errorf("Website(%q).IsValid = %v, want %v (%s)", tt.in, got.IsValid, tt.valid, got.Error)
			continue
		}
		if tt.valid && got.Value != tt.want {
			t.Errorf("Website(%q).Value = %q, want %q", tt.in, got.Value, tt.want)
		}
	}
}

func TestPostalCode(t *testing.T) {
	if got := validate.PostalCode("94107"); !got.IsValid || got.Value != "94107" {
		t.Errorf("unexpected %+v", got)
	}
	if got := validate.PostalCode("94107-1234"); !got.IsValid || got.Value != "94107-1234" {
		t.Errorf("unexpected %+v", got)
	}
	if got := validate.PostalCode("9410"); got.IsValid {
		t.Errorf("expected invalid, got %+v", got)
	}
}

func TestEmail(t *testing.T) {
	if got := validate.Email(" Owner@Example.com "); !got.IsValid || got.Value != "owner@example.com" {
		t.Errorf("unexpected %+v", got)
	}
	if got := validate.Email("owner@example"); got.IsValid {
		t.Errorf("expected invalid, got %+v", got)
	}
}
