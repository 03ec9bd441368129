package onboarding_test

import (
	"errors"
	"testing"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/onboarding"
)

func TestNext_HappyPath(t *testing.T) {
	s, err := onboarding.Next(onboarding.StateBrand, onboarding.EventSubmitBrand)
	if err != nil || s != onboarding.StateCampaign {
		t.Fatalf("expected campaign, got %s (%v)", s, err)
	}
	s, err = onboarding.Next(s, onboarding.EventComplete)
	if err != nil || s != onboarding.StateComplete {
		t.Fatalf("expected complete, got %s (%v)", s, err)
	}
}

func TestNext_Back(t *testing.T) {
	s, err := onboarding.Next(onboarding.StateCampaign, onboarding.EventBack)
	if err != nil || s != onboarding.StateBrand {
		t.Fatalf("expected brand, got %s (%v)", s, err)
	}
}

func TestNext_Rejected(t *testing.T) {
	tests := []struct {
		from onboarding.State
		ev   onboarding.Event
	}{
		{onboarding.StateBrand, onboarding.EventComplete},
		{onboarding.StateBrand, onboarding.EventBack},
		{onboarding.StateCampaign, onboarding.EventSubmitBrand},
		{onboarding.StateComplete, onboarding.EventBack},
		{onboarding.StateComplete, onboarding.EventSubmitBrand},
	}

	for _, tt := range tests {
		s, err := onboarding.Next(tt.from, tt.ev)
		var terr *domain.ErrInvalidTransition
		if !errors.As(err, &terr) {
			t.Errorf("%s/%s: expected ErrInvalidTransition, got %v", tt.from, tt.ev, err)
		}
		if s != tt.from {
			t.Errorf("%s/%s: state changed to %s on rejection", tt.from, tt.ev, s)
		}
		if onboarding.Can(tt.from, tt.ev) {
			t.Errorf("%s/%s: Can reported true", tt.from, tt.ev)
		}
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		status string
		want   onboarding.State
	}{
		{"", onboarding.StateBrand},
		{"pending", onboarding.StateBrand},
		{"unverified", onboarding.StateBrand},
		{"rejected", onboarding.StateBrand},
		{"submitted", onboarding.StateCampaign},
		{"approved", onboarding.StateCampaign},
		{"verified", onboarding.StateCampaign},
	}

	for _, tt := range tests {
		c := &domain.Company{BrandVerificationStatus: domain.BrandStatus(tt.status)}
		if got := onboarding.Derive(c, nil); got != tt.want {
			t.Errorf("Derive(%q) = %s, want %s", tt.status, got, tt.want)
		}
	}

	if got := onboarding.Derive(nil, nil); got != onboarding.StateBrand {
		t.Errorf("Derive(nil) = %s, want brand", got)
	}
}

func TestDerive_BrandRowMeansComplete(t *testing.T) {
	brand := &domain.Brand{ID: "b1", VerificationStatus: domain.BrandApproved}
	for _, status := range []domain.BrandStatus{domain.BrandApproved, domain.BrandSubmitted, domain.BrandPending} {
		c := &domain.Company{BrandVerificationStatus: status}
		if got := onboarding.Derive(c, brand); got != onboarding.StateComplete {
			t.Errorf("Derive(%q, brand) = %s, want complete", status, got)
		}
	}
}
