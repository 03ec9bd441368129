// Package onboarding defines the linear onboarding state machine:
//
//	brand --submit_brand--> campaign --complete--> complete
//	campaign --back--> brand
//
// The machine holds no data; callers derive the current state from stored
// records and ask it whether an event is allowed.
package onboarding

import (
	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
)

// State is a step of the onboarding flow.
type State string

const (
	StateBrand    State = "brand"
	StateCampaign State = "campaign"
	StateComplete State = "complete"
)

// Event drives a transition.
type Event string

const (
	EventSubmitBrand Event = "submit_brand"
	EventComplete    Event = "complete"
	EventBack        Event = "back"
)

var transitions = map[State]map[Event]State{
	StateBrand: {
		EventSubmitBrand: StateCampaign,
	},
	StateCampaign: {
		EventComplete: StateComplete,
		EventBack:     StateBrand,
	},
	StateComplete: {},
}

// Next returns the state reached by applying ev to s.
func Next(s State, ev Event) (State, error) {
	if to, ok := transitions[s][ev]; ok {
		return to, nil
	}
	return s, &domain.ErrInvalidTransition{From: string(s), Event: string(ev)}
}

// Can reports whether ev is allowed in s.
func Can(s State, ev Event) bool {
	_, ok := transitions[s][ev]
	return ok
}

// Derive computes the current state from stored records. Only the internal
// brand row marks completion; the company status mirrors the registry and
// decides between the brand and campaign steps. A rejected brand sends the
// user back to the brand step.
func Derive(company *domain.Company, brand *domain.Brand) State {
	if company == nil {
		return StateBrand
	}
	if brand != nil {
		return StateComplete
	}
	switch company.Status() {
	case domain.BrandSubmitted, domain.BrandApproved:
		return StateCampaign
	default:
		return StateBrand
	}
}
