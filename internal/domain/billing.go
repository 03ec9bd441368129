package domain

import "time"

// ============================================================
// Billing records provisioned on payment completion
// ============================================================

// Customer is the billing customer (table: customers). Email is unique.
type Customer struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	CompanyName string    `json:"company_name"`
	Platform    string    `json:"platform"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Subscription is the customer's plan (table: subscriptions). One per customer.
type Subscription struct {
	ID                 string    `json:"id"`
	CustomerID         string    `json:"customer_id"`
	PlanName           string    `json:"plan_name"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	CreatedAt          time.Time `json:"created_at"`
}

// CustomerAccess grants a platform user access to a customer's dashboard
// (table: customer_access). One per customer.
type CustomerAccess struct {
	ID                  string    `json:"id"`
	CustomerID          string    `json:"customer_id"`
	PlatformUserID      string    `json:"platform_user_id"`
	AccessLevel         string    `json:"access_level"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	CreatedAt           time.Time `json:"created_at"`
}

// Defaults written by the reconciler.
const (
	CustomerPlatform     = "sms"
	CustomerType         = "business"
	CustomerStatusActive = "active"
	SubscriptionPlan     = "onboarding"
	SubscriptionActive   = "active"
	SubscriptionTerm     = 365 * 24 * time.Hour
	AccessLevelStandard  = "standard"
)

// CheckoutCompleted is the processor-agnostic view of a completed checkout.
type CheckoutCompleted struct {
	EventID             string
	SessionID           string
	ProcessorCustomerID string
	UserID              string
	Email               string
	Name                string
	Phone               string
	CompanyName         string
	AmountTotal         int64 // minor units
	Currency            string
	OccurredAt          time.Time
}
