package domain

import "time"

// ============================================================
// Profiles
// ============================================================

// PaymentStatus is the onboarding-fee state of a profile.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentUnknown PaymentStatus = "unknown"
)

// ParsePaymentStatus maps stored values onto the known set; anything
// unrecognised becomes PaymentUnknown.
func ParsePaymentStatus(s string) PaymentStatus {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentPaid:
		return PaymentStatus(s)
	case "":
		return PaymentPending
	default:
		return PaymentUnknown
	}
}

// Profile is the identity record of a platform user (table: profiles).
type Profile struct {
	ID                  string        `json:"id"`
	Email               string        `json:"email"`
	FullName            string        `json:"full_name,omitempty"`
	Phone               string        `json:"phone,omitempty"`
	PaymentStatus       PaymentStatus `json:"payment_status"`
	PaymentDate         *time.Time    `json:"payment_date,omitempty"`
	ProcessorCustomerID string        `json:"stripe_customer_id,omitempty"`
	ProcessorSessionID  string        `json:"stripe_session_id,omitempty"`
	CompanyID           string        `json:"company_id,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// IsPaid reports whether the onboarding fee has been settled.
func (p *Profile) IsPaid() bool {
	return p != nil && p.PaymentStatus == PaymentPaid
}

// PaymentUpdate is applied to a profile when a checkout completes.
type PaymentUpdate struct {
	ProcessorCustomerID string
	ProcessorSessionID  string
	PaidAt              time.Time
}

// ============================================================
// Roles
// ============================================================

// Platform-wide role names stored in user_roles.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// UserRole grants a platform role to a user (table: user_roles).
type UserRole struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
