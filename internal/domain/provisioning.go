package domain

import "time"

// ============================================================
// Provisioning runs (durable step log for the payment reconciler)
// ============================================================

// ProvisioningStep names one unit of work performed on payment completion.
type ProvisioningStep string

const (
	StepProfile        ProvisioningStep = "profile"
	StepCustomer       ProvisioningStep = "customer"
	StepSubscription   ProvisioningStep = "subscription"
	StepCustomerAccess ProvisioningStep = "customer_access"
	StepRole           ProvisioningStep = "role"
)

// ProvisioningSteps is the execution order.
var ProvisioningSteps = []ProvisioningStep{
	StepProfile,
	StepCustomer,
	StepSubscription,
	StepCustomerAccess,
	StepRole,
}

// Step outcomes.
const (
	StepPending = "pending"
	StepDone    = "done"
	StepFailed  = "failed"
)

// Run statuses.
const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunPartial  = "partial"
)

// ProvisioningRun records which steps completed for one payment event
// (table: provisioning_runs, unique on event_id).
type ProvisioningRun struct {
	ID        string                      `json:"id"`
	EventID   string                      `json:"event_id"`
	UserID    string                      `json:"user_id"`
	SessionID string                      `json:"session_id,omitempty"`
	Amount    string                      `json:"amount,omitempty"`
	Currency  string                      `json:"currency,omitempty"`
	Steps     map[ProvisioningStep]string `json:"steps"`
	Status    string                      `json:"status"`
	LastError string                      `json:"last_error,omitempty"`
	Attempts  int                         `json:"attempts"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// NewProvisioningRun returns a run with every step pending.
func NewProvisioningRun(eventID, userID string) *ProvisioningRun {
	steps := make(map[ProvisioningStep]string, len(ProvisioningSteps))
	for _, s := range ProvisioningSteps {
		steps[s] = StepPending
	}
	return &ProvisioningRun{
		EventID: eventID,
		UserID:  userID,
		Steps:   steps,
		Status:  RunRunning,
	}
}

// Mark records a step outcome and recomputes the run status.
func (r *ProvisioningRun) Mark(step ProvisioningStep, err error) {
	if r.Steps == nil {
		r.Steps = map[ProvisioningStep]string{}
	}
	if err != nil {
		r.Steps[step] = StepFailed
		r.LastError = string(step) + ": " + err.Error()
	} else {
		r.Steps[step] = StepDone
	}
	r.Status = r.computeStatus()
}

// Finish closes the run after all steps were attempted.
func (r *ProvisioningRun) Finish() {
	r.Status = r.computeStatus()
	if r.Status == RunRunning {
		r.Status = RunPartial
	}
	if r.Status == RunComplete {
		r.LastError = ""
	}
}

// PendingSteps returns steps that are not done, in execution order.
func (r *ProvisioningRun) PendingSteps() []ProvisioningStep {
	var out []ProvisioningStep
	for _, s := range ProvisioningSteps {
		if r.Steps[s] != StepDone {
			out = append(out, s)
		}
	}
	return out
}

func (r *ProvisioningRun) computeStatus() string {
	failed, pending := false, false
	for _, s := range ProvisioningSteps {
		switch r.Steps[s] {
		case StepDone:
		case StepFailed:
			failed = true
		default:
			pending = true
		}
	}
	switch {
	case !failed && !pending:
		return RunComplete
	case pending:
		return RunRunning
	default:
		return RunPartial
	}
}

// ProvisioningSnapshot summarises reconciler activity since process start.
type ProvisioningSnapshot struct {
	WebhooksReceived  int64            `json:"webhooks_received"`
	WebhooksRejected  int64            `json:"webhooks_rejected"`
	WebhooksProcessed int64            `json:"webhooks_processed"`
	WebhooksFailed    int64            `json:"webhooks_failed"`
	StepFailures      map[string]int64 `json:"step_failures"`
	RepairsRun        int64            `json:"repairs_run"`
}
