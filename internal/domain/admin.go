package domain

// ============================================================
// Admin views
// ============================================================

// SubmissionDetail is a submission joined with its company and profile.
type SubmissionDetail struct {
	Submission
	Company *Company `json:"company,omitempty"`
	Profile *Profile `json:"profile,omitempty"`
	Bucket  string   `json:"bucket"`
	Age     string   `json:"age"`
}

// RefreshResult reports the independent writes of one admin refresh.
type RefreshResult struct {
	SubmissionID     string           `json:"submission_id"`
	BrandStatus      string           `json:"brand_status,omitempty"`
	CampaignStatus   string           `json:"campaign_status,omitempty"`
	SubmissionStatus SubmissionStatus `json:"submission_status"`
	Errors           []string         `json:"errors,omitempty"`
}

// RepairReport summarises one repair sweep.
type RepairReport struct {
	Scanned  int      `json:"scanned"`
	Repaired int      `json:"repaired"`
	Failed   int      `json:"failed"`
	RunIDs   []string `json:"run_ids,omitempty"`
}
