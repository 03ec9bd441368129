package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"

	"github.com/google/uuid"
)

const runColumns = `id, event_id, user_id, session_id, amount, currency, steps, status,
	last_error, attempts, created_at, updated_at`

func scanRun(row scanner) (*domain.ProvisioningRun, error) {
	var (
		r                    domain.ProvisioningRun
		steps                string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&r.ID, &r.EventID, &r.UserID, &r.SessionID, &r.Amount, &r.Currency, &steps,
		&r.Status, &r.LastError, &r.Attempts, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(steps), &r.Steps); err != nil {
		return nil, fmt.Errorf("decode steps of run %s: %w", r.ID, err)
	}
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updatedAt)
	return &r, nil
}

// StartRun returns the run for the event, creating it when absent.
func (s *Store) StartRun(ctx context.Context, run *domain.ProvisioningRun) (*domain.ProvisioningRun, error) {
	ctx, span := tracer.Start(ctx, "SQLite.StartRun")
	defer span.End()

	steps, err := json.Marshal(run.Steps)
	if err != nil {
		return nil, err
	}
	now := millis(s.now())
	_, err = s.db.ExecContext(ctx, `
INSERT INTO provisioning_runs (id, event_id, user_id, session_id, amount, currency, steps, status, attempts, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (event_id) DO NOTHING`,
		uuid.NewString(), run.EventID, run.UserID, run.SessionID, run.Amount, run.Currency,
		string(steps), run.Status, run.Attempts, now, now)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	return scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM provisioning_runs WHERE event_id = ?`, run.EventID))
}

// SaveRun persists step outcomes and status of an existing run.
func (s *Store) SaveRun(ctx context.Context, run *domain.ProvisioningRun) error {
	ctx, span := tracer.Start(ctx, "SQLite.SaveRun")
	defer span.End()

	steps, err := json.Marshal(run.Steps)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE provisioning_runs SET steps = ?, status = ?, last_error = ?, attempts = ?, updated_at = ?
WHERE id = ?`,
		string(steps), run.Status, run.LastError, run.Attempts, millis(s.now()), run.ID)
	return affectedOne(res, err, "provisioning_run", run.ID)
}

// ListIncompleteRuns lists running or partial runs last touched before olderThan, oldest first.
func (s *Store) ListIncompleteRuns(ctx context.Context, olderThan time.Time, limit int) ([]domain.ProvisioningRun, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListIncompleteRuns")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+runColumns+` FROM provisioning_runs
WHERE status IN (?, ?) AND updated_at < ?
ORDER BY updated_at ASC
LIMIT ?`, domain.RunRunning, domain.RunPartial, millis(olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("list incomplete runs: %w", err)
	}
	defer rows.Close()

	var out []domain.ProvisioningRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
