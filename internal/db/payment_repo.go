package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gitcontest/xbridge/internal/models"
)

// PaymentRepo provides database operations for copilot payment rows.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(db *sql.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

const paymentColumns = `id, project_id, username, amount, description,
	challenge_uuid, closed, status, created_at, updated_at`

// Create inserts a payment row.
func (r *PaymentRepo) Create(ctx context.Context, p *models.CopilotPayment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO copilot_payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.ProjectID, p.Username, p.Amount, p.Description,
		nullString(p.ChallengeUUID), p.Closed, nullString(string(p.Status)), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment row. Returns (nil, nil) when absent.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*models.CopilotPayment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM copilot_payments WHERE id = ?`, id)
	p, err := scanPaymentRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// Update persists the full row.
func (r *PaymentRepo) Update(ctx context.Context, p *models.CopilotPayment) error {
	p.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE copilot_payments SET
			project_id = ?, username = ?, amount = ?, description = ?,
			challenge_uuid = ?, closed = ?, status = ?, updated_at = ?
		WHERE id = ?
	`,
		p.ProjectID, p.Username, p.Amount, p.Description,
		nullString(p.ChallengeUUID), p.Closed, nullString(string(p.Status)),
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment %s: %w", p.ID, err)
	}
	return nil
}

// Delete removes a payment row.
func (r *PaymentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM copilot_payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment %s: %w", id, err)
	}
	return nil
}

// ListOpenByProjectUser returns the open rows for a (project, username)
// pair, oldest first. These are the rows that coalesce into one challenge.
func (r *PaymentRepo) ListOpenByProjectUser(ctx context.Context, projectID, username string) ([]*models.CopilotPayment, error) {
	return r.list(ctx, `
		SELECT `+paymentColumns+` FROM copilot_payments
		WHERE project_id = ? AND username = ? AND closed = 0
		ORDER BY created_at
	`, projectID, username)
}

// ListOpenByProject returns all open rows for a project.
func (r *PaymentRepo) ListOpenByProject(ctx context.Context, projectID string) ([]*models.CopilotPayment, error) {
	return r.list(ctx, `
		SELECT `+paymentColumns+` FROM copilot_payments
		WHERE project_id = ? AND closed = 0
		ORDER BY created_at
	`, projectID)
}

// ListOpenByChallenge returns the open rows bound to a challenge.
func (r *PaymentRepo) ListOpenByChallenge(ctx context.Context, challengeUUID string) ([]*models.CopilotPayment, error) {
	return r.list(ctx, `
		SELECT `+paymentColumns+` FROM copilot_payments
		WHERE challenge_uuid = ? AND closed = 0
		ORDER BY created_at
	`, challengeUUID)
}

// CloseByChallenge flips every row bound to the challenge to closed.
// Closed rows never re-open.
func (r *PaymentRepo) CloseByChallenge(ctx context.Context, challengeUUID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE copilot_payments SET closed = 1, updated_at = ?
		WHERE challenge_uuid = ? AND closed = 0
	`, time.Now(), challengeUUID)
	if err != nil {
		return 0, fmt.Errorf("failed to close payments for challenge %s: %w", challengeUUID, err)
	}
	return res.RowsAffected()
}

// ListOpenCopilots returns the distinct usernames that still have open
// payment rows. The periodic sweep synthesizes one checkUpdates event per
// username returned here.
func (r *PaymentRepo) ListOpenCopilots(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT username FROM copilot_payments
		WHERE closed = 0
		ORDER BY username
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list open copilots: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan copilot: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// CountOpen returns the number of open payment rows.
func (r *PaymentRepo) CountOpen(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM copilot_payments WHERE closed = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return n, nil
}

func (r *PaymentRepo) list(ctx context.Context, query string, args ...interface{}) ([]*models.CopilotPayment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var out []*models.CopilotPayment
	for rows.Next() {
		p, err := scanPaymentRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPaymentRow(scan func(dest ...interface{}) error) (*models.CopilotPayment, error) {
	var p models.CopilotPayment
	var challengeUUID, status sql.NullString
	err := scan(&p.ID, &p.ProjectID, &p.Username, &p.Amount, &p.Description,
		&challengeUUID, &p.Closed, &status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	p.ChallengeUUID = challengeUUID.String
	p.Status = models.PaymentStatus(status.String)
	return &p, nil
}
