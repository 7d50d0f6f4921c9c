package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	xerrors "github.com/gitcontest/xbridge/internal/errors"
	"github.com/gitcontest/xbridge/internal/models"
)

// IssueRepo provides database operations for issue records.
type IssueRepo struct {
	db *sql.DB
}

// NewIssueRepo creates a new IssueRepo.
func NewIssueRepo(db *sql.DB) *IssueRepo {
	return &IssueRepo{db: db}
}

const issueColumns = `id, provider, repository_id, number, title, body, prizes,
	labels, assignee, assigned_at, challenge_id, status, created_at, updated_at`

// Create inserts a new issue record. A missing id is generated. The unique
// index on (provider, repository_id, number) turns a duplicate insert into
// a Conflict error, which the retry service reschedules.
func (r *IssueRepo) Create(ctx context.Context, issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if !issue.Status.IsValid() {
		return fmt.Errorf("invalid issue status %q", issue.Status)
	}
	now := time.Now()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO issues (`+issueColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		issue.ID, issue.Provider, issue.RepositoryID, issue.Number,
		issue.Title, issue.Body, encodeInts(issue.Prizes), encodeStrings(issue.Labels),
		nullString(issue.Assignee), nullTime(issue.AssignedAt),
		nullString(issue.ChallengeID), issue.Status, now, now,
	)
	if isUniqueViolation(err) {
		return xerrors.Conflict("issue record already exists for %s-%d-%d",
			issue.Provider, issue.RepositoryID, issue.Number)
	}
	if err != nil {
		return fmt.Errorf("failed to create issue: %w", err)
	}
	return nil
}

// GetByIdentity retrieves an issue by its (provider, repository, number)
// identity. Returns (nil, nil) when no record exists.
func (r *IssueRepo) GetByIdentity(ctx context.Context, provider models.Provider, repositoryID int64, number int) (*models.Issue, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+issueColumns+` FROM issues
		WHERE provider = ? AND repository_id = ? AND number = ?
	`, provider, repositoryID, number)
	return scanIssue(row)
}

// Update persists the full row. Read-modify-write, last writer wins.
func (r *IssueRepo) Update(ctx context.Context, issue *models.Issue) error {
	issue.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE issues SET
			title = ?, body = ?, prizes = ?, labels = ?,
			assignee = ?, assigned_at = ?, challenge_id = ?, status = ?, updated_at = ?
		WHERE id = ?
	`,
		issue.Title, issue.Body, encodeInts(issue.Prizes), encodeStrings(issue.Labels),
		nullString(issue.Assignee), nullTime(issue.AssignedAt),
		nullString(issue.ChallengeID), issue.Status, issue.UpdatedAt, issue.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update issue %s: %w", issue.ID, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("issue %s not found", issue.ID)
	}
	return nil
}

// Delete removes an issue record.
func (r *IssueRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM issues WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete issue %s: %w", id, err)
	}
	return nil
}

// CountByStatus returns the number of issue records per status.
func (r *IssueRepo) CountByStatus(ctx context.Context) (map[models.IssueStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM issues GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count issues: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.IssueStatus]int)
	for rows.Next() {
		var status models.IssueStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan issue count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// scanIssue scans a single issue row, mapping sql.ErrNoRows to (nil, nil).
func scanIssue(row *sql.Row) (*models.Issue, error) {
	var issue models.Issue
	var prizes, labels string
	var assignee, challengeID sql.NullString
	var assignedAt sql.NullTime

	err := row.Scan(
		&issue.ID, &issue.Provider, &issue.RepositoryID, &issue.Number,
		&issue.Title, &issue.Body, &prizes, &labels,
		&assignee, &assignedAt, &challengeID, &issue.Status,
		&issue.CreatedAt, &issue.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan issue: %w", err)
	}

	issue.Prizes = decodeInts(prizes)
	issue.Labels = decodeStrings(labels)
	issue.Assignee = assignee.String
	if assignedAt.Valid {
		t := assignedAt.Time
		issue.AssignedAt = &t
	}
	issue.ChallengeID = challengeID.String
	return &issue, nil
}
