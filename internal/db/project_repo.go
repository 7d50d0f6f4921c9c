package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gitcontest/xbridge/internal/models"
)

// ProjectRepo provides read access to project rows and create/update for
// the admin tooling and tests. The bridge itself only reads projects.
type ProjectRepo struct {
	db *sql.DB
}

// NewProjectRepo creates a new ProjectRepo.
func NewProjectRepo(db *sql.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

const projectColumns = `id, title, repo_url, tc_direct_id, copilot, owner,
	create_copilot_payments, tags, created_at, updated_at`

// Create inserts a project row.
func (r *ProjectRepo) Create(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.Title, p.RepoURL, p.TCDirectID, p.Copilot, p.Owner,
		p.CreateCopilotPayments, encodeStrings(p.Tags), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by id. Returns (nil, nil) when absent.
func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// GetByRepoURL retrieves the project registered for a repository URL.
// Returns (nil, nil) when no project is registered.
func (r *ProjectRepo) GetByRepoURL(ctx context.Context, repoURL string) (*models.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE repo_url = ?`, repoURL)
	return scanProject(row)
}

// ListByUser returns every project the given handle owns or copilots.
func (r *ProjectRepo) ListByUser(ctx context.Context, handle string) ([]*models.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner = ? OR copilot = ?`,
		handle, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects for %s: %w", handle, err)
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		p, err := scanProjectRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProject(row *sql.Row) (*models.Project, error) {
	var p models.Project
	var tags string
	err := row.Scan(&p.ID, &p.Title, &p.RepoURL, &p.TCDirectID, &p.Copilot,
		&p.Owner, &p.CreateCopilotPayments, &tags, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	p.Tags = decodeStrings(tags)
	return &p, nil
}

func scanProjectRows(rows *sql.Rows) (*models.Project, error) {
	var p models.Project
	var tags string
	err := rows.Scan(&p.ID, &p.Title, &p.RepoURL, &p.TCDirectID, &p.Copilot,
		&p.Owner, &p.CreateCopilotPayments, &tags, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	p.Tags = decodeStrings(tags)
	return &p, nil
}
