package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/gitcontest/xbridge/internal/models"
)

// MappingRepo provides database operations for user mappings. Mappings are
// written by the self-service signup flow; the bridge mostly reads them.
type MappingRepo struct {
	db *sql.DB
}

// NewMappingRepo creates a new MappingRepo.
func NewMappingRepo(db *sql.DB) *MappingRepo {
	return &MappingRepo{db: db}
}

const mappingColumns = `id, provider, scm_user_id, scm_username, topcoder_handle`

// Create inserts a mapping row.
func (r *MappingRepo) Create(ctx context.Context, m *models.UserMapping) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_mappings (`+mappingColumns+`)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.Provider, m.SCMUserID, m.SCMUsername, m.TopcoderHandle)
	if err != nil {
		return fmt.Errorf("failed to create user mapping: %w", err)
	}
	return nil
}

// GetBySCMUserID looks up the mapping for a source-control user id.
// Returns (nil, nil) when the user never signed up.
func (r *MappingRepo) GetBySCMUserID(ctx context.Context, provider models.Provider, scmUserID int64) (*models.UserMapping, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+mappingColumns+` FROM user_mappings
		WHERE provider = ? AND scm_user_id = ?
	`, provider, scmUserID)
	return scanMapping(row)
}

// GetByHandle looks up the mapping for a contest-platform handle.
// Returns (nil, nil) when absent.
func (r *MappingRepo) GetByHandle(ctx context.Context, provider models.Provider, handle string) (*models.UserMapping, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+mappingColumns+` FROM user_mappings
		WHERE provider = ? AND topcoder_handle = ?
	`, provider, handle)
	return scanMapping(row)
}

func scanMapping(row *sql.Row) (*models.UserMapping, error) {
	var m models.UserMapping
	err := row.Scan(&m.ID, &m.Provider, &m.SCMUserID, &m.SCMUsername, &m.TopcoderHandle)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user mapping: %w", err)
	}
	return &m, nil
}
