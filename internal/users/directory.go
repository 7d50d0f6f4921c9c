// Package users resolves source-control identities to contest-platform
// handles and back. The mapping table is populated out-of-band by the
// self-service signup tool; a missing row means the user never signed up,
// which the services treat as a comment-worthy condition, not a failure.
package users

import (
	"context"

	"github.com/gitcontest/xbridge/internal/db"
	"github.com/gitcontest/xbridge/internal/errors"
	"github.com/gitcontest/xbridge/internal/models"
)

// Directory answers identity questions for the services.
type Directory struct {
	mappings *db.MappingRepo
}

// NewDirectory creates a directory over the mapping repo.
func NewDirectory(mappings *db.MappingRepo) *Directory {
	return &Directory{mappings: mappings}
}

// HandleForSCMUser maps a source-control user id to a topcoder handle.
// Returns a NotFound error when no mapping exists.
func (d *Directory) HandleForSCMUser(ctx context.Context, provider models.Provider, scmUserID int64) (string, error) {
	m, err := d.mappings.GetBySCMUserID(ctx, provider, scmUserID)
	if err != nil {
		return "", errors.Wrap(err, errors.KindInternalDependency, "look up user mapping")
	}
	if m == nil {
		return "", errors.NotFound("no mapping for %s user %d", provider, scmUserID)
	}
	return m.TopcoderHandle, nil
}

// SCMUsernameForHandle maps a topcoder handle back to the provider username,
// used when a stored assignee has to be removed on the provider side.
func (d *Directory) SCMUsernameForHandle(ctx context.Context, provider models.Provider, handle string) (string, error) {
	m, err := d.mappings.GetByHandle(ctx, provider, handle)
	if err != nil {
		return "", errors.Wrap(err, errors.KindInternalDependency, "look up user mapping")
	}
	if m == nil {
		return "", errors.NotFound("no mapping for %s handle %q", provider, handle)
	}
	return m.SCMUsername, nil
}

// IsMapped reports whether a source-control user has signed up.
func (d *Directory) IsMapped(ctx context.Context, provider models.Provider, scmUserID int64) (bool, error) {
	m, err := d.mappings.GetBySCMUserID(ctx, provider, scmUserID)
	if err != nil {
		return false, errors.Wrap(err, errors.KindInternalDependency, "look up user mapping")
	}
	return m != nil, nil
}
