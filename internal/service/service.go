// Package service implements the event handlers that reconcile tickets and
// copilot payments with contest-platform challenges. Handlers are idempotent
// under at-least-once delivery; the duplicate-creation guard and the pending
// statuses serialize the only non-idempotent remote call.
package service

import (
	"context"

	"github.com/gitcontest/xbridge/internal/bus"
	"github.com/gitcontest/xbridge/internal/models"
	"github.com/gitcontest/xbridge/internal/topcoder"
)

// ContestClient is the slice of the contest API the handlers call.
type ContestClient interface {
	CreateChallenge(ctx context.Context, nc topcoder.NewChallenge) (string, error)
	UpdateChallenge(ctx context.Context, challengeID string, u topcoder.ChallengeUpdate) error
	ActivateChallenge(ctx context.Context, challengeID string) error
	CloseChallenge(ctx context.Context, challengeID string, winnerID int64, handle string) error
	CancelChallenge(ctx context.Context, challengeID string) error
	GetChallenge(ctx context.Context, challengeID string) (*topcoder.Challenge, error)
	CreateResource(ctx context.Context, challengeID, handle string, roleID int) error
	DeleteResource(ctx context.Context, challengeID, handle string, roleID int) error
	GetResources(ctx context.Context, challengeID string) ([]topcoder.Resource, error)
	GetMemberID(ctx context.Context, handle string) (int64, error)
	GetProjectBillingAccountID(ctx context.Context, projectID int) (int, error)
	ChallengeURL(challengeID string) string
}

// UserDirectory resolves source-control identities to contest handles.
type UserDirectory interface {
	HandleForSCMUser(ctx context.Context, provider models.Provider, scmUserID int64) (string, error)
	SCMUsernameForHandle(ctx context.Context, provider models.Provider, handle string) (string, error)
}

// Rescheduler republishes an event for a later attempt.
type Rescheduler interface {
	Reschedule(ctx context.Context, ev *bus.Event) error
}
