package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/gitcontest/xbridge/internal/errors"
	"github.com/gitcontest/xbridge/internal/models"
)

func testIssue(number int) *models.Issue {
	return &models.Issue{
		Provider:     models.ProviderGitHub,
		RepositoryID: 4242,
		Number:       number,
		Title:        "Fix bug",
		Body:         "<p>details</p>",
		Prizes:       []int{100},
		Labels:       []string{"tcx_OpenForPickup"},
		Status:       models.StatusChallengeCreationPending,
	}
}

func TestIssueRepo_CreateAndGet(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()
	ctx := context.Background()
	repo := NewIssueRepo(database.DB)

	issue := testIssue(1)
	require.NoError(t, repo.Create(ctx, issue))
	assert.NotEmpty(t, issue.ID)

	got, err := repo.GetByIdentity(ctx, models.ProviderGitHub, 4242, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, issue.ID, got.ID)
	assert.Equal(t, []int{100}, got.Prizes)
	assert.Equal(t, []string{"tcx_OpenForPickup"}, got.Labels)
	assert.Empty(t, got.Assignee)
	assert.Nil(t, got.AssignedAt)

	// Missing identity comes back as nil, not an error.
	got, err = repo.GetByIdentity(ctx, models.ProviderGitHub, 4242, 99)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIssueRepo_DuplicateIdentityConflicts(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()
	ctx := context.Background()
	repo := NewIssueRepo(database.DB)

	require.NoError(t, repo.Create(ctx, testIssue(7)))

	err := repo.Create(ctx, testIssue(7))
	require.Error(t, err)
	assert.Equal(t, xerrors.KindConflict, xerrors.GetKind(err))
	assert.True(t, xerrors.IsRescheduleable(err))
}

func TestIssueRepo_Update(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()
	ctx := context.Background()
	repo := NewIssueRepo(database.DB)

	issue := testIssue(2)
	require.NoError(t, repo.Create(ctx, issue))

	now := time.Now()
	issue.Status = models.StatusChallengeCreationSuccessful
	issue.ChallengeID = "ch-123"
	issue.Assignee = "tonyj"
	issue.AssignedAt = &now
	issue.Labels = []string{"tcx_Assigned"}
	require.NoError(t, repo.Update(ctx, issue))

	got, err := repo.GetByIdentity(ctx, models.ProviderGitHub, 4242, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusChallengeCreationSuccessful, got.Status)
	assert.Equal(t, "ch-123", got.ChallengeID)
	assert.Equal(t, "tonyj", got.Assignee)
	require.NotNil(t, got.AssignedAt)
	assert.Equal(t, []string{"tcx_Assigned"}, got.Labels)

	// Updating an already-deleted record reports it.
	require.NoError(t, repo.Delete(ctx, issue.ID))
	assert.Error(t, repo.Update(ctx, issue))
}

func TestIssueRepo_DeleteAllowsRecreate(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()
	ctx := context.Background()
	repo := NewIssueRepo(database.DB)

	issue := testIssue(3)
	require.NoError(t, repo.Create(ctx, issue))
	require.NoError(t, repo.Delete(ctx, issue.ID))

	// Same identity can be inserted again after deletion.
	require.NoError(t, repo.Create(ctx, testIssue(3)))
}

func TestIssueRepo_CountByStatus(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()
	ctx := context.Background()
	repo := NewIssueRepo(database.DB)

	a := testIssue(10)
	require.NoError(t, repo.Create(ctx, a))
	b := testIssue(11)
	b.Status = models.StatusChallengeCreationPending
	require.NoError(t, repo.Create(ctx, b))
	c := testIssue(12)
	require.NoError(t, repo.Create(ctx, c))
	c.Status = models.StatusChallengeCreationSuccessful
	require.NoError(t, repo.Update(ctx, c))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.StatusChallengeCreationPending])
	assert.Equal(t, 1, counts[models.StatusChallengeCreationSuccessful])
}

func TestProjectRepo(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()
	ctx := context.Background()
	repo := NewProjectRepo(database.DB)

	p := &models.Project{
		Title:                 "Acme Webapp",
		RepoURL:               "https://github.com/acme/webapp",
		TCDirectID:            7788,
		Copilot:               "cpilot",
		Owner:                 "powner",
		CreateCopilotPayments: true,
		Tags:                  []string{"web"},
	}
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.GetByRepoURL(ctx, "https://github.com/acme/webapp")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 7788, got.TCDirectID)
	assert.True(t, got.CreateCopilotPayments)
	assert.Equal(t, []string{"web"}, got.Tags)

	got, err = repo.GetByRepoURL(ctx, "https://github.com/acme/unknown")
	require.NoError(t, err)
	assert.Nil(t, got)

	byUser, err := repo.ListByUser(ctx, "cpilot")
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	byUser, err = repo.ListByUser(ctx, "powner")
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	byUser, err = repo.ListByUser(ctx, "stranger")
	require.NoError(t, err)
	assert.Empty(t, byUser)
}

func TestMappingRepo(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()
	ctx := context.Background()
	repo := NewMappingRepo(database.DB)

	m := &models.UserMapping{
		Provider:       models.ProviderGitHub,
		SCMUserID:      999,
		SCMUsername:    "octo",
		TopcoderHandle: "octotc",
	}
	require.NoError(t, repo.Create(ctx, m))

	got, err := repo.GetBySCMUserID(ctx, models.ProviderGitHub, 999)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "octotc", got.TopcoderHandle)

	got, err = repo.GetByHandle(ctx, models.ProviderGitHub, "octotc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(999), got.SCMUserID)

	// Same user id under a different provider is a different identity.
	got, err = repo.GetBySCMUserID(ctx, models.ProviderGitLab, 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}
