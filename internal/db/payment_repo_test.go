package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitcontest/xbridge/internal/models"
)

func createPaymentProject(t *testing.T, database *DB, repoURL string) *models.Project {
	t.Helper()
	repo := NewProjectRepo(database.DB)
	p := &models.Project{Title: "Test Project", RepoURL: repoURL, TCDirectID: 1}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestPaymentRepo_CreateAndGet(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()
	ctx := context.Background()
	project := createPaymentProject(t, database, "https://github.com/a/b")
	repo := NewPaymentRepo(database.DB)

	p := &models.CopilotPayment{
		ProjectID:   project.ID,
		Username:    "cpilot",
		Amount:      150,
		Description: "sprint support",
		Status:      models.PaymentStatusCreationPending,
	}
	require.NoError(t, repo.Create(ctx, p))
	assert.NotEmpty(t, p.ID)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 150, got.Amount)
	assert.Equal(t, models.PaymentStatusCreationPending, got.Status)
	assert.False(t, got.Closed)

	got, err = repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPaymentRepo_Coalescing(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()
	ctx := context.Background()
	project := createPaymentProject(t, database, "https://github.com/a/b")
	repo := NewPaymentRepo(database.DB)

	mk := func(amount int, uuid string) *models.CopilotPayment {
		p := &models.CopilotPayment{
			ProjectID:     project.ID,
			Username:      "cpilot",
			Amount:        amount,
			ChallengeUUID: uuid,
			Status:        models.PaymentStatusCreationSuccessful,
		}
		require.NoError(t, repo.Create(ctx, p))
		return p
	}

	mk(100, "ch-1")
	mk(50, "ch-1")
	other := &models.CopilotPayment{ProjectID: project.ID, Username: "someone", Amount: 25}
	require.NoError(t, repo.Create(ctx, other))

	open, err := repo.ListOpenByProjectUser(ctx, project.ID, "cpilot")
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, p := range open {
		assert.Equal(t, "ch-1", p.ChallengeUUID)
	}

	byChallenge, err := repo.ListOpenByChallenge(ctx, "ch-1")
	require.NoError(t, err)
	assert.Len(t, byChallenge, 2)

	byProject, err := repo.ListOpenByProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, byProject, 3)
}

func TestPaymentRepo_CloseByChallenge(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()
	ctx := context.Background()
	project := createPaymentProject(t, database, "https://github.com/a/b")
	repo := NewPaymentRepo(database.DB)

	for i := 0; i < 2; i++ {
		p := &models.CopilotPayment{
			ProjectID:     project.ID,
			Username:      "cpilot",
			Amount:        10,
			ChallengeUUID: "ch-9",
		}
		require.NoError(t, repo.Create(ctx, p))
	}

	n, err := repo.CloseByChallenge(ctx, "ch-9")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	open, err := repo.ListOpenByChallenge(ctx, "ch-9")
	require.NoError(t, err)
	assert.Empty(t, open)

	// Closing again is a no-op; closed rows never re-open.
	n, err = repo.CloseByChallenge(ctx, "ch-9")
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := repo.CountOpen(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPaymentRepo_UpdateAndDelete(t *testing.T) {
	database := NewTestDB(t)
	defer database.Close()
	ctx := context.Background()
	project := createPaymentProject(t, database, "https://github.com/a/b")
	repo := NewPaymentRepo(database.DB)

	p := &models.CopilotPayment{ProjectID: project.ID, Username: "cpilot", Amount: 10}
	require.NoError(t, repo.Create(ctx, p))

	p.Amount = 75
	p.ChallengeUUID = "ch-2"
	p.Status = models.PaymentStatusCreationRetried
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 75, got.Amount)
	assert.Equal(t, "ch-2", got.ChallengeUUID)
	assert.Equal(t, models.PaymentStatusCreationRetried, got.Status)

	require.NoError(t, repo.Delete(ctx, p.ID))
	got, err = repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
