package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitcontest/xbridge/internal/db"
	"github.com/gitcontest/xbridge/internal/errors"
	"github.com/gitcontest/xbridge/internal/models"
)

func TestDirectoryLookups(t *testing.T) {
	sqlDB := db.NewTestSqlDB(t)
	mappings := db.NewMappingRepo(sqlDB)
	dir := NewDirectory(mappings)
	ctx := context.Background()

	require.NoError(t, mappings.Create(ctx, &models.UserMapping{
		Provider:       models.ProviderGitHub,
		SCMUserID:      777,
		SCMUsername:    "dev1",
		TopcoderHandle: "tonyj",
	}))

	handle, err := dir.HandleForSCMUser(ctx, models.ProviderGitHub, 777)
	require.NoError(t, err)
	assert.Equal(t, "tonyj", handle)

	username, err := dir.SCMUsernameForHandle(ctx, models.ProviderGitHub, "tonyj")
	require.NoError(t, err)
	assert.Equal(t, "dev1", username)

	mapped, err := dir.IsMapped(ctx, models.ProviderGitHub, 777)
	require.NoError(t, err)
	assert.True(t, mapped)
}

func TestDirectoryUnmappedUser(t *testing.T) {
	sqlDB := db.NewTestSqlDB(t)
	dir := NewDirectory(db.NewMappingRepo(sqlDB))
	ctx := context.Background()

	_, err := dir.HandleForSCMUser(ctx, models.ProviderGitHub, 1)
	assert.Equal(t, errors.KindNotFound, errors.GetKind(err))

	_, err = dir.SCMUsernameForHandle(ctx, models.ProviderGitLab, "ghost")
	assert.Equal(t, errors.KindNotFound, errors.GetKind(err))

	mapped, err := dir.IsMapped(ctx, models.ProviderGitHub, 1)
	require.NoError(t, err)
	assert.False(t, mapped)
}

func TestDirectoryProviderScoping(t *testing.T) {
	sqlDB := db.NewTestSqlDB(t)
	mappings := db.NewMappingRepo(sqlDB)
	dir := NewDirectory(mappings)
	ctx := context.Background()

	require.NoError(t, mappings.Create(ctx, &models.UserMapping{
		Provider:       models.ProviderGitLab,
		SCMUserID:      314,
		SCMUsername:    "dev2",
		TopcoderHandle: "maria",
	}))

	// Same numeric id on the other provider is a different identity.
	_, err := dir.HandleForSCMUser(ctx, models.ProviderGitHub, 314)
	assert.Equal(t, errors.KindNotFound, errors.GetKind(err))
}
