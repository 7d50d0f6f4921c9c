package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitcontest/xbridge/internal/config"
	"github.com/gitcontest/xbridge/internal/db"
	"github.com/gitcontest/xbridge/internal/models"
)

func newTestServer(t *testing.T) (*Server, *db.IssueRepo, *db.PaymentRepo) {
	t.Helper()
	sqlDB := db.NewTestSqlDB(t)
	t.Cleanup(func() { sqlDB.Close() })

	issues := db.NewIssueRepo(sqlDB)
	payments := db.NewPaymentRepo(sqlDB)
	s := New(config.ServerConfig{}, issues, payments, zerolog.Nop())
	return s, issues, payments
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatusEndpoint(t *testing.T) {
	s, issues, payments := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, issues.Create(ctx, &models.Issue{
		Provider:     models.ProviderGitHub,
		RepositoryID: 1,
		Number:       1,
		Title:        "one",
		Status:       models.StatusChallengeCreationSuccessful,
	}))
	require.NoError(t, issues.Create(ctx, &models.Issue{
		Provider:     models.ProviderGitHub,
		RepositoryID: 1,
		Number:       2,
		Title:        "two",
		Status:       models.StatusChallengeCreationSuccessful,
	}))
	require.NoError(t, issues.Create(ctx, &models.Issue{
		Provider:     models.ProviderGitLab,
		RepositoryID: 2,
		Number:       1,
		Title:        "three",
		Status:       models.StatusChallengePaymentPending,
	}))
	require.NoError(t, payments.Create(ctx, &models.CopilotPayment{
		ID:        "pay-1",
		ProjectID: "proj-1",
		Username:  "alice",
		Amount:    10,
		Status:    models.PaymentStatusCreationSuccessful,
	}))

	rec := doRequest(t, s, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Issues[string(models.StatusChallengeCreationSuccessful)])
	assert.Equal(t, 1, body.Issues[string(models.StatusChallengePaymentPending)])
	assert.Equal(t, 0, body.Issues[string(models.StatusChallengeCreationFailed)])
	assert.Equal(t, 1, body.OpenPayments)

	// The shape is stable: every known status is present.
	assert.Len(t, body.Issues, len(models.AllIssueStatuses()))
}

func TestStatusEndpointMethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/status")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
