package scm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitcontest/xbridge/internal/errors"
)

func newGitLabTestClient(t *testing.T, handler http.HandlerFunc) (*GitLabClient, *[]capturedRequest) {
	t.Helper()
	var reqs []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gl-token", r.Header.Get("PRIVATE-TOKEN"))
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		reqs = append(reqs, capturedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Body: body})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewGitLabClient("gl-token", srv.URL, zerolog.Nop()), &reqs
}

func TestGitLabProjectPathEncoding(t *testing.T) {
	client, reqs := newGitLabTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, client.CreateComment(context.Background(), "group/project", 7, "hello"))

	got := *reqs
	require.Len(t, got, 1)
	assert.Equal(t, "/projects/group%2Fproject/issues/7/notes", got[0].Path)
	assert.Equal(t, "hello", got[0].Body["body"])
}

func TestGitLabLabelMutations(t *testing.T) {
	client, reqs := newGitLabTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()

	require.NoError(t, client.AddLabels(ctx, "group/project", 7, []string{"tcx_Assigned", "bug"}))
	require.NoError(t, client.RemoveLabel(ctx, "group/project", 7, "tcx_OpenForPickup"))
	require.NoError(t, client.ReplaceLabels(ctx, "group/project", 7, []string{"tcx_Paid"}))

	got := *reqs
	require.Len(t, got, 3)
	assert.Equal(t, "tcx_Assigned,bug", got[0].Body["add_labels"])
	assert.Equal(t, "tcx_OpenForPickup", got[1].Body["remove_labels"])
	assert.Equal(t, "tcx_Paid", got[2].Body["labels"])
	for _, r := range got {
		assert.Equal(t, http.MethodPut, r.Method)
	}
}

func TestGitLabAssignResolvesUserID(t *testing.T) {
	client, reqs := newGitLabTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users" {
			assert.Equal(t, "dev1", r.URL.Query().Get("username"))
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": 314, "username": "dev1"},
			})
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, client.Assign(context.Background(), "group/project", 7, "dev1"))

	got := *reqs
	require.Len(t, got, 2)
	assert.Equal(t, []interface{}{float64(314)}, got[1].Body["assignee_ids"])
}

func TestGitLabUnassignKeepsOthers(t *testing.T) {
	client, reqs := newGitLabTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": 314, "username": "dev1"},
			})
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"assignees": []map[string]int64{{"id": 314}, {"id": 999}},
			})
		default:
			w.WriteHeader(http.StatusOK)
		}
	})
	require.NoError(t, client.Unassign(context.Background(), "group/project", 7, "dev1"))

	got := *reqs
	last := got[len(got)-1]
	assert.Equal(t, http.MethodPut, last.Method)
	assert.Equal(t, []interface{}{float64(999)}, last.Body["assignee_ids"])
}

func TestGitLabUnassignLastClearsWithZero(t *testing.T) {
	client, reqs := newGitLabTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": 314, "username": "dev1"},
			})
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"assignees": []map[string]int64{{"id": 314}},
			})
		default:
			w.WriteHeader(http.StatusOK)
		}
	})
	require.NoError(t, client.Unassign(context.Background(), "group/project", 7, "dev1"))

	got := *reqs
	last := got[len(got)-1]
	assert.Equal(t, []interface{}{float64(0)}, last.Body["assignee_ids"])
}

func TestGitLabUserLookups(t *testing.T) {
	client, _ := newGitLabTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/314":
			json.NewEncoder(w).Encode(map[string]string{"username": "dev1"})
		case "/users":
			json.NewEncoder(w).Encode([]map[string]interface{}{})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	name, err := client.GetUsernameByID(ctx, 314)
	require.NoError(t, err)
	assert.Equal(t, "dev1", name)

	_, err = client.GetUserIDByUsername(ctx, "ghost")
	assert.Equal(t, errors.KindNotFound, errors.GetKind(err))
}

func TestGitLabReopen(t *testing.T) {
	client, reqs := newGitLabTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, client.Reopen(context.Background(), "group/project", 7))
	assert.Equal(t, "reopen", (*reqs)[0].Body["state_event"])
}
