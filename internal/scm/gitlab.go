package scm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gitcontest/xbridge/internal/errors"
)

// DefaultGitLabBaseURL is the public API endpoint.
const DefaultGitLabBaseURL = "https://gitlab.com/api/v4"

// GitLabClient implements Client against the GitLab v4 API. Projects are
// addressed by their URL-encoded full path; assignment is id-based, so
// the username methods back the assignment calls.
type GitLabClient struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client

	log zerolog.Logger
}

// NewGitLabClient creates a client for gitlab.com or a self-hosted instance.
func NewGitLabClient(token, baseURL string, log zerolog.Logger) *GitLabClient {
	if baseURL == "" {
		baseURL = DefaultGitLabBaseURL
	}
	return &GitLabClient{
		Token:      token,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		log:        log.With().Str("component", "gitlab").Logger(),
	}
}

func (c *GitLabClient) setHeaders(req *http.Request) {
	req.Header.Set("PRIVATE-TOKEN", c.Token)
}

func (c *GitLabClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	respBody, err := doJSON(ctx, c.HTTPClient, method, c.BaseURL+path, body, c.setHeaders)
	if err != nil {
		return err
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.WrapExternal(err, "decode response for %s %s", method, path)
		}
	}
	return nil
}

func (c *GitLabClient) issuePath(repo string, number int) string {
	return fmt.Sprintf("/projects/%s/issues/%d", url.PathEscape(repo), number)
}

type gitlabIssue struct {
	Labels []string `json:"labels"`
	Assignees []struct {
		ID int64 `json:"id"`
	} `json:"assignees"`
}

func (c *GitLabClient) getIssue(ctx context.Context, repo string, number int) (*gitlabIssue, error) {
	var out gitlabIssue
	if err := c.do(ctx, http.MethodGet, c.issuePath(repo, number), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateComment posts a note on an issue.
func (c *GitLabClient) CreateComment(ctx context.Context, repo string, number int, body string) error {
	return c.do(ctx, http.MethodPost, c.issuePath(repo, number)+"/notes",
		map[string]string{"body": body}, nil)
}

// AddLabels adds labels without disturbing existing ones.
func (c *GitLabClient) AddLabels(ctx context.Context, repo string, number int, labels []string) error {
	return c.do(ctx, http.MethodPut, c.issuePath(repo, number),
		map[string]string{"add_labels": strings.Join(labels, ",")}, nil)
}

// RemoveLabel removes one label. A label already absent is not an error.
func (c *GitLabClient) RemoveLabel(ctx context.Context, repo string, number int, label string) error {
	return c.do(ctx, http.MethodPut, c.issuePath(repo, number),
		map[string]string{"remove_labels": label}, nil)
}

// ReplaceLabels sets the full label list on an issue.
func (c *GitLabClient) ReplaceLabels(ctx context.Context, repo string, number int, labels []string) error {
	return c.do(ctx, http.MethodPut, c.issuePath(repo, number),
		map[string]string{"labels": strings.Join(labels, ",")}, nil)
}

// Assign sets the sole assignee, resolving the username to an id first.
func (c *GitLabClient) Assign(ctx context.Context, repo string, number int, username string) error {
	id, err := c.GetUserIDByUsername(ctx, username)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, c.issuePath(repo, number),
		map[string][]int64{"assignee_ids": {id}}, nil)
}

// Unassign drops the named user from the assignee list, keeping any others.
func (c *GitLabClient) Unassign(ctx context.Context, repo string, number int, username string) error {
	id, err := c.GetUserIDByUsername(ctx, username)
	if err != nil {
		return err
	}
	issue, err := c.getIssue(ctx, repo, number)
	if err != nil {
		return err
	}
	remaining := []int64{}
	for _, a := range issue.Assignees {
		if a.ID != id {
			remaining = append(remaining, a.ID)
		}
	}
	if len(remaining) == len(issue.Assignees) {
		return nil
	}
	// An empty list must still be sent to clear the last assignee.
	if len(remaining) == 0 {
		remaining = []int64{0}
	}
	return c.do(ctx, http.MethodPut, c.issuePath(repo, number),
		map[string][]int64{"assignee_ids": remaining}, nil)
}

// GetUsernameByID resolves a numeric user id to the username.
func (c *GitLabClient) GetUsernameByID(ctx context.Context, userID int64) (string, error) {
	var out struct {
		Username string `json:"username"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", userID), nil, &out); err != nil {
		return "", err
	}
	if out.Username == "" {
		return "", errors.NotFound("user %d has no username", userID)
	}
	return out.Username, nil
}

// GetUserIDByUsername resolves a username via the user search endpoint.
func (c *GitLabClient) GetUserIDByUsername(ctx context.Context, username string) (int64, error) {
	var out []struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	path := "/users?username=" + url.QueryEscape(username)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	for _, u := range out {
		if strings.EqualFold(u.Username, username) {
			return u.ID, nil
		}
	}
	return 0, errors.NotFound("gitlab user %q not found", username)
}

// UpdateTitle retitles an issue.
func (c *GitLabClient) UpdateTitle(ctx context.Context, repo string, number int, title string) error {
	return c.do(ctx, http.MethodPut, c.issuePath(repo, number),
		map[string]string{"title": title}, nil)
}

// MarkPaid replaces the labels with the paid set and links the challenge.
func (c *GitLabClient) MarkPaid(ctx context.Context, repo string, number int, challengeURL string, labels []string) error {
	if err := c.ReplaceLabels(ctx, repo, number, labels); err != nil {
		return err
	}
	return c.CreateComment(ctx, repo, number,
		"Payment task has been updated: "+challengeURL)
}

// Reopen moves a closed issue back to open.
func (c *GitLabClient) Reopen(ctx context.Context, repo string, number int) error {
	return c.do(ctx, http.MethodPut, c.issuePath(repo, number),
		map[string]string{"state_event": "reopen"}, nil)
}
