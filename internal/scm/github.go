package scm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/gitcontest/xbridge/internal/errors"
)

// DefaultGitHubBaseURL is the public API endpoint.
const DefaultGitHubBaseURL = "https://api.github.com"

// GitHubClient implements Client against the GitHub REST v3 API.
type GitHubClient struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client

	log zerolog.Logger
}

// NewGitHubClient creates a client for the public API or an enterprise host.
func NewGitHubClient(token, baseURL string, log zerolog.Logger) *GitHubClient {
	if baseURL == "" {
		baseURL = DefaultGitHubBaseURL
	}
	return &GitHubClient{
		Token:      token,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		log:        log.With().Str("component", "github").Logger(),
	}
}

func (c *GitHubClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}

func (c *GitHubClient) do(ctx context.Context, method, path string, body, out interface{}) error {
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

func (c *GitHubClient) issuePath(repo string, number int) string {
	return fmt.Sprintf("/repos/%s/issues/%d", repo, number)
}

// CreateComment posts a comment on an issue.
func (c *GitHubClient) CreateComment(ctx context.Context, repo string, number int, body string) error {
	return c.do(ctx, http.MethodPost, c.issuePath(repo, number)+"/comments",
		map[string]string{"body": body}, nil)
}

// AddLabels adds labels without disturbing existing ones.
func (c *GitHubClient) AddLabels(ctx context.Context, repo string, number int, labels []string) error {
	return c.do(ctx, http.MethodPost, c.issuePath(repo, number)+"/labels",
		map[string][]string{"labels": labels}, nil)
}

// RemoveLabel removes one label. A label already absent is not an error.
func (c *GitHubClient) RemoveLabel(ctx context.Context, repo string, number int, label string) error {
	path := c.issuePath(repo, number) + "/labels/" + url.PathEscape(label)
	err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if errors.GetKind(err) == errors.KindNotFound {
		return nil
	}
	return err
}

// ReplaceLabels sets the full label list on an issue.
func (c *GitHubClient) ReplaceLabels(ctx context.Context, repo string, number int, labels []string) error {
	return c.do(ctx, http.MethodPut, c.issuePath(repo, number)+"/labels",
		map[string][]string{"labels": labels}, nil)
}

// Assign adds an assignee by username.
func (c *GitHubClient) Assign(ctx context.Context, repo string, number int, username string) error {
	return c.do(ctx, http.MethodPost, c.issuePath(repo, number)+"/assignees",
		map[string][]string{"assignees": {username}}, nil)
}

// Unassign removes an assignee by username.
func (c *GitHubClient) Unassign(ctx context.Context, repo string, number int, username string) error {
	return c.do(ctx, http.MethodDelete, c.issuePath(repo, number)+"/assignees",
		map[string][]string{"assignees": {username}}, nil)
}

// GetUsernameByID resolves a numeric account id to the login.
func (c *GitHubClient) GetUsernameByID(ctx context.Context, userID int64) (string, error) {
	var out struct {
		Login string `json:"login"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/user/%d", userID), nil, &out); err != nil {
		return "", err
	}
	if out.Login == "" {
		return "", errors.NotFound("user %d has no login", userID)
	}
	return out.Login, nil
}

// GetUserIDByUsername resolves a login to the numeric account id.
func (c *GitHubClient) GetUserIDByUsername(ctx context.Context, username string) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(username), nil, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// UpdateTitle retitles an issue.
func (c *GitHubClient) UpdateTitle(ctx context.Context, repo string, number int, title string) error {
	return c.do(ctx, http.MethodPatch, c.issuePath(repo, number),
		map[string]string{"title": title}, nil)
}

// MarkPaid replaces the labels with the paid set and links the challenge.
func (c *GitHubClient) MarkPaid(ctx context.Context, repo string, number int, challengeURL string, labels []string) error {
	if err := c.ReplaceLabels(ctx, repo, number, labels); err != nil {
		return err
	}
	return c.CreateComment(ctx, repo, number,
		"Payment task has been updated: "+challengeURL)
}

// Reopen moves a closed issue back to open.
func (c *GitHubClient) Reopen(ctx context.Context, repo string, number int) error {
	return c.do(ctx, http.MethodPatch, c.issuePath(repo, number),
		map[string]string{"state": "open"}, nil)
}
