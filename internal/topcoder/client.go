package topcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/gitcontest/xbridge/internal/errors"
)

// DefaultTimeout bounds every contest API call.
const DefaultTimeout = 30 * time.Second

// Client talks to the contest platform challenge API.
type Client struct {
	BaseURL    string
	DirectURL  string
	HTTPClient *http.Client

	tokens *tokenSource
	log    zerolog.Logger
}

// NewClient creates a client with a lazily refreshed machine token.
func NewClient(baseURL, directURL, authURL, clientID, clientSecret string, log zerolog.Logger) *Client {
	httpClient := &http.Client{Timeout: DefaultTimeout}
	return &Client{
		BaseURL:    baseURL,
		DirectURL:  directURL,
		HTTPClient: httpClient,
		tokens:     newTokenSource(authURL, clientID, clientSecret, httpClient),
		log:        log.With().Str("component", "topcoder").Logger(),
	}
}

// WithBaseURL returns a copy pointing at a different API root (tests).
func (c *Client) WithBaseURL(baseURL string) *Client {
	out := *c
	out.BaseURL = baseURL
	return &out
}

// ChallengeURL returns the user-facing link for a challenge.
func (c *Client) ChallengeURL(challengeID string) string {
	return fmt.Sprintf("%s/challenges/%s", c.DirectURL, challengeID)
}

// CreateChallenge creates a v5 task challenge and returns its id.
func (c *Client) CreateChallenge(ctx context.Context, nc NewChallenge) (string, error) {
	req := createChallengeRequest{
		TypeID:               defaultTypeID,
		Name:                 nc.Name,
		Description:          nc.Description,
		PrizeSets:            prizeSets(nc.PrizeSetType, nc.Prizes),
		TimelineTemplateID:   defaultTimelineTemplateID,
		ProjectID:            nc.ProjectID,
		TrackID:              defaultTrackID,
		Legacy:               Legacy{PureV5Task: true},
		StartDate:            time.Now().UTC(),
		SubmissionGuidelines: nc.SubmissionGuidelines,
	}
	var out Challenge
	if err := c.do(ctx, http.MethodPost, "/challenges", req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.ExternalAPI("challenge create returned no id")
	}
	return out.ID, nil
}

// UpdateChallenge PATCHes a challenge with the non-zero fields of u.
func (c *Client) UpdateChallenge(ctx context.Context, challengeID string, u ChallengeUpdate) error {
	body := map[string]interface{}{}
	if u.Status != "" {
		body["status"] = u.Status
	}
	if u.Name != "" {
		body["name"] = u.Name
	}
	if u.Description != "" {
		body["description"] = u.Description
	}
	if u.BillingAccountID != nil {
		body["billingAccountId"] = *u.BillingAccountID
	}
	if len(u.Winners) > 0 {
		body["winners"] = u.Winners
	}
	if u.Prizes != nil {
		body["prizeSets"] = prizeSets(u.PrizeSetType, u.Prizes)
	}
	return c.do(ctx, http.MethodPatch, "/challenges/"+url.PathEscape(challengeID), body, nil)
}

// ActivateChallenge moves a Draft challenge to Active.
func (c *Client) ActivateChallenge(ctx context.Context, challengeID string) error {
	return c.UpdateChallenge(ctx, challengeID, ChallengeUpdate{Status: StatusActive})
}

// CloseChallenge completes a challenge with a single first-place winner.
func (c *Client) CloseChallenge(ctx context.Context, challengeID string, winnerID int64, handle string) error {
	return c.UpdateChallenge(ctx, challengeID, ChallengeUpdate{
		Status:  StatusCompleted,
		Winners: []Winner{{UserID: winnerID, Handle: handle, Placement: 1}},
	})
}

// CancelChallenge is a logged no-op: the remote cancel endpoint is not
// functional, so cancellation is bookkeeping-only on our side.
func (c *Client) CancelChallenge(ctx context.Context, challengeID string) error {
	c.log.Info().Str("challenge", challengeID).Msg("challenge cancel requested; remote cancel API is a no-op")
	return nil
}

// GetChallenge fetches a challenge by id.
func (c *Client) GetChallenge(ctx context.Context, challengeID string) (*Challenge, error) {
	var out Challenge
	if err := c.do(ctx, http.MethodGet, "/challenges/"+url.PathEscape(challengeID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateResource assigns a role on a challenge.
func (c *Client) CreateResource(ctx context.Context, challengeID, handle string, roleID int) error {
	req := Resource{ChallengeID: challengeID, MemberHandle: handle, RoleID: roleID}
	return c.do(ctx, http.MethodPost, "/resources", req, nil)
}

// DeleteResource removes a role from a challenge.
func (c *Client) DeleteResource(ctx context.Context, challengeID, handle string, roleID int) error {
	req := Resource{ChallengeID: challengeID, MemberHandle: handle, RoleID: roleID}
	return c.do(ctx, http.MethodDelete, "/resources", req, nil)
}

// GetResources lists the role assignments on a challenge.
func (c *Client) GetResources(ctx context.Context, challengeID string) ([]Resource, error) {
	var out []Resource
	path := "/resources?challengeId=" + url.QueryEscape(challengeID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMemberID resolves a handle to the numeric member id.
func (c *Client) GetMemberID(ctx context.Context, handle string) (int64, error) {
	var out struct {
		UserID int64 `json:"userId"`
	}
	if err := c.do(ctx, http.MethodGet, "/members/"+url.PathEscape(handle), nil, &out); err != nil {
		return 0, err
	}
	if out.UserID == 0 {
		return 0, errors.NotFound("member %s has no user id", handle)
	}
	return out.UserID, nil
}

// GetProjectBillingAccountID fetches the billing account for a project.
func (c *Client) GetProjectBillingAccountID(ctx context.Context, projectID int) (int, error) {
	var out struct {
		BillingAccountID int `json:"billingAccountId"`
	}
	path := fmt.Sprintf("/projects/%d", projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	if out.BillingAccountID == 0 {
		return 0, errors.NotFound("project %d has no billing account", projectID)
	}
	return out.BillingAccountID, nil
}

// do performs an authenticated request and decodes the response into out.
// Non-2xx responses surface as ExternalApi errors; a 401 invalidates the
// cached token so the retried event gets a fresh one.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.KindFatal, "marshal request body")
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, errors.KindFatal, "create request")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return errors.WrapExternal(err, "fetch machine token")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.WrapExternal(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return errors.WrapExternal(err, "read response for %s %s", method, path)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
		return errors.ExternalAPI("%s %s: unauthorized (token invalidated)", method, path)
	}
	if resp.StatusCode == http.StatusNotFound {
		return errors.NotFound("%s %s: not found", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.ExternalAPI("%s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.WrapExternal(err, "decode response for %s %s", method, path)
		}
	}
	return nil
}
