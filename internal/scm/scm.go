// Package scm provides source-control clients for the two supported
// providers. Both speak plain REST with a bearer token; the bridge only
// needs the small slice of each API that ticket reconciliation touches.
package scm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gitcontest/xbridge/internal/errors"
	"github.com/gitcontest/xbridge/internal/models"
)

// Client is the provider-neutral surface the services program against.
// repo is the full name ("owner/repo" or "group/project"), number the
// provider-local ticket number.
type Client interface {
	CreateComment(ctx context.Context, repo string, number int, body string) error
	AddLabels(ctx context.Context, repo string, number int, labels []string) error
	RemoveLabel(ctx context.Context, repo string, number int, label string) error
	ReplaceLabels(ctx context.Context, repo string, number int, labels []string) error
	Assign(ctx context.Context, repo string, number int, username string) error
	Unassign(ctx context.Context, repo string, number int, username string) error
	GetUsernameByID(ctx context.Context, userID int64) (string, error)
	GetUserIDByUsername(ctx context.Context, username string) (int64, error)
	UpdateTitle(ctx context.Context, repo string, number int, title string) error
	MarkPaid(ctx context.Context, repo string, number int, challengeURL string, labels []string) error
	Reopen(ctx context.Context, repo string, number int) error
}

// Registry holds one client per provider.
type Registry map[models.Provider]Client

// For returns the client for a provider.
func (r Registry) For(p models.Provider) (Client, error) {
	c, ok := r[p]
	if !ok {
		return nil, errors.Validation("no source control client for provider %q", p)
	}
	return c, nil
}

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	retryDelay     = time.Second
	maxResponseLen = 10 * 1024 * 1024
)

// doJSON performs an authenticated request with bounded retries. Rate-limit
// responses (429, or 403 with an exhausted quota header) back off and retry;
// other non-2xx statuses fail immediately. setHeaders stamps provider auth.
func doJSON(ctx context.Context, client *http.Client, method, urlStr string, body interface{},
	setHeaders func(*http.Request)) ([]byte, error) {

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindFatal, "marshal request body")
		}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		var reqBody io.Reader
		if raw != nil {
			reqBody = bytes.NewReader(raw)
		}
		req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindFatal, "create request")
		}
		req.Header.Set("Content-Type", "application/json")
		setHeaders(req)

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseLen))
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests ||
			(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0") {
			delay := retryDelay * time.Duration(1<<attempt)
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if seconds, err := strconv.Atoi(retryAfter); err == nil {
					delay = time.Duration(seconds) * time.Second
				}
			}
			lastErr = fmt.Errorf("rate limited")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, errors.NotFound("%s %s: not found", method, urlStr)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, errors.ExternalAPI("%s %s: status %d: %s", method, urlStr, resp.StatusCode, string(respBody))
		}
		return respBody, nil
	}

	return nil, errors.WrapExternal(lastErr, "%s %s: retries exhausted", method, urlStr)
}
