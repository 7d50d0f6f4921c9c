package topcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// tokenSource caches the machine token for the whole process. Readers take
// the lock, so a refresh is never observed half-written.
type tokenSource struct {
	authURL      string
	clientID     string
	clientSecret string
	audience     string
	httpClient   *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// refreshSkew renews the token slightly before the server-side expiry so
// in-flight requests never race the deadline.
const refreshSkew = 60 * time.Second

const defaultAudience = "https://m2m.topcoder-dev.com/"

func newTokenSource(authURL, clientID, clientSecret string, httpClient *http.Client) *tokenSource {
	return &tokenSource{
		authURL:      authURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		audience:     defaultAudience,
		httpClient:   httpClient,
	}
}

// Token returns a valid machine token, refreshing lazily.
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expires.Add(-refreshSkew)) {
		return s.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     s.clientID,
		"client_secret": s.clientSecret,
		"audience":      s.audience,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty token")
	}

	s.token = out.AccessToken
	s.expires = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return s.token, nil
}

// Invalidate drops the cached token so the next call refreshes.
func (s *tokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}
