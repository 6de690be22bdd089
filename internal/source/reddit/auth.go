package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	oauthHost = "https://oauth.reddit.com"
	tokenURL  = "https://www.reddit.com/api/v1/access_token"
)

// Credentials is an application-only OAuth credential pair.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// NewAuthenticated creates a client for the official API. Requests go
// to oauth.reddit.com with a bearer token; the API has a sanctioned
// quota so no human-pacing delay is applied.
func NewAuthenticated(cfg Config, creds Credentials, logger *slog.Logger) *Client {
	cfg.Hosts = []string{oauthHost}
	cfg.MinDelay = 0
	cfg.MaxDelay = 0

	c := New(cfg, logger)
	c.auth = &authenticator{
		httpClient: c.httpClient,
		userAgent:  cfg.UserAgent,
		creds:      creds,
	}
	return c
}

// authenticator fetches and caches a client-credentials access token.
type authenticator struct {
	httpClient *http.Client
	userAgent  string
	creds      Credentials

	mu      sync.Mutex
	current string
	expires time.Time
}

func (a *authenticator) token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != "" && time.Now().Before(a.expires) {
		return a.current, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(a.creds.ClientID, a.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty token")
	}

	a.current = body.AccessToken
	// Renew a minute early so in-flight requests never carry a stale token.
	a.expires = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute)

	return a.current, nil
}
