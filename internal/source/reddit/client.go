package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// ErrBlocked marks a 403 from an endpoint variant. Retrying a blocked
// variant is pointless; the client falls through to the next host.
var ErrBlocked = errors.New("blocked by endpoint")

// ErrSourceUnavailable is returned when every endpoint variant has
// been exhausted without a captured error.
var ErrSourceUnavailable = errors.New("all reddit endpoints failed")

// Config holds fetch client tunables.
type Config struct {
	Hosts          []string
	UserAgent      string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MinDelay       time.Duration
	MaxDelay       time.Duration
}

// Client fetches Reddit JSON endpoints with human-like pacing,
// rate-limit retries and host fallback. One Client (and its underlying
// connection pool) is shared across all calls within a run.
type Client struct {
	httpClient     *http.Client
	hosts          []string
	userAgent      string
	maxAttempts    int
	initialBackoff time.Duration
	minDelay       time.Duration
	maxDelay       time.Duration
	auth           *authenticator
	logger         *slog.Logger
}

// New creates an unauthenticated client for the public JSON endpoints.
func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		hosts:          cfg.Hosts,
		userAgent:      cfg.UserAgent,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		minDelay:       cfg.MinDelay,
		maxDelay:       cfg.MaxDelay,
		logger:         logger.With("component", "reddit_client"),
	}
}

// GetJSON fetches path (e.g. "/user/x/comments.json?limit=100") from
// the first endpoint variant that yields a 200 and decodes the body
// into v. Variants are tried in configured preference order; a 429 is
// retried on the same variant with escalating backoff, a 403 or
// connection failure abandons the variant immediately.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	var lastErr error

	for _, host := range c.hosts {
		err := c.tryVariant(ctx, host+path, v)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}

		lastErr = err
		c.logger.Warn("endpoint variant failed, trying next",
			"host", host,
			"error", err,
		)
	}

	if lastErr != nil {
		return lastErr
	}
	return ErrSourceUnavailable
}

func (c *Client) tryVariant(ctx context.Context, url string, v any) error {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.pace(ctx); err != nil {
			return err
		}

		resp, err := c.doRequest(ctx, url)
		if err != nil {
			// Connection-level failure: abandon this variant.
			return fmt.Errorf("execute request: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(v)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil

		case http.StatusTooManyRequests:
			resp.Body.Close()
			backoff := c.initialBackoff * time.Duration(attempt)
			c.logger.Warn("rate limited, backing off",
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}

		case http.StatusForbidden:
			resp.Body.Close()
			return fmt.Errorf("%w: %s", ErrBlocked, url)

		default:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
		}
	}

	return fmt.Errorf("rate limited after %d attempts: %s", c.maxAttempts, url)
}

func (c *Client) doRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setHeaders(req)

	if c.auth != nil {
		token, err := c.auth.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("obtain access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req)
}

// setHeaders applies consistent browser-like headers so repeated
// requests within a session look uniform to the source.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Cache-Control", "max-age=0")
}

// pace sleeps a random interval within the configured bounds before
// each attempt to approximate human request cadence.
func (c *Client) pace(ctx context.Context) error {
	if c.maxDelay <= 0 {
		return nil
	}

	delay := c.minDelay
	if span := c.maxDelay - c.minDelay; span > 0 {
		delay += time.Duration(rand.Int64N(int64(span)))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
