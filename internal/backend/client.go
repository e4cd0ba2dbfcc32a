package backend

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/consoled-dev/consoled/internal/session"
)

const contentTypeJSON = "application/json"

// Client is the HTTP client for the backend API. Every request carries a
// bearer token from the caller's session; a 401 triggers exactly one
// refresh-token exchange and one retry before giving up.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *session.Store
	logger     zerolog.Logger

	// refreshGroup coalesces concurrent refresh attempts for the same
	// session generation into a single backend call.
	refreshGroup singleflight.Group
}

// New creates a new backend API client
func New(baseURL string, store *session.Store, zlog zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		store:  store,
		logger: zlog,
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the configured backend origin
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends an authenticated request to the backend. On a 401 it refreshes
// the session's token pair and retries the original request once; a second
// 401 is terminal. The session is updated in place when a refresh happens,
// so callers can re-mirror cookies afterwards.
func (c *Client) Do(ctx context.Context, sess *session.Session, method, path string, body []byte, contentType string) (*http.Response, error) {
	resp, err := c.send(ctx, sess.TokenPair.AccessToken, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	fresh, err := c.refreshSession(ctx, sess)
	if err != nil {
		return nil, err
	}
	*sess = *fresh

	resp, err = c.send(ctx, sess.TokenPair.AccessToken, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// Fresh token was rejected too; do not refresh again
		resp.Body.Close()
		return nil, ErrUnauthenticated
	}
	return resp, nil
}

// send issues a single request with the given access token. The Authorization
// header is always present; a missing token produces an empty bearer value.
func (c *Client) send(ctx context.Context, accessToken, method, path string, body []byte, contentType string) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// refreshSession exchanges the session's refresh token for a new pair.
// Concurrent callers on the same session generation share one exchange.
// On failure the stored tokens are cleared and ErrSessionExpired is returned.
func (c *Client) refreshSession(ctx context.Context, sess *session.Session) (*session.Session, error) {
	key := fmt.Sprintf("%s:%d", sess.ID, sess.Generation)

	v, err, _ := c.refreshGroup.Do(key, func() (interface{}, error) {
		// Another request may have refreshed while we waited for the lock
		fresh, err := c.store.Load(ctx, sess.ID)
		if err != nil {
			return nil, ErrSessionExpired
		}
		if fresh.Generation > sess.Generation {
			return fresh, nil
		}

		if fresh.TokenPair.RefreshToken == "" {
			c.clearSession(ctx, sess.ID)
			return nil, ErrSessionExpired
		}

		pair, err := c.Refresh(ctx, fresh.TokenPair.RefreshToken)
		if err != nil {
			c.clearSession(ctx, sess.ID)
			return nil, ErrSessionExpired
		}

		fresh.TokenPair = pair
		fresh.Generation++
		fresh.ExpiresAt = time.Now().Add(session.DefaultTTL)
		if err := c.store.Save(ctx, fresh); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
		}

		c.logger.Debug().
			Str("session_id", fresh.ID).
			Int("generation", fresh.Generation).
			Msg("Refreshed backend token pair")
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*session.Session), nil
}

func (c *Client) clearSession(ctx context.Context, id string) {
	if err := c.store.Clear(ctx, id); err != nil {
		c.logger.Warn().Err(err).Str("session_id", id).Msg("Failed to clear session after refresh failure")
	}
}
