package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/consoled-dev/consoled/internal/session"
)

// LoginRequest represents the internal login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse represents the backend's token endpoints' response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshRequest represents the refresh-token exchange request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AdminCheckResponse represents the admin-check endpoint response
type AdminCheckResponse struct {
	IsAdmin bool `json:"is_admin"`
}

// Login exchanges credentials for a token pair
func (c *Client) Login(ctx context.Context, email, password string) (session.TokenPair, error) {
	body, err := json.Marshal(LoginRequest{Email: email, Password: password})
	if err != nil {
		return session.TokenPair{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.send(ctx, "", http.MethodPost, "/auth/login", body, contentTypeJSON)
	if err != nil {
		return session.TokenPair{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return session.TokenPair{}, StatusError(resp.StatusCode, resp.Status)
	}

	var tokens TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return session.TokenPair{}, fmt.Errorf("failed to decode login response: %w", err)
	}

	return session.TokenPair{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Refresh exchanges a refresh token for a new token pair
func (c *Client) Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	body, err := json.Marshal(RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return session.TokenPair{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.send(ctx, "", http.MethodPost, "/auth/refresh", body, contentTypeJSON)
	if err != nil {
		return session.TokenPair{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return session.TokenPair{}, StatusError(resp.StatusCode, resp.Status)
	}

	var tokens TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return session.TokenPair{}, fmt.Errorf("failed to decode refresh response: %w", err)
	}

	return session.TokenPair{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Logout revokes the session's tokens upstream. Best effort: a failed
// revocation does not block local logout.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	resp, err := c.send(ctx, accessToken, http.MethodPost, "/auth/logout", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return StatusError(resp.StatusCode, resp.Status)
	}
	return nil
}

// CheckAdmin asks the backend whether the token's identity has admin rights.
// Any failure must be treated as "not admin" by callers (fail closed).
func (c *Client) CheckAdmin(ctx context.Context, accessToken string) (bool, error) {
	resp, err := c.send(ctx, accessToken, http.MethodGet, "/auth/admin-check", nil, "")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, StatusError(resp.StatusCode, resp.Status)
	}

	var check AdminCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&check); err != nil {
		return false, fmt.Errorf("failed to decode admin-check response: %w", err)
	}
	return check.IsAdmin, nil
}
