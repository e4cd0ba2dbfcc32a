package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/consoled-dev/consoled/internal/authn"
	"github.com/consoled-dev/consoled/internal/session"
)

// Short-lived cookies for the OIDC round trip
const (
	stateCookie    = "oidc_state"
	nonceCookie    = "oidc_nonce"
	callbackCookie = "login_callback"

	flowCookieMaxAge = int(10 * time.Minute / time.Second)
)

// SessionResponse is the session identity exposed to the console UI
type SessionResponse struct {
	Subject   string    `json:"subject"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// @Summary Begin federated sign-in
// @Description Redirects the browser to the identity provider
// @Tags auth
// @Router /auth/login [get]
func (s *Server) beginLogin(c *gin.Context) {
	if s.oidc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Federated login is not configured"})
		return
	}

	state, err := authn.NewStateToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate OIDC state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	nonce, err := authn.NewStateToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate OIDC nonce")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.setFlowCookie(c, stateCookie, state)
	s.setFlowCookie(c, nonceCookie, nonce)
	if callback := c.Query("callbackUrl"); isSafeCallback(callback) {
		s.setFlowCookie(c, callbackCookie, callback)
	}

	c.Redirect(http.StatusFound, s.oidc.AuthCodeURL(state, nonce))
}

// @Summary Complete federated sign-in
// @Description Exchanges the provider's code for internal tokens and creates the session
// @Tags auth
// @Router /auth/callback [get]
func (s *Server) completeLogin(c *gin.Context) {
	if s.oidc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Federated login is not configured"})
		return
	}

	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		s.logger.Warn().Msg("OIDC state mismatch on callback")
		c.Redirect(http.StatusFound, "/login?error=signin_failed")
		return
	}
	nonce, _ := c.Cookie(nonceCookie)
	s.clearFlowCookies(c)

	ctx := c.Request.Context()

	rawIDToken, err := s.oidc.Exchange(ctx, c.Query("code"))
	if err != nil {
		s.logger.Warn().Err(err).Msg("OIDC code exchange failed")
		c.Redirect(http.StatusFound, "/login?error=signin_failed")
		return
	}

	ident, err := s.oidc.Verify(ctx, rawIDToken, nonce)
	if err != nil {
		s.logger.Warn().Err(err).Msg("OIDC token verification failed")
		c.Redirect(http.StatusFound, "/login?error=signin_failed")
		return
	}

	// A failed internal exchange fails the whole sign-in. A session without
	// tokens would pass the guard but fail every proxied call.
	pair, err := s.exchanger.Exchange(ctx, *ident)
	if err != nil {
		s.logger.Error().Err(err).Str("subject", ident.Subject).Msg("Sign-in aborted: internal exchange failed")
		c.Redirect(http.StatusFound, "/login?error=exchange_failed")
		return
	}

	isAdmin := false
	if claims, err := session.DecodeClaims(pair.AccessToken); err == nil {
		isAdmin = claims.IsAdmin
	}

	sess := &session.Session{
		Subject:   ident.Subject,
		Email:     ident.Email,
		Name:      ident.Name,
		IsAdmin:   isAdmin,
		TokenPair: pair,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist session")
		c.Redirect(http.StatusFound, "/login?error=signin_failed")
		return
	}

	if err := s.codec.Write(c.Writer, sess); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write session cookies")
		c.Redirect(http.StatusFound, "/login?error=signin_failed")
		return
	}

	s.logger.Info().
		Str("session_id", sess.ID).
		Str("subject", ident.Subject).
		Bool("is_admin", isAdmin).
		Msg("User signed in")

	target := "/"
	if callback, err := c.Cookie(callbackCookie); err == nil && isSafeCallback(callback) {
		target = callback
	}
	c.Redirect(http.StatusFound, target)
}

// @Summary Logout
// @Description Revokes tokens upstream (best effort) and destroys the session
// @Tags auth
// @Router /auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	ctx := c.Request.Context()

	if sess := currentSession(c); sess != nil {
		if err := s.backend.Logout(ctx, sess.TokenPair.AccessToken); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("Upstream logout failed")
		}
		if err := s.store.Clear(ctx, sess.ID); err != nil {
			s.logger.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to clear session")
		}
		s.logger.Info().Str("session_id", sess.ID).Msg("User logged out")
	}

	// Cookies are cleared even when no session resolved, so stale copies
	// cannot linger after a store-side purge
	s.codec.Clear(c.Writer)
	c.Redirect(http.StatusFound, "/login")
}

// @Summary Get current session
// @Description Returns the identity of the current session
// @Tags auth
// @Security CookieAuth
// @Success 200 {object} SessionResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	sess := currentSession(c)

	c.JSON(http.StatusOK, SessionResponse{
		Subject:   sess.Subject,
		Email:     sess.Email,
		Name:      sess.Name,
		IsAdmin:   sess.IsAdmin,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (s *Server) setFlowCookie(c *gin.Context, name, value string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   flowCookieMaxAge,
		HttpOnly: true,
		Secure:   s.config.Session.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearFlowCookies(c *gin.Context) {
	for _, name := range []string{stateCookie, nonceCookie, callbackCookie} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.config.Session.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// isSafeCallback accepts only same-site absolute paths as post-login targets
func isSafeCallback(callback string) bool {
	if callback == "" {
		return false
	}
	if !strings.HasPrefix(callback, "/") || strings.HasPrefix(callback, "//") {
		return false
	}
	return true
}
