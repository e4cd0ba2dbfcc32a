package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// The gateway serves only a minimal shell; the console frontend is deployed
// separately and talks to /api. These pages exist so the route guard has
// somewhere to send browsers.

func (s *Server) indexPage(c *gin.Context) {
	email := ""
	if sess := currentSession(c); sess != nil {
		email = sess.Email
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK,
		"<!doctype html><title>Consoled</title><h1>Consoled</h1><p>Signed in as %s</p>",
		email)
}

// pageFallback serves the console shell for deep links that no explicit
// route claims. The guard runs here too since NoRoute sits outside the
// pages group.
func (s *Server) pageFallback(c *gin.Context) {
	if c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	decision := s.guard.Evaluate(
		c.Request.Context(),
		c.Request.URL.Path,
		c.Request.URL.RequestURI(),
		currentSession(c),
	)
	if !decision.Allowed {
		c.Redirect(http.StatusFound, decision.Redirect)
		return
	}
	s.indexPage(c)
}

func (s *Server) loginPage(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK,
		"<!doctype html><title>Consoled - Sign in</title><h1>Sign in</h1>"+
			`<p><a href="/auth/login">Continue with your organization account</a></p>`)
}

// @Summary AnythingLLM redirect
// @Description Sends the browser to the configured external AnythingLLM instance
// @Router /tools/anythingllm [get]
func (s *Server) anythingLLMRedirect(c *gin.Context) {
	target := s.config.Tools.AnythingLLMBaseURL
	if target == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "AnythingLLM is not configured"})
		return
	}
	c.Redirect(http.StatusFound, target)
}
