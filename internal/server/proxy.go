package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/consoled-dev/consoled/internal/backend"
)

// proxy forwards the caller's request to the backend path and relays the
// response. The body passes through unchanged; JSON mutations carry the
// caller's payload verbatim.
func (s *Server) proxy(c *gin.Context, method, path string) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	s.proxyBody(c, method, path, body)
}

// proxyBody forwards a prepared body to the backend path
func (s *Server) proxyBody(c *gin.Context, method, path string, body []byte) {
	sess := currentSession(c)

	contentType := ""
	if len(body) > 0 {
		contentType = "application/json"
	}

	resp, err := s.backend.Do(c.Request.Context(), sess, method, path, body, contentType)
	if err != nil {
		s.writeProxyError(c, err)
		return
	}
	defer resp.Body.Close()

	s.relay(c, resp)
}

// relay copies the backend response through: success bodies verbatim,
// failures converted to the uniform {"error": ...} envelope
func (s *Server) relay(c *gin.Context, resp *http.Response) {
	if resp.StatusCode >= http.StatusBadRequest {
		s.writeProxyError(c, backend.StatusError(resp.StatusCode, resp.Status))
		return
	}

	if resp.StatusCode == http.StatusNoContent {
		c.Status(http.StatusNoContent)
		return
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backend response")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.Data(resp.StatusCode, "application/json", payload)
}

// writeProxyError translates the typed backend error taxonomy into the
// envelope and status this gateway exposes
func (s *Server) writeProxyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, backend.ErrSessionExpired):
		// Refresh failed irrecoverably; force the browser back to login
		s.codec.Clear(c.Writer)
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
	case errors.Is(err, backend.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
	case errors.Is(err, backend.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, backend.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		var upstream *backend.UpstreamError
		if errors.As(err, &upstream) {
			s.logger.Warn().Int("status", upstream.Status).Str("detail", upstream.Detail).Msg("Backend request failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Upstream request failed: %s", upstream.Detail)})
			return
		}
		s.logger.Error().Err(err).Msg("Backend call failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// readBody drains the request body, rejecting unreadable payloads
func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	if c.Request.Body == nil {
		return nil, true
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return nil, false
	}
	return body, true
}

// validateJSON unmarshals body into payload and runs struct validation.
// The original bytes are still forwarded; validation only rejects obviously
// malformed input before it reaches the backend.
func (s *Server) validateJSON(c *gin.Context, body []byte, payload interface{}) bool {
	if err := json.Unmarshal(body, payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return false
	}
	if err := s.validator.Struct(payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
