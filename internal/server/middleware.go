package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/consoled-dev/consoled/internal/session"
)

const (
	sessionKey   = "session"
	requestIDKey = "request_id"
)

// Error messages used across the proxy routes
const (
	msgUnauthorized = "Unauthorized"
	msgAdminOnly    = "Forbidden - Admin access required"
)

// requestIDMiddleware ensures every request has a stable request ID,
// honoring an inbound X-Request-Id header when present
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-Id")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set("X-Request-Id", rid)
		c.Next()
	}
}

// cookieRewriter defers a cookie rewrite until just before the first byte of
// the response. Set-Cookie headers added after the handler has written its
// body never reach the client, so the rewrite has to run ahead of the flush.
type cookieRewriter struct {
	gin.ResponseWriter
	rewrite func()
	done    bool
}

func (w *cookieRewriter) flush() {
	if !w.done {
		w.done = true
		w.rewrite()
	}
}

func (w *cookieRewriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *cookieRewriter) WriteHeaderNow() {
	w.flush()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *cookieRewriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *cookieRewriter) WriteString(s string) (int, error) {
	w.flush()
	return w.ResponseWriter.WriteString(s)
}

// sessionMiddleware resolves the caller's session from the session_id cookie
// and attaches it to the request context. Handlers and guards consult this
// one result; no other authority source exists. When the interceptor refreshes
// the pair mid-request, the token mirror cookies are rewritten before the
// response is flushed.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := s.codec.SessionID(c.Request)
		if id == "" {
			c.Next()
			return
		}

		sess, err := s.store.Load(c.Request.Context(), id)
		if err != nil {
			// Unknown or expired session cookie; drop all copies
			s.codec.Clear(c.Writer)
			c.Next()
			return
		}

		c.Set(sessionKey, sess)
		generation := sess.Generation

		writer := &cookieRewriter{ResponseWriter: c.Writer}
		writer.rewrite = func() {
			if sess.Generation == generation {
				return
			}
			if err := s.codec.Write(writer.ResponseWriter, sess); err != nil {
				s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("Failed to rewrite token cookies after refresh")
			}
		}
		c.Writer = writer

		c.Next()

		// Handlers that never wrote a byte still get the rewrite before
		// gin flushes the implicit status
		writer.flush()
	}
}

// currentSession returns the resolved session, or nil for anonymous requests
func currentSession(c *gin.Context) *session.Session {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil
	}
	sess, ok := v.(*session.Session)
	if !ok {
		return nil
	}
	return sess
}

// requireSession rejects anonymous API calls before any backend call is made
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentSession(c) == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
			c.Abort()
			return
		}
		c.Next()
	}
}

// adminOnly gates mutating routes on the session's admin flag. Non-admins
// are rejected locally; the backend is never called.
func (s *Server) adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)
		if sess == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
			c.Abort()
			return
		}
		if !sess.IsAdmin {
			s.logger.Warn().
				Str("session_id", sess.ID).
				Str("path", c.Request.URL.Path).
				Msg("Non-admin attempted admin operation")
			c.JSON(http.StatusForbidden, gin.H{"error": msgAdminOnly})
			c.Abort()
			return
		}
		c.Next()
	}
}

// guardMiddleware applies the route guard's decision to browser navigation
func (s *Server) guardMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := s.guard.Evaluate(
			c.Request.Context(),
			c.Request.URL.Path,
			c.Request.URL.RequestURI(),
			currentSession(c),
		)
		if !decision.Allowed {
			c.Redirect(http.StatusFound, decision.Redirect)
			c.Abort()
			return
		}
		c.Next()
	}
}
