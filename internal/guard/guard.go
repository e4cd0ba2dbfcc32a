package guard

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/consoled-dev/consoled/internal/session"
)

// Decision is the guard's verdict for a request: either let it through or
// redirect the browser somewhere else.
type Decision struct {
	Allowed  bool
	Redirect string
}

// Allow lets the request through
func Allow() Decision {
	return Decision{Allowed: true}
}

// RedirectTo sends the browser to the given path
func RedirectTo(path string) Decision {
	return Decision{Redirect: path}
}

// AdminChecker confirms admin rights against the backend. Errors are treated
// as "not admin" (fail closed).
type AdminChecker func(ctx context.Context, accessToken string) (bool, error)

// Guard is the single routing gate. It resolves all page-navigation access
// decisions from one authority source: the session store's view of the
// session, confirmed against the backend for admin paths.
type Guard struct {
	policy Policy
	check  AdminChecker
	logger zerolog.Logger
}

// New creates a guard with the given policy and admin checker
func New(policy Policy, check AdminChecker, zlog zerolog.Logger) *Guard {
	return &Guard{policy: policy, check: check, logger: zlog}
}

// Policy returns the guard's route policy
func (g *Guard) Policy() Policy {
	return g.policy
}

// Evaluate decides whether a request for path may proceed. sess is nil for
// unauthenticated visitors. requestURI is the original URI used to build the
// post-login callback.
func (g *Guard) Evaluate(ctx context.Context, path, requestURI string, sess *session.Session) Decision {
	if g.policy.IsPublic(path) {
		// Signed-in visitors have no business on the login page
		if path == g.policy.LoginPath && sess != nil {
			return RedirectTo("/")
		}
		return Allow()
	}

	if sess == nil {
		return RedirectTo(g.policy.LoginPath + "?callbackUrl=" + url.QueryEscape(requestURI))
	}

	if g.policy.IsAdminPath(path) {
		if !sess.IsAdmin {
			return RedirectTo(g.policy.Fallback)
		}

		// The session's admin flag is a cached claim; re-confirm upstream
		// and fail closed on any error.
		isAdmin, err := g.check(ctx, sess.TokenPair.AccessToken)
		if err != nil {
			g.logger.Warn().Err(err).Str("path", path).Msg("Admin check failed, denying access")
			return RedirectTo(g.policy.Fallback)
		}
		if !isAdmin {
			return RedirectTo(g.policy.Fallback)
		}
	}

	return Allow()
}
