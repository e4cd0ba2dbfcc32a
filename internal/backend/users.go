package backend

import (
	"context"
	"net/http"

	"github.com/consoled-dev/consoled/internal/session"
)

// updateUserVerbs is the fallback chain for user updates. The backend's verb
// contract for this endpoint has been inconsistent across deployments: some
// accept PATCH, older ones only PUT or POST. A 405 moves to the next verb;
// any other outcome stops the chain.
var updateUserVerbs = []string{http.MethodPatch, http.MethodPut, http.MethodPost}

// UpdateUser updates a user record, tolerating the backend's uncertain verb
// contract (PATCH -> PUT -> POST on 405 only).
func (c *Client) UpdateUser(ctx context.Context, sess *session.Session, userID string, body []byte) (*http.Response, error) {
	path := "/users/" + userID

	for i, verb := range updateUserVerbs {
		resp, err := c.Do(ctx, sess, verb, path, body, contentTypeJSON)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusMethodNotAllowed && i < len(updateUserVerbs)-1 {
			resp.Body.Close()
			c.logger.Debug().
				Str("verb", verb).
				Str("user_id", userID).
				Msg("Backend rejected verb for user update, falling back")
			continue
		}

		return resp, nil
	}

	// Unreachable: the last verb always returns above
	return nil, &UpstreamError{Status: http.StatusMethodNotAllowed, Detail: "method not allowed"}
}
