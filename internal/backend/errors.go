package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired means the refresh-token exchange failed and the
	// session tokens were cleared; the caller must send the user to login.
	ErrSessionExpired = errors.New("session expired")

	// ErrUnauthenticated means the backend still rejected the request after
	// a successful refresh and retry.
	ErrUnauthenticated = errors.New("backend rejected credentials")

	// ErrForbidden means the backend refused the operation for this identity
	ErrForbidden = errors.New("backend refused access")

	// ErrNotFound means the requested resource does not exist upstream
	ErrNotFound = errors.New("resource not found")
)

// UpstreamError represents any other non-OK backend response. The backend's
// status text is carried in Detail so handlers can embed it in the error
// envelope without string-parsing.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("backend request failed (status %d): %s", e.Status, e.Detail)
}

// StatusError maps a non-OK backend status code to a typed error
func StatusError(status int, statusText string) error {
	switch status {
	case 401:
		return ErrUnauthenticated
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	default:
		return &UpstreamError{Status: status, Detail: statusText}
	}
}
