package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// DefaultTTL is how long a session lives without a successful token refresh.
const DefaultTTL = 7 * 24 * time.Hour

// TokenPair holds the opaque access/refresh token pair issued by the backend.
// The pair is replaced wholesale on refresh and deleted on logout.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Session represents an authenticated browser session. It is the single
// owner of the token pair: handlers read it, the refresh interceptor
// replaces it, logout destroys it.
type Session struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	Subject   string    `json:"subject" gorm:"not null;index"` // federated identity subject
	Email     string    `json:"email" gorm:"not null"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin" gorm:"not null;default:false"`
	TokenPair TokenPair `json:"-" gorm:"embedded"`

	// Generation increments on every token refresh; refresh single-flight
	// is keyed by it so concurrent 401s share one refresh call.
	Generation int `json:"-" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = ulid.Make().String()
	}
	return nil
}

// Expired reports whether the session has passed its expiry time
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Claims represents the claims the backend embeds in access tokens
type Claims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// DecodeClaims decodes the claims of a backend-issued access token without
// verifying the signature. The gateway does not hold the backend signing key;
// decoded claims are only used for routing hints and display, never as an
// authorization source on their own.
func DecodeClaims(token string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token claims: %w", err)
	}
	return claims, nil
}
