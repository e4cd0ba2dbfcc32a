package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/crypto/nacl/secretbox"
)

// Cookie names. The session ID cookie drives server-side lookups; the token
// cookies mirror the pair for request-time checks without a store round trip.
const (
	SessionIDCookie    = "session_id"
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// ErrBadCookie is returned when a token cookie cannot be opened
var ErrBadCookie = errors.New("malformed or tampered cookie")

// CookieCodec writes and reads session cookies. Token cookies are sealed
// with secretbox so raw backend tokens never sit in the browser in cleartext.
type CookieCodec struct {
	key    [32]byte
	secure bool
}

// NewCookieCodec creates a codec with the given sealing key
func NewCookieCodec(key [32]byte, secure bool) *CookieCodec {
	return &CookieCodec{key: key, secure: secure}
}

// Write sets the session ID cookie and the sealed token mirror cookies
func (cc *CookieCodec) Write(w http.ResponseWriter, sess *Session) error {
	access, err := cc.seal(sess.TokenPair.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := cc.seal(sess.TokenPair.RefreshToken)
	if err != nil {
		return err
	}

	maxAge := int(DefaultTTL.Seconds())
	http.SetCookie(w, cc.cookie(SessionIDCookie, sess.ID, maxAge))
	http.SetCookie(w, cc.cookie(AccessTokenCookie, access, maxAge))
	http.SetCookie(w, cc.cookie(RefreshTokenCookie, refresh, maxAge))
	return nil
}

// Clear expires all session cookies
func (cc *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, cc.cookie(SessionIDCookie, "", -1))
	http.SetCookie(w, cc.cookie(AccessTokenCookie, "", -1))
	http.SetCookie(w, cc.cookie(RefreshTokenCookie, "", -1))
}

// SessionID returns the session ID from the request, or empty string
func (cc *CookieCodec) SessionID(r *http.Request) string {
	c, err := r.Cookie(SessionIDCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// Tokens reads and unseals the mirrored token pair from the request
func (cc *CookieCodec) Tokens(r *http.Request) (TokenPair, error) {
	access, err := cc.readSealed(r, AccessTokenCookie)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := cc.readSealed(r, RefreshTokenCookie)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (cc *CookieCodec) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cc.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (cc *CookieCodec) readSealed(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", ErrBadCookie
	}
	return cc.open(c.Value)
}

func (cc *CookieCodec) seal(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &cc.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (cc *CookieCodec) open(value string) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(sealed) < 24 {
		return "", ErrBadCookie
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &cc.key)
	if !ok {
		return "", ErrBadCookie
	}
	return string(plaintext), nil
}
