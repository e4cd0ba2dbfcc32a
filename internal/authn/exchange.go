package authn

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/consoled-dev/consoled/internal/backend"
	"github.com/consoled-dev/consoled/internal/session"
)

// ErrExchangeFailed means the federated identity could not be exchanged for
// internal tokens. Sign-in must fail outright when this happens; a session
// without tokens would only surface as confusing unauthenticated errors on
// the first proxied call.
var ErrExchangeFailed = errors.New("internal token exchange failed")

// Exchanger maps a verified federated identity to an internal token pair
type Exchanger interface {
	Exchange(ctx context.Context, ident Identity) (session.TokenPair, error)
}

// ServiceAccountExchanger logs every federated identity into the backend's
// shared service account. The backend does not yet map federated identities
// to its own users; until it does, all console sessions act as this account.
// TODO: switch to per-user exchange once the backend accepts federated tokens.
type ServiceAccountExchanger struct {
	client   *backend.Client
	email    string
	password string
	logger   zerolog.Logger
}

// NewServiceAccountExchanger creates the default exchanger
func NewServiceAccountExchanger(client *backend.Client, email, password string, zlog zerolog.Logger) *ServiceAccountExchanger {
	return &ServiceAccountExchanger{
		client:   client,
		email:    email,
		password: password,
		logger:   zlog,
	}
}

// Exchange obtains an internal token pair for the signed-in identity
func (e *ServiceAccountExchanger) Exchange(ctx context.Context, ident Identity) (session.TokenPair, error) {
	pair, err := e.client.Login(ctx, e.email, e.password)
	if err != nil {
		e.logger.Error().
			Err(err).
			Str("subject", ident.Subject).
			Msg("Internal login failed for federated identity")
		return session.TokenPair{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	e.logger.Info().
		Str("subject", ident.Subject).
		Str("email", ident.Email).
		Msg("Exchanged federated identity for internal tokens")
	return pair, nil
}
