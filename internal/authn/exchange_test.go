package authn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/consoled-dev/consoled/internal/backend"
	"github.com/consoled-dev/consoled/internal/session"
)

func newTestClient(t *testing.T, backendURL string) *backend.Client {
	t.Helper()
	store, err := session.NewStore(filepath.Join(t.TempDir(), "sessions.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return backend.New(backendURL, store, zerolog.Nop())
}

func TestServiceAccountExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt"}`))
	}))
	defer srv.Close()

	exchanger := NewServiceAccountExchanger(newTestClient(t, srv.URL), "svc@example.com", "secret", zerolog.Nop())

	pair, err := exchanger.Exchange(context.Background(), Identity{Subject: "sub-1", Email: "user@example.com"})
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if pair.AccessToken != "at" || pair.RefreshToken != "rt" {
		t.Errorf("pair = %+v", pair)
	}
}

func TestServiceAccountExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	exchanger := NewServiceAccountExchanger(newTestClient(t, srv.URL), "svc@example.com", "wrong", zerolog.Nop())

	pair, err := exchanger.Exchange(context.Background(), Identity{Subject: "sub-1"})
	if !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("Exchange() error = %v, want ErrExchangeFailed", err)
	}
	if pair.AccessToken != "" || pair.RefreshToken != "" {
		t.Errorf("failed exchange returned tokens: %+v", pair)
	}
}
