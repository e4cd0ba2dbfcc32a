package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/consoled-dev/consoled/internal/backend"
	"github.com/consoled-dev/consoled/internal/config"
	"github.com/consoled-dev/consoled/internal/guard"
	"github.com/consoled-dev/consoled/internal/session"
)

// countingBackend is an upstream stub that counts every request it receives
type countingBackend struct {
	*httptest.Server
	calls   atomic.Int64
	handler http.HandlerFunc
}

func newCountingBackend(t *testing.T, handler http.HandlerFunc) *countingBackend {
	t.Helper()
	cb := &countingBackend{handler: handler}
	cb.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cb.calls.Add(1)
		if cb.handler != nil {
			cb.handler(w, r)
			return
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(cb.Close)
	return cb
}

func newTestServer(t *testing.T, backendURL string) *Server {
	t.Helper()

	store, err := session.NewStore(filepath.Join(t.TempDir(), "sessions.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create session store: %v", err)
	}

	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")

	cfg := &config.Config{
		ListenAddr: ":0",
		Backend:    config.BackendConfig{BaseURL: backendURL},
		Session:    config.SessionConfig{CookieKey: key},
	}

	client := backend.New(backendURL, store, zerolog.Nop())

	srv := &Server{
		config:    cfg,
		logger:    zerolog.Nop(),
		validator: validator.New(),
		store:     store,
		codec:     session.NewCookieCodec(key, false),
		backend:   client,
		guard:     guard.New(guard.DefaultPolicy(), client.CheckAdmin, zerolog.Nop()),
		version:   "test",
	}
	srv.setupRouter()
	return srv
}

// signIn creates a persisted session and returns its cookie
func signIn(t *testing.T, srv *Server, isAdmin bool) (*session.Session, *http.Cookie) {
	t.Helper()
	sess := &session.Session{
		Subject: "user-1",
		Email:   "user@example.com",
		Name:    "Test User",
		IsAdmin: isAdmin,
		TokenPair: session.TokenPair{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
		},
	}
	if err := srv.store.Create(context.Background(), sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return sess, &http.Cookie{Name: session.SessionIDCookie, Value: sess.ID}
}

func decodeError(t *testing.T, body *bytes.Buffer) string {
	t.Helper()
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body.Bytes(), &envelope); err != nil {
		t.Fatalf("response is not an error envelope: %v (body %q)", err, body.String())
	}
	return envelope.Error
}

func TestHealthCheckIsPublic(t *testing.T) {
	srv := newTestServer(t, "http://unused")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"online"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAPIRejectsAnonymousWithoutBackendCall(t *testing.T) {
	upstream := newCountingBackend(t, nil)
	srv := newTestServer(t, upstream.URL)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if got := decodeError(t, w.Body); got != "Unauthorized" {
		t.Errorf("error = %q, want %q", got, "Unauthorized")
	}
	if n := upstream.calls.Load(); n != 0 {
		t.Errorf("backend received %d calls, want 0", n)
	}
}

func TestAdminRouteRejectsNonAdminWithoutBackendCall(t *testing.T) {
	upstream := newCountingBackend(t, nil)
	srv := newTestServer(t, upstream.URL)
	_, cookie := signIn(t, srv, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/users/42", strings.NewReader(`{"name":"x"}`))
	req.AddCookie(cookie)
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if w.Body.String() != `{"error":"Forbidden - Admin access required"}` {
		t.Errorf("body = %s", w.Body.String())
	}
	if n := upstream.calls.Load(); n != 0 {
		t.Errorf("backend received %d calls, want 0", n)
	}
}

func TestAdminUpdateForwardsWithBearer(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	upstream := newCountingBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"id":42,"name":"renamed"}`))
	})
	srv := newTestServer(t, upstream.URL)
	_, cookie := signIn(t, srv, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/users/42", strings.NewReader(`{"name":"renamed"}`))
	req.AddCookie(cookie)
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if gotMethod != http.MethodPatch || gotPath != "/users/42" {
		t.Errorf("forwarded %s %s, want PATCH /users/42", gotMethod, gotPath)
	}
	if gotAuth != "Bearer access-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if w.Body.String() != `{"id":42,"name":"renamed"}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestProxyTranslatesBackendErrors(t *testing.T) {
	tests := []struct {
		name         string
		upstreamCode int
		wantCode     int
		wantError    string
	}{
		{"not found", http.StatusNotFound, http.StatusNotFound, "Not found"},
		{"forbidden", http.StatusForbidden, http.StatusForbidden, "Forbidden"},
		{"server error", http.StatusInternalServerError, http.StatusInternalServerError, "Upstream request failed: 500 Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := newCountingBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.upstreamCode)
			})
			srv := newTestServer(t, upstream.URL)
			_, cookie := signIn(t, srv, false)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/projects/7", nil)
			req.AddCookie(cookie)
			srv.router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if got := decodeError(t, w.Body); got != tt.wantError {
				t.Errorf("error = %q, want %q", got, tt.wantError)
			}
		})
	}
}

func TestLogoutDestroysSessionAndCookies(t *testing.T) {
	upstream := newCountingBackend(t, nil)
	srv := newTestServer(t, upstream.URL)
	sess, cookie := signIn(t, srv, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}

	if _, err := srv.store.Load(context.Background(), sess.ID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("session still loadable after logout, err = %v", err)
	}

	cleared := map[string]bool{}
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 && c.Value == "" {
			cleared[c.Name] = true
		}
	}
	for _, name := range []string{session.SessionIDCookie, session.AccessTokenCookie, session.RefreshTokenCookie} {
		if !cleared[name] {
			t.Errorf("cookie %q was not cleared", name)
		}
	}
}

func TestLogoutWithoutSessionStillClearsCookies(t *testing.T) {
	srv := newTestServer(t, "http://unused")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if len(w.Result().Cookies()) < 3 {
		t.Errorf("expected all session cookies to be expired, got %d Set-Cookie headers", len(w.Result().Cookies()))
	}
}

func TestPagesRedirectAnonymousToLogin(t *testing.T) {
	srv := newTestServer(t, "http://unused")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/users?page=2", nil)
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	want := "/login?callbackUrl=" + "%2Fadmin%2Fusers%3Fpage%3D2"
	if loc := w.Header().Get("Location"); loc != want {
		t.Errorf("Location = %q, want %q", loc, want)
	}
}

func TestAdminPageRedirectsNonAdmin(t *testing.T) {
	// The admin check endpoint confirms the flag for admins only
	upstream := newCountingBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/admin-check" {
			w.Write([]byte(`{"is_admin":false}`))
			return
		}
		w.Write([]byte(`{}`))
	})
	srv := newTestServer(t, upstream.URL)
	_, cookie := signIn(t, srv, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
	// The local flag is checked first; the backend is never consulted for
	// a session that is not marked admin
	if n := upstream.calls.Load(); n != 0 {
		t.Errorf("backend received %d calls, want 0", n)
	}
}

func TestLoginPageRedirectsSignedInVisitor(t *testing.T) {
	srv := newTestServer(t, "http://unused")
	_, cookie := signIn(t, srv, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(cookie)
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
}

func TestUploadForwardsMultipartWithDefaultTTL(t *testing.T) {
	var metadata []string
	upstream := newCountingBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("backend did not receive multipart: %v", err)
			return
		}
		metadata = r.MultipartForm.Value["metadata"]
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"uploaded":1}`))
	})
	srv := newTestServer(t, upstream.URL)
	_, cookie := signIn(t, srv, false)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("files", "readme.md")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("contents"))
	form.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/projects/7/files", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.AddCookie(cookie)
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(metadata) != 1 {
		t.Fatalf("metadata fields = %d, want 1", len(metadata))
	}
	var meta struct {
		Name string `json:"name"`
		TTL  string `json:"ttl"`
	}
	if err := json.Unmarshal([]byte(metadata[0]), &meta); err != nil {
		t.Fatalf("bad metadata: %v", err)
	}
	if meta.Name != "readme.md" {
		t.Errorf("name = %q", meta.Name)
	}
	if meta.TTL == "" {
		t.Error("ttl was not defaulted")
	}
}

func TestUploadRejectsBadTTL(t *testing.T) {
	upstream := newCountingBackend(t, nil)
	srv := newTestServer(t, upstream.URL)
	_, cookie := signIn(t, srv, false)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, _ := form.CreateFormFile("files", "readme.md")
	part.Write([]byte("contents"))
	form.WriteField("ttl", "next year")
	form.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/projects/7/files", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.AddCookie(cookie)
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if n := upstream.calls.Load(); n != 0 {
		t.Errorf("backend received %d calls, want 0", n)
	}
}

func TestUploadRequiresFiles(t *testing.T) {
	srv := newTestServer(t, "http://unused")
	_, cookie := signIn(t, srv, false)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	form.WriteField("ttl", "2027-01-01")
	form.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/projects/7/files", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.AddCookie(cookie)
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if got := decodeError(t, w.Body); got != "At least one file is required" {
		t.Errorf("error = %q", got)
	}
}

func TestGetCurrentUser(t *testing.T) {
	srv := newTestServer(t, "http://unused")
	sess, cookie := signIn(t, srv, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if got.Subject != sess.Subject || got.Email != sess.Email || !got.IsAdmin {
		t.Errorf("SessionResponse = %+v", got)
	}
}

func TestCreateUserValidatesPayload(t *testing.T) {
	upstream := newCountingBackend(t, nil)
	srv := newTestServer(t, upstream.URL)
	_, cookie := signIn(t, srv, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"email":"not-an-email","name":"x"}`))
	req.AddCookie(cookie)
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if n := upstream.calls.Load(); n != 0 {
		t.Errorf("backend received %d calls, want 0", n)
	}
}

func TestStaleSessionCookieIsCleared(t *testing.T) {
	srv := newTestServer(t, "http://unused")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: session.SessionIDCookie, Value: "01GONE"})
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == session.SessionIDCookie && c.MaxAge < 0 {
			found = true
		}
	}
	if !found {
		t.Error("stale session cookie was not expired")
	}
}
