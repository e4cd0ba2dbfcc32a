package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "sessions.sqlite"), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestStoreCreateAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := &Session{
		Subject: "sub-1",
		Email:   "admin@example.com",
		Name:    "Admin",
		IsAdmin: true,
		TokenPair: TokenPair{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
		},
	}

	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}
	if sess.ExpiresAt.IsZero() {
		t.Fatal("Create() did not assign an expiry")
	}

	loaded, err := store.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Email != "admin@example.com" || !loaded.IsAdmin {
		t.Errorf("Load() = %+v, want persisted identity", loaded)
	}
	if loaded.TokenPair.AccessToken != "access-1" || loaded.TokenPair.RefreshToken != "refresh-1" {
		t.Errorf("Load() tokens = %+v, want original pair", loaded.TokenPair)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Load(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
	if _, err := store.Load(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(\"\") error = %v, want ErrNotFound", err)
	}
}

func TestStoreLoadExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := &Session{
		Subject:   "sub-2",
		Email:     "user@example.com",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := store.Load(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() of expired session error = %v, want ErrNotFound", err)
	}
}

func TestStoreSaveReplacesTokenPair(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := &Session{
		Subject:   "sub-3",
		Email:     "user@example.com",
		TokenPair: TokenPair{AccessToken: "old-access", RefreshToken: "old-refresh"},
	}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sess.TokenPair = TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}
	sess.Generation++
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.TokenPair.AccessToken != "new-access" || loaded.TokenPair.RefreshToken != "new-refresh" {
		t.Errorf("Load() tokens = %+v, want replaced pair", loaded.TokenPair)
	}
	if loaded.Generation != 1 {
		t.Errorf("Load() generation = %d, want 1", loaded.Generation)
	}
}

func TestStoreClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := &Session{Subject: "sub-4", Email: "user@example.com"}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Clear(ctx, sess.ID); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := store.Load(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() after Clear() error = %v, want ErrNotFound", err)
	}

	// Clearing an already-cleared session is not an error
	if err := store.Clear(ctx, sess.ID); err != nil {
		t.Errorf("Clear() of missing session error = %v", err)
	}
}

func TestStorePurgeExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	live := &Session{Subject: "live", Email: "live@example.com"}
	if err := store.Create(ctx, live); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		dead := &Session{
			Subject:   "dead",
			Email:     "dead@example.com",
			ExpiresAt: time.Now().Add(-time.Hour),
		}
		if err := store.Create(ctx, dead); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	purged, err := store.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if purged != 3 {
		t.Errorf("PurgeExpired() = %d, want 3", purged)
	}

	if _, err := store.Load(ctx, live.ID); err != nil {
		t.Errorf("Load() of live session after purge error = %v", err)
	}
}
