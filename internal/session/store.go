package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when no session exists for the given ID
var ErrNotFound = errors.New("session not found")

// Store persists sessions in SQLite. All token reads and writes go through
// it so the token pair has exactly one lifecycle owner.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewStore opens the session database and runs migrations
func NewStore(databaseURL string, zlog zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(databaseURL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.AutoMigrate(&Session{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}

	// WAL mode keeps concurrent request-time reads cheap
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=1",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return &Store{db: db, logger: zlog}, nil
}

// NewStoreWithDB wraps an existing database handle (used in tests)
func NewStoreWithDB(db *gorm.DB, zlog zerolog.Logger) (*Store, error) {
	if err := db.AutoMigrate(&Session{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}
	return &Store{db: db, logger: zlog}, nil
}

// Create persists a new session and assigns its ID
func (s *Store) Create(ctx context.Context, sess *Session) error {
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = time.Now().Add(DefaultTTL)
	}
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Load returns the session for the given ID, or ErrNotFound. Expired
// sessions are treated as absent and removed eagerly.
func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	var sess Session
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if sess.Expired(time.Now()) {
		if err := s.Clear(ctx, id); err != nil {
			s.logger.Warn().Err(err).Str("session_id", id).Msg("Failed to clear expired session")
		}
		return nil, ErrNotFound
	}

	return &sess, nil
}

// Save persists the current state of the session (tokens, generation, expiry)
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if err := s.db.WithContext(ctx).Save(sess).Error; err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear destroys the session and its token pair
func (s *Store) Clear(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Session{}).Error; err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// PurgeExpired deletes all sessions past their expiry time and returns the count
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", time.Now()).Delete(&Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
