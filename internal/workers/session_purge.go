package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/consoled-dev/consoled/internal/session"
)

// StartSessionPurge runs expired-session cleanup on the given cron schedule
// (standard 5-field format). The returned stop function halts the scheduler.
func StartSessionPurge(store *session.Store, schedule string, logger zerolog.Logger) (func(), error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid session purge schedule %q: %w", schedule, err)
	}

	c := cron.New(cron.WithParser(parser))
	_, err := c.AddFunc(schedule, func() {
		purgeOnce(store, logger)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule session purge: %w", err)
	}

	// Run once on startup so restarts don't leave stale sessions around
	purgeOnce(store, logger)

	c.Start()
	logger.Info().Str("schedule", schedule).Msg("Session purge scheduler started")

	return func() { c.Stop() }, nil
}

func purgeOnce(store *session.Store, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	purged, err := store.PurgeExpired(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Session purge failed")
		return
	}
	if purged > 0 {
		logger.Info().Int64("purged", purged).Msg("Purged expired sessions")
	}
}
