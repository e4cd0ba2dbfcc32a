package main

import (
	"fmt"
	"os"

	"github.com/consoled-dev/consoled/internal/config"
	"github.com/consoled-dev/consoled/internal/logger"
	"github.com/consoled-dev/consoled/internal/server"
	"github.com/consoled-dev/consoled/internal/workers"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	// Create gateway
	srv, err := server.New(cfg, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	// Periodic expired-session cleanup
	stopPurge, err := workers.StartSessionPurge(srv.Store(), cfg.Session.PurgeSchedule, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start session purge")
	}
	defer stopPurge()

	log.Info().Str("version", version).Msg("Starting Consoled gateway...")

	// Start HTTP server (this blocks)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}
