// Command watchrenew re-registers calendar watch channels that expire soon.
// Providers cap channel lifetime, so this runs on a schedule (e.g. hourly)
// from cron or a scheduled job runner.
package main

import (
	"context"
	"os"
	"time"

	"deal-service/internal/calendarsync"
	"deal-service/internal/config"
	"deal-service/internal/gcal"
	"deal-service/internal/repository/postgres"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	envFilePath = ".env"
	envDryRun   = "DRY_RUN"

	// Channels expiring within this window get renewed now rather than
	// risking a gap before the next run.
	renewalWindow = 24 * time.Hour

	runTimeout = 5 * time.Minute
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("job", "watchrenew").Logger()

	if err := godotenv.Load(envFilePath); err != nil {
		logger.Warn().Msg(".env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	calendarRepo := postgres.NewCalendarRepository(db)
	meetingRepo := postgres.NewMeetingRepository(db)
	gcalClient := gcal.NewClient(&cfg.Google, cfg.Server.SiteURL, calendarRepo, logger)
	sync := calendarsync.NewService(gcalClient, calendarRepo, meetingRepo, logger)

	dryRun := os.Getenv(envDryRun) == "true"

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	renewed, failed, err := sync.RenewExpiring(ctx, time.Now().Add(renewalWindow), dryRun)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to list expiring watches")
	}

	logger.Info().
		Int("renewed", renewed).
		Int("failed", failed).
		Bool("dry_run", dryRun).
		Msg("watch renewal run finished")

	if failed > 0 {
		os.Exit(1)
	}
}
