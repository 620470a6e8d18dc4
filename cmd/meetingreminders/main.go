// Command meetingreminders emails participants of meetings starting soon.
// Runs on a schedule (e.g. every 5 minutes) from cron or a scheduled job
// runner; the sent-record table keeps reruns from reminding anyone twice.
package main

import (
	"context"
	"os"
	"time"

	"deal-service/internal/config"
	"deal-service/internal/reminder"
	"deal-service/internal/repository/postgres"
	"deal-service/pkg/mailer"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	envFilePath = ".env"
	envDryRun   = "DRY_RUN"

	// Participants get one reminder this far ahead of the start time.
	reminderLeadTime = 30 * time.Minute

	runTimeout = 5 * time.Minute
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("job", "meetingreminders").Logger()

	if err := godotenv.Load(envFilePath); err != nil {
		logger.Warn().Msg(".env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	dryRun := os.Getenv(envDryRun) == "true"

	mail, err := buildMailer(&cfg.Mail, dryRun)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure mail providers")
	}

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	meetingRepo := postgres.NewMeetingRepository(db)
	svc, err := reminder.NewService(meetingRepo, mail, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build reminder service")
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	sent, failed, err := svc.Run(ctx, reminderLeadTime, dryRun)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to list reminder candidates")
	}

	logger.Info().
		Int("sent", sent).
		Int("failed", failed).
		Bool("dry_run", dryRun).
		Msg("meeting reminder run finished")

	if failed > 0 {
		os.Exit(1)
	}
}

// buildMailer assembles the provider failover chain from whatever keys are
// configured. A dry run needs no providers at all.
func buildMailer(cfg *config.MailConfig, dryRun bool) (*mailer.Service, error) {
	var providers []mailer.Provider
	if cfg.ResendAPIKey != "" {
		providers = append(providers, mailer.NewResendProvider(cfg.ResendAPIKey, ""))
	}
	if cfg.SendGridAPIKey != "" {
		providers = append(providers, mailer.NewSendGridProvider(cfg.SendGridAPIKey, ""))
	}
	if len(providers) == 0 && dryRun {
		providers = append(providers, noopProvider{})
	}

	return mailer.NewService(cfg.From, providers...)
}

// noopProvider lets a dry run construct the service without mail credentials.
// It never sends; dry runs stop before reaching the provider.
type noopProvider struct{}

func (noopProvider) Send(ctx context.Context, msg *mailer.Message) (*mailer.SendResult, error) {
	return &mailer.SendResult{Provider: "noop"}, nil
}

func (noopProvider) Name() string { return "noop" }
