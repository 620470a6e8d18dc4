package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deal-service/internal/auth"
	"deal-service/internal/calendarsync"
	"deal-service/internal/config"
	"deal-service/internal/editor"
	"deal-service/internal/gcal"
	"deal-service/internal/http"
	"deal-service/internal/repository/postgres"
	"deal-service/internal/storage/s3"
	"deal-service/internal/version"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	envFilePath           = ".env"
	serverAddrPrefix      = ":"
	signalBufferSize      = 1
	urlCacheSweepInterval = 5 * time.Minute
)

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(envFilePath); err != nil {
		logger.Warn().Msg(".env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Info().Msg("configuration loaded")

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	logger.Info().Msg("database connection established")

	resourceRepo := postgres.NewResourceRepository(db)
	versionRepo := postgres.NewVersionRepository(db)
	calendarRepo := postgres.NewCalendarRepository(db)
	meetingRepo := postgres.NewMeetingRepository(db)

	s3Client, err := s3.NewClient(&cfg.AWS, cfg.DocServer.ContentURLExpiry)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create S3 client")
	}

	logger.Info().Msg("S3 client initialized")

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go s3Client.SweepURLCache(sweepCtx, urlCacheSweepInterval)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryDuration)
	authMiddleware := auth.NewMiddleware(jwtService)

	tokenService := editor.NewTokenService(cfg.DocServer.Secret, cfg.DocServer.ContentURLExpiry)
	configBuilder := editor.NewConfigBuilder(tokenService, cfg.Server.SiteURL)
	fetcher := editor.NewFetcher(cfg.DocServer.FetchTimeout)
	committer := version.NewCommitter(resourceRepo, versionRepo, s3Client, fetcher, logger)

	gcalClient := gcal.NewClient(&cfg.Google, cfg.Server.SiteURL, calendarRepo, logger)
	calendarSync := calendarsync.NewService(gcalClient, calendarRepo, meetingRepo, logger)

	serverDeps := &http.ServerDependencies{
		Config:         cfg,
		ResourceRepo:   resourceRepo,
		VersionRepo:    versionRepo,
		CalendarRepo:   calendarRepo,
		MeetingRepo:    meetingRepo,
		Storage:        s3Client,
		ConfigBuilder:  configBuilder,
		TokenService:   tokenService,
		Committer:      committer,
		CalendarSync:   calendarSync,
		AuthMiddleware: authMiddleware,
		Logger:         logger,
	}

	server := http.NewServer(serverDeps)

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := server.Start(serverAddrPrefix + cfg.Server.Port); err != nil {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, signalBufferSize)
	signal.Notify(quit, shutdownSignals...)
	<-quit

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited gracefully")
}
