package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	apperrors "deal-service/pkg/errors"
)

const (
	envPort                  = "PORT"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout    = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envSiteURL               = "SITE_URL"
	envDBHost                = "DB_HOST"
	envDBPort                = "DB_PORT"
	envDBName                = "DB_NAME"
	envDBUser                = "DB_USER"
	envDBPassword            = "DB_PASSWORD"
	envDBSSLMode             = "DB_SSL_MODE"
	envDBMaxConns            = "DB_MAX_CONNS"
	envDBMinConns            = "DB_MIN_CONNS"
	envAWSRegion             = "REGION"
	envAWSAccessKeyID        = "AWS_ACCESS_KEY_ID"
	envAWSSecretAccessKey    = "AWS_SECRET_ACCESS_KEY"
	envJWTSecret             = "JWT_SECRET"
	envJWTExpiry             = "JWT_EXPIRY_MINUTES"
	envDocServerSecret       = "DOCSERVER_JWT_SECRET"
	envDocServerURL          = "DOCSERVER_URL"
	envContentURLExpiry      = "CONTENT_URL_EXPIRY"
	envDocFetchTimeout       = "DOC_FETCH_TIMEOUT"
	envGoogleClientID        = "GOOGLE_CLIENT_ID"
	envGoogleClientSecret    = "GOOGLE_CLIENT_SECRET"
	envWatchTTL              = "CALENDAR_WATCH_TTL"
	envEmailFrom             = "EMAIL_FROM"
	envResendAPIKey          = "RESEND_API_KEY"
	envSendGridAPIKey        = "SENDGRID_API_KEY"
)

const (
	defaultServerPort         = "8080"
	defaultServerReadTimeout  = 10 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
	defaultServerShutdown     = 10 * time.Second
	defaultDBHost             = "localhost"
	defaultDBPort             = 5432
	defaultDBName             = "dealservice"
	defaultDBUser             = "dealservice_app"
	defaultDBSSLMode          = "disable"
	defaultDBMaxConns         = 25
	defaultDBMinConns         = 5
	defaultJWTExpiry          = 60 * time.Minute
	defaultContentURLExpiry   = time.Hour
	defaultDocFetchTimeout    = 30 * time.Second
	defaultWatchTTL           = 7 * 24 * time.Hour

	minSecretLength          = 32
	minUniqueCharsInSecret   = 16
	minRepeatedCharThreshold = 4
	maxRepeatedChars         = 2
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	AWS       AWSConfig
	JWT       JWTConfig
	DocServer DocServerConfig
	Google    GoogleConfig
	Mail      MailConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// SiteURL is the externally reachable base URL. Callback and webhook
	// addresses handed to external services are derived from it.
	SiteURL string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

type JWTConfig struct {
	Secret         string
	ExpiryDuration time.Duration
}

// DocServerConfig covers the external document-editing surface.
type DocServerConfig struct {
	// Secret signs editing-capability tokens and verifies round-tripped
	// callback tokens. Shared with the document server.
	Secret string
	// URL is the document server's base URL, served to browsers.
	URL string
	// ContentURLExpiry bounds both the presigned content URL and, in
	// practice, the capability token's useful lifetime.
	ContentURLExpiry time.Duration
	// FetchTimeout bounds the edited-bytes download during a save callback.
	FetchTimeout time.Duration
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	WatchTTL     time.Duration
}

// MailConfig covers outbound email. Only the jobs that send mail require it,
// so Validate does not; those binaries check for the keys they need.
type MailConfig struct {
	From           string
	ResendAPIKey   string
	SendGridAPIKey string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv(envPort, defaultServerPort),
			ReadTimeout:     getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:    getDurationEnv(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout: getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
			SiteURL:         os.Getenv(envSiteURL),
		},
		Database: DatabaseConfig{
			Host:     getEnv(envDBHost, defaultDBHost),
			Port:     getIntEnv(envDBPort, defaultDBPort),
			Database: getEnv(envDBName, defaultDBName),
			User:     getEnv(envDBUser, defaultDBUser),
			Password: os.Getenv(envDBPassword),
			SSLMode:  getEnv(envDBSSLMode, defaultDBSSLMode),
			MaxConns: getIntEnv(envDBMaxConns, defaultDBMaxConns),
			MinConns: getIntEnv(envDBMinConns, defaultDBMinConns),
		},
		AWS: AWSConfig{
			Region:          os.Getenv(envAWSRegion),
			AccessKeyID:     os.Getenv(envAWSAccessKeyID),
			SecretAccessKey: os.Getenv(envAWSSecretAccessKey),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv(envJWTSecret),
			ExpiryDuration: getDurationEnv(envJWTExpiry, defaultJWTExpiry),
		},
		DocServer: DocServerConfig{
			Secret:           os.Getenv(envDocServerSecret),
			URL:              os.Getenv(envDocServerURL),
			ContentURLExpiry: getDurationEnv(envContentURLExpiry, defaultContentURLExpiry),
			FetchTimeout:     getDurationEnv(envDocFetchTimeout, defaultDocFetchTimeout),
		},
		Google: GoogleConfig{
			ClientID:     os.Getenv(envGoogleClientID),
			ClientSecret: os.Getenv(envGoogleClientSecret),
			WatchTTL:     getDurationEnv(envWatchTTL, defaultWatchTTL),
		},
		Mail: MailConfig{
			From:           os.Getenv(envEmailFrom),
			ResendAPIKey:   os.Getenv(envResendAPIKey),
			SendGridAPIKey: os.Getenv(envSendGridAPIKey),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{envSiteURL, c.Server.SiteURL},
		{envDBPassword, c.Database.Password},
		{envAWSRegion, c.AWS.Region},
		{envAWSAccessKeyID, c.AWS.AccessKeyID},
		{envAWSSecretAccessKey, c.AWS.SecretAccessKey},
		{envJWTSecret, c.JWT.Secret},
		{envDocServerSecret, c.DocServer.Secret},
		{envDocServerURL, c.DocServer.URL},
	}
	for _, r := range required {
		if r.value == "" {
			return apperrors.Configuration(r.name + " must be set")
		}
	}

	for _, secret := range []struct {
		name  string
		value string
	}{
		{envJWTSecret, c.JWT.Secret},
		{envDocServerSecret, c.DocServer.Secret},
	} {
		if len(secret.value) < minSecretLength {
			return apperrors.Configuration(fmt.Sprintf("%s must be at least %d characters", secret.name, minSecretLength))
		}
		if !hasMinimumEntropy(secret.value) {
			return apperrors.Configuration(secret.name + " has insufficient entropy (appears non-random). Use a cryptographically secure random string.")
		}
	}

	return nil
}

func hasMinimumEntropy(secret string) bool {
	if len(secret) < minSecretLength {
		return false
	}

	charCounts := make(map[rune]int)
	for _, char := range secret {
		charCounts[char]++
	}

	if len(charCounts) < minUniqueCharsInSecret {
		return false
	}

	repeatedChars := 0
	for _, count := range charCounts {
		if count > len(secret)/minRepeatedCharThreshold {
			repeatedChars++
		}
	}

	return repeatedChars <= maxRepeatedChars
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}
