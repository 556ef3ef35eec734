package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration. It is built once at startup
// and passed by reference into every constructor; nothing reads the
// environment at call time.
type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// OwnerJWTSecret signs the bearer tokens document owners use.
	OwnerJWTSecret string
	// SessionSecret signs signer access credentials. Empty is a valid
	// degraded state: OTP verification succeeds but no credential is
	// minted and completion re-checks the session instead.
	SessionSecret string

	// SigningBaseURL is the public base used to build signer links.
	SigningBaseURL string

	SessionTTL    time.Duration
	OTPTTL        time.Duration
	CredentialTTL time.Duration
	OwnerTokenTTL time.Duration

	// Blob storage: "local" (BlobDir) or "s3" (S3Bucket).
	BlobDriver string
	BlobDir    string
	S3Bucket   string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           "8080",
		Environment:    "development",
		SigningBaseURL: "http://localhost:8080",
		SessionTTL:     7 * 24 * time.Hour,
		OTPTTL:         15 * time.Minute,
		CredentialTTL:  30 * time.Minute,
		OwnerTokenTTL:  24 * time.Hour,
		BlobDriver:     "local",
		BlobDir:        "data/blobs",
		SMTPPort:       587,
		MailFrom:       "no-reply@inkflow.local",
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	cfg.OwnerJWTSecret = os.Getenv("JWT_SECRET")
	if cfg.OwnerJWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	// Optional; missing secret is the degraded no-credential mode.
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		cfg.Environment = env
	}
	if base := os.Getenv("SIGNING_BASE_URL"); base != "" {
		cfg.SigningBaseURL = base
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv("OTP_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid OTP_TTL: %w", err)
		}
		cfg.OTPTTL = d
	}
	if v := os.Getenv("CREDENTIAL_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CREDENTIAL_TTL: %w", err)
		}
		cfg.CredentialTTL = d
	}

	if driver := os.Getenv("BLOB_DRIVER"); driver != "" {
		cfg.BlobDriver = driver
	}
	switch cfg.BlobDriver {
	case "local":
		if dir := os.Getenv("BLOB_DIR"); dir != "" {
			cfg.BlobDir = dir
		}
	case "s3":
		cfg.S3Bucket = os.Getenv("S3_BUCKET")
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when BLOB_DRIVER=s3")
		}
	default:
		return nil, fmt.Errorf("unknown BLOB_DRIVER %q (want local or s3)", cfg.BlobDriver)
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if v := os.Getenv("SMTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
		cfg.SMTPPort = p
	}
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	if from := os.Getenv("MAIL_FROM"); from != "" {
		cfg.MailFrom = from
	}

	return cfg, nil
}
