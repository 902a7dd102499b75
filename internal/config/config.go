package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration. It is loaded once in main and
// injected into constructors; nothing else reads the environment.
type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string

	// DevMode selects the deterministic code generator (always "123456")
	// and the plaintext stand-in hasher. Never enable outside local dev.
	DevMode bool

	OTPTTL         time.Duration
	OTPMaxAttempts int

	SendGridKey string
	FromEmail   string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           "8080",
		OTPTTL:         5 * time.Minute,
		OTPMaxAttempts: 5,
		FromEmail:      "naoresponda@ilm2.edu.br",
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.DatabaseURL = databaseURL

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	cfg.JWTSecret = jwtSecret

	cfg.DevMode = os.Getenv("DEV_MODE") == "true"

	if ttl := os.Getenv("OTP_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid OTP_TTL %q: %w", ttl, err)
		}
		cfg.OTPTTL = d
	}

	if max := os.Getenv("OTP_MAX_ATTEMPTS"); max != "" {
		n, err := strconv.Atoi(max)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid OTP_MAX_ATTEMPTS %q", max)
		}
		cfg.OTPMaxAttempts = n
	}

	cfg.SendGridKey = os.Getenv("SENDGRID_API_KEY")
	if from := os.Getenv("FROM_EMAIL"); from != "" {
		cfg.FromEmail = from
	}

	// Production needs a way to actually deliver codes.
	if !cfg.DevMode && cfg.SendGridKey == "" {
		return nil, fmt.Errorf("SENDGRID_API_KEY environment variable is required unless DEV_MODE=true")
	}

	return cfg, nil
}
