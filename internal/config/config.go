package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName            = "TimelockEscrow"
	defaultAppEnv             = "development"
	defaultPort               = "8080"
	defaultLogLevel           = "info"
	defaultShutdownDelay      = 10 * time.Second
	defaultIdempotencyTTL     = 24 * time.Hour
	defaultLockPeriod         = 5 * time.Minute
	defaultSignatureMaxAge    = 5 * time.Minute
	defaultFaucetMaxPerMinute = 5
	defaultProgramID          = "FFuyrsPLstdzs8Q3ywzsy1X7j57ZBZCa3sQGSqv9SLKA"
	idemTTLSecondsEnvVar      = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar          = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar     = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar    = "SHUTDOWN_TIMEOUT"
	lockPeriodSecondsEnvVar   = "LOCK_PERIOD_SECONDS"
	lockPeriodDurationEnvVar  = "LOCK_DURATION"
	signatureMaxAgeEnvVar     = "SIGNATURE_MAX_AGE"
	recordRentEnvVar          = "ESCROW_RECORD_RENT"
	faucetEnabledEnvVar       = "FAUCET_ENABLED"
	faucetMaxPerMinuteEnvVar  = "FAUCET_MAX_PER_MINUTE"
	developmentEnv            = "development"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	ProgramID          string
	LockPeriod         time.Duration
	RecordRent         int64
	SignatureMaxAge    time.Duration
	FaucetEnabled      bool
	FaucetMaxPerMinute int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:     getEnv("APP_NAME", defaultAppName),
		AppEnv:      getEnv("APP_ENV", defaultAppEnv),
		Port:        getEnv("PORT", defaultPort),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		ProgramID:   getEnv("ESCROW_PROGRAM_ID", defaultProgramID),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.LockPeriod, err = durationFromEnv(lockPeriodSecondsEnvVar, lockPeriodDurationEnvVar, defaultLockPeriod); err != nil {
		return Config{}, err
	}
	if cfg.LockPeriod < 0 {
		return Config{}, fmt.Errorf("lock period must not be negative")
	}
	if cfg.SignatureMaxAge, err = durationFromEnv("", signatureMaxAgeEnvVar, defaultSignatureMaxAge); err != nil {
		return Config{}, err
	}

	if v := os.Getenv(recordRentEnvVar); v != "" {
		rent, err := strconv.ParseInt(v, 10, 64)
		if err != nil || rent < 0 {
			return Config{}, fmt.Errorf("invalid %s: %q", recordRentEnvVar, v)
		}
		cfg.RecordRent = rent
	}

	if v := os.Getenv(faucetEnabledEnvVar); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", faucetEnabledEnvVar, err)
		}
		cfg.FaucetEnabled = enabled
	}

	cfg.FaucetMaxPerMinute = defaultFaucetMaxPerMinute
	if v := os.Getenv(faucetMaxPerMinuteEnvVar); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid %s: %q", faucetMaxPerMinuteEnvVar, v)
		}
		cfg.FaucetMaxPerMinute = n
	}

	if !cfg.IsDevelopment() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether in-memory fallbacks are allowed.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == developmentEnv
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationFromEnv prefers a whole-seconds variable over a Go duration string.
func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}
