package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	LedgerBackendPostgres = "postgres"
	LedgerBackendRedis    = "redis"

	NotifyChannelEmail    = "email"
	NotifyChannelTelegram = "telegram"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL      string
	RedisURL         string
	LedgerBackend    string // "postgres" or "redis"
	NotifyChannel    string // "email" or "telegram"
	EmailFunctionURL string
	EmailFrom        string
	TelegramToken    string
	CronSpecDaily    string
	ReminderTimezone string
	HTTPListenAddr   string
	WorkerCount      int
	SendTimeout      time.Duration
	LogLevel         string
	Environment      string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables; a missing .env
	// file is not an error.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LedgerBackend = strings.ToLower(os.Getenv("LEDGER_BACKEND"))
	if cfg.LedgerBackend == "" {
		cfg.LedgerBackend = LedgerBackendPostgres
	}
	if cfg.LedgerBackend != LedgerBackendPostgres && cfg.LedgerBackend != LedgerBackendRedis {
		return nil, fmt.Errorf("invalid LEDGER_BACKEND %q: must be %q or %q", cfg.LedgerBackend, LedgerBackendPostgres, LedgerBackendRedis)
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.LedgerBackend == LedgerBackendRedis && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is not set but LEDGER_BACKEND is %q", LedgerBackendRedis)
	}

	cfg.NotifyChannel = strings.ToLower(os.Getenv("NOTIFY_CHANNEL"))
	if cfg.NotifyChannel == "" {
		cfg.NotifyChannel = NotifyChannelEmail
	}
	switch cfg.NotifyChannel {
	case NotifyChannelEmail:
		cfg.EmailFunctionURL = os.Getenv("EMAIL_FUNCTION_URL")
		if cfg.EmailFunctionURL == "" {
			return nil, fmt.Errorf("EMAIL_FUNCTION_URL is not set")
		}
	case NotifyChannelTelegram:
		cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
		if cfg.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_TOKEN is not set but NOTIFY_CHANNEL is %q", NotifyChannelTelegram)
		}
	default:
		return nil, fmt.Errorf("invalid NOTIFY_CHANNEL %q: must be %q or %q", cfg.NotifyChannel, NotifyChannelEmail, NotifyChannelTelegram)
	}

	cfg.EmailFrom = os.Getenv("EMAIL_FROM")
	if cfg.EmailFrom == "" {
		cfg.EmailFrom = "noreply@gstbuddy.app"
	}

	cfg.CronSpecDaily = os.Getenv("CRON_SPEC_DAILY")
	if cfg.CronSpecDaily == "" {
		cfg.CronSpecDaily = "0 9 * * *" // Default: 09:00 daily in the reminder timezone
	}

	cfg.ReminderTimezone = os.Getenv("REMINDER_TIMEZONE")
	if cfg.ReminderTimezone == "" {
		cfg.ReminderTimezone = "Asia/Kolkata"
	}
	if _, err := time.LoadLocation(cfg.ReminderTimezone); err != nil {
		return nil, fmt.Errorf("invalid REMINDER_TIMEZONE: %w", err)
	}

	cfg.HTTPListenAddr = os.Getenv("HTTP_LISTEN_ADDR")
	if cfg.HTTPListenAddr == "" {
		cfg.HTTPListenAddr = ":8080"
	}

	workerCountStr := os.Getenv("WORKER_COUNT")
	if workerCountStr == "" {
		cfg.WorkerCount = 4
	} else {
		n, err := strconv.Atoi(workerCountStr)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid WORKER_COUNT %q", workerCountStr)
		}
		cfg.WorkerCount = n
	}

	sendTimeoutStr := os.Getenv("SEND_TIMEOUT_SECONDS")
	if sendTimeoutStr == "" {
		cfg.SendTimeout = 15 * time.Second
	} else {
		n, err := strconv.Atoi(sendTimeoutStr)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid SEND_TIMEOUT_SECONDS %q", sendTimeoutStr)
		}
		cfg.SendTimeout = time.Duration(n) * time.Second
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}

// Location resolves the reminder timezone. Load has already validated it.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReminderTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
