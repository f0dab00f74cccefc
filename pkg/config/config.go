package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Market calendar
	Market MarketConfig

	// Quote source
	Scrape ScrapeConfig

	// Alerting
	Alert AlertConfig

	// Telegram reporting
	Telegram TelegramConfig

	// Backup
	Backup BackupConfig

	// Schedules (cron expressions with seconds field)
	Schedule ScheduleConfig

	// Data files
	InstrumentsPath string
	FundsPath       string
	DataDir         string
	PublicDir       string

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// MarketConfig holds trading-calendar configuration.
// Open and Close are local wall-clock times ("HH:MM") in Timezone.
type MarketConfig struct {
	Timezone string
	Open     string
	Close    string
}

// ScrapeConfig holds quote-source configuration.
type ScrapeConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// AlertConfig holds alert-evaluation configuration.
// WindowStart and WindowEnd bound the single daily evaluation window
// ("HH:MM", local market time).
type AlertConfig struct {
	ConfigPath  string
	WebhookURL  string
	WindowStart string
	WindowEnd   string
}

// TelegramConfig holds Telegram bot configuration.
type TelegramConfig struct {
	Token  string
	ChatID string
}

// BackupConfig holds SQL backup / GitHub commit configuration.
type BackupConfig struct {
	GitHubToken string
	GitHubRepo  string // "owner/name"
	Branch      string
}

// ScheduleConfig holds the cron expressions for background jobs.
type ScheduleConfig struct {
	Update string
	Alert  string
	Report string
	Backup string
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Market: MarketConfig{
			Timezone: getEnv("MARKET_TIMEZONE", "Europe/Rome"),
			Open:     getEnv("MARKET_OPEN", "07:20"),
			Close:    getEnv("MARKET_CLOSE", "23:00"),
		},

		Scrape: ScrapeConfig{
			BaseURL:   getEnv("SCRAPE_BASE_URL", "https://www.ls-tc.de"),
			UserAgent: getEnv("SCRAPE_USER_AGENT", "Mozilla/5.0"),
			Timeout:   getEnvAsDuration("SCRAPE_TIMEOUT", "15s"),
		},

		Alert: AlertConfig{
			ConfigPath:  getEnv("ALERT_CONFIG", "configs/alerts.conf"),
			WebhookURL:  getEnv("ALERT_WEBHOOK_URL", ""),
			WindowStart: getEnv("ALERT_WINDOW_START", "19:10"),
			WindowEnd:   getEnv("ALERT_WINDOW_END", "19:20"),
		},

		Telegram: TelegramConfig{
			Token:  getEnv("TELEGRAM_TOKEN", ""),
			ChatID: getEnv("TELEGRAM_CHAT_ID", ""),
		},

		Backup: BackupConfig{
			GitHubToken: getEnv("GITHUB_TOKEN", ""),
			GitHubRepo:  getEnv("GITHUB_REPO", ""),
			Branch:      getEnv("GITHUB_BRANCH", "main"),
		},

		Schedule: ScheduleConfig{
			Update: getEnv("SCHEDULE_UPDATE", "0 */15 7-23 * * 1-5"),
			Alert:  getEnv("SCHEDULE_ALERT", "0 10 19 * * 1-5"),
			Report: getEnv("SCHEDULE_REPORT", "0 0 8 1 * *"),
			Backup: getEnv("SCHEDULE_BACKUP", "0 30 8 1 * *"),
		},

		InstrumentsPath: getEnv("INSTRUMENTS_PATH", "configs/etfs.json"),
		FundsPath:       getEnv("FUNDS_PATH", "configs/funds.csv"),
		DataDir:         getEnv("DATA_DIR", "data"),
		PublicDir:       getEnv("PUBLIC_DIR", "public"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks required configuration. A broken market calendar
// invalidates every downstream decision, so it is fatal here.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		return fmt.Errorf("MARKET_TIMEZONE %q is invalid: %w", c.Market.Timezone, err)
	}

	openMin, err := ParseClock(c.Market.Open)
	if err != nil {
		return fmt.Errorf("MARKET_OPEN: %w", err)
	}
	closeMin, err := ParseClock(c.Market.Close)
	if err != nil {
		return fmt.Errorf("MARKET_CLOSE: %w", err)
	}
	if openMin >= closeMin {
		return fmt.Errorf("MARKET_OPEN %s must precede MARKET_CLOSE %s", c.Market.Open, c.Market.Close)
	}

	if _, err := ParseClock(c.Alert.WindowStart); err != nil {
		return fmt.Errorf("ALERT_WINDOW_START: %w", err)
	}
	if _, err := ParseClock(c.Alert.WindowEnd); err != nil {
		return fmt.Errorf("ALERT_WINDOW_END: %w", err)
	}

	return nil
}

// ParseClock parses "HH:MM" into minutes past midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q (want HH:MM)", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// loadEnvFile tries to load .env from a few conventional locations.
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
