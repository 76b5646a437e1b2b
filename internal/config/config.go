package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken  string
	SupabaseURL    string
	SupabaseKey    string
	AllowedUserIDs []int64

	SessionTimeout  time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
	RequestTimeout  time.Duration

	Environment     string
	LogFilePath     string
	Location        *time.Location
	DefaultCurrency string

	WebhookURL  string
	WebhookAddr string

	ReferenceRefreshInterval time.Duration

	// EnvFileLoaded is false when no .env file was found; the process
	// environment is used as is.
	EnvFileLoaded bool
}

// Load reads the environment, after loading a .env file if one exists.
func Load() (*Config, error) {
	envFileLoaded := godotenv.Load() == nil

	allowed, err := parseIDs(getEnv("ALLOWED_USER_IDS", ""))
	if err != nil {
		return nil, err
	}

	location, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	cfg := &Config{
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		SupabaseURL:    os.Getenv("SUPABASE_URL"),
		SupabaseKey:    os.Getenv("SUPABASE_KEY"),
		AllowedUserIDs: allowed,

		SessionTimeout:  getEnvAsDuration("SESSION_TIMEOUT", 30*time.Minute),
		RateLimitMax:    getEnvAsInt("RATE_LIMIT_MAX", 10),
		RateLimitWindow: getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),

		Environment:     getEnv("APP_ENV", "development"),
		LogFilePath:     getEnv("LOG_FILE_PATH", "ledger_bot.log"),
		Location:        location,
		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),

		WebhookURL:  getEnv("WEBHOOK_URL", ""),
		WebhookAddr: getEnv("WEBHOOK_ADDR", ":8080"),

		ReferenceRefreshInterval: getEnvAsDuration("REFERENCE_REFRESH_INTERVAL", 15*time.Minute),

		EnvFileLoaded: envFileLoaded,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or out-of-range setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN is required"))
	}
	if c.SupabaseURL == "" {
		errs = append(errs, errors.New("SUPABASE_URL is required"))
	}
	if c.SupabaseKey == "" {
		errs = append(errs, errors.New("SUPABASE_KEY is required"))
	}
	if c.RateLimitMax < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must be at least 1"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.SessionTimeout <= 0 {
		errs = append(errs, errors.New("SESSION_TIMEOUT must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.WebhookURL != "" && !strings.HasPrefix(c.WebhookURL, "https://") {
		errs = append(errs, errors.New("WEBHOOK_URL must be an https URL"))
	}
	return errors.Join(errs...)
}

// UseWebhook reports whether updates arrive by webhook instead of long polling.
func (c *Config) UseWebhook() bool {
	return c.WebhookURL != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ALLOWED_USER_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
