package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr    string
	DBDriver    string
	DatabaseURL string
	RedisURL    string
	AMQPURL     string
	AuthSecret  string
	CORSOrigins []string

	DashboardCacheTTL time.Duration

	MailHost string
	MailPort int
	MailUser string
	MailPass string
	MailFrom string

	CampaignTick     time.Duration
	ReminderTick     time.Duration
	ReminderWindow   time.Duration
	ExportRatePerMin int

	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"HTTP_ADDR":           ":8080",
	"DB_DRIVER":           "postgres",
	"DATABASE_URL":        "",
	"REDIS_URL":           "",
	"AMQP_URL":            "",
	"AUTH_SECRET":         "",
	"CORS_ORIGINS":        "*",
	"DASHBOARD_CACHE_TTL": time.Hour,
	"MAIL_HOST":           "",
	"MAIL_PORT":           587,
	"MAIL_USER":           "",
	"MAIL_PASS":           "",
	"MAIL_FROM":           "",
	"CAMPAIGN_TICK":       time.Minute,
	"REMINDER_TICK":       5 * time.Minute,
	"REMINDER_WINDOW":     24 * time.Hour,
	"EXPORT_RATE_PER_MIN": 10,
	"LOG_LEVEL":           "info",
	"LOG_FORMAT":          "json",
}

// Load reads envFile (if present) into the environment and resolves every
// key from the environment or its default. An empty envFile means ".env".
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	cfg := &Config{
		HTTPAddr:          v.GetString("HTTP_ADDR"),
		DBDriver:          strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		RedisURL:          v.GetString("REDIS_URL"),
		AMQPURL:           v.GetString("AMQP_URL"),
		AuthSecret:        v.GetString("AUTH_SECRET"),
		CORSOrigins:       splitList(v.GetString("CORS_ORIGINS")),
		DashboardCacheTTL: v.GetDuration("DASHBOARD_CACHE_TTL"),
		MailHost:          v.GetString("MAIL_HOST"),
		MailPort:          v.GetInt("MAIL_PORT"),
		MailUser:          v.GetString("MAIL_USER"),
		MailPass:          v.GetString("MAIL_PASS"),
		MailFrom:          v.GetString("MAIL_FROM"),
		CampaignTick:      v.GetDuration("CAMPAIGN_TICK"),
		ReminderTick:      v.GetDuration("REMINDER_TICK"),
		ReminderWindow:    v.GetDuration("REMINDER_WINDOW"),
		ExportRatePerMin:  v.GetInt("EXPORT_RATE_PER_MIN"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
	}
	return cfg, nil
}

// Validate checks the settings the API server cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.AuthSecret == "" {
		missing = append(missing, "AUTH_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	for name, d := range map[string]time.Duration{
		"DASHBOARD_CACHE_TTL": c.DashboardCacheTTL,
		"CAMPAIGN_TICK":       c.CampaignTick,
		"REMINDER_TICK":       c.ReminderTick,
		"REMINDER_WINDOW":     c.ReminderWindow,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// MailEnabled reports whether campaign emails can be sent.
func (c *Config) MailEnabled() bool {
	return c.MailHost != "" && c.MailFrom != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
