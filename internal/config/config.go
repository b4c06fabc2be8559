package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode   string
	Port      string
	Database  DatabaseConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Audit     AuditConfig
	Scheduler SchedulerConfig
	Log       LogConfig
	Origins   []string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxIdleConns int
	MaxOpenConns int
}

// DSN builds the postgres connection URL.
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthConfig controls login lockout.
type AuthConfig struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	SecureCookies     bool
}

type AuditConfig struct {
	QueueSize int
	Workers   int
}

type SchedulerConfig struct {
	Enabled      bool
	DormancyCron string
	DormancyDays int
	UnlockCron   string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

const devJWTSecret = "default_super_secret_key"

// Load reads configs/.env (optional) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		slog.Info("No configs/.env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	cfg := &Config{
		AppMode: appMode,
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "secbank_cbs"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 100),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", ""),
			AccessTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
			RefreshTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		},
		Auth: AuthConfig{
			MaxFailedAttempts: getEnvInt("MAX_FAILED_LOGIN_ATTEMPTS", 5),
			LockoutDuration:   getEnvDuration("LOCKOUT_DURATION", 30*time.Minute),
			SecureCookies:     getEnvBool("COOKIE_SECURE", appMode == "prod"),
		},
		Audit: AuditConfig{
			QueueSize: getEnvInt("AUDIT_QUEUE_SIZE", 1024),
			Workers:   getEnvInt("AUDIT_WORKERS", 2),
		},
		Scheduler: SchedulerConfig{
			Enabled:      getEnvBool("SCHEDULER_ENABLED", true),
			DormancyCron: getEnv("DORMANCY_CRON", "0 2 * * *"),
			DormancyDays: getEnvInt("DORMANCY_DAYS", 365),
			UnlockCron:   getEnv("UNLOCK_CRON", "*/5 * * * *"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Origins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
	}

	if cfg.JWT.Secret == "" {
		if cfg.IsProd() {
			return nil, errors.New("JWT_SECRET is required in prod mode")
		}
		cfg.JWT.Secret = devJWTSecret // development fallback only
	}
	if cfg.Auth.MaxFailedAttempts < 1 {
		return nil, fmt.Errorf("MAX_FAILED_LOGIN_ATTEMPTS must be positive, got %d", cfg.Auth.MaxFailedAttempts)
	}
	if cfg.Audit.Workers < 1 {
		cfg.Audit.Workers = 1
	}

	return cfg, nil
}

func (c *Config) IsDev() bool { return c.AppMode == "dev" }

func (c *Config) IsProd() bool { return c.AppMode == "prod" }

// SlogLevel maps LOG_LEVEL onto a slog level; unknown values mean info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// getEnvDuration accepts Go durations ("15m", "24h").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
