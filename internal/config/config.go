// Package config loads all runtime configuration from the environment,
// with a .env file honored in local development.
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	WebSocket WebSocketConfig
	Email     EmailConfig
	Logging   LoggingConfig
	App       AppConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AutoMigrate     bool
	MigrationsPath  string
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

// RateLimitConfig carries two limiter profiles: a general one and a
// stricter one for the credential endpoints.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	AuthRPS           float64
	AuthBurst         int
}

type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
}

type EmailConfig struct {
	FromAddress string
	FromName    string
}

type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or text
}

type AppConfig struct {
	Name         string
	Version      string
	Environment  string
	DefaultOrgID string
}

// Load reads the environment into a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            envStr("SERVER_PORT", ":8080"),
			ReadTimeout:     envDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    envDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     envDuration("SERVER_IDLE_TIMEOUT", time.Minute),
			ShutdownTimeout: envDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: envDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			AutoMigrate:     envBool("DB_AUTO_MIGRATE", false),
			MigrationsPath:  envStr("DB_MIGRATIONS_PATH", "migrations"),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: envDuration("JWT_ACCESS_TOKEN_TTL", time.Hour),
		},
		RateLimit: RateLimitConfig{
			Enabled:           envBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: envFloat("RATE_LIMIT_RPS", 10),
			BurstSize:         envInt("RATE_LIMIT_BURST", 20),
			AuthRPS:           envFloat("RATE_LIMIT_AUTH_RPS", 1),
			AuthBurst:         envInt("RATE_LIMIT_AUTH_BURST", 5),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  envList("WS_ALLOWED_ORIGINS"),
			ReadBufferSize:  envInt("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: envInt("WS_WRITE_BUFFER_SIZE", 1024),
		},
		Email: EmailConfig{
			FromAddress: envStr("EMAIL_FROM_ADDRESS", "support@helpdesk.local"),
			FromName:    envStr("EMAIL_FROM_NAME", "Helpdesk Support"),
		},
		Logging: LoggingConfig{
			Level:  envStr("LOG_LEVEL", "info"),
			Format: envStr("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:         envStr("APP_NAME", "helpdesk"),
			Version:      envStr("APP_VERSION", "dev"),
			Environment:  envStr("APP_ENV", "development"),
			DefaultOrgID: envStr("DEFAULT_ORG_ID", "00000000-0000-0000-0000-000000000001"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every configuration problem at once so a bad deploy
// fails with the full list.
func (c *Config) Validate() error {
	var problems []string

	if c.Database.URL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.JWT.Secret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.IsProduction() {
		if len(c.JWT.Secret) < 32 {
			problems = append(problems, "JWT_SECRET must be at least 32 characters in production")
		}
		if len(c.WebSocket.AllowedOrigins) == 0 {
			problems = append(problems, "WS_ALLOWED_ORIGINS must be set in production")
		}
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		problems = append(problems, "DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	}

	if len(problems) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(problems, "\n  - "))
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Malformed values fall back to the default rather than failing Load;
// Validate catches the combinations that actually matter.

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
