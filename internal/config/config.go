// Package config loads application settings from the environment
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devSessionSecret = "dev_session_secret_change_me"

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Logging   LoggingConfig
	Bootstrap BootstrapConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string
	Mode           string // gin mode: debug, release, test
	AllowedOrigins []string
}

// DatabaseConfig holds postgres connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// SessionConfig holds the session cookie settings
type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	SecureCookie bool
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// BootstrapConfig names a superadmin created at startup when set
type BootstrapConfig struct {
	AdminUsername string
	AdminPassword string
}

// IsRelease reports whether the server runs in gin release mode
func (c *Config) IsRelease() bool {
	return c.Server.Mode == "release"
}

// DSN builds the postgres connection URL
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// Load reads the optional dotenv file at path, then the environment. Missing
// values fall back to development defaults, except the session secret in release mode.
func Load(path string) (*Config, error) {
	if path != "" {
		// The file is optional; real deployments set the environment directly
		_ = godotenv.Load(path)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Mode:           getEnv("GIN_MODE", "debug"),
			AllowedOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:8080")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "postgres"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Session: SessionConfig{
			Secret: os.Getenv("SESSION_SECRET"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Bootstrap: BootstrapConfig{
			AdminUsername: os.Getenv("ADMIN_USERNAME"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		},
	}

	switch cfg.Server.Mode {
	case "debug", "release", "test":
	default:
		return nil, fmt.Errorf("invalid GIN_MODE %q", cfg.Server.Mode)
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, errors.New("SESSION_TTL must be positive")
	}
	cfg.Session.TTL = ttl

	secure, err := strconv.ParseBool(getEnv("COOKIE_SECURE", strconv.FormatBool(cfg.IsRelease())))
	if err != nil {
		return nil, fmt.Errorf("invalid COOKIE_SECURE: %w", err)
	}
	cfg.Session.SecureCookie = secure

	if cfg.Session.Secret == "" {
		if cfg.IsRelease() {
			return nil, errors.New("SESSION_SECRET is required in release mode")
		}
		cfg.Session.Secret = devSessionSecret
	}

	if (cfg.Bootstrap.AdminUsername == "") != (cfg.Bootstrap.AdminPassword == "") {
		return nil, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
