package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server  ServerConfig
	Logging LoggingConfig
	Backend BackendConfig
	Page    PageConfig
	Zendesk ZendeskConfig
	Audit   AuditConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// BackendConfig describes how to reach the connector management backend.
type BackendConfig struct {
	URL        string
	Timeout    time.Duration
	APIToken   string
	JWTSecret  string
	MaxRetries int
}

// PageConfig controls rendering of the admin pages.
type PageConfig struct {
	RenderTimeout time.Duration
}

// ZendeskConfig controls credential verification against Zendesk.
type ZendeskConfig struct {
	VerifyCredentials bool
	BaseDomain        string
	RequestsPerSecond float64
}

// AuditConfig controls retention of the activity log.
type AuditConfig struct {
	Retention time.Duration
}

const (
	defaultPort            = "8090"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultBackendURL        = "http://localhost:8080"
	defaultBackendTimeout    = 10 * time.Second
	defaultBackendMaxRetries = 2

	defaultRenderTimeout = 2 * time.Second

	defaultZendeskBaseDomain = "zendesk.com"
	defaultZendeskRPS        = 2.0

	defaultAuditRetention = 90 * 24 * time.Hour
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Backend: BackendConfig{
			URL:        defaultBackendURL,
			Timeout:    defaultBackendTimeout,
			APIToken:   os.Getenv("BACKEND_API_TOKEN"),
			JWTSecret:  os.Getenv("BACKEND_JWT_SECRET"),
			MaxRetries: defaultBackendMaxRetries,
		},
		Page: PageConfig{
			RenderTimeout: defaultRenderTimeout,
		},
		Zendesk: ZendeskConfig{
			VerifyCredentials: true,
			BaseDomain:        defaultZendeskBaseDomain,
			RequestsPerSecond: defaultZendeskRPS,
		},
		Audit: AuditConfig{
			Retention: defaultAuditRetention,
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("BACKEND_URL"); v != "" {
		u, err := url.Parse(v)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Config{}, fmt.Errorf("invalid BACKEND_URL: must be an absolute http(s) URL")
		}
		cfg.Backend.URL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv("BACKEND_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BACKEND_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Backend.Timeout = d
	}

	if v := os.Getenv("BACKEND_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid BACKEND_MAX_RETRIES: must be a non-negative integer")
		}
		cfg.Backend.MaxRetries = n
	}

	if v := os.Getenv("PAGE_RENDER_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("invalid PAGE_RENDER_TIMEOUT_MS: must be a positive integer")
		}
		cfg.Page.RenderTimeout = time.Duration(ms) * time.Millisecond
	}

	if v := os.Getenv("ZENDESK_VERIFY_CREDENTIALS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ZENDESK_VERIFY_CREDENTIALS: must be a boolean")
		}
		cfg.Zendesk.VerifyCredentials = b
	}

	if v := os.Getenv("ZENDESK_BASE_DOMAIN"); v != "" {
		cfg.Zendesk.BaseDomain = strings.Trim(v, ". ")
	}

	if v := os.Getenv("ZENDESK_REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps <= 0 {
			return Config{}, fmt.Errorf("invalid ZENDESK_REQUESTS_PER_SECOND: must be a positive number")
		}
		cfg.Zendesk.RequestsPerSecond = rps
	}

	if v := os.Getenv("ACTIVITY_RETENTION_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			return Config{}, fmt.Errorf("invalid ACTIVITY_RETENTION_DAYS: must be a non-negative integer")
		}
		cfg.Audit.Retention = time.Duration(days) * 24 * time.Hour
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
