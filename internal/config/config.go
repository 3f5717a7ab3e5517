// Package config loads the server configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the server
type Config struct {
	Server    ServerConfig
	Profile   ProfileConfig
	Auth      AuthConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
	Proxy     ProxyConfig
	Probe     ProbeConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int
	Host           string
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	IdleTimeout    int // seconds
	RequestTimeout int // seconds
}

// ProfileConfig locates the document the server publishes
type ProfileConfig struct {
	Path string
	// Dotenv files layered under the process environment, earliest first
	Dotenv []string
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	Type         string   // "none" or "api-key"
	APIKeyHashes []string // SHA-256 hex digests of accepted keys
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerMin int
	BurstSize      int
	CleanupMinutes int
	// ProbeRequestsPerMin caps outbound probes, which each cost RPC calls
	ProbeRequestsPerMin int
}

// SecurityConfig holds security filter settings
type SecurityConfig struct {
	FilterEnabled bool
	MaxBodySizeMB int
}

// ProxyConfig holds trusted proxy settings for X-Forwarded-For handling
type ProxyConfig struct {
	TrustProxy     bool
	TrustedProxies []string // CIDR notation
}

// ProbeConfig bounds outbound network probes
type ProbeConfig struct {
	Timeout time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("PORT", 8080),
			Host:           getEnv("HOST", "0.0.0.0"),
			ReadTimeout:    getEnvInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout:   getEnvInt("SERVER_WRITE_TIMEOUT", 60),
			IdleTimeout:    getEnvInt("SERVER_IDLE_TIMEOUT", 120),
			RequestTimeout: getEnvInt("SERVER_REQUEST_TIMEOUT", 30),
		},
		Profile: ProfileConfig{
			Path:   getEnv("NETPROFILE_CONFIG", "netprofile.toml"),
			Dotenv: getEnvStringSlice("NETPROFILE_DOTENV", []string{".env"}),
		},
		Auth: AuthConfig{
			Type:         getEnv("AUTH_TYPE", "none"),
			APIKeyHashes: getEnvStringSlice("AUTH_API_KEY_HASHES", nil),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
		RateLimit: RateLimitConfig{
			Enabled:             getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMin:      getEnvInt("RATE_LIMIT_RPM", 300),
			BurstSize:           getEnvInt("RATE_LIMIT_BURST", 50),
			CleanupMinutes:      getEnvInt("RATE_LIMIT_CLEANUP_MINUTES", 10),
			ProbeRequestsPerMin: getEnvInt("RATE_LIMIT_PROBE_RPM", 20),
		},
		Security: SecurityConfig{
			FilterEnabled: getEnvBool("SECURITY_FILTER_ENABLED", true),
			MaxBodySizeMB: getEnvInt("SECURITY_MAX_BODY_SIZE_MB", 1),
		},
		Proxy: ProxyConfig{
			TrustProxy:     getEnvBool("TRUST_PROXY", false),
			TrustedProxies: getEnvStringSlice("TRUSTED_PROXIES", []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}),
		},
		Probe: ProbeConfig{
			Timeout: getEnvDuration("PROBE_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe fallback.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port))
	}
	switch c.Auth.Type {
	case "none":
	case "api-key":
		if len(c.Auth.APIKeyHashes) == 0 {
			errs = append(errs, errors.New("AUTH_TYPE=api-key requires AUTH_API_KEY_HASHES"))
		}
		for _, h := range c.Auth.APIKeyHashes {
			if !isSHA256Hex(h) {
				errs = append(errs, fmt.Errorf("AUTH_API_KEY_HASHES: %q is not a SHA-256 hex digest", h))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_TYPE must be none or api-key, got %q", c.Auth.Type))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Logging.Format))
	}
	if c.Probe.Timeout <= 0 {
		errs = append(errs, errors.New("PROBE_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func isSHA256Hex(s string) bool {
	s = strings.ToLower(s)
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("15s") or plain seconds ("15").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if s, err := strconv.Atoi(value); err == nil {
		return time.Duration(s) * time.Second
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
