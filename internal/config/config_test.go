package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/netprofile/internal/auth"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "netprofile.toml", cfg.Profile.Path)
	assert.Equal(t, []string{".env"}, cfg.Profile.Dotenv)
	assert.Equal(t, "none", cfg.Auth.Type)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, 1, cfg.Security.MaxBodySizeMB)
}

func TestLoad_FromEnvironment(t *testing.T) {
	hash := strings.Repeat("ab", 32)
	t.Setenv("PORT", "9090")
	t.Setenv("NETPROFILE_CONFIG", "configs/netprofile.polygon.toml")
	t.Setenv("NETPROFILE_DOTENV", ".env.local, .env")
	t.Setenv("AUTH_TYPE", "api-key")
	t.Setenv("AUTH_API_KEY_HASHES", hash)
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("PROBE_TIMEOUT", "3")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, ,127.0.0.1/32")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "configs/netprofile.polygon.toml", cfg.Profile.Path)
	assert.Equal(t, []string{".env.local", ".env"}, cfg.Profile.Dotenv)
	assert.Equal(t, []string{hash}, cfg.Auth.APIKeyHashes)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 3*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1/32"}, cfg.Proxy.TrustedProxies)
}

func TestLoad_UppercaseKeyHash(t *testing.T) {
	hash := auth.HashAPIKey("np_key_example")
	t.Setenv("AUTH_TYPE", "api-key")
	t.Setenv("AUTH_API_KEY_HASHES", strings.ToUpper(hash))

	cfg, err := Load()
	require.NoError(t, err)

	keys, err := auth.NewStaticKeys(cfg.Auth.APIKeyHashes)
	require.NoError(t, err)
	_, err = keys.ValidateAPIKey(context.Background(), "np_key_example")
	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"api-key without hashes", map[string]string{"AUTH_TYPE": "api-key"}, "AUTH_API_KEY_HASHES"},
		{"malformed hash", map[string]string{"AUTH_TYPE": "api-key", "AUTH_API_KEY_HASHES": "np_key_plaintext"}, "SHA-256"},
		{"unknown auth type", map[string]string{"AUTH_TYPE": "oauth"}, "AUTH_TYPE"},
		{"unknown log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"port out of range", map[string]string{"PORT": "70000"}, "PORT"},
		{"zero probe timeout", map[string]string{"PROBE_TIMEOUT": "0s"}, "PROBE_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
