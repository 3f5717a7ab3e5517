package realip

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var privateRanges = []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}

func resolve(t *testing.T, cfg Config, remote string, headers map[string]string) string {
	t.Helper()
	mw, err := Middleware(cfg)
	require.NoError(t, err)

	var got string
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClientIP(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/networks", nil)
	req.RemoteAddr = remote
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestMiddleware(t *testing.T) {
	trusting := Config{TrustProxy: true, TrustedProxies: privateRanges}

	tests := []struct {
		name    string
		cfg     Config
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:    "proxy trust disabled",
			cfg:     Config{TrustedProxies: privateRanges},
			remote:  "10.0.0.1:12345",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.50"},
			want:    "10.0.0.1",
		},
		{
			name:    "trusted peer",
			cfg:     trusting,
			remote:  "10.0.0.1:12345",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.5"},
			want:    "203.0.113.50",
		},
		{
			name:    "untrusted peer",
			cfg:     Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remote:  "192.168.1.100:12345",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.50"},
			want:    "192.168.1.100",
		},
		{
			name:    "x-real-ip fallback",
			cfg:     trusting,
			remote:  "10.0.0.1:12345",
			headers: map[string]string{"X-Real-IP": "203.0.113.50"},
			want:    "203.0.113.50",
		},
		{
			name:    "garbage x-real-ip",
			cfg:     trusting,
			remote:  "10.0.0.1:12345",
			headers: map[string]string{"X-Real-IP": "<script>"},
			want:    "10.0.0.1",
		},
		{
			name:    "chain of proxies",
			cfg:     trusting,
			remote:  "10.0.0.1:12345",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.50, 172.16.0.1, 10.0.0.2"},
			want:    "203.0.113.50",
		},
		{
			name:    "spoofed leftmost hop is ignored",
			cfg:     trusting,
			remote:  "10.0.0.1:12345",
			headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 203.0.113.50, 10.0.0.2"},
			want:    "203.0.113.50",
		},
		{
			name:    "all hops trusted",
			cfg:     trusting,
			remote:  "10.0.0.1:12345",
			headers: map[string]string{"X-Forwarded-For": "192.168.1.1, 172.16.0.1, 10.0.0.2"},
			want:    "192.168.1.1",
		},
		{
			name:    "unparseable hops skipped",
			cfg:     trusting,
			remote:  "10.0.0.1:12345",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.50, unknown, "},
			want:    "203.0.113.50",
		},
		{
			name:    "only garbage",
			cfg:     trusting,
			remote:  "10.0.0.1:12345",
			headers: map[string]string{"X-Forwarded-For": "unknown"},
			want:    "10.0.0.1",
		},
		{
			name:   "no headers",
			cfg:    trusting,
			remote: "10.0.0.1:12345",
			want:   "10.0.0.1",
		},
		{
			name:    "single trusted address",
			cfg:     Config{TrustProxy: true, TrustedProxies: []string{"::1"}},
			remote:  "[::1]:8080",
			headers: map[string]string{"X-Forwarded-For": "2001:db8::7"},
			want:    "2001:db8::7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolve(t, tt.cfg, tt.remote, tt.headers))
		})
	}
}

func TestMiddleware_RejectsBadProxyEntries(t *testing.T) {
	_, err := Middleware(Config{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8", "not-a-range"}})
	assert.ErrorContains(t, err, "not-a-range")

	// entries are not parsed when proxies are not trusted at all
	_, err = Middleware(Config{TrustedProxies: []string{"not-a-range"}})
	assert.NoError(t, err)
}

func TestParsePrefixes(t *testing.T) {
	prefixes, err := ParsePrefixes([]string{"10.1.2.3/8", " 192.168.0.1 ", "", "fd00::/8"})
	require.NoError(t, err)
	require.Len(t, prefixes, 3)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.168.0.1/32", prefixes[1].String())
	assert.Equal(t, "fd00::/8", prefixes[2].String())
}

func TestResolver_IsTrusted(t *testing.T) {
	prefixes, err := ParsePrefixes(privateRanges)
	require.NoError(t, err)
	rv := resolver{trustProxy: true, trusted: prefixes}

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.0.0.1", true},
		{"172.31.255.255", true},
		{"192.168.255.255", true},
		{"::ffff:10.0.0.1", true},
		{"172.32.0.1", false},
		{"8.8.8.8", false},
		{"invalid", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rv.isTrusted(tt.ip), tt.ip)
	}
}

func TestGetClientIP_WithoutMiddleware(t *testing.T) {
	for addr, want := range map[string]string{
		"192.168.1.100:12345": "192.168.1.100",
		"[::1]:8080":          "::1",
		"::1":                 "::1",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		assert.Equal(t, want, GetClientIP(req), addr)
	}
}
