package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func send(h http.Handler, method, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remote
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimiter_AllowsBurst(t *testing.T) {
	rl := New(Config{RequestsPerMin: 60, BurstSize: 5, CleanupMinutes: 1})
	defer rl.Stop()
	h := rl.Middleware()(okHandler())

	for i := 0; i < 5; i++ {
		rr := send(h, http.MethodGet, "/api/v1/networks", "192.168.1.100:12345")
		assert.Equal(t, http.StatusOK, rr.Code, "request %d", i+1)
	}
}

func TestRateLimiter_BlocksExcessRequests(t *testing.T) {
	rl := New(Config{RequestsPerMin: 60, BurstSize: 2, CleanupMinutes: 1})
	defer rl.Stop()
	h := rl.Middleware()(okHandler())

	send(h, http.MethodGet, "/api/v1/networks", "192.168.1.100:12345")
	send(h, http.MethodGet, "/api/v1/networks", "192.168.1.100:12345")
	rr := send(h, http.MethodGet, "/api/v1/networks", "192.168.1.100:12345")

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	retry, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)
	assert.LessOrEqual(t, retry, 60)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errObj["code"])
}

func TestRateLimiter_SeparateLimitsPerIP(t *testing.T) {
	rl := New(Config{RequestsPerMin: 60, BurstSize: 1, CleanupMinutes: 1})
	defer rl.Stop()
	h := rl.Middleware()(okHandler())

	assert.Equal(t, http.StatusOK, send(h, http.MethodGet, "/api/v1/env", "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, send(h, http.MethodGet, "/api/v1/env", "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusOK, send(h, http.MethodGet, "/api/v1/env", "10.0.0.2:1").Code)
}

func TestRateLimiter_ProbeBucket(t *testing.T) {
	// one probe per burst, plenty of general capacity
	rl := New(Config{RequestsPerMin: 600, BurstSize: 100, ProbeRequestsPerMin: 6, CleanupMinutes: 1})
	defer rl.Stop()
	h := rl.Middleware()(okHandler())

	const ip = "10.1.1.1:999"
	assert.Equal(t, http.StatusOK, send(h, http.MethodPost, "/api/v1/networks/sepolia/probe", ip).Code)

	rr := send(h, http.MethodPost, "/api/v1/networks/polygon/probe", ip)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	retry, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, 10, retry, 1)

	// reads are unaffected, and the refused probe did not cost a general token
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, send(h, http.MethodGet, "/api/v1/networks/sepolia", ip).Code)
	}
}

func TestRateLimiter_ProbeWithoutDedicatedLimit(t *testing.T) {
	rl := New(Config{RequestsPerMin: 60, BurstSize: 3, CleanupMinutes: 1})
	defer rl.Stop()
	h := rl.Middleware()(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send(h, http.MethodPost, "/api/v1/networks/sepolia/probe", "10.2.2.2:1").Code)
	}
	assert.Equal(t, 1, rl.tracked())
}

func TestRateLimiter_ExemptPaths(t *testing.T) {
	rl := New(Config{RequestsPerMin: 60, BurstSize: 1, CleanupMinutes: 1})
	defer rl.Stop()
	h := rl.Middleware()(okHandler())

	for _, path := range []string{"/health", "/healthz", "/readyz", "/metrics"} {
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusOK, send(h, http.MethodGet, path, "10.0.0.9:1").Code, path)
		}
	}
	assert.Zero(t, rl.tracked())
}

func TestRateLimiter_UsesRealClientIP(t *testing.T) {
	rl := New(Config{RequestsPerMin: 60, BurstSize: 1, CleanupMinutes: 1})
	defer rl.Stop()
	h := rl.Middleware()(okHandler())

	// no realip middleware in front: the remote address decides
	req := httptest.NewRequest(http.MethodGet, "/api/v1/networks", nil)
	req.RemoteAddr = "10.0.0.1:1"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, http.StatusTooManyRequests, send(h, http.MethodGet, "/api/v1/networks", "10.0.0.1:2").Code)
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := New(Config{RequestsPerMin: 60, BurstSize: 1, CleanupMinutes: 1})
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }
	h := rl.Middleware()(okHandler())
	send(h, http.MethodGet, "/api/v1/networks", "10.0.0.1:1")
	send(h, http.MethodGet, "/api/v1/networks", "10.0.0.2:1")
	require.Equal(t, 2, rl.tracked())

	now = now.Add(30 * time.Second)
	send(h, http.MethodGet, "/api/v1/networks", "10.0.0.2:1")

	now = now.Add(45 * time.Second)
	rl.sweep()
	assert.Equal(t, 1, rl.tracked(), "only the client seen within the idle window survives")
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(Config{RequestsPerMin: 60, BurstSize: 1})
	rl.Stop()
	rl.Stop()
}
