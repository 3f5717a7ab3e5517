// Package ratelimit throttles API clients per IP with token buckets.
// Probe requests draw from their own, smaller bucket since each one
// fans out into several calls against a remote RPC node.
package ratelimit

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pendergraft/netprofile/internal/middleware/realip"
)

// Config holds the configuration for rate limiting
type Config struct {
	// RequestsPerMin is the number of requests allowed per minute per IP
	RequestsPerMin int
	// BurstSize is the maximum burst size
	BurstSize int
	// ProbeRequestsPerMin is the probe allowance per minute per IP.
	// Zero means probes only count against the general bucket.
	ProbeRequestsPerMin int
	// CleanupMinutes is how long an idle client is remembered
	CleanupMinutes int
}

type class string

const (
	classGeneral class = "general"
	classProbe   class = "probe"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter owns the per-client buckets and the goroutine that forgets
// idle clients. Call Stop when the server shuts down.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limits   map[class]rate.Limit
	bursts   map[class]int
	idle     time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// New creates a RateLimiter and starts its sweeper.
func New(cfg Config) *RateLimiter {
	idle := time.Duration(cfg.CleanupMinutes) * time.Minute
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	burst := cfg.BurstSize
	if burst < 1 {
		burst = 1
	}

	rl := &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		limits: map[class]rate.Limit{
			classGeneral: perMinute(cfg.RequestsPerMin),
		},
		bursts: map[class]int{
			classGeneral: burst,
		},
		idle:   idle,
		now:    time.Now,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	if cfg.ProbeRequestsPerMin > 0 {
		rl.limits[classProbe] = perMinute(cfg.ProbeRequestsPerMin)
		rl.bursts[classProbe] = max(1, cfg.ProbeRequestsPerMin/10)
	}

	go rl.sweepLoop()
	return rl
}

func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / 60.0)
}

// Stop ends the sweeper and waits for it. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
	<-rl.done
}

func (rl *RateLimiter) sweepLoop() {
	defer close(rl.done)
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stopCh:
			return
		}
	}
}

// sweep forgets clients that have been idle for longer than the idle window.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idle)
	for key, l := range rl.limiters {
		if l.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) limiter(ip string, c class) *rate.Limiter {
	key := string(c) + "|" + ip

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters[key]; ok {
		l.lastSeen = rl.now()
		return l.limiter
	}
	l := &clientLimiter{
		limiter:  rate.NewLimiter(rl.limits[c], rl.bursts[c]),
		lastSeen: rl.now(),
	}
	rl.limiters[key] = l
	return l.limiter
}

// reserve takes a token from every bucket the request counts against. On
// refusal it returns how long the client should wait, with any tokens
// already taken handed back.
func (rl *RateLimiter) reserve(ip string, classes []class) (time.Duration, bool) {
	now := rl.now()
	var taken []*rate.Reservation
	for _, c := range classes {
		res := rl.limiter(ip, c).ReserveN(now, 1)
		if !res.OK() {
			cancelAll(taken, now)
			return time.Minute, false
		}
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			cancelAll(taken, now)
			return delay, false
		}
		taken = append(taken, res)
	}
	return 0, true
}

func cancelAll(rs []*rate.Reservation, now time.Time) {
	for _, r := range rs {
		r.CancelAt(now)
	}
}

var exemptPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

func isProbe(r *http.Request) bool {
	return r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/probe")
}

// Middleware returns an HTTP middleware enforcing the limits.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exemptPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			classes := []class{classGeneral}
			if _, ok := rl.limits[classProbe]; ok && isProbe(r) {
				classes = append(classes, classProbe)
			}

			if wait, ok := rl.reserve(realip.GetClientIP(r), classes); !ok {
				writeLimited(w, wait)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeLimited(w http.ResponseWriter, wait time.Duration) {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    "RATE_LIMIT_EXCEEDED",
			"message": "Too many requests. Please try again later.",
		},
	})
}
