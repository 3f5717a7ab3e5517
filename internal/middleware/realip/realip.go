// Package realip resolves the client address of API requests, honouring
// X-Forwarded-For only when the direct peer is a trusted proxy.
package realip

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type contextKey struct{}

// Config holds the configuration for the real IP middleware
type Config struct {
	// TrustProxy enables X-Forwarded-For header parsing
	TrustProxy bool
	// TrustedProxies lists CIDR ranges or single addresses
	TrustedProxies []string
}

// ParsePrefixes parses CIDR ranges and bare addresses into prefixes.
func ParsePrefixes(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: not a CIDR range or address", e)
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// Middleware stores the resolved client address in the request context.
// It fails on malformed trusted proxy entries rather than ignoring them.
func Middleware(cfg Config) (func(http.Handler) http.Handler, error) {
	var trusted []netip.Prefix
	if cfg.TrustProxy {
		var err error
		if trusted, err = ParsePrefixes(cfg.TrustedProxies); err != nil {
			return nil, err
		}
	}
	resolver := resolver{trustProxy: cfg.TrustProxy, trusted: trusted}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), contextKey{}, resolver.clientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

type resolver struct {
	trustProxy bool
	trusted    []netip.Prefix
}

func (rv resolver) isTrusted(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range rv.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (rv resolver) clientIP(r *http.Request) string {
	remote := hostOnly(r.RemoteAddr)
	if !rv.trustProxy || !rv.isTrusted(remote) {
		return remote
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); validAddr(xri) {
			return xri
		}
		return remote
	}

	// Walk right to left; the first hop we do not trust is the client.
	hops := strings.Split(xff, ",")
	leftmost := ""
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if !validAddr(hop) {
			continue
		}
		leftmost = hop
		if !rv.isTrusted(hop) {
			return hop
		}
	}
	if leftmost != "" {
		return leftmost
	}
	return remote
}

func validAddr(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// GetClientIP returns the address resolved by Middleware, or the peer
// address when the middleware did not run.
func GetClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(contextKey{}).(string); ok && ip != "" {
		return ip
	}
	return hostOnly(r.RemoteAddr)
}
