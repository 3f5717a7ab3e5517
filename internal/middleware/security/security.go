// Package security holds the request hygiene middleware in front of the API:
// a scanner filter and a request body cap.
package security

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

var exemptPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/readyz":  true,
}

// blockedPrefixes are paths only scanners ask for. Several target the
// files a contract project keeps its secrets in.
var blockedPrefixes = []string{
	"/.env",
	"/.git/",
	"/.npmrc",
	"/.aws/",
	"/.ssh/",
	"/node_modules/",
	"/truffle-config",
	"/hardhat.config",
	"/foundry.toml",
	"/secrets.",
	"/config.",
	"/wp-",
	"/xmlrpc.php",
	"/phpmyadmin",
	"/phpinfo",
	"/cgi-bin/",
	"/server-status",
	"/web-inf/",
	"/.htaccess",
	"/.htpasswd",
}

var blockedFragments = []string{
	"../",
	"..\\",
	"%00",
	"\x00",
}

// maxDecodeRounds bounds how many layers of percent-encoding are peeled.
const maxDecodeRounds = 3

// suspicious reports whether any decoding of the raw path hits a blocked
// prefix or fragment.
func suspicious(u *url.URL) bool {
	candidate := u.EscapedPath()
	for round := 0; round <= maxDecodeRounds; round++ {
		lower := strings.ToLower(candidate)
		for _, p := range blockedPrefixes {
			if strings.HasPrefix(lower, p) {
				return true
			}
		}
		for _, f := range blockedFragments {
			if strings.Contains(lower, f) {
				return true
			}
		}
		decoded, err := url.PathUnescape(candidate)
		if err != nil {
			// malformed escapes never reach a handler legitimately
			return true
		}
		if decoded == candidate {
			return false
		}
		candidate = decoded
	}
	return true
}

// Filter rejects scanner and traversal traffic with an uninformative 400.
func Filter(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !exemptPaths[r.URL.Path] && suspicious(r.URL) {
				writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LimitBody caps request bodies at maxMB megabytes. Requests that announce
// a larger body are refused before it is read; the rest are cut off by
// http.MaxBytesReader while the handler reads.
func LimitBody(maxMB int) func(http.Handler) http.Handler {
	maxBytes := int64(maxMB) << 20

	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
