// Package validation provides field validators for network profiles.
package validation

import (
	"errors"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Network names: a letter followed by letters, digits, '-' or '_', 1-64 chars
var networkNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)

// Environment variable names as POSIX shells accept them
var envNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// BIP-32 paths such as m/44'/60'/0'/0/ (trailing slash allowed, the address
// index is appended)
var derivationPathRegex = regexp.MustCompile(`^m(/[0-9]+'?)*/?$`)

var txHashRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ValidateNetworkName validates a network identifier
func ValidateNetworkName(name string) error {
	if name == "" {
		return errors.New("network name cannot be empty")
	}
	if len(name) > 64 {
		return errors.New("network name too long (max 64 chars)")
	}
	if !networkNameRegex.MatchString(name) {
		return errors.New("invalid network name: must start with a letter and contain only letters, digits, '-' or '_'")
	}
	return nil
}

// ValidateCompilerVersion validates a compiler semantic version such as
// 0.8.19 or 0.8.19+commit.7dd6d404
func ValidateCompilerVersion(v string) error {
	normalized := NormalizeVersion(v)
	if normalized == "" {
		return errors.New("compiler version cannot be empty")
	}

	// semver library expects version to start with 'v'
	if !semver.IsValid("v" + normalized) {
		return errors.New("invalid compiler version: must be in format X.Y.Z")
	}

	// semver.IsValid accepts shorthands like v0.8; require all three parts
	mainPart, _, _ := strings.Cut(normalized, "+")
	mainPart, _, _ = strings.Cut(mainPart, "-")
	if strings.Count(mainPart, ".") != 2 {
		return errors.New("invalid compiler version: must be in format X.Y.Z (major.minor.patch)")
	}
	return nil
}

// NormalizeVersion strips a leading 'v'
func NormalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// CompareVersions compares two versions
// Returns -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	return semver.Compare("v"+NormalizeVersion(v1), "v"+NormalizeVersion(v2))
}

// ValidateHost validates a hostname or IP address
func ValidateHost(host string) error {
	if host == "" {
		return errors.New("host cannot be empty")
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if len(host) > 253 {
		return errors.New("host too long (max 253 chars)")
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return errors.New("invalid host: empty or oversized label")
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return errors.New("invalid host: labels cannot start or end with '-'")
		}
		for _, c := range label {
			isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
			if !isAlnum && c != '-' {
				return errors.New("invalid host: contains invalid characters")
			}
		}
	}
	return nil
}

// ValidatePort validates a TCP port
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return errors.New("port must be between 1 and 65535, got " + strconv.Itoa(port))
	}
	return nil
}

// ValidateEndpoint validates an RPC endpoint URL
func ValidateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid endpoint URL")
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return errors.New("endpoint URL must use http, https, ws or wss")
	}
	if u.Host == "" {
		return errors.New("endpoint URL must include a host")
	}
	return nil
}

// ValidateEnvName validates an environment variable name
func ValidateEnvName(name string) error {
	if !envNameRegex.MatchString(name) {
		return errors.New("invalid environment variable name")
	}
	return nil
}

// ValidateDerivationPath validates a BIP-32 derivation path prefix
func ValidateDerivationPath(path string) error {
	if !derivationPathRegex.MatchString(path) {
		return errors.New("invalid derivation path: expected a form like m/44'/60'/0'/0/")
	}
	return nil
}

// ValidateTxHash validates a transaction hash
func ValidateTxHash(hash string) error {
	if !txHashRegex.MatchString(hash) {
		return errors.New("invalid transaction hash: must be 0x followed by 64 hex characters")
	}
	return nil
}
