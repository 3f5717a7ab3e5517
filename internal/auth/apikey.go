package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// KeyPrefix is the prefix for all API keys
	KeyPrefix = "np_key_"
	// KeyLength is the length of the random part of the key
	KeyLength = 32
)

// ErrInvalidKey is returned for keys that match no configured hash.
var ErrInvalidKey = errors.New("invalid API key")

// Key identifies an authenticated caller. ID is a short prefix of the key's
// hash, safe to log.
type Key struct {
	ID string
}

// KeyValidator validates presented API keys.
type KeyValidator interface {
	ValidateAPIKey(ctx context.Context, key string) (*Key, error)
}

// GenerateAPIKey generates a new API key.
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, KeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(bytes), nil
}

// HashAPIKey hashes an API key for configuration.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// StaticKeys accepts the keys whose SHA-256 digests were configured. The
// server never sees the keys themselves until a client presents one.
type StaticKeys struct {
	hashes [][]byte
}

// NewStaticKeys builds a validator from hex-encoded SHA-256 digests.
func NewStaticKeys(hexHashes []string) (*StaticKeys, error) {
	s := &StaticKeys{}
	for _, h := range hexHashes {
		b, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(h)))
		if err != nil || len(b) != sha256.Size {
			return nil, fmt.Errorf("invalid API key hash %q", h)
		}
		s.hashes = append(s.hashes, b)
	}
	return s, nil
}

// ValidateAPIKey implements KeyValidator.
func (s *StaticKeys) ValidateAPIKey(ctx context.Context, key string) (*Key, error) {
	sum := sha256.Sum256([]byte(key))
	for _, h := range s.hashes {
		if subtle.ConstantTimeCompare(sum[:], h) == 1 {
			return &Key{ID: hex.EncodeToString(h[:4])}, nil
		}
	}
	return nil, ErrInvalidKey
}
