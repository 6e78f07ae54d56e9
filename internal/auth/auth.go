package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/voxkit/datamap/internal/pkg/config"
)

// Authenticator validates bearer API keys against configured SHA-256
// hashes.
type Authenticator struct {
	keyHashes []string
}

// NewAuthenticator creates an authenticator from configured keys.
func NewAuthenticator(keys []config.APIKeyConfig) *Authenticator {
	a := &Authenticator{}
	for _, k := range keys {
		if k.KeyHash != "" {
			a.keyHashes = append(a.keyHashes, strings.ToLower(k.KeyHash))
		}
	}
	return a
}

// HasKeys reports whether any keys are configured; with none, the server
// runs in open mode and the auth middleware is not installed.
func (a *Authenticator) HasKeys() bool {
	return len(a.keyHashes) > 0
}

// ValidateAPIKey checks the provided key against the configured hashes.
func (a *Authenticator) ValidateAPIKey(apiKey string) error {
	hash := HashAPIKey(apiKey)

	// Constant-time comparison to prevent timing attacks.
	for _, known := range a.keyHashes {
		if subtle.ConstantTimeCompare([]byte(hash), []byte(known)) == 1 {
			return nil
		}
	}

	return fmt.Errorf("invalid API key")
}

// ExtractAPIKey extracts the API key from the Authorization header.
func ExtractAPIKey(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	// Support "Bearer <key>" format
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	if strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("unsupported authorization scheme")
	}

	return parts[1], nil
}

// HashAPIKey creates a SHA-256 hash of an API key for storage.
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}
