package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// tokenScheme prefixes every raw API token so leaked tokens are recognizable
// in logs and secret scanners.
const tokenScheme = "fb_"

// prefixLen is how many characters of the raw token are stored in clear for
// listing. Enough to tell tokens apart, not enough to guess the rest.
const prefixLen = 11

// GenerateToken returns a new raw API token and its display prefix. Only the
// hash of the raw token is ever persisted.
func GenerateToken() (raw, prefix string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	raw = tokenScheme + hex.EncodeToString(buf)
	return raw, raw[:prefixLen], nil
}

// HashToken returns the hex SHA-256 digest of a raw token, the form stored
// and looked up in the database.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ValidTokenFormat reports whether a bearer credential even looks like one of
// our tokens, letting the auth layer skip a database hit for garbage input.
func ValidTokenFormat(raw string) bool {
	if !strings.HasPrefix(raw, tokenScheme) {
		return false
	}
	body := raw[len(tokenScheme):]
	if len(body) != 64 {
		return false
	}
	_, err := hex.DecodeString(body)
	return err == nil
}
