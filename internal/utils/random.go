package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// NonceBytes random bytes give a 16 character hex nonce.
const NonceBytes = 8

func GenerateNonce() (string, error) {
	buffer := make([]byte, NonceBytes)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return hex.EncodeToString(buffer), nil
}

func GenerateRandomToken(size int) (string, error) {
	buffer := make([]byte, size)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsLowerHex reports whether s is non-empty and only [0-9a-f].
func IsLowerHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
