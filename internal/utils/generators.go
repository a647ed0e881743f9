package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// GenerateID returns a new random identifier for tickets, groups and applications.
func GenerateID() string {
	return uuid.NewString()
}

// GenerateToken returns a URL-safe random token of n bytes of entropy.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
