package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// NewSecret returns a random url-safe token and the hash to persist for it.
// Only the hash is stored so a leaked database cannot be replayed.
func NewSecret() (token, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("NewSecret: %w", err)
	}
	token = hex.EncodeToString(buf)
	return token, HashSecret(token), nil
}

func HashSecret(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
