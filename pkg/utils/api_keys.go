package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const ApiKeyPrefix = "ak_"

func GenerateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	// err == nil only if len(b) bytes were read.
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return ApiKeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// HashKey returns the digest stored in place of the raw API key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
