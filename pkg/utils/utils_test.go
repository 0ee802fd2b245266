package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCipherRoundTrip(t *testing.T) {
	c, err := NewTokenCipher("a secret of any length")
	require.NoError(t, err)

	for _, plaintext := range []string{"access-token-123", "ünïcode ✓", strings.Repeat("x", 4096)} {
		enc, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, enc)

		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, plaintext, dec)
	}
}

func TestTokenCipherNonceIsRandom(t *testing.T) {
	c, err := NewTokenCipher("k")
	require.NoError(t, err)

	a, _ := c.Encrypt("same")
	b, _ := c.Encrypt("same")
	assert.NotEqual(t, a, b)
}

func TestTokenCipherRejectsWrongKeyAndTampering(t *testing.T) {
	c1, _ := NewTokenCipher("key-one")
	c2, _ := NewTokenCipher("key-two")

	enc, err := c1.Encrypt("secret")
	require.NoError(t, err)

	_, err = c2.Decrypt(enc)
	assert.Error(t, err)

	_, err = c1.Decrypt("dG9vc2hvcnQ=")
	assert.Error(t, err)

	_, err = c1.Decrypt("not base64!")
	assert.Error(t, err)
}

func TestTokenCipherEmpty(t *testing.T) {
	_, err := NewTokenCipher("")
	assert.Error(t, err)

	c, _ := NewTokenCipher("k")
	enc, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", enc)
}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("secret", "42", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)

	_, err = ValidateToken("other", token)
	assert.Error(t, err)

	expired, err := GenerateToken("secret", "42", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken("secret", expired)
	assert.Error(t, err)
}

func TestGenerateRandomKeyAndHash(t *testing.T) {
	k1, err := GenerateRandomKey(16)
	require.NoError(t, err)
	k2, _ := GenerateRandomKey(16)

	assert.True(t, strings.HasPrefix(k1, ApiKeyPrefix))
	assert.NotEqual(t, k1, k2)
	assert.Len(t, HashKey(k1), 64)
	assert.Equal(t, HashKey(k1), HashKey(k1))
	assert.NotEqual(t, HashKey(k1), HashKey(k2))
}
