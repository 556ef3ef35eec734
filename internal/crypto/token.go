package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

const otpRange = 900000 // codes drawn from [100000, 999999]

// RandomToken returns a cryptographically secure random token of size bytes,
// rendered as 2*size hex characters. Used for signing link tokens.
func RandomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// RandomOTP returns a uniformly random 6-digit numeric code.
func RandomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", fmt.Errorf("read random int: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// HashValue returns the SHA-256 digest of input as hex. Link tokens and
// token-bound OTP codes are stored only through this, and the same digest
// doubles as the integrity fingerprint of signed documents.
func HashValue(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

// HashString is HashValue over a string.
func HashString(input string) string {
	return HashValue([]byte(input))
}

// Equal compares two hex digests in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
