package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialService_roundTrip(t *testing.T) {
	svc := NewCredentialService("test-secret-at-least-32-characters!!", 30*time.Minute)
	require.True(t, svc.Enabled())

	sessionID := uuid.New()
	requestID := uuid.New()
	tok, err := svc.Mint(sessionID, "abcd1234", "alice@example.com", requestID)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, sessionID, claims.SessionID)
	assert.Equal(t, requestID, claims.RequestID)
	assert.Equal(t, "abcd1234", claims.TokenHash)
	assert.Equal(t, "alice@example.com", claims.SignerEmail)
}

func TestCredentialService_wrongSecret(t *testing.T) {
	a := NewCredentialService("secret-a-secret-a-secret-a-secret-a", 30*time.Minute)
	b := NewCredentialService("secret-b-secret-b-secret-b-secret-b", 30*time.Minute)

	tok, err := a.Mint(uuid.New(), "hash", "alice@example.com", uuid.New())
	require.NoError(t, err)

	claims, err := b.Verify(tok)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestCredentialService_expired(t *testing.T) {
	svc := NewCredentialService("test-secret-at-least-32-characters!!", -time.Minute)

	tok, err := svc.Mint(uuid.New(), "hash", "alice@example.com", uuid.New())
	require.NoError(t, err)

	claims, err := svc.Verify(tok)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestCredentialService_malformed(t *testing.T) {
	svc := NewCredentialService("test-secret-at-least-32-characters!!", 30*time.Minute)
	for _, tok := range []string{"", "garbage", "a.b", "a.b.c"} {
		claims, err := svc.Verify(tok)
		assert.Error(t, err, "token %q must not verify", tok)
		assert.Nil(t, claims)
	}
}

func TestCredentialService_disabledWithoutSecret(t *testing.T) {
	svc := NewCredentialService("", 30*time.Minute)
	assert.False(t, svc.Enabled())

	_, err := svc.Mint(uuid.New(), "hash", "alice@example.com", uuid.New())
	assert.Error(t, err)
	_, err = svc.Verify("anything")
	assert.Error(t, err)
}

func TestOwnerTokenService_roundTrip(t *testing.T) {
	svc := NewOwnerTokenService("owner-secret-owner-secret-owner!!", 24*time.Hour)

	userID := uuid.New()
	tok, err := svc.Sign(userID, "owner@example.com")
	require.NoError(t, err)

	claims, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "owner@example.com", claims.Email)
}
