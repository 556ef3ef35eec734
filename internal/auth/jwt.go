package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CredentialClaims are the claims carried by a signing access credential.
// TokenHash binds the credential to one session's link token so a credential
// minted for session A cannot be replayed against session B.
type CredentialClaims struct {
	SessionID   uuid.UUID `json:"session_id"`
	TokenHash   string    `json:"token_hash"`
	SignerEmail string    `json:"signer_email"`
	RequestID   uuid.UUID `json:"request_id"`
	jwt.RegisteredClaims
}

// CredentialService mints and verifies the short-lived HMAC-signed access
// credentials issued after OTP verification.
type CredentialService struct {
	secret []byte
	ttl    time.Duration
}

// NewCredentialService creates a credential service. An empty secret is a
// valid degraded configuration: Enabled reports false and no credentials
// are minted.
func NewCredentialService(secret string, ttl time.Duration) *CredentialService {
	return &CredentialService{secret: []byte(secret), ttl: ttl}
}

// Enabled reports whether a session secret is configured.
func (s *CredentialService) Enabled() bool {
	return len(s.secret) > 0
}

// TTL returns the credential lifetime.
func (s *CredentialService) TTL() time.Duration {
	return s.ttl
}

// Mint creates a signed access credential scoped to one verified session.
func (s *CredentialService) Mint(sessionID uuid.UUID, tokenHash, signerEmail string, requestID uuid.UUID) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("no session secret configured")
	}
	now := time.Now()
	claims := &CredentialClaims{
		SessionID:   sessionID,
		TokenHash:   tokenHash,
		SignerEmail: signerEmail,
		RequestID:   requestID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access credential: %w", err)
	}
	return signed, nil
}

// Verify parses and validates an access credential. It fails closed: any
// malformed structure, bad signature or expired token yields a nil claims
// value and an error.
func (s *CredentialService) Verify(tokenString string) (*CredentialClaims, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("no session secret configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &CredentialClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse access credential: %w", err)
	}

	claims, ok := token.Claims.(*CredentialClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access credential")
	}
	return claims, nil
}

// OwnerID derives the stable account id for an owner email. Tokens minted
// out-of-band (signctl) and rows ensured by the API agree on the same id.
func OwnerID(email string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(email))
}

// OwnerClaims are the claims of the owner-facing bearer token.
type OwnerClaims struct {
	UserID uuid.UUID `json:"sub"`
	Email  string    `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// OwnerTokenService issues and verifies the bearer tokens document owners
// present to the privileged endpoints.
type OwnerTokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewOwnerTokenService creates an owner token service.
func NewOwnerTokenService(secret string, ttl time.Duration) *OwnerTokenService {
	return &OwnerTokenService{secret: []byte(secret), ttl: ttl}
}

// Sign creates an owner bearer token.
func (s *OwnerTokenService) Sign(userID uuid.UUID, email string) (string, error) {
	now := time.Now()
	claims := &OwnerClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign owner token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates an owner bearer token.
func (s *OwnerTokenService) Verify(tokenString string) (*OwnerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OwnerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse owner token: %w", err)
	}

	claims, ok := token.Claims.(*OwnerClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid owner token")
	}
	return claims, nil
}
