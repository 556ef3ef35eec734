package signing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inkflow/server/internal/crypto"
	"github.com/inkflow/server/internal/model"
	"github.com/inkflow/server/internal/repo"
)

// VerifyResult is the outcome of a successful OTP verification.
type VerifyResult struct {
	AccessToken string
	ExpiresIn   int // seconds; 0 when no credential was minted
	Warning     string
}

// VerifyOTP validates a submitted code against the session's stored hash.
// Preconditions are checked top-to-bottom and the first failure wins:
// session exists, session unexpired, OTP unexpired, attempts under the cap,
// hash match. A session already verified short-circuits to success with any
// code, so double submits are harmless.
func (s *Service) VerifyOTP(ctx context.Context, token, code string) (VerifyResult, error) {
	session, err := s.sessions.GetByTokenHash(ctx, crypto.HashString(token))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return VerifyResult{}, fmt.Errorf("session: %w", ErrNotFound)
		}
		return VerifyResult{}, err
	}

	now := time.Now()
	if now.After(session.ExpiresAt) {
		return VerifyResult{}, fmt.Errorf("session: %w", ErrSessionExpired)
	}

	// OTP is single-use: once verified, the stored hash is never re-checked.
	if session.OTPVerifiedAt != nil {
		return s.issueCredential(session)
	}

	if now.After(session.OTPExpiresAt) {
		s.recordEvent(ctx, session.RequestID, &session.ID, model.EventOTPExpired, "signer", &session.SignerEmail, nil)
		return VerifyResult{}, fmt.Errorf("otp: %w", ErrOTPExpired)
	}

	if session.OTPAttempts >= maxOTPAttempts {
		return VerifyResult{}, fmt.Errorf("otp: %w", ErrTooManyAttempts)
	}

	if !crypto.Equal(crypto.HashString(token+":"+code), session.OTPHash) {
		// Atomic increment so concurrent guesses cannot both read the same
		// count and slip under the cap.
		newCount, err := s.sessions.IncrementAttempt(ctx, session.ID)
		if err != nil {
			return VerifyResult{}, err
		}
		_ = s.sessions.AppendAudit(ctx, session.ID, model.AuditEntry{
			Event: model.EventOTPFailed, At: now.UTC(), Actor: "signer",
		})
		s.recordEvent(ctx, session.RequestID, &session.ID, model.EventOTPFailed, "signer", &session.SignerEmail, map[string]any{
			"locked": newCount >= maxOTPAttempts,
		})
		if newCount >= maxOTPAttempts {
			return VerifyResult{}, fmt.Errorf("otp: %w", ErrTooManyAttempts)
		}
		// Remaining-attempt count is deliberately not disclosed.
		return VerifyResult{}, fmt.Errorf("otp: %w", ErrInvalidCode)
	}

	if err := s.sessions.MarkVerified(ctx, session.ID); err != nil {
		return VerifyResult{}, err
	}
	_ = s.sessions.AppendAudit(ctx, session.ID, model.AuditEntry{
		Event: model.EventOTPVerified, At: now.UTC(), Actor: "signer",
	})
	s.recordEvent(ctx, session.RequestID, &session.ID, model.EventOTPVerified, "signer", &session.SignerEmail, nil)

	return s.issueCredential(session)
}

func (s *Service) issueCredential(session model.SigningSession) (VerifyResult, error) {
	if !s.credentials.Enabled() {
		return VerifyResult{
			Warning: "no session secret configured; subsequent calls re-verify the session",
		}, nil
	}
	accessToken, err := s.credentials.Mint(session.ID, session.TokenHash, session.SignerEmail, session.RequestID)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("mint access credential: %w", err)
	}
	return VerifyResult{
		AccessToken: accessToken,
		ExpiresIn:   int(s.credentials.TTL().Seconds()),
	}, nil
}
