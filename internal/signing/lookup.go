package signing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkflow/server/internal/crypto"
	"github.com/inkflow/server/internal/mail"
	"github.com/inkflow/server/internal/model"
	"github.com/inkflow/server/internal/repo"
)

// LookupResult is the privacy-redacted signer-facing view of a session.
// It never carries the stored hashes or the raw signer email.
type LookupResult struct {
	RequestID        uuid.UUID
	DocumentName     string
	DocumentPath     string
	Signer           string // masked, e.g. al***@example.com
	Status           model.RequestStatus
	ExpiresAt        time.Time
	SignedAt         *time.Time
	OTPVerified      bool
	Completed        bool
	AuditTrailLength int
}

// Lookup resolves an unauthenticated signer's link token into a redacted
// session view. Reads are idempotent but still observable: every call
// records a session_viewed event for the compliance trail.
func (s *Service) Lookup(ctx context.Context, token string) (LookupResult, error) {
	session, err := s.sessions.GetByTokenHash(ctx, crypto.HashString(token))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return LookupResult{}, fmt.Errorf("session: %w", ErrNotFound)
		}
		return LookupResult{}, err
	}
	if time.Now().After(session.ExpiresAt) {
		return LookupResult{}, fmt.Errorf("session: %w", ErrSessionExpired)
	}

	request, err := s.requests.GetByID(ctx, session.RequestID)
	if err != nil {
		return LookupResult{}, err
	}

	if err := s.sessions.AppendAudit(ctx, session.ID, model.AuditEntry{
		Event: model.EventSessionViewed,
		At:    time.Now().UTC(),
		Actor: "signer",
	}); err != nil {
		return LookupResult{}, err
	}
	s.recordEvent(ctx, session.RequestID, &session.ID, model.EventSessionViewed, "signer", &session.SignerEmail, nil)

	return LookupResult{
		RequestID:        request.ID,
		DocumentName:     request.DocumentName,
		DocumentPath:     request.DocumentPath,
		Signer:           mail.MaskEmail(session.SignerEmail),
		Status:           request.Status,
		ExpiresAt:        session.ExpiresAt,
		SignedAt:         session.SignedAt,
		OTPVerified:      session.OTPVerifiedAt != nil,
		Completed:        session.Signed,
		AuditTrailLength: len(session.AuditTrail) + 1, // including this view
	}, nil
}
