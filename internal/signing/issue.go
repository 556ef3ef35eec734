package signing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkflow/server/internal/crypto"
	"github.com/inkflow/server/internal/mail"
	"github.com/inkflow/server/internal/model"
	"github.com/inkflow/server/internal/repo"
)

const linkTokenSize = 32

// IssueInput is an authenticated owner's request to invite a signer.
type IssueInput struct {
	OwnerID     uuid.UUID
	RequestID   uuid.UUID
	SignerEmail string
	SignerName  string
}

// IssueResult carries the plaintext link token back to the caller for link
// construction. The OTP is never returned; it travels only by email.
type IssueResult struct {
	SessionID   uuid.UUID
	Token       string
	RequestID   uuid.UUID
	SignerEmail string
	ExpiresAt   time.Time
}

// Issue creates a signing session for a signer already assigned a field on
// the request, emails them the link and OTP, and moves the request into
// in_progress. Email dispatch failure does not fail issuance.
func (s *Service) Issue(ctx context.Context, in IssueInput) (IssueResult, error) {
	request, err := s.requests.GetByID(ctx, in.RequestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return IssueResult{}, fmt.Errorf("request %s: %w", in.RequestID, ErrNotFound)
		}
		return IssueResult{}, err
	}
	if request.UserID != in.OwnerID {
		return IssueResult{}, fmt.Errorf("request %s: %w", in.RequestID, ErrForbidden)
	}

	// Issuance never invents fields; the signer must already be assigned.
	field, err := s.fields.GetByRequestAndEmail(ctx, in.RequestID, in.SignerEmail)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return IssueResult{}, fmt.Errorf("no field assigned to %s: %w", mail.MaskEmail(in.SignerEmail), ErrNotFound)
		}
		return IssueResult{}, err
	}

	token, err := crypto.RandomToken(linkTokenSize)
	if err != nil {
		return IssueResult{}, fmt.Errorf("generate link token: %w", err)
	}
	otp, err := crypto.RandomOTP()
	if err != nil {
		return IssueResult{}, fmt.Errorf("generate otp: %w", err)
	}

	now := time.Now()
	session := model.SigningSession{
		FieldID:     field.ID,
		RequestID:   request.ID,
		SignerEmail: field.SignerEmail,
		// Only hashes persist. Binding the OTP hash to the token prevents a
		// captured OTP from being replayed against a different session.
		TokenHash:    crypto.HashString(token),
		OTPHash:      crypto.HashString(token + ":" + otp),
		OTPExpiresAt: now.Add(s.cfg.OTPTTL),
		ExpiresAt:    now.Add(s.cfg.SessionTTL),
		AuditTrail: []model.AuditEntry{
			{Event: model.EventSessionCreated, At: now.UTC(), Actor: "owner"},
		},
	}

	created, err := s.sessions.CreateOrReplace(ctx, session)
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return IssueResult{}, fmt.Errorf("field already signed: %w", ErrAlreadySigned)
		}
		return IssueResult{}, err
	}

	s.recordEvent(ctx, request.ID, &created.ID, model.EventSessionCreated, "owner", &field.SignerEmail, map[string]any{
		"field_id": field.ID.String(),
	})

	if err := s.sendInvite(ctx, request, field, in.SignerName, token, otp); err != nil {
		// Non-fatal: the owner can hand the link over out-of-band.
		s.logger.Warn("signing invite email failed",
			zap.String("request_id", request.ID.String()),
			zap.String("signer", mail.MaskEmail(field.SignerEmail)),
			zap.Error(err))
		s.recordEvent(ctx, request.ID, &created.ID, model.EventEmailSendFailed, "system", &field.SignerEmail, map[string]any{
			"error": err.Error(),
		})
	}

	if request.Status == model.RequestPending {
		if err := s.requests.SetStatus(ctx, request.ID, model.RequestInProgress); err != nil {
			return IssueResult{}, err
		}
	}

	return IssueResult{
		SessionID:   created.ID,
		Token:       token,
		RequestID:   request.ID,
		SignerEmail: field.SignerEmail,
		ExpiresAt:   created.ExpiresAt,
	}, nil
}

func (s *Service) sendInvite(ctx context.Context, request model.SignatureRequest, field model.SignatureField, signerName, token, otp string) error {
	name := signerName
	if name == "" && field.SignerName != nil {
		name = *field.SignerName
	}
	if name == "" {
		name = "there"
	}
	link := fmt.Sprintf("%s/sign/%s", s.cfg.SigningBaseURL, token)

	html := fmt.Sprintf(`<p>Hi %s,</p>
<p>You have been asked to sign <strong>%s</strong>.</p>
<p><a href="%s">Open the document to sign</a></p>
<p>Your verification code is <strong>%s</strong>. It expires in %d minutes.</p>
<p>The signing link itself expires on %s.</p>`,
		name, request.DocumentName, link, otp,
		int(s.cfg.OTPTTL.Minutes()), time.Now().Add(s.cfg.SessionTTL).UTC().Format("Jan 2, 2006"))

	return s.mailer.Send(ctx, mail.Message{
		From:    s.cfg.MailFrom,
		To:      field.SignerEmail,
		Subject: fmt.Sprintf("Signature requested: %s", request.DocumentName),
		HTML:    html,
	})
}
