package signing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inkflow/server/internal/crypto"
	"github.com/inkflow/server/internal/mail"
	"github.com/inkflow/server/internal/model"
	"github.com/inkflow/server/internal/pdf"
	"github.com/inkflow/server/internal/repo"
)

// CompleteInput is a verified signer's request to stamp their signature.
// IPAddress and UserAgent are resolved by the transport layer; the
// client-supplied values are never trusted alone for the audit record.
type CompleteInput struct {
	Token           string
	AccessToken     string
	SignatureData   string // base64 data URL, PNG or JPEG
	SignerName      string
	IPAddress       string
	UserAgent       string
	ConsentAccepted bool
}

// CompleteResult reports the signed artifact.
type CompleteResult struct {
	DocumentHash string
	DownloadPath string
	Status       model.RequestStatus
}

// Complete stamps the signature into the document, appends the audit
// certificate page, persists the signed artifact and recomputes the
// request's aggregate status. The session is marked signed only after the
// upload succeeded, so a storage failure commits no partial state.
func (s *Service) Complete(ctx context.Context, in CompleteInput) (CompleteResult, error) {
	if !in.ConsentAccepted {
		return CompleteResult{}, fmt.Errorf("consent: %w", ErrConsentRequired)
	}

	tokenHash := crypto.HashString(in.Token)

	if s.credentials.Enabled() {
		claims, err := s.credentials.Verify(in.AccessToken)
		if err != nil {
			return CompleteResult{}, fmt.Errorf("access credential: %w", ErrInvalidCredential)
		}
		// A credential minted for session A must not unlock session B.
		if !crypto.Equal(claims.TokenHash, tokenHash) {
			return CompleteResult{}, fmt.Errorf("access credential scope: %w", ErrInvalidCredential)
		}
	}

	session, err := s.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CompleteResult{}, fmt.Errorf("session: %w", ErrNotFound)
		}
		return CompleteResult{}, err
	}
	if session.OTPVerifiedAt == nil {
		return CompleteResult{}, fmt.Errorf("session: %w", ErrNotVerified)
	}
	if session.Signed {
		return CompleteResult{}, fmt.Errorf("session: %w", ErrAlreadySigned)
	}
	if time.Now().After(session.ExpiresAt) {
		return CompleteResult{}, fmt.Errorf("session: %w", ErrSessionExpired)
	}

	img, err := pdf.DecodeSignatureImage(in.SignatureData)
	if err != nil {
		return CompleteResult{}, fmt.Errorf("signature image: %w", err)
	}

	field, err := s.fields.GetByID(ctx, session.FieldID)
	if err != nil {
		return CompleteResult{}, err
	}
	request, err := s.requests.GetByID(ctx, session.RequestID)
	if err != nil {
		return CompleteResult{}, err
	}

	// Serialize completions per request: two fields on the same document
	// finishing concurrently would otherwise race on the completed artifact.
	release, err := s.locker.AcquireRequestLock(ctx, request.ID)
	if err != nil {
		return CompleteResult{}, fmt.Errorf("acquire request lock: %w", err)
	}
	defer release()

	// Re-read under the lock; another attempt may have finished first.
	session, err = s.sessions.GetByID(ctx, session.ID)
	if err != nil {
		return CompleteResult{}, err
	}
	if session.Signed {
		return CompleteResult{}, fmt.Errorf("session: %w", ErrAlreadySigned)
	}

	// Stamp the latest artifact so earlier signers' marks are preserved.
	sourcePath := request.DocumentPath
	if request.CompletedDocumentPath != nil && *request.CompletedDocumentPath != "" {
		sourcePath = *request.CompletedDocumentPath
	}
	original, err := s.blobs.Download(ctx, sourcePath)
	if err != nil {
		return CompleteResult{}, fmt.Errorf("download document: %w", err)
	}

	signedAt := time.Now().UTC()
	signerName := in.SignerName
	if signerName == "" && field.SignerName != nil {
		signerName = *field.SignerName
	}
	signedBytes, err := s.stamper.Sign(original, img,
		pdf.Placement{Page: field.Page, X: field.X, Y: field.Y, Width: field.Width, Height: field.Height},
		pdf.CertificateData{
			DocumentName: request.DocumentName,
			SignerName:   signerName,
			SignerEmail:  session.SignerEmail,
			SignedAt:     signedAt,
			IPAddress:    in.IPAddress,
			UserAgent:    in.UserAgent,
		})
	if err != nil {
		return CompleteResult{}, fmt.Errorf("stamp document: %w", err)
	}

	// Integrity fingerprint of the final signed artifact, not the original.
	documentHash := crypto.HashValue(signedBytes)
	downloadPath := fmt.Sprintf("completed/%s.pdf", request.ID)

	if err := s.blobs.Upload(ctx, downloadPath, signedBytes); err != nil {
		return CompleteResult{}, fmt.Errorf("upload signed document: %w", err)
	}

	var ip, ua *string
	if in.IPAddress != "" {
		ip = &in.IPAddress
	}
	if in.UserAgent != "" {
		ua = &in.UserAgent
	}
	if _, err := s.signatures.Create(ctx, model.Signature{
		FieldID:     field.ID,
		SignerEmail: session.SignerEmail,
		ImageData:   in.SignatureData,
		SignedAt:    signedAt,
		IPAddress:   ip,
		UserAgent:   ua,
	}); err != nil {
		return CompleteResult{}, err
	}

	if err := s.sessions.MarkSigned(ctx, session.ID); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return CompleteResult{}, fmt.Errorf("session: %w", ErrAlreadySigned)
		}
		return CompleteResult{}, err
	}
	_ = s.sessions.AppendAudit(ctx, session.ID, model.AuditEntry{
		Event: model.EventDocumentSigned, At: signedAt, Actor: "signer",
	})
	s.recordEvent(ctx, request.ID, &session.ID, model.EventDocumentSigned, "signer", &session.SignerEmail, map[string]any{
		"document_hash": documentHash,
		"ip_address":    in.IPAddress,
		"user_agent":    in.UserAgent,
	})

	status, err := s.requests.RecomputeStatus(ctx, request.ID, downloadPath, documentHash)
	if err != nil {
		return CompleteResult{}, err
	}

	s.logger.Info("signature completed",
		zap.String("request_id", request.ID.String()),
		zap.String("signer", mail.MaskEmail(session.SignerEmail)),
		zap.String("status", string(status)))

	return CompleteResult{
		DocumentHash: documentHash,
		DownloadPath: downloadPath,
		Status:       status,
	}, nil
}
