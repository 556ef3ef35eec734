package signing

import (
	"context"

	"go.uber.org/zap"

	"github.com/inkflow/server/internal/auth"
	"github.com/inkflow/server/internal/config"
	"github.com/inkflow/server/internal/mail"
	"github.com/inkflow/server/internal/model"
	"github.com/inkflow/server/internal/pdf"
	"github.com/inkflow/server/internal/repo"
	"github.com/inkflow/server/internal/storage"
	"github.com/google/uuid"
)

const maxOTPAttempts = 5

// Stamper is the document mutation dependency of the completion service.
type Stamper interface {
	Sign(original []byte, img pdf.SignatureImage, p pdf.Placement, cert pdf.CertificateData) ([]byte, error)
}

// Service implements the e-signature workflow: session issuance, lookup,
// OTP verification and signature completion. It is stateless; every call
// re-reads persisted state.
type Service struct {
	cfg         *config.Config
	requests    repo.RequestRepo
	fields      repo.FieldRepo
	sessions    repo.SessionRepo
	signatures  repo.SignatureRepo
	events      repo.EventRepo
	locker      repo.Locker
	blobs       storage.BlobStore
	mailer      mail.Mailer
	stamper     Stamper
	credentials *auth.CredentialService
	logger      *zap.Logger
}

// NewService wires the signing workflow service.
func NewService(
	cfg *config.Config,
	requests repo.RequestRepo,
	fields repo.FieldRepo,
	sessions repo.SessionRepo,
	signatures repo.SignatureRepo,
	events repo.EventRepo,
	locker repo.Locker,
	blobs storage.BlobStore,
	mailer mail.Mailer,
	stamper Stamper,
	credentials *auth.CredentialService,
	logger *zap.Logger,
) *Service {
	return &Service{
		cfg:         cfg,
		requests:    requests,
		fields:      fields,
		sessions:    sessions,
		signatures:  signatures,
		events:      events,
		locker:      locker,
		blobs:       blobs,
		mailer:      mailer,
		stamper:     stamper,
		credentials: credentials,
		logger:      logger.With(zap.String("service", "signing")),
	}
}

// recordEvent appends to the durable compliance trail. Event insertion
// failures are logged, not propagated: losing one event row must not fail
// the signer-facing operation that already happened.
func (s *Service) recordEvent(ctx context.Context, requestID uuid.UUID, sessionID *uuid.UUID, eventType, actorType string, actorEmail *string, payload map[string]any) {
	err := s.events.Insert(ctx, model.SignatureEvent{
		RequestID:  requestID,
		SessionID:  sessionID,
		EventType:  eventType,
		ActorType:  actorType,
		ActorEmail: actorEmail,
		Payload:    payload,
	})
	if err != nil {
		s.logger.Error("failed to record signature event",
			zap.String("event_type", eventType),
			zap.String("request_id", requestID.String()),
			zap.Error(err))
	}
}
