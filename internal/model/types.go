package model

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the aggregate signing progress of a SignatureRequest.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestInProgress RequestStatus = "in_progress"
	RequestCompleted  RequestStatus = "completed"
)

// SignatureRequest is one document awaiting one or more signatures.
type SignatureRequest struct {
	ID                    uuid.UUID
	UserID                uuid.UUID
	DocumentName          string
	DocumentPath          string
	CompletedDocumentPath *string
	DocumentHash          *string
	Status                RequestStatus
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// FieldType is the kind of mark a SignatureField expects.
type FieldType string

const (
	FieldSignature FieldType = "signature"
	FieldInitials  FieldType = "initials"
)

// SignatureField is one assigned signing slot on a request. Immutable once created.
type SignatureField struct {
	ID          uuid.UUID
	RequestID   uuid.UUID
	SignerEmail string
	SignerName  *string
	Type        FieldType
	Page        int
	X           float64
	Y           float64
	Width       float64
	Height      float64
	Required    bool
	CreatedAt   time.Time
}

// AuditEntry is one ordered entry in a session's denormalized audit trail.
type AuditEntry struct {
	Event string    `json:"event"`
	At    time.Time `json:"at"`
	Actor string    `json:"actor"`
}

// SigningSession is the authoritative per-signer workflow state. Only hashes
// of the link token and OTP are ever stored.
type SigningSession struct {
	ID            uuid.UUID
	FieldID       uuid.UUID
	RequestID     uuid.UUID
	SignerEmail   string
	TokenHash     string
	OTPHash       string
	OTPExpiresAt  time.Time
	OTPAttempts   int
	OTPVerifiedAt *time.Time
	Signed        bool
	SignedAt      *time.Time
	ExpiresAt     time.Time
	AuditTrail    []AuditEntry
	CreatedAt     time.Time
}

// Signature is the immutable fact of a completed signing act.
type Signature struct {
	ID          uuid.UUID
	FieldID     uuid.UUID
	SignerEmail string
	ImageData   string
	SignedAt    time.Time
	IPAddress   *string
	UserAgent   *string
}

// Event types recorded in the signature_events compliance trail.
const (
	EventSessionCreated  = "session_created"
	EventSessionViewed   = "session_viewed"
	EventOTPVerified     = "otp_verified"
	EventOTPFailed       = "otp_failed"
	EventOTPExpired      = "otp_expired"
	EventDocumentSigned  = "document_signed"
	EventEmailSendFailed = "email_send_failed"
)

// SignatureEvent is one append-only audit log row, retained independently of
// the mutable session row.
type SignatureEvent struct {
	ID         uuid.UUID
	RequestID  uuid.UUID
	SessionID  *uuid.UUID
	EventType  string
	ActorType  string
	ActorEmail *string
	Payload    map[string]any
	CreatedAt  time.Time
}
