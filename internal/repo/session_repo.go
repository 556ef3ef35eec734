package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/inkflow/server/internal/model"
)

// SessionRepo provides access to signing sessions. Sessions are never
// deleted; issuing a replacement marks the previous one superseded so the
// old row survives as an audit record.
type SessionRepo interface {
	// CreateOrReplace supersedes any active unsigned session for the field
	// and inserts a new one. Returns ErrConflict if the field already has a
	// signed session.
	CreateOrReplace(ctx context.Context, session model.SigningSession) (model.SigningSession, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (model.SigningSession, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.SigningSession, error)
	// IncrementAttempt atomically bumps the OTP attempt counter and returns
	// the new value, so concurrent guesses cannot both slip under the cap.
	IncrementAttempt(ctx context.Context, id uuid.UUID) (int, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	// MarkSigned flips signed false->true. Returns ErrConflict if the
	// session was already signed.
	MarkSigned(ctx context.Context, id uuid.UUID) error
	AppendAudit(ctx context.Context, id uuid.UUID, entry model.AuditEntry) error
}

type sessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo instance.
func NewSessionRepo(db *sql.DB) SessionRepo {
	return &sessionRepo{db: db}
}

const sessionColumns = `id, field_id, request_id, signer_email, token_hash,
       otp_hash, otp_expires_at, otp_attempts, otp_verified_at,
       signed, signed_at, expires_at, audit_trail, created_at`

func (r *sessionRepo) CreateOrReplace(ctx context.Context, session model.SigningSession) (model.SigningSession, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.SigningSession{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Serialize issuance per field so concurrent requests cannot race the
	// partial unique index on active sessions.
	_, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(1, hashtext($1))`, session.FieldID.String())
	if err != nil {
		return model.SigningSession{}, fmt.Errorf("advisory lock: %w", err)
	}

	var signedExists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM signing_sessions
			WHERE field_id = $1 AND superseded_at IS NULL AND signed = TRUE
		)
	`, session.FieldID.String()).Scan(&signedExists)
	if err != nil {
		return model.SigningSession{}, fmt.Errorf("check signed session: %w", err)
	}
	if signedExists {
		return model.SigningSession{}, fmt.Errorf("field %s already signed: %w", session.FieldID, ErrConflict)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE signing_sessions
		SET superseded_at = now()
		WHERE field_id = $1 AND superseded_at IS NULL
	`, session.FieldID.String())
	if err != nil {
		return model.SigningSession{}, fmt.Errorf("supersede sessions: %w", err)
	}

	audit, err := json.Marshal(session.AuditTrail)
	if err != nil {
		return model.SigningSession{}, fmt.Errorf("marshal audit trail: %w", err)
	}

	var idStr string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO signing_sessions
		    (field_id, request_id, signer_email, token_hash, otp_hash,
		     otp_expires_at, expires_at, audit_trail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, session.FieldID.String(), session.RequestID.String(), session.SignerEmail,
		session.TokenHash, session.OTPHash, session.OTPExpiresAt, session.ExpiresAt, audit).Scan(&idStr)
	if err != nil {
		return model.SigningSession{}, fmt.Errorf("insert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.SigningSession{}, fmt.Errorf("commit: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.SigningSession{}, fmt.Errorf("parse session ID: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *sessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (model.SigningSession, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM signing_sessions
		WHERE token_hash = $1 AND superseded_at IS NULL
	`, tokenHash)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SigningSession{}, fmt.Errorf("session: %w", ErrNotFound)
		}
		return model.SigningSession{}, fmt.Errorf("query session: %w", err)
	}
	return session, nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id uuid.UUID) (model.SigningSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM signing_sessions WHERE id = $1`, id.String())
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SigningSession{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return model.SigningSession{}, fmt.Errorf("query session: %w", err)
	}
	return session, nil
}

func (r *sessionRepo) IncrementAttempt(ctx context.Context, id uuid.UUID) (int, error) {
	var newCount int
	err := r.db.QueryRowContext(ctx, `
		UPDATE signing_sessions
		SET otp_attempts = otp_attempts + 1
		WHERE id = $1
		RETURNING otp_attempts
	`, id.String()).Scan(&newCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return 0, fmt.Errorf("increment attempt: %w", err)
	}
	return newCount, nil
}

func (r *sessionRepo) MarkVerified(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE signing_sessions
		SET otp_verified_at = now()
		WHERE id = $1 AND otp_verified_at IS NULL
	`, id.String())
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	// 0 rows means it was already verified, which is fine: re-verification
	// short-circuits upstream.
	_, _ = result.RowsAffected()
	return nil
}

func (r *sessionRepo) MarkSigned(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE signing_sessions
		SET signed = TRUE, signed_at = now()
		WHERE id = $1 AND signed = FALSE
	`, id.String())
	if err != nil {
		return fmt.Errorf("mark signed: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session %s already signed: %w", id, ErrConflict)
	}
	return nil
}

// AppendAudit appends one entry to the session's denormalized audit trail.
// The append happens server-side so concurrent writers never lose entries to
// a read-modify-write race; signature_events stays the authoritative trail.
func (r *sessionRepo) AppendAudit(ctx context.Context, id uuid.UUID, entry model.AuditEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE signing_sessions
		SET audit_trail = audit_trail || $2::jsonb
		WHERE id = $1
	`, id.String(), payload)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanSession(row rowScanner) (model.SigningSession, error) {
	var session model.SigningSession
	var idStr, fieldIDStr, requestIDStr string
	var audit []byte
	err := row.Scan(
		&idStr,
		&fieldIDStr,
		&requestIDStr,
		&session.SignerEmail,
		&session.TokenHash,
		&session.OTPHash,
		&session.OTPExpiresAt,
		&session.OTPAttempts,
		&session.OTPVerifiedAt,
		&session.Signed,
		&session.SignedAt,
		&session.ExpiresAt,
		&audit,
		&session.CreatedAt,
	)
	if err != nil {
		return model.SigningSession{}, err
	}
	if session.ID, err = uuid.Parse(idStr); err != nil {
		return model.SigningSession{}, fmt.Errorf("parse session ID: %w", err)
	}
	if session.FieldID, err = uuid.Parse(fieldIDStr); err != nil {
		return model.SigningSession{}, fmt.Errorf("parse field ID: %w", err)
	}
	if session.RequestID, err = uuid.Parse(requestIDStr); err != nil {
		return model.SigningSession{}, fmt.Errorf("parse request ID: %w", err)
	}
	if err := json.Unmarshal(audit, &session.AuditTrail); err != nil {
		return model.SigningSession{}, fmt.Errorf("decode audit trail: %w", err)
	}
	return session, nil
}
