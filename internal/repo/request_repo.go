package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/inkflow/server/internal/model"
)

// RequestRepo provides access to signature requests.
type RequestRepo interface {
	Create(ctx context.Context, userID uuid.UUID, documentName, documentPath string) (model.SignatureRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.SignatureRequest, error)
	SetStatus(ctx context.Context, id uuid.UUID, status model.RequestStatus) error
	// RecomputeStatus derives the aggregate status from the signed state of
	// every field's active session in a single conditional UPDATE, records
	// the latest signed artifact, and returns the resulting status. It is
	// idempotent under concurrent signers finishing near-simultaneously.
	RecomputeStatus(ctx context.Context, id uuid.UUID, completedPath, documentHash string) (model.RequestStatus, error)
}

type requestRepo struct {
	db *sql.DB
}

// NewRequestRepo creates a new RequestRepo instance.
func NewRequestRepo(db *sql.DB) RequestRepo {
	return &requestRepo{db: db}
}

func (r *requestRepo) Create(ctx context.Context, userID uuid.UUID, documentName, documentPath string) (model.SignatureRequest, error) {
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO signature_requests (user_id, document_name, document_path)
		VALUES ($1, $2, $3)
		RETURNING id
	`, userID.String(), documentName, documentPath).Scan(&idStr)
	if err != nil {
		return model.SignatureRequest{}, fmt.Errorf("insert request: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.SignatureRequest{}, fmt.Errorf("parse request ID: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *requestRepo) GetByID(ctx context.Context, id uuid.UUID) (model.SignatureRequest, error) {
	query := `
		SELECT id, user_id, document_name, document_path,
		       completed_document_path, document_hash, status, created_at, updated_at
		FROM signature_requests
		WHERE id = $1
	`
	var req model.SignatureRequest
	var idStr, userIDStr, status string
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&idStr,
		&userIDStr,
		&req.DocumentName,
		&req.DocumentPath,
		&req.CompletedDocumentPath,
		&req.DocumentHash,
		&status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SignatureRequest{}, fmt.Errorf("request %s: %w", id, ErrNotFound)
		}
		return model.SignatureRequest{}, fmt.Errorf("query request: %w", err)
	}
	if req.ID, err = uuid.Parse(idStr); err != nil {
		return model.SignatureRequest{}, fmt.Errorf("parse request ID: %w", err)
	}
	if req.UserID, err = uuid.Parse(userIDStr); err != nil {
		return model.SignatureRequest{}, fmt.Errorf("parse user ID: %w", err)
	}
	req.Status = model.RequestStatus(status)
	return req, nil
}

func (r *requestRepo) SetStatus(ctx context.Context, id uuid.UUID, status model.RequestStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE signature_requests SET status = $2, updated_at = now() WHERE id = $1
	`, id.String(), string(status))
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	return nil
}

// RecomputeStatus checks, inside the UPDATE itself, whether any field of the
// request still lacks a signed active session. No client-side read-then-write,
// so two signers completing concurrently both converge on the correct status.
func (r *requestRepo) RecomputeStatus(ctx context.Context, id uuid.UUID, completedPath, documentHash string) (model.RequestStatus, error) {
	query := `
		UPDATE signature_requests req
		SET status = CASE WHEN NOT EXISTS (
		        SELECT 1
		        FROM signature_fields f
		        LEFT JOIN signing_sessions s
		          ON s.field_id = f.id AND s.superseded_at IS NULL AND s.signed = TRUE
		        WHERE f.request_id = req.id AND s.id IS NULL
		    ) THEN 'completed' ELSE 'in_progress' END,
		    completed_document_path = $2,
		    document_hash = $3,
		    updated_at = now()
		WHERE req.id = $1
		RETURNING status
	`
	var status string
	err := r.db.QueryRowContext(ctx, query, id.String(), completedPath, documentHash).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("request %s: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("recompute request status: %w", err)
	}
	return model.RequestStatus(status), nil
}
