package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/inkflow/server/internal/model"
)

// SignatureRepo records completed signing acts. Rows are append-only.
type SignatureRepo interface {
	Create(ctx context.Context, sig model.Signature) (uuid.UUID, error)
}

type signatureRepo struct {
	db *sql.DB
}

// NewSignatureRepo creates a new SignatureRepo instance.
func NewSignatureRepo(db *sql.DB) SignatureRepo {
	return &signatureRepo{db: db}
}

func (r *signatureRepo) Create(ctx context.Context, sig model.Signature) (uuid.UUID, error) {
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO signatures (field_id, signer_email, image_data, signed_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, sig.FieldID.String(), sig.SignerEmail, sig.ImageData, sig.SignedAt, sig.IPAddress, sig.UserAgent).Scan(&idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert signature: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse signature ID: %w", err)
	}
	return id, nil
}
