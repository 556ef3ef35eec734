package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/inkflow/server/internal/model"
)

// FieldRepo provides access to signature fields.
type FieldRepo interface {
	Create(ctx context.Context, field model.SignatureField) (model.SignatureField, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.SignatureField, error)
	// GetByRequestAndEmail returns the first field assigned to the signer on
	// the request; issuance refuses to invent fields that were never assigned.
	GetByRequestAndEmail(ctx context.Context, requestID uuid.UUID, signerEmail string) (model.SignatureField, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.SignatureField, error)
}

type fieldRepo struct {
	db *sql.DB
}

// NewFieldRepo creates a new FieldRepo instance.
func NewFieldRepo(db *sql.DB) FieldRepo {
	return &fieldRepo{db: db}
}

const fieldColumns = `id, request_id, signer_email, signer_name, field_type,
       page, x, y, width, height, required, created_at`

func (r *fieldRepo) Create(ctx context.Context, field model.SignatureField) (model.SignatureField, error) {
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO signature_fields
		    (request_id, signer_email, signer_name, field_type, page, x, y, width, height, required)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, field.RequestID.String(), field.SignerEmail, field.SignerName, string(field.Type),
		field.Page, field.X, field.Y, field.Width, field.Height, field.Required).Scan(&idStr)
	if err != nil {
		return model.SignatureField{}, fmt.Errorf("insert field: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.SignatureField{}, fmt.Errorf("parse field ID: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *fieldRepo) GetByID(ctx context.Context, id uuid.UUID) (model.SignatureField, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+fieldColumns+` FROM signature_fields WHERE id = $1`, id.String())
	field, err := scanField(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SignatureField{}, fmt.Errorf("field %s: %w", id, ErrNotFound)
		}
		return model.SignatureField{}, fmt.Errorf("query field: %w", err)
	}
	return field, nil
}

func (r *fieldRepo) GetByRequestAndEmail(ctx context.Context, requestID uuid.UUID, signerEmail string) (model.SignatureField, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+fieldColumns+`
		FROM signature_fields
		WHERE request_id = $1 AND lower(signer_email) = lower($2)
		ORDER BY created_at
		LIMIT 1
	`, requestID.String(), signerEmail)
	field, err := scanField(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SignatureField{}, fmt.Errorf("no field for %s on request %s: %w", signerEmail, requestID, ErrNotFound)
		}
		return model.SignatureField{}, fmt.Errorf("query field: %w", err)
	}
	return field, nil
}

func (r *fieldRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.SignatureField, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+fieldColumns+`
		FROM signature_fields
		WHERE request_id = $1
		ORDER BY created_at
	`, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	var fields []model.SignatureField
	for rows.Next() {
		field, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		fields = append(fields, field)
	}
	return fields, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanField(row rowScanner) (model.SignatureField, error) {
	var field model.SignatureField
	var idStr, requestIDStr, fieldType string
	err := row.Scan(
		&idStr,
		&requestIDStr,
		&field.SignerEmail,
		&field.SignerName,
		&fieldType,
		&field.Page,
		&field.X,
		&field.Y,
		&field.Width,
		&field.Height,
		&field.Required,
		&field.CreatedAt,
	)
	if err != nil {
		return model.SignatureField{}, err
	}
	if field.ID, err = uuid.Parse(idStr); err != nil {
		return model.SignatureField{}, fmt.Errorf("parse field ID: %w", err)
	}
	if field.RequestID, err = uuid.Parse(requestIDStr); err != nil {
		return model.SignatureField{}, fmt.Errorf("parse request ID: %w", err)
	}
	field.Type = model.FieldType(fieldType)
	return field, nil
}
