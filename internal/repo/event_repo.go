package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/inkflow/server/internal/model"
)

// EventRepo records workflow events. The table is append-only and is the
// durable compliance trail, independent of the mutable session row.
type EventRepo interface {
	Insert(ctx context.Context, event model.SignatureEvent) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.SignatureEvent, error)
}

type eventRepo struct {
	db *sql.DB
}

// NewEventRepo creates a new EventRepo instance.
func NewEventRepo(db *sql.DB) EventRepo {
	return &eventRepo{db: db}
}

func (r *eventRepo) Insert(ctx context.Context, event model.SignatureEvent) error {
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	var sessionID any
	if event.SessionID != nil {
		sessionID = event.SessionID.String()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO signature_events (request_id, session_id, event_type, actor_type, actor_email, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.RequestID.String(), sessionID, event.EventType, event.ActorType, event.ActorEmail, raw)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *eventRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.SignatureEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, session_id, event_type, actor_type, actor_email, payload, created_at
		FROM signature_events
		WHERE request_id = $1
		ORDER BY created_at
	`, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.SignatureEvent
	for rows.Next() {
		var event model.SignatureEvent
		var idStr, requestIDStr string
		var sessionIDStr sql.NullString
		var raw []byte
		err := rows.Scan(&idStr, &requestIDStr, &sessionIDStr, &event.EventType,
			&event.ActorType, &event.ActorEmail, &raw, &event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if event.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parse event ID: %w", err)
		}
		if event.RequestID, err = uuid.Parse(requestIDStr); err != nil {
			return nil, fmt.Errorf("parse request ID: %w", err)
		}
		if sessionIDStr.Valid {
			sid, err := uuid.Parse(sessionIDStr.String)
			if err != nil {
				return nil, fmt.Errorf("parse session ID: %w", err)
			}
			event.SessionID = &sid
		}
		if err := json.Unmarshal(raw, &event.Payload); err != nil {
			return nil, fmt.Errorf("decode event payload: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
