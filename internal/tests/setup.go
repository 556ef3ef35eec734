package tests

import (
	"context"
	"database/sql"
	"fmt"
)

// TruncateSigning resets every signing table for a clean test state.
func TruncateSigning(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE TABLE signature_events, signatures, signing_sessions,
		               signature_fields, signature_requests, users
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		return fmt.Errorf("truncate signing tables: %w", err)
	}
	return nil
}
