package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Locker serializes critical sections per request. Two fields on the same
// document completing concurrently otherwise race on the completed artifact
// write, last writer winning.
type Locker interface {
	// AcquireRequestLock blocks until the per-request lock is held and
	// returns a release function. The lock spans the whole
	// download/stamp/upload/recompute sequence, not just one transaction.
	AcquireRequestLock(ctx context.Context, requestID uuid.UUID) (release func(), err error)
}

type pgLocker struct {
	db *sql.DB
}

// NewLocker creates a Postgres advisory-lock based Locker.
func NewLocker(db *sql.DB) Locker {
	return &pgLocker{db: db}
}

// AcquireRequestLock takes a session-level advisory lock on a dedicated
// connection. Session-level (not xact-level) because blob I/O happens
// between acquire and release, outside any transaction.
func (l *pgLocker) AcquireRequestLock(ctx context.Context, requestID uuid.UUID) (func(), error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	_, err = conn.ExecContext(ctx, `SELECT pg_advisory_lock(2, hashtext($1))`, requestID.String())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}

	release := func() {
		// Unlock on the same connection the lock was taken on; closing the
		// connection would release it anyway, unlock keeps it reusable.
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock(2, hashtext($1))`, requestID.String())
		_ = conn.Close()
	}
	return release, nil
}
