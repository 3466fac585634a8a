package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"iapnotify/internal/types"
)

// deliveryLogSchema creates the delivery_log table when it does not exist.
const deliveryLogSchema = `
CREATE TABLE IF NOT EXISTS delivery_log (
    id                UUID PRIMARY KEY,
    request_id        TEXT NOT NULL DEFAULT '',
    notification_type TEXT NOT NULL DEFAULT '',
    bundle_id         TEXT NOT NULL DEFAULT '',
    destination       TEXT NOT NULL,
    status            TEXT NOT NULL,
    attempts          INTEGER NOT NULL,
    status_code       INTEGER,
    error             TEXT,
    duration_ms       BIGINT NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS delivery_log_created_at_idx ON delivery_log (created_at DESC);`

// DeliveryLogEntry is one settled destination pipeline.
type DeliveryLogEntry struct {
	ID               string
	RequestID        string
	NotificationType string
	BundleID         string
	Destination      types.Destination
	Status           types.DeliveryStatus
	Attempts         int
	StatusCode       int
	Error            string
	Duration         time.Duration
	CreatedAt        time.Time
}

// DeliveryLogRepository persists delivery outcomes to the delivery_log table.
type DeliveryLogRepository struct {
	db DBTX
}

// NewDeliveryLogRepository creates a new DeliveryLogRepository backed by the
// given database connection (pool or transaction).
func NewDeliveryLogRepository(db DBTX) *DeliveryLogRepository {
	return &DeliveryLogRepository{db: db}
}

// EnsureSchema creates the delivery_log table and index if missing.
func (r *DeliveryLogRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, deliveryLogSchema); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to ensure delivery_log schema", err)
	}
	return nil
}

// Record inserts an entry. An empty ID is filled with a new UUID and a zero
// CreatedAt defers to the database clock.
func (r *DeliveryLogRepository) Record(ctx context.Context, e *DeliveryLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO delivery_log
		 (id, request_id, notification_type, bundle_id, destination, status,
		  attempts, status_code, error, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, NOW()))`,
		e.ID,
		e.RequestID,
		e.NotificationType,
		e.BundleID,
		string(e.Destination),
		string(e.Status),
		e.Attempts,
		nilIfZeroInt(e.StatusCode),
		nilIfEmpty(e.Error),
		e.Duration.Milliseconds(),
		nilIfZeroTime(e.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to record delivery", err)
	}
	return nil
}

func nilIfZeroTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nilIfZeroInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
