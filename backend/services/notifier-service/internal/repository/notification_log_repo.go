package repository

import (
	"context"
	"database/sql"
	"errors"

	"avacharge/backend/services/notifier-service/internal/models"
)

const schema = `
	CREATE TABLE IF NOT EXISTS notification_log (
		id         BIGSERIAL PRIMARY KEY,
		station_id TEXT NOT NULL DEFAULT '',
		kind       TEXT NOT NULL,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS notification_log_station_idx ON notification_log (station_id, created_at DESC);
`

// NotificationLogRepository records every delivered message.
type NotificationLogRepository struct {
	db *sql.DB
}

// NewNotificationLogRepository returns repository instance.
func NewNotificationLogRepository(db *sql.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// EnsureSchema creates the log table if missing.
func (r *NotificationLogRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Insert stores one message and returns its row id.
func (r *NotificationLogRepository) Insert(ctx context.Context, msg models.Message) (int64, error) {
	const query = `
		INSERT INTO notification_log (station_id, kind, title, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, msg.StationID, string(msg.Kind), msg.Title, msg.Text, msg.CreatedAt.UTC()).
		Scan(&id)
	return id, err
}

// Recent returns the latest messages for a station, newest first. An empty stationID
// matches all stations.
func (r *NotificationLogRepository) Recent(ctx context.Context, stationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT station_id, kind, title, body, created_at
		FROM notification_log
		WHERE $1 = '' OR station_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, stationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var (
			msg  models.Message
			kind string
		)
		if err := rows.Scan(&msg.StationID, &kind, &msg.Title, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Kind = models.MessageKind(kind)
		out = append(out, msg)
	}
	return out, rows.Err()
}

// Observe implements the delivery observer hook.
func (r *NotificationLogRepository) Observe(ctx context.Context, msg models.Message) error {
	if r == nil || r.db == nil {
		return errors.New("notification log is not configured")
	}
	_, err := r.Insert(ctx, msg)
	return err
}
