package service

import (
	"context"

	"avacharge/backend/services/notifier-service/internal/models"
)

// StationStore is the document store holding station records.
type StationStore interface {
	List(ctx context.Context) ([]models.StationRecord, error)
	Get(ctx context.Context, id string) (models.StationRecord, error)
	CompareAndSetNotified(ctx context.Context, id, expected, next string) error
	SetNotified(ctx context.Context, id, status string) error
	Reset(ctx context.Context, id string) (bool, error)
}

// Sender delivers a message to the chat-ops webhook.
type Sender interface {
	Send(ctx context.Context, msg models.Message) error
}

// Observer receives every delivered message on a best-effort basis.
type Observer interface {
	Observe(ctx context.Context, msg models.Message) error
}
