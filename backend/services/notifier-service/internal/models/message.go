package models

import "time"

// MessageKind tags why a message was produced.
type MessageKind string

const (
	KindEndingSoon   MessageKind = "ending_soon"
	KindStatusChange MessageKind = "status_change"
	KindPush         MessageKind = "push"
	KindDailyReset   MessageKind = "daily_reset"
)

// Message is one outbound chat-ops notification.
type Message struct {
	StationID string      `json:"station_id,omitempty"`
	Kind      MessageKind `json:"kind"`
	Title     string      `json:"title"`
	Text      string      `json:"text"`
	CreatedAt time.Time   `json:"created_at"`
}
