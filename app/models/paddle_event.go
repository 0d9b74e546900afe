package models

import (
	"time"

	"gorm.io/datatypes"
)

// Paddle event type constants the pipeline cares about.
const (
	PaddleEventTransactionCompleted = "transaction.completed"
	PaddleEventUnknown              = "unknown"
)

// PaddleEvent stores a received Paddle webhook delivery. Rows are append-only:
// the unique paddle_event_id is the deduplication key for redeliveries.
type PaddleEvent struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	EventType     string         `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PaddleEventID string         `gorm:"type:varchar(191);not null;uniqueIndex:ux_paddle_events_paddle_event_id" json:"paddle_event_id"`
	Payload       datatypes.JSON `gorm:"not null" json:"payload"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// ReceivedAt is the time the delivery was first recorded.
func (e *PaddleEvent) ReceivedAt() time.Time {
	return e.CreatedAt
}
