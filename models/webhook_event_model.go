package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type WebhookEventStatus string

const (
	WebhookReceived  WebhookEventStatus = "received"
	WebhookProcessed WebhookEventStatus = "processed"
	WebhookFailed    WebhookEventStatus = "failed"
	WebhookIgnored   WebhookEventStatus = "ignored"
)

// WebhookEvent logs payment gateway callbacks; (event_id, gateway) is the idempotency key.
type WebhookEvent struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	EventID     string             `gorm:"size:255;not null;uniqueIndex:idx_webhook_event_gateway" json:"event_id"`
	Gateway     string             `gorm:"size:50;not null;uniqueIndex:idx_webhook_event_gateway" json:"gateway"`
	EventType   string             `gorm:"size:100;not null" json:"event_type"`
	Payload     datatypes.JSON     `json:"payload"`
	Status      WebhookEventStatus `gorm:"size:20;not null;default:'received'" json:"status"`
	Error       *string            `gorm:"type:text" json:"error,omitempty"`
	ProcessedAt *time.Time         `json:"processed_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
