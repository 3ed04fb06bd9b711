package services

import (
	"encoding/json"
	"fmt"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const EventWalletTopUp = "wallet.topup"

type WebhookPayload struct {
	EventID string          `json:"event_id"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

type TopUpData struct {
	WalletType  models.WalletType `json:"wallet_type"`
	OwnerID     uuid.UUID         `json:"owner_id"`
	Amount      decimal.Decimal   `json:"amount"`
	Description string            `json:"description"`
}

// ReceiveWebhook records a gateway callback and applies it once per (event_id, gateway).
// A repeat of a processed or ignored event returns ErrDuplicateEvent with the stored event;
// a repeat of a failed event is processed again.
func ReceiveWebhook(db *gorm.DB, gateway string, raw []byte) (*models.WebhookEvent, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrap(err, "decode webhook payload")
	}
	if payload.EventID == "" || payload.Type == "" {
		return nil, errors.New("event_id and type are required")
	}

	event := models.WebhookEvent{
		EventID:   payload.EventID,
		Gateway:   gateway,
		EventType: payload.Type,
		Payload:   datatypes.JSON(raw),
		Status:    models.WebhookReceived,
	}
	if err := db.Create(&event).Error; err != nil {
		if !IsUniqueViolation(err) {
			return nil, errors.Wrap(err, "store webhook event")
		}
		if err := db.Where("event_id = ? AND gateway = ?", payload.EventID, gateway).Take(&event).Error; err != nil {
			return nil, errors.Wrap(err, "load webhook event")
		}
		if event.Status != models.WebhookFailed {
			return &event, ErrDuplicateEvent
		}
	}

	procErr := db.Transaction(func(tx *gorm.DB) error {
		status, err := applyWebhook(tx, &event, payload)
		if err != nil {
			return err
		}
		now := clock()
		return tx.Model(&event).Updates(map[string]interface{}{
			"status":       status,
			"error":        nil,
			"processed_at": now,
		}).Error
	})
	if procErr != nil {
		msg := procErr.Error()
		if err := db.Model(&event).Updates(map[string]interface{}{"status": models.WebhookFailed, "error": msg}).Error; err != nil {
			return nil, errors.Wrap(err, "mark webhook failed")
		}
		event.Status = models.WebhookFailed
		event.Error = &msg
		return &event, procErr
	}

	return &event, db.First(&event, "id = ?", event.ID).Error
}

func applyWebhook(tx *gorm.DB, event *models.WebhookEvent, payload WebhookPayload) (models.WebhookEventStatus, error) {
	switch payload.Type {
	case EventWalletTopUp:
		var data TopUpData
		if err := json.Unmarshal(payload.Data, &data); err != nil {
			return "", errors.Wrap(err, "decode top-up data")
		}
		if !data.WalletType.Valid() || data.OwnerID == uuid.Nil {
			return "", errors.New("wallet_type and owner_id are required")
		}
		wallet, err := WalletForOwner(tx, data.WalletType, data.OwnerID)
		if err != nil {
			return "", err
		}
		desc := data.Description
		if desc == "" {
			desc = fmt.Sprintf("Top-up via %s", event.Gateway)
		}
		ref := Reference{
			Type:     RefWebhookEvent,
			ID:       event.ID,
			Metadata: datatypes.JSONMap{"gateway": event.Gateway, "event_id": event.EventID},
		}
		if _, err := AddFunds(tx, wallet, data.Amount, desc, ref); err != nil {
			return "", err
		}
		return models.WebhookProcessed, nil
	}
	return models.WebhookIgnored, nil
}
