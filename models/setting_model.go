package models

import "time"

type Setting struct {
	Key       string    `gorm:"size:100;primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	Group     string    `gorm:"column:setting_group;size:50;not null;default:'general'" json:"group"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	SettingCommissionRate          = "platform_commission_rate"
	SettingMinPayoutAmount         = "min_payout_amount"
	SettingModificationExpiryHours = "modification_expiry_hours"
)
