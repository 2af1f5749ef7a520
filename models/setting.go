package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Well-known setting keys.
const (
	SettingAppPassword       = "app_password"
	SettingActiveSession     = "active_session"
	SettingAppLogo           = "app_logo"
	SettingLastInvoiceNumber = "last_invoice_number"
)

// Setting is a string key/value pair. Settings are upserted, never deleted.
type Setting struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Key       string    `gorm:"uniqueIndex;size:100;not null" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
}

// TableName overrides the table name
func (Setting) TableName() string {
	return "settings"
}

func (s *Setting) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
