package models

import (
	"time"

	"finora/internal/uuid"

	"gorm.io/gorm"
)

// AuditLog is an append-only record of a sensitive operation. UserID is the
// acting user and stays empty for operator and webhook actions without one.
type AuditLog struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"index:idx_audit_logs_action_created,priority:2" json:"created_at"`
	UserID       *string   `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action       string    `gorm:"size:40;not null;index:idx_audit_logs_action_created,priority:1" json:"action"`
	ResourceType string    `gorm:"size:40;not null" json:"resource_type"`
	ResourceID   string    `json:"resource_id,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	Changes      string    `json:"changes,omitempty"`
}

// BeforeCreate assigns a UUIDv7 to new rows.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New()
	}
	return nil
}
