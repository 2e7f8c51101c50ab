package models

import (
	"time"

	"finora/internal/uuid"

	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

// TenantOwned is embedded by every row that belongs to exactly one user.
type TenantOwned struct {
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
}

// OwnerID returns the owning user's id.
func (o *TenantOwned) OwnerID() string { return o.UserID }

// SetOwner assigns the owning user's id.
func (o *TenantOwned) SetOwner(userID string) { o.UserID = userID }
