package models

import "time"

// User is an account holder and the tenant boundary for all ledger data.
// Users are never hard-deleted; IsActive=false disables them.
type User struct {
	Base
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	Name         string     `gorm:"not null" json:"name"`
	PasswordHash string     `gorm:"not null" json:"-"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	IsAdmin      bool       `gorm:"not null" json:"is_admin"`
	LastAccessAt *time.Time `json:"last_access_at,omitempty"`
}

// LoginAttempt is one row per login call. The table doubles as the lockout
// ledger: BlockedUntil is set on the attempt that tripped the threshold.
type LoginAttempt struct {
	Base
	Email          string     `gorm:"not null;index:idx_login_attempt_pair,priority:1" json:"email"`
	IsAdminAttempt bool       `gorm:"not null;index:idx_login_attempt_pair,priority:2" json:"is_admin_attempt"`
	UserID         *string    `gorm:"type:uuid" json:"user_id,omitempty"`
	IPAddress      string     `gorm:"size:64" json:"ip_address"`
	UserAgent      string     `gorm:"size:512" json:"user_agent"`
	Success        bool       `gorm:"not null" json:"success"`
	BlockedUntil   *time.Time `json:"blocked_until,omitempty"`
	// Cleared marks failures forgiven by an unblock; they no longer count.
	Cleared bool `gorm:"not null;default:false" json:"cleared"`
}
