package models

import "github.com/shopspring/decimal"

// Goal is the amount a user plans for one calendar month. A goal with a
// category tracks entries of that category; one without covers every
// expense.
type Goal struct {
	Base
	TenantOwned
	Year         int             `gorm:"not null;index:idx_goal_period,priority:1" json:"year"`
	Month        int             `gorm:"not null;index:idx_goal_period,priority:2" json:"month"`
	CategoryID   *string         `gorm:"type:uuid;index" json:"category_id,omitempty"`
	TargetAmount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"target_amount"`
	Description  string          `gorm:"size:500" json:"description,omitempty"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// GoalStatus rates how much of a goal has been used.
type GoalStatus string

const (
	GoalStatusWithin   GoalStatus = "within"
	GoalStatusWarning  GoalStatus = "warning"
	GoalStatusExceeded GoalStatus = "exceeded"
)
