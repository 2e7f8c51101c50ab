package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurrenceFrequency is how far apart generated installments fall.
type RecurrenceFrequency string

const (
	FrequencyMonthly   RecurrenceFrequency = "monthly"
	FrequencyQuarterly RecurrenceFrequency = "quarterly"
	FrequencyYearly    RecurrenceFrequency = "yearly"
)

// Months returns the spacing in calendar months, or 0 for an unknown value.
func (f RecurrenceFrequency) Months() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyYearly:
		return 12
	}
	return 0
}

// RecurringEntry is a template from which entries are generated on demand.
type RecurringEntry struct {
	Base
	TenantOwned
	Kind             EntryKind           `gorm:"size:10;not null" json:"kind"`
	CategoryID       *string             `gorm:"type:uuid" json:"category_id,omitempty"`
	SubcategoryID    *string             `gorm:"type:uuid" json:"subcategory_id,omitempty"`
	Counterparty     string              `gorm:"size:255;not null" json:"counterparty"`
	TotalAmount      decimal.Decimal     `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	DueDay           int                 `gorm:"not null" json:"due_day"`
	InstallmentCount int                 `gorm:"not null" json:"installment_count"`
	Frequency        RecurrenceFrequency `gorm:"size:10;not null" json:"frequency"`
	IsActive         bool                `gorm:"not null" json:"is_active"`
	StartDate        time.Time           `gorm:"type:date;not null" json:"start_date"`
	LastGeneratedAt  *time.Time          `json:"last_generated_at,omitempty"`
	Note             string              `gorm:"type:text" json:"note,omitempty"`
}
