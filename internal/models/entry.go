package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancialEntry is a user-recorded income or expense, split into
// installments whose amounts always sum to TotalAmount.
type FinancialEntry struct {
	Base
	TenantOwned
	Kind                     EntryKind       `gorm:"size:10;not null;index" json:"kind"`
	EntryDate                time.Time       `gorm:"type:date;not null" json:"entry_date"`
	CategoryID               *string         `gorm:"type:uuid;index" json:"category_id,omitempty"`
	SubcategoryID            *string         `gorm:"type:uuid" json:"subcategory_id,omitempty"`
	Counterparty             string          `gorm:"size:255;not null" json:"counterparty"`
	TotalAmount              decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	FirstDueDate             time.Time       `gorm:"type:date;not null" json:"first_due_date"`
	InstallmentCount         int             `gorm:"not null" json:"installment_count"`
	AverageInstallmentAmount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"average_installment_amount"`
	Note                     string          `gorm:"type:text" json:"note,omitempty"`
	RecurringEntryID         *string         `gorm:"type:uuid;index" json:"recurring_entry_id,omitempty"`

	Category     *Category     `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Subcategory  *Subcategory  `gorm:"foreignKey:SubcategoryID" json:"subcategory,omitempty"`
	Installments []Installment `gorm:"foreignKey:EntryID" json:"installments,omitempty"`
}

// Installment is one scheduled slice of an entry. Paid is binary: the four
// payment fields are either all meaningful or all cleared.
type Installment struct {
	Base
	TenantOwned
	EntryID         string              `gorm:"type:uuid;not null;uniqueIndex:idx_installment_entry_sequence,priority:1" json:"entry_id"`
	Sequence        int                 `gorm:"not null;uniqueIndex:idx_installment_entry_sequence,priority:2" json:"sequence"`
	DueDate         time.Time           `gorm:"type:date;not null;index" json:"due_date"`
	Amount          decimal.Decimal     `gorm:"type:numeric(14,2);not null" json:"amount"`
	Paid            bool                `gorm:"not null;index" json:"paid"`
	PaidAt          *time.Time          `gorm:"type:date" json:"paid_at,omitempty"`
	PaidAmount      decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"paid_amount"`
	PaymentMethodID *string             `gorm:"type:uuid;index" json:"payment_method_id,omitempty"`
	PaymentNote     *string             `gorm:"type:text" json:"payment_note,omitempty"`

	Entry         *FinancialEntry `gorm:"foreignKey:EntryID" json:"-"`
	PaymentMethod *PaymentMethod  `gorm:"foreignKey:PaymentMethodID" json:"payment_method,omitempty"`
}
