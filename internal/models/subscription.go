package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus is the billing state of a tenant.
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription is the single billing record of a tenant.
type Subscription struct {
	Base
	UserID        string              `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Status        SubscriptionStatus  `gorm:"size:20;not null;index" json:"status"`
	PeriodStart   time.Time           `gorm:"type:date;not null" json:"period_start"`
	NextDueDate   *time.Time          `gorm:"type:date" json:"next_due_date,omitempty"`
	TrialUntil    *time.Time          `gorm:"type:date" json:"trial_until,omitempty"`
	MonthlyAmount decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"monthly_amount"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`

	Payments []Payment `gorm:"foreignKey:SubscriptionID" json:"payments,omitempty"`
}

// OwnerID returns the billed user's id.
func (s *Subscription) OwnerID() string { return s.UserID }

// SetOwner assigns the billed user's id.
func (s *Subscription) SetOwner(userID string) { s.UserID = userID }

// BillingMethod is how a subscription payment was made.
type BillingMethod string

const (
	BillingMethodManual BillingMethod = "manual"
	BillingMethodPix    BillingMethod = "pix"
	BillingMethodBoleto BillingMethod = "boleto"
	BillingMethodCard   BillingMethod = "card"
)

// PaymentStatusConfirmed marks a settled payment.
const PaymentStatusConfirmed = "confirmed"

// Payment is an append-only subscription payment.
type Payment struct {
	Base
	TenantOwned
	SubscriptionID        string          `gorm:"type:uuid;not null;index" json:"subscription_id"`
	Reference             string          `gorm:"size:7;not null" json:"reference"`
	Amount                decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	PaidAt                time.Time       `gorm:"type:date;not null" json:"paid_at"`
	Method                BillingMethod   `gorm:"size:20;not null" json:"method"`
	Status                string          `gorm:"size:20;not null" json:"status"`
	ExternalTransactionID *string         `gorm:"size:128;uniqueIndex" json:"external_transaction_id,omitempty"`
}
