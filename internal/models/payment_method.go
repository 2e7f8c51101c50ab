package models

import "github.com/shopspring/decimal"

// PaymentMethodType classifies where an installment was paid from.
type PaymentMethodType string

const (
	PaymentMethodAccount    PaymentMethodType = "account"
	PaymentMethodCreditCard PaymentMethodType = "credit_card"
	PaymentMethodDebitCard  PaymentMethodType = "debit_card"
	PaymentMethodCash       PaymentMethodType = "cash"
	PaymentMethodPix        PaymentMethodType = "pix"
)

// PaymentMethod is a tenant's account, card or wallet used to settle installments.
type PaymentMethod struct {
	Base
	TenantOwned
	Name        string              `gorm:"size:100;not null" json:"name"`
	Type        PaymentMethodType   `gorm:"size:20;not null" json:"type"`
	Bank        string              `gorm:"size:100" json:"bank,omitempty"`
	CreditLimit decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"credit_limit"`
	IsActive    bool                `gorm:"not null" json:"is_active"`
	Note        string              `gorm:"type:text" json:"note,omitempty"`
}
