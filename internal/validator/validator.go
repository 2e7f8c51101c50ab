// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"reflect"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"finora/internal/models"
)

var referenceMonthRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom tags and types on v.
func RegisterOn(v *validator.Validate) {
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	_ = v.RegisterValidation("entry_kind", validateEntryKind)
	_ = v.RegisterValidation("payment_method_type", validatePaymentMethodType)
	_ = v.RegisterValidation("billing_method", validateBillingMethod)
	_ = v.RegisterValidation("recurrence_frequency", validateRecurrenceFrequency)
	_ = v.RegisterValidation("reference_month", validateReferenceMonth)
}

// decimalValue lets numeric tags such as gt=0 compare decimal amounts.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return nil
}

func validateEntryKind(fl validator.FieldLevel) bool {
	switch models.EntryKind(fl.Field().String()) {
	case models.EntryKindExpense, models.EntryKindIncome:
		return true
	}
	return false
}

func validatePaymentMethodType(fl validator.FieldLevel) bool {
	switch models.PaymentMethodType(fl.Field().String()) {
	case models.PaymentMethodAccount, models.PaymentMethodCreditCard, models.PaymentMethodDebitCard,
		models.PaymentMethodCash, models.PaymentMethodPix:
		return true
	}
	return false
}

func validateBillingMethod(fl validator.FieldLevel) bool {
	switch models.BillingMethod(fl.Field().String()) {
	case models.BillingMethodManual, models.BillingMethodPix, models.BillingMethodBoleto, models.BillingMethodCard:
		return true
	}
	return false
}

func validateRecurrenceFrequency(fl validator.FieldLevel) bool {
	return models.RecurrenceFrequency(fl.Field().String()).Months() > 0
}

func validateReferenceMonth(fl validator.FieldLevel) bool {
	return referenceMonthRegex.MatchString(fl.Field().String())
}
