// Package errors provides the application error taxonomy for the finora API.
// Service and middleware code returns *AppError so every rejection maps to a
// stable code and HTTP status without leaking internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, optional structured detail and
// optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Detail     any    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Detail:     sentinel.Detail,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Detail:     sentinel.Detail,
		Internal:   sentinel.Internal,
	}
}

// WithDetail creates a new AppError carrying a structured detail payload that
// replaces the plain message in the response body.
func WithDetail(sentinel *AppError, detail any) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Detail:     detail,
		Internal:   sentinel.Internal,
	}
}

// Authentication errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidToken       = &AppError{Code: "INVALID_TOKEN", Message: "Invalid or expired token", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
)

// Authorization errors.
var (
	ErrForbidden       = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountInactive = &AppError{Code: "ACCOUNT_INACTIVE", Message: "Account is inactive", StatusCode: http.StatusForbidden}
	ErrAdminRequired   = &AppError{Code: "ADMIN_REQUIRED", Message: "Administrator privileges required", StatusCode: http.StatusForbidden}
	ErrOriginRejected  = &AppError{Code: "ORIGIN_REJECTED", Message: "Request origin not allowed", StatusCode: http.StatusForbidden}
	ErrIPNotAllowed    = &AppError{Code: "IP_NOT_ALLOWED", Message: "Access from this address is not allowed", StatusCode: http.StatusForbidden}
)

// Webhook errors.
var (
	ErrWebhookNotConfigured = &AppError{Code: "WEBHOOK_NOT_CONFIGURED", Message: "Webhook endpoint is not configured", StatusCode: http.StatusServiceUnavailable}
	ErrInvalidAPIKey        = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
)

// Billing errors.
var (
	ErrSubscriptionOverdue   = &AppError{Code: "SUBSCRIPTION_OVERDUE", Message: "Subscription payment overdue", StatusCode: http.StatusPaymentRequired}
	ErrSubscriptionCancelled = &AppError{Code: "SUBSCRIPTION_CANCELLED", Message: "Subscription is cancelled, reactivate it first", StatusCode: http.StatusConflict}
	ErrInvalidTransition     = &AppError{Code: "INVALID_TRANSITION", Message: "Subscription status transition not allowed", StatusCode: http.StatusConflict}
	ErrBillingUnavailable    = &AppError{Code: "BILLING_UNAVAILABLE", Message: "Billing status could not be verified", StatusCode: http.StatusServiceUnavailable}
	ErrDuplicatePayment      = &AppError{Code: "DUPLICATE_PAYMENT", Message: "Payment already recorded", StatusCode: http.StatusConflict}
)

// Rate limiting errors.
var (
	ErrRateLimited   = &AppError{Code: "RATE_LIMITED", Message: "Too many requests, try again later", StatusCode: http.StatusTooManyRequests}
	ErrAccountLocked = &AppError{Code: "ACCOUNT_LOCKED", Message: "Too many failed login attempts", StatusCode: http.StatusTooManyRequests}
)

// User errors.
var (
	ErrUserNotFound     = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail   = &AppError{Code: "DUPLICATE_EMAIL", Message: "Email already registered", StatusCode: http.StatusConflict}
	ErrWeakPassword     = &AppError{Code: "WEAK_PASSWORD", Message: "Password does not meet the strength requirements", StatusCode: http.StatusUnprocessableEntity}
	ErrPasswordMismatch = &AppError{Code: "PASSWORD_MISMATCH", Message: "Password confirmation does not match", StatusCode: http.StatusUnprocessableEntity}
	ErrPasswordReused   = &AppError{Code: "PASSWORD_REUSED", Message: "Choose a different password", StatusCode: http.StatusUnprocessableEntity}
)

// Ledger errors.
var (
	ErrEntryNotFound         = &AppError{Code: "ENTRY_NOT_FOUND", Message: "Entry not found", StatusCode: http.StatusNotFound}
	ErrInstallmentNotFound   = &AppError{Code: "INSTALLMENT_NOT_FOUND", Message: "Installment not found", StatusCode: http.StatusNotFound}
	ErrCategoryNotFound      = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrSubcategoryNotFound   = &AppError{Code: "SUBCATEGORY_NOT_FOUND", Message: "Subcategory not found", StatusCode: http.StatusNotFound}
	ErrPaymentMethodNotFound = &AppError{Code: "PAYMENT_METHOD_NOT_FOUND", Message: "Payment method not found", StatusCode: http.StatusNotFound}
	ErrRecurringNotFound     = &AppError{Code: "RECURRING_ENTRY_NOT_FOUND", Message: "Recurring entry not found", StatusCode: http.StatusNotFound}
	ErrInstallmentPaid       = &AppError{Code: "INSTALLMENT_PAID", Message: "Installment is already paid", StatusCode: http.StatusConflict}
	ErrPaymentMethodInactive = &AppError{Code: "PAYMENT_METHOD_INACTIVE", Message: "Payment method is inactive", StatusCode: http.StatusUnprocessableEntity}
	ErrPaymentMethodInUse    = &AppError{Code: "PAYMENT_METHOD_IN_USE", Message: "Payment method is referenced by installments", StatusCode: http.StatusConflict}
	ErrCategoryInUse         = &AppError{Code: "CATEGORY_IN_USE", Message: "Category is referenced by entries", StatusCode: http.StatusConflict}
	ErrDuplicateName         = &AppError{Code: "DUPLICATE_NAME", Message: "A record with this name already exists", StatusCode: http.StatusConflict}
	ErrLedgerIntegrity       = &AppError{Code: "LEDGER_INTEGRITY", Message: "Ledger integrity check failed", StatusCode: http.StatusInternalServerError}
)

// Goal errors.
var (
	ErrGoalNotFound = &AppError{Code: "GOAL_NOT_FOUND", Message: "Goal not found", StatusCode: http.StatusNotFound}
	ErrGoalExists   = &AppError{Code: "GOAL_EXISTS", Message: "A goal already exists for this month and category", StatusCode: http.StatusConflict}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "VALIDATION_ERROR", Message: "Invalid input", StatusCode: http.StatusUnprocessableEntity}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)
