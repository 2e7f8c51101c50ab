package testutil

import (
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "finora/internal/errors"
)

// AssertAppError checks that err is an *AppError with the expected code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	appErr := requireAppError(t, err, expectedCode)
	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertAppStatus checks that err is an *AppError rendered with status.
func AssertAppStatus(t *testing.T, err error, status int) {
	t.Helper()
	appErr := requireAppError(t, err, http.StatusText(status))
	if appErr.StatusCode != status {
		t.Errorf("expected status %d, got %d (code: %s)", status, appErr.StatusCode, appErr.Code)
	}
}

func requireAppError(t *testing.T, err error, want string) *apperrors.AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected AppError %q, got nil", want)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	return appErr
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertMoney compares a decimal amount with a literal, ignoring trailing
// zeros.
func AssertMoney(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(Money(t, want)) {
		t.Errorf("expected amount %s, got %s", want, got.StringFixed(2))
	}
}
