package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"finora/internal/ledger"
	"finora/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "Passw0rd!"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Today returns the current UTC date at midnight.
func Today() time.Time {
	return ledger.Day(time.Now())
}

// Money parses a decimal literal, failing the test on bad input.
func Money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// CreateTestUser creates an active user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates an active user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	return createUser(t, db, email, TestPassword, false)
}

// CreateTestAdmin creates an active administrator with the given password.
func CreateTestAdmin(t *testing.T, db *gorm.DB, password string) *models.User {
	t.Helper()
	email := fmt.Sprintf("admin%d@test.com", nextID())
	return createUser(t, db, email, password, true)
}

func createUser(t *testing.T, db *gorm.DB, email, password string, admin bool) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: string(hash),
		IsActive:     true,
		IsAdmin:      admin,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a category of the given kind.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string, kind models.EntryKind) *models.Category {
	t.Helper()

	category := &models.Category{
		TenantOwned: models.TenantOwned{UserID: userID},
		Name:        fmt.Sprintf("Test Category %d", nextID()),
		Kind:        kind,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestSubcategory creates an active subcategory under categoryID.
func CreateTestSubcategory(t *testing.T, db *gorm.DB, userID, categoryID string) *models.Subcategory {
	t.Helper()

	sub := &models.Subcategory{
		TenantOwned: models.TenantOwned{UserID: userID},
		CategoryID:  categoryID,
		Name:        fmt.Sprintf("Test Subcategory %d", nextID()),
		IsActive:    true,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("failed to create test subcategory: %v", err)
	}
	return sub
}

// CreateTestPaymentMethod creates a payment method with the given active flag.
func CreateTestPaymentMethod(t *testing.T, db *gorm.DB, userID string, active bool) *models.PaymentMethod {
	t.Helper()

	pm := &models.PaymentMethod{
		TenantOwned: models.TenantOwned{UserID: userID},
		Name:        fmt.Sprintf("Test Card %d", nextID()),
		Type:        models.PaymentMethodCreditCard,
		IsActive:    active,
	}
	if err := db.Create(pm).Error; err != nil {
		t.Fatalf("failed to create test payment method: %v", err)
	}
	return pm
}

// CreateTestEntry creates an expense entry with its generated installments.
func CreateTestEntry(t *testing.T, db *gorm.DB, userID, total string, count int) *models.FinancialEntry {
	t.Helper()

	amount := Money(t, total)
	first := Today()
	slices, err := ledger.Split(amount, count, first)
	if err != nil {
		t.Fatalf("failed to split test entry: %v", err)
	}

	entry := &models.FinancialEntry{
		TenantOwned:              models.TenantOwned{UserID: userID},
		Kind:                     models.EntryKindExpense,
		EntryDate:                first,
		Counterparty:             fmt.Sprintf("Vendor %d", nextID()),
		TotalAmount:              amount,
		FirstDueDate:             first,
		InstallmentCount:         count,
		AverageInstallmentAmount: ledger.Average(amount, count),
	}
	for _, s := range slices {
		entry.Installments = append(entry.Installments, models.Installment{
			TenantOwned: models.TenantOwned{UserID: userID},
			Sequence:    s.Sequence,
			DueDate:     s.DueDate,
			Amount:      s.Amount,
		})
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to create test entry: %v", err)
	}
	return entry
}

// CreateTestSubscription creates a subscription in the given state.
func CreateTestSubscription(t *testing.T, db *gorm.DB, userID string, status models.SubscriptionStatus, nextDue *time.Time) *models.Subscription {
	t.Helper()

	sub := &models.Subscription{
		UserID:      userID,
		Status:      status,
		PeriodStart: Today(),
		NextDueDate: nextDue,
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("failed to create test subscription: %v", err)
	}
	return sub
}
