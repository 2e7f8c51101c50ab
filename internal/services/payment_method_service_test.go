package services

import (
	"testing"

	"finora/internal/models"
	"finora/internal/testutil"
)

func TestCreatePaymentMethod(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPaymentMethodService(db)
		user := testutil.CreateTestUser(t, db)

		limit := testutil.Money(t, "5000")
		pm, err := svc.CreatePaymentMethod(user.ID, PaymentMethodInput{
			Name:        " Gold Card ",
			Type:        models.PaymentMethodCreditCard,
			Bank:        "Acme Bank",
			CreditLimit: &limit,
			IsActive:    true,
		})
		testutil.AssertNoError(t, err)

		if pm.Name != "Gold Card" {
			t.Errorf("expected trimmed name, got %q", pm.Name)
		}
		if !pm.CreditLimit.Valid || !pm.CreditLimit.Decimal.Equal(limit) {
			t.Errorf("expected credit limit 5000, got %v", pm.CreditLimit)
		}
	})

	t.Run("duplicate_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPaymentMethodService(db)
		user := testutil.CreateTestUser(t, db)

		in := PaymentMethodInput{Name: "Wallet", Type: models.PaymentMethodCash, IsActive: true}
		_, err := svc.CreatePaymentMethod(user.ID, in)
		testutil.AssertNoError(t, err)

		in.Name = "wallet"
		_, err = svc.CreatePaymentMethod(user.ID, in)
		testutil.AssertAppError(t, err, "DUPLICATE_NAME")
	})

	t.Run("negative_limit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPaymentMethodService(db)
		user := testutil.CreateTestUser(t, db)

		limit := testutil.Money(t, "-1")
		_, err := svc.CreatePaymentMethod(user.ID, PaymentMethodInput{Name: "Bad", Type: models.PaymentMethodCreditCard, CreditLimit: &limit})
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})
}

func TestPaymentMethodLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewPaymentMethodService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)

	pm := testutil.CreateTestPaymentMethod(t, db, user.ID, true)
	testutil.CreateTestPaymentMethod(t, db, user.ID, false)

	t.Run("list_filtered", func(t *testing.T) {
		all, err := svc.GetPaymentMethods(user.ID, nil)
		testutil.AssertNoError(t, err)
		if len(all) != 2 {
			t.Errorf("expected 2 methods, got %d", len(all))
		}

		active := true
		onlyActive, err := svc.GetPaymentMethods(user.ID, &active)
		testutil.AssertNoError(t, err)
		if len(onlyActive) != 1 || onlyActive[0].ID != pm.ID {
			t.Errorf("expected only the active method, got %d", len(onlyActive))
		}
	})

	t.Run("update", func(t *testing.T) {
		updated, err := svc.UpdatePaymentMethod(user.ID, pm.ID, PaymentMethodInput{
			Name:     "Renamed",
			Type:     models.PaymentMethodPix,
			IsActive: true,
		})
		testutil.AssertNoError(t, err)
		if updated.Name != "Renamed" || updated.Type != models.PaymentMethodPix {
			t.Errorf("unexpected method after update: %+v", updated)
		}
		if updated.CreditLimit.Valid {
			t.Error("expected credit limit to be cleared")
		}
	})

	t.Run("toggle", func(t *testing.T) {
		toggled, err := svc.TogglePaymentMethod(user.ID, pm.ID)
		testutil.AssertNoError(t, err)
		if toggled.IsActive {
			t.Error("expected method to be inactive")
		}
	})

	t.Run("other_tenant", func(t *testing.T) {
		_, err := svc.GetPaymentMethodByID(other.ID, pm.ID)
		testutil.AssertAppError(t, err, "PAYMENT_METHOD_NOT_FOUND")

		err = svc.DeletePaymentMethod(other.ID, pm.ID)
		testutil.AssertAppError(t, err, "PAYMENT_METHOD_NOT_FOUND")
	})
}

func TestDeletePaymentMethod(t *testing.T) {
	t.Run("in_use", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPaymentMethodService(db)
		installments := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		pm := testutil.CreateTestPaymentMethod(t, db, user.ID, true)
		entry := testutil.CreateTestEntry(t, db, user.ID, "10.00", 1)

		_, err := installments.SetPaid(user.ID, entry.Installments[0].ID, PaymentUpdate{Paid: true, PaymentMethodID: &pm.ID})
		testutil.AssertNoError(t, err)

		err = svc.DeletePaymentMethod(user.ID, pm.ID)
		testutil.AssertAppError(t, err, "PAYMENT_METHOD_IN_USE")
	})

	t.Run("unused", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewPaymentMethodService(db)
		user := testutil.CreateTestUser(t, db)
		pm := testutil.CreateTestPaymentMethod(t, db, user.ID, true)

		testutil.AssertNoError(t, svc.DeletePaymentMethod(user.ID, pm.ID))
		_, err := svc.GetPaymentMethodByID(user.ID, pm.ID)
		testutil.AssertAppError(t, err, "PAYMENT_METHOD_NOT_FOUND")
	})
}
