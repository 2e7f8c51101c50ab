package services

import (
	"testing"
	"time"

	"finora/internal/models"
	"finora/internal/pagination"
	"finora/internal/testutil"
)

func TestSetPaid(t *testing.T) {
	t.Run("defaults_date_and_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		entry := testutil.CreateTestEntry(t, db, user.ID, "100.00", 2)

		inst, err := svc.SetPaid(user.ID, entry.Installments[0].ID, PaymentUpdate{Paid: true})
		testutil.AssertNoError(t, err)

		if !inst.Paid {
			t.Fatal("expected installment to be paid")
		}
		if inst.PaidAt == nil || inst.PaidAt.Format(time.DateOnly) != testutil.Today().Format(time.DateOnly) {
			t.Errorf("expected paid_at today, got %v", inst.PaidAt)
		}
		if !inst.PaidAmount.Valid || !inst.PaidAmount.Decimal.Equal(testutil.Money(t, "50.00")) {
			t.Errorf("expected paid amount 50.00, got %v", inst.PaidAmount)
		}
	})

	t.Run("with_payment_method", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		entry := testutil.CreateTestEntry(t, db, user.ID, "100.00", 1)
		pm := testutil.CreateTestPaymentMethod(t, db, user.ID, true)

		paidAt := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
		amount := testutil.Money(t, "98.50")
		note := "paid with discount"
		inst, err := svc.SetPaid(user.ID, entry.Installments[0].ID, PaymentUpdate{
			Paid:            true,
			PaidAt:          &paidAt,
			PaidAmount:      &amount,
			PaymentMethodID: &pm.ID,
			PaymentNote:     &note,
		})
		testutil.AssertNoError(t, err)

		if inst.PaymentMethod == nil || inst.PaymentMethod.ID != pm.ID {
			t.Error("expected payment method to be preloaded")
		}
		if inst.PaymentNote == nil || *inst.PaymentNote != note {
			t.Errorf("expected payment note, got %v", inst.PaymentNote)
		}
		if !inst.PaidAmount.Decimal.Equal(amount) {
			t.Errorf("expected paid amount 98.50, got %s", inst.PaidAmount.Decimal)
		}
	})

	t.Run("inactive_payment_method", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		entry := testutil.CreateTestEntry(t, db, user.ID, "100.00", 1)
		pm := testutil.CreateTestPaymentMethod(t, db, user.ID, false)

		_, err := svc.SetPaid(user.ID, entry.Installments[0].ID, PaymentUpdate{Paid: true, PaymentMethodID: &pm.ID})
		testutil.AssertAppError(t, err, "PAYMENT_METHOD_INACTIVE")
	})

	t.Run("foreign_payment_method", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		entry := testutil.CreateTestEntry(t, db, user.ID, "100.00", 1)
		pm := testutil.CreateTestPaymentMethod(t, db, other.ID, true)

		_, err := svc.SetPaid(user.ID, entry.Installments[0].ID, PaymentUpdate{Paid: true, PaymentMethodID: &pm.ID})
		testutil.AssertAppError(t, err, "PAYMENT_METHOD_NOT_FOUND")
	})

	t.Run("unpay_clears_payment_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		entry := testutil.CreateTestEntry(t, db, user.ID, "100.00", 1)
		pm := testutil.CreateTestPaymentMethod(t, db, user.ID, true)
		note := "note"

		id := entry.Installments[0].ID
		_, err := svc.SetPaid(user.ID, id, PaymentUpdate{Paid: true, PaymentMethodID: &pm.ID, PaymentNote: &note})
		testutil.AssertNoError(t, err)

		inst, err := svc.SetPaid(user.ID, id, PaymentUpdate{Paid: false})
		testutil.AssertNoError(t, err)

		if inst.Paid || inst.PaidAt != nil || inst.PaidAmount.Valid || inst.PaymentMethodID != nil || inst.PaymentNote != nil {
			t.Errorf("expected all payment fields cleared, got %+v", inst)
		}
	})

	t.Run("other_tenant", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewInstallmentService(db)
		owner := testutil.CreateTestUser(t, db)
		intruder := testutil.CreateTestUser(t, db)
		entry := testutil.CreateTestEntry(t, db, owner.ID, "100.00", 1)

		_, err := svc.SetPaid(intruder.ID, entry.Installments[0].ID, PaymentUpdate{Paid: true})
		testutil.AssertAppError(t, err, "INSTALLMENT_NOT_FOUND")
	})

	t.Run("paid_amount_too_large", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		entry := testutil.CreateTestEntry(t, db, user.ID, "100.00", 1)

		amount := testutil.Money(t, "1000000000000.00")
		_, err := svc.SetPaid(user.ID, entry.Installments[0].ID, PaymentUpdate{Paid: true, PaidAmount: &amount})
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})
}

func TestReschedule(t *testing.T) {
	t.Run("updates_entry_total", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewInstallmentService(db)
		entries := NewEntryService(db)
		user := testutil.CreateTestUser(t, db)
		entry := testutil.CreateTestEntry(t, db, user.ID, "90.00", 3)

		due := testutil.Today().AddDate(0, 2, 0)
		inst, err := svc.Reschedule(user.ID, entry.Installments[1].ID, due, testutil.Money(t, "45.00"))
		testutil.AssertNoError(t, err)

		if !inst.Amount.Equal(testutil.Money(t, "45.00")) {
			t.Errorf("expected amount 45.00, got %s", inst.Amount)
		}
		if inst.DueDate.Format(time.DateOnly) != due.Format(time.DateOnly) {
			t.Errorf("expected due %s, got %s", due.Format(time.DateOnly), inst.DueDate.Format(time.DateOnly))
		}

		updated, err := entries.GetEntryByID(user.ID, entry.ID)
		testutil.AssertNoError(t, err)
		if !updated.TotalAmount.Equal(testutil.Money(t, "105.00")) {
			t.Errorf("expected total 105.00, got %s", updated.TotalAmount)
		}
		if !updated.AverageInstallmentAmount.Equal(testutil.Money(t, "35.00")) {
			t.Errorf("expected average 35.00, got %s", updated.AverageInstallmentAmount)
		}
		if !sumInstallments(updated.Installments).Equal(updated.TotalAmount) {
			t.Error("installments no longer sum to the entry total")
		}
	})

	t.Run("paid_installment_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		entry := testutil.CreateTestEntry(t, db, user.ID, "90.00", 3)
		id := entry.Installments[0].ID

		_, err := svc.SetPaid(user.ID, id, PaymentUpdate{Paid: true})
		testutil.AssertNoError(t, err)

		_, err = svc.Reschedule(user.ID, id, testutil.Today(), testutil.Money(t, "10.00"))
		testutil.AssertAppError(t, err, "INSTALLMENT_PAID")
	})

	t.Run("invalid_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)
		entry := testutil.CreateTestEntry(t, db, user.ID, "90.00", 3)

		_, err := svc.Reschedule(user.ID, entry.Installments[0].ID, testutil.Today(), testutil.Money(t, "0"))
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")

		_, err = svc.Reschedule(user.ID, entry.Installments[0].ID, testutil.Today(), testutil.Money(t, "1000000000000.00"))
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})
}

func TestGetUserInstallments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewInstallmentService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	entry := testutil.CreateTestEntry(t, db, user.ID, "120.00", 4)
	testutil.CreateTestEntry(t, db, other.ID, "50.00", 2)

	_, err := svc.SetPaid(user.ID, entry.Installments[0].ID, PaymentUpdate{Paid: true})
	testutil.AssertNoError(t, err)

	page := pagination.PageRequest{Page: 1, PageSize: 20}

	t.Run("all", func(t *testing.T) {
		result, err := svc.GetUserInstallments(user.ID, InstallmentFilter{}, page)
		testutil.AssertNoError(t, err)
		if result.TotalItems != 4 {
			t.Errorf("expected 4 installments, got %d", result.TotalItems)
		}
	})

	t.Run("unpaid", func(t *testing.T) {
		paid := false
		result, err := svc.GetUserInstallments(user.ID, InstallmentFilter{Paid: &paid}, page)
		testutil.AssertNoError(t, err)
		if result.TotalItems != 3 {
			t.Errorf("expected 3 unpaid installments, got %d", result.TotalItems)
		}
	})

	t.Run("due_window", func(t *testing.T) {
		from := testutil.Today()
		to := testutil.Today().AddDate(0, 1, 0)
		result, err := svc.GetUserInstallments(user.ID, InstallmentFilter{FromDate: &from, ToDate: &to}, page)
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 installments due within a month, got %d", result.TotalItems)
		}
		for i := 1; i < len(result.Data); i++ {
			if result.Data[i].DueDate.Before(result.Data[i-1].DueDate) {
				t.Error("expected installments ordered by due date")
			}
		}
	})
}

func TestInstallmentParentOwnership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewInstallmentService(db)
	owner := testutil.CreateTestUser(t, db)
	intruder := testutil.CreateTestUser(t, db)
	entry := testutil.CreateTestEntry(t, db, owner.ID, "100.00", 2)

	// An installment row whose owner disagrees with its entry's owner.
	id := entry.Installments[0].ID
	if err := db.Model(&models.Installment{}).Where("id = ?", id).Update("user_id", intruder.ID).Error; err != nil {
		t.Fatalf("failed to reassign installment: %v", err)
	}

	t.Run("set_paid", func(t *testing.T) {
		_, err := svc.SetPaid(intruder.ID, id, PaymentUpdate{Paid: true})
		testutil.AssertAppError(t, err, "ENTRY_NOT_FOUND")
	})

	t.Run("reschedule", func(t *testing.T) {
		_, err := svc.Reschedule(intruder.ID, id, testutil.Today(), testutil.Money(t, "10.00"))
		testutil.AssertAppError(t, err, "ENTRY_NOT_FOUND")
	})

	t.Run("owner_still_sees_other_installment", func(t *testing.T) {
		inst, err := svc.SetPaid(owner.ID, entry.Installments[1].ID, PaymentUpdate{Paid: true})
		testutil.AssertNoError(t, err)
		if !inst.Paid {
			t.Error("expected installment to be paid")
		}
	})
}
