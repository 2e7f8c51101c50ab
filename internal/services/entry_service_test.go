package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finora/internal/ledger"
	"finora/internal/models"
	"finora/internal/pagination"
	"finora/internal/testutil"
)

func entryInput(t *testing.T, total string, count int) EntryInput {
	t.Helper()
	return EntryInput{
		Kind:             models.EntryKindExpense,
		EntryDate:        testutil.Today(),
		Counterparty:     "Electronics Store",
		TotalAmount:      testutil.Money(t, total),
		FirstDueDate:     time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
		InstallmentCount: count,
	}
}

func sumInstallments(items []models.Installment) decimal.Decimal {
	amounts := make([]decimal.Decimal, len(items))
	for i, it := range items {
		amounts[i] = it.Amount
	}
	return ledger.Sum(amounts)
}

func TestCreateEntry(t *testing.T) {
	t.Run("splits_total_into_installments", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewEntryService(db)
		user := testutil.CreateTestUser(t, db)

		entry, err := svc.CreateEntry(user.ID, entryInput(t, "100.00", 3))
		testutil.AssertNoError(t, err)

		installments, err := svc.GetEntryInstallments(user.ID, entry.ID)
		testutil.AssertNoError(t, err)

		if len(installments) != 3 {
			t.Fatalf("expected 3 installments, got %d", len(installments))
		}
		testutil.AssertMoney(t, sumInstallments(installments), "100.00")
		testutil.AssertMoney(t, entry.AverageInstallmentAmount, "33.33")

		wantDue := []string{"2026-01-31", "2026-02-28", "2026-03-31"}
		for i, inst := range installments {
			if inst.Sequence != i+1 {
				t.Errorf("expected sequence %d, got %d", i+1, inst.Sequence)
			}
			if got := inst.DueDate.Format(time.DateOnly); got != wantDue[i] {
				t.Errorf("installment %d due %s, want %s", i+1, got, wantDue[i])
			}
			if inst.Paid {
				t.Errorf("installment %d should start unpaid", i+1)
			}
		}
	})

	t.Run("with_classification", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewEntryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.EntryKindExpense)
		sub := testutil.CreateTestSubcategory(t, db, user.ID, cat.ID)

		in := entryInput(t, "10.00", 1)
		in.CategoryID = &cat.ID
		in.SubcategoryID = &sub.ID
		entry, err := svc.CreateEntry(user.ID, in)
		testutil.AssertNoError(t, err)

		found, err := svc.GetEntryByID(user.ID, entry.ID)
		testutil.AssertNoError(t, err)
		if found.Category == nil || found.Category.ID != cat.ID {
			t.Error("expected category to be preloaded")
		}
		if found.Subcategory == nil || found.Subcategory.ID != sub.ID {
			t.Error("expected subcategory to be preloaded")
		}
		if len(found.Installments) != 1 {
			t.Errorf("expected 1 installment, got %d", len(found.Installments))
		}
	})

	t.Run("category_kind_mismatch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewEntryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.EntryKindIncome)

		in := entryInput(t, "10.00", 1)
		in.CategoryID = &cat.ID
		_, err := svc.CreateEntry(user.ID, in)
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})

	t.Run("inactive_subcategory", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewEntryService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.EntryKindExpense)
		sub := testutil.CreateTestSubcategory(t, db, user.ID, cat.ID)
		db.Model(sub).Update("is_active", false)

		in := entryInput(t, "10.00", 1)
		in.CategoryID = &cat.ID
		in.SubcategoryID = &sub.ID
		_, err := svc.CreateEntry(user.ID, in)
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})

	t.Run("subcategory_of_other_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewEntryService(db)
		user := testutil.CreateTestUser(t, db)
		a := testutil.CreateTestCategory(t, db, user.ID, models.EntryKindExpense)
		b := testutil.CreateTestCategory(t, db, user.ID, models.EntryKindExpense)
		sub := testutil.CreateTestSubcategory(t, db, user.ID, b.ID)

		in := entryInput(t, "10.00", 1)
		in.CategoryID = &a.ID
		in.SubcategoryID = &sub.ID
		_, err := svc.CreateEntry(user.ID, in)
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})

	t.Run("foreign_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewEntryService(db)
		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, owner.ID, models.EntryKindExpense)

		in := entryInput(t, "10.00", 1)
		in.CategoryID = &cat.ID
		_, err := svc.CreateEntry(other.ID, in)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("invalid_input", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewEntryService(db)
		user := testutil.CreateTestUser(t, db)

		tests := []struct {
			name   string
			mutate func(in *EntryInput)
		}{
			{"zero_installments", func(in *EntryInput) { in.InstallmentCount = 0 }},
			{"fractional_cents", func(in *EntryInput) { in.TotalAmount = testutil.Money(t, "10.005") }},
			{"blank_counterparty", func(in *EntryInput) { in.Counterparty = " " }},
			{"unknown_kind", func(in *EntryInput) { in.Kind = "transfer" }},
			{"missing_due_date", func(in *EntryInput) { in.FirstDueDate = time.Time{} }},
			{"amount_too_large", func(in *EntryInput) { in.TotalAmount = testutil.Money(t, "1000000000000.00") }},
			{"negative_amount_too_large", func(in *EntryInput) { in.TotalAmount = testutil.Money(t, "-1000000000000.00") }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				in := entryInput(t, "10.00", 2)
				tt.mutate(&in)
				_, err := svc.CreateEntry(user.ID, in)
				testutil.AssertAppError(t, err, "VALIDATION_ERROR")
			})
		}
	})
}

func TestEntryTenantIsolation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewEntryService(db)
	owner := testutil.CreateTestUser(t, db)
	intruder := testutil.CreateTestUser(t, db)

	entry, err := svc.CreateEntry(owner.ID, entryInput(t, "90.00", 3))
	testutil.AssertNoError(t, err)

	t.Run("get", func(t *testing.T) {
		_, err := svc.GetEntryByID(intruder.ID, entry.ID)
		testutil.AssertAppError(t, err, "ENTRY_NOT_FOUND")
	})

	t.Run("list", func(t *testing.T) {
		result, err := svc.GetUserEntries(intruder.ID, EntryFilter{}, pagination.PageRequest{Page: 1, PageSize: 20})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 0 {
			t.Errorf("expected no entries for intruder, got %d", result.TotalItems)
		}
	})

	t.Run("installments", func(t *testing.T) {
		_, err := svc.GetEntryInstallments(intruder.ID, entry.ID)
		testutil.AssertAppError(t, err, "ENTRY_NOT_FOUND")
	})

	t.Run("update", func(t *testing.T) {
		_, err := svc.UpdateEntry(intruder.ID, entry.ID, entryInput(t, "1.00", 1))
		testutil.AssertAppError(t, err, "ENTRY_NOT_FOUND")
	})

	t.Run("delete", func(t *testing.T) {
		err := svc.DeleteEntry(intruder.ID, entry.ID)
		testutil.AssertAppError(t, err, "ENTRY_NOT_FOUND")

		_, err = svc.GetEntryByID(owner.ID, entry.ID)
		testutil.AssertNoError(t, err)
	})
}

func TestGetUserEntries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewEntryService(db)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID, models.EntryKindIncome)

	old := entryInput(t, "10.00", 1)
	old.EntryDate = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.CreateEntry(user.ID, old)
	testutil.AssertNoError(t, err)

	recent := entryInput(t, "20.00", 1)
	recent.EntryDate = time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.CreateEntry(user.ID, recent)
	testutil.AssertNoError(t, err)

	income := entryInput(t, "3000.00", 1)
	income.Kind = models.EntryKindIncome
	income.CategoryID = &cat.ID
	income.EntryDate = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.CreateEntry(user.ID, income)
	testutil.AssertNoError(t, err)

	page := pagination.PageRequest{Page: 1, PageSize: 20}

	t.Run("all_newest_first", func(t *testing.T) {
		result, err := svc.GetUserEntries(user.ID, EntryFilter{}, page)
		testutil.AssertNoError(t, err)
		if result.TotalItems != 3 {
			t.Fatalf("expected 3 entries, got %d", result.TotalItems)
		}
		if result.Data[0].Kind != models.EntryKindIncome {
			t.Errorf("expected newest entry first, got %s", result.Data[0].Kind)
		}
	})

	t.Run("by_kind", func(t *testing.T) {
		kind := models.EntryKindExpense
		result, err := svc.GetUserEntries(user.ID, EntryFilter{Kind: &kind}, page)
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 expenses, got %d", result.TotalItems)
		}
	})

	t.Run("by_category", func(t *testing.T) {
		result, err := svc.GetUserEntries(user.ID, EntryFilter{CategoryID: &cat.ID}, page)
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 {
			t.Errorf("expected 1 categorized entry, got %d", result.TotalItems)
		}
	})

	t.Run("by_date_range", func(t *testing.T) {
		from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)
		result, err := svc.GetUserEntries(user.ID, EntryFilter{FromDate: &from, ToDate: &to}, page)
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 {
			t.Errorf("expected 1 entry in range, got %d", result.TotalItems)
		}
	})
}

func TestUpdateEntry(t *testing.T) {
	t.Run("regenerates_installments", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewEntryService(db)
		installments := NewInstallmentService(db)
		user := testutil.CreateTestUser(t, db)

		entry, err := svc.CreateEntry(user.ID, entryInput(t, "100.00", 3))
		testutil.AssertNoError(t, err)

		first, err := svc.GetEntryInstallments(user.ID, entry.ID)
		testutil.AssertNoError(t, err)
		_, err = installments.SetPaid(user.ID, first[0].ID, PaymentUpdate{Paid: true})
		testutil.AssertNoError(t, err)

		in := entryInput(t, "250.00", 4)
		in.Counterparty = "Updated Store"
		updated, err := svc.UpdateEntry(user.ID, entry.ID, in)
		testutil.AssertNoError(t, err)

		if updated.Counterparty != "Updated Store" {
			t.Errorf("expected counterparty to change, got %s", updated.Counterparty)
		}
		if len(updated.Installments) != 4 {
			t.Fatalf("expected 4 installments, got %d", len(updated.Installments))
		}
		if !sumInstallments(updated.Installments).Equal(testutil.Money(t, "250.00")) {
			t.Errorf("installments sum to %s, want 250.00", sumInstallments(updated.Installments))
		}
		for _, inst := range updated.Installments {
			if inst.Paid {
				t.Error("regenerated installments should be unpaid")
			}
		}
		if !updated.AverageInstallmentAmount.Equal(testutil.Money(t, "62.50")) {
			t.Errorf("expected average 62.50, got %s", updated.AverageInstallmentAmount)
		}

		var count int64
		db.Unscoped().Model(&models.Installment{}).Where("entry_id = ?", entry.ID).Count(&count)
		if count != 4 {
			t.Errorf("expected old installments to be removed, found %d rows", count)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewEntryService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.UpdateEntry(user.ID, "0190a2b4-0000-7000-8000-000000000000", entryInput(t, "1.00", 1))
		testutil.AssertAppError(t, err, "ENTRY_NOT_FOUND")
	})
}

func TestDeleteEntry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewEntryService(db)
	user := testutil.CreateTestUser(t, db)
	entry := testutil.CreateTestEntry(t, db, user.ID, "60.00", 2)

	testutil.AssertNoError(t, svc.DeleteEntry(user.ID, entry.ID))

	_, err := svc.GetEntryByID(user.ID, entry.ID)
	testutil.AssertAppError(t, err, "ENTRY_NOT_FOUND")

	var count int64
	db.Unscoped().Model(&models.Installment{}).Where("entry_id = ?", entry.ID).Count(&count)
	if count != 0 {
		t.Errorf("expected installments to be removed, found %d", count)
	}
}
