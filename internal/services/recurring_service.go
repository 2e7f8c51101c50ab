package services

import (
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "finora/internal/errors"
	"finora/internal/ledger"
	"finora/internal/logger"
	"finora/internal/models"
	"finora/internal/tenant"
)

const autoNotePrefix = "[auto]"

// recurringService handles recurring entry templates and the entries
// generated from them.
type recurringService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRecurringService creates a new RecurringServicer.
func NewRecurringService(db *gorm.DB) RecurringServicer {
	return &recurringService{db: db, now: time.Now}
}

func normalizeRecurring(in *RecurringInput) error {
	in.Counterparty = strings.TrimSpace(in.Counterparty)
	switch {
	case in.Counterparty == "":
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "counterparty is required")
	case in.Kind != models.EntryKindExpense && in.Kind != models.EntryKindIncome:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "kind must be expense or income")
	case in.DueDay < 1 || in.DueDay > 31:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "due day must be between 1 and 31")
	case in.InstallmentCount < 1 || in.InstallmentCount > MaxInstallments:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "installment count must be between 1 and 360")
	case in.Frequency.Months() == 0:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "frequency must be monthly, quarterly or yearly")
	case !in.TotalAmount.IsPositive() || !ledger.IsCents(in.TotalAmount):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "total amount must be positive with at most 2 decimal places")
	case !ledger.InRange(in.TotalAmount):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "total amount is too large")
	}
	if in.StartDate.IsZero() {
		in.StartDate = time.Now()
	}
	in.StartDate = ledger.Day(in.StartDate)
	return nil
}

func applyRecurring(rec *models.RecurringEntry, in RecurringInput) {
	rec.Kind = in.Kind
	rec.CategoryID = in.CategoryID
	rec.SubcategoryID = in.SubcategoryID
	rec.Counterparty = in.Counterparty
	rec.TotalAmount = in.TotalAmount
	rec.DueDay = in.DueDay
	rec.InstallmentCount = in.InstallmentCount
	rec.Frequency = in.Frequency
	rec.StartDate = in.StartDate
	rec.Note = in.Note
}

// CreateRecurring creates an active recurring template.
func (s *recurringService) CreateRecurring(userID string, in RecurringInput) (*models.RecurringEntry, error) {
	if err := normalizeRecurring(&in); err != nil {
		return nil, err
	}
	if err := checkClassification(s.db, userID, in.Kind, in.CategoryID, in.SubcategoryID); err != nil {
		return nil, err
	}

	rec := &models.RecurringEntry{IsActive: true}
	applyRecurring(rec, in)
	tenant.Claim(rec, userID)

	if err := s.db.Create(rec).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rec, nil
}

// GetUserRecurring lists the tenant's templates.
func (s *recurringService) GetUserRecurring(userID string) ([]models.RecurringEntry, error) {
	var recs []models.RecurringEntry
	if err := s.db.Scopes(tenant.Scope(userID)).
		Order("is_active DESC, counterparty").
		Find(&recs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return recs, nil
}

// GetRecurringByID retrieves a template owned by userID.
func (s *recurringService) GetRecurringByID(userID, id string) (*models.RecurringEntry, error) {
	return tenant.Find[models.RecurringEntry](s.db, userID, id, apperrors.ErrRecurringNotFound)
}

// UpdateRecurring replaces the editable fields of a template. Entries already
// generated are left untouched.
func (s *recurringService) UpdateRecurring(userID, id string, in RecurringInput) (*models.RecurringEntry, error) {
	rec, err := s.GetRecurringByID(userID, id)
	if err != nil {
		return nil, err
	}
	if err := normalizeRecurring(&in); err != nil {
		return nil, err
	}
	if err := checkClassification(s.db, userID, in.Kind, in.CategoryID, in.SubcategoryID); err != nil {
		return nil, err
	}

	applyRecurring(rec, in)
	if err := s.db.Save(rec).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rec, nil
}

// ToggleRecurring flips the active flag of a template.
func (s *recurringService) ToggleRecurring(userID, id string) (*models.RecurringEntry, error) {
	rec, err := s.GetRecurringByID(userID, id)
	if err != nil {
		return nil, err
	}
	rec.IsActive = !rec.IsActive
	if err := s.db.Model(rec).Update("is_active", rec.IsActive).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rec, nil
}

// DeleteRecurring deletes a template. Generated entries keep their link.
func (s *recurringService) DeleteRecurring(userID, id string) error {
	rec, err := s.GetRecurringByID(userID, id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(rec).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Generate creates a financial entry from an active template. The first
// installment falls on the template's due day of the current month, or of
// the next period when that day is not after today.
func (s *recurringService) Generate(userID, id string) (*models.FinancialEntry, error) {
	today := ledger.Day(s.now())

	var entry *models.FinancialEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		rec, err := tenant.Find[models.RecurringEntry](tx, userID, id, apperrors.ErrRecurringNotFound)
		if err != nil {
			return err
		}
		if !rec.IsActive {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "recurring entry is inactive")
		}

		step := rec.Frequency.Months()
		if step == 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "recurring entry has an unknown frequency")
		}

		note := autoNotePrefix
		if rec.Note != "" {
			note += " " + rec.Note
		}
		in := EntryInput{
			Kind:             rec.Kind,
			EntryDate:        today,
			CategoryID:       rec.CategoryID,
			SubcategoryID:    rec.SubcategoryID,
			Counterparty:     rec.Counterparty,
			TotalAmount:      rec.TotalAmount,
			FirstDueDate:     nextDueDate(today, rec.DueDay, step),
			InstallmentCount: rec.InstallmentCount,
			Note:             note,
		}

		entry, err = createEntry(tx, userID, in, step, &rec.ID)
		if err != nil {
			return err
		}

		generatedAt := s.now()
		if err := tx.Model(rec).Update("last_generated_at", generatedAt).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("Recurring entry generated",
		"recurring_id", id, "entry_id", entry.ID, "user_id", userID,
		"installments", entry.InstallmentCount)
	return entry, nil
}

// nextDueDate returns dueDay of today's month when it is still ahead,
// otherwise dueDay of the month stepMonths later.
func nextDueDate(today time.Time, dueDay, stepMonths int) time.Time {
	due := ledger.DateOn(today, dueDay)
	if due.After(today) {
		return due
	}
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	return ledger.DateOn(ledger.AddMonths(first, stepMonths), dueDay)
}
