package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finora/internal/errors"
	"finora/internal/ledger"
	"finora/internal/logger"
	"finora/internal/models"
	"finora/internal/pagination"
	"finora/internal/tenant"
)

// MaxInstallments bounds the installment count of a single entry.
const MaxInstallments = 360

// entryService handles financial entries and the generation of their
// installments.
type entryService struct {
	db *gorm.DB
}

// NewEntryService creates a new EntryServicer.
func NewEntryService(db *gorm.DB) EntryServicer {
	return &entryService{db: db}
}

func normalizeEntry(in *EntryInput) error {
	in.Counterparty = strings.TrimSpace(in.Counterparty)
	if in.Counterparty == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "counterparty is required")
	}
	if in.Kind != models.EntryKindExpense && in.Kind != models.EntryKindIncome {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "kind must be expense or income")
	}
	if in.InstallmentCount < 1 || in.InstallmentCount > MaxInstallments {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "installment count must be between 1 and 360")
	}
	if !ledger.IsCents(in.TotalAmount) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "total amount must have at most 2 decimal places")
	}
	if !ledger.InRange(in.TotalAmount) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "total amount is too large")
	}
	if in.FirstDueDate.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "first due date is required")
	}
	in.FirstDueDate = ledger.Day(in.FirstDueDate)
	if in.EntryDate.IsZero() {
		in.EntryDate = time.Now()
	}
	in.EntryDate = ledger.Day(in.EntryDate)
	return nil
}

// buildInstallments derives the installment rows of an entry. The returned
// rows always sum to total.
func buildInstallments(userID string, total decimal.Decimal, count int, firstDue time.Time, stepMonths int) ([]models.Installment, error) {
	slices, err := ledger.Schedule(total, count, firstDue, stepMonths)
	if err != nil {
		if errors.Is(err, ledger.ErrSumMismatch) {
			return nil, apperrors.Wrap(apperrors.ErrLedgerIntegrity, err)
		}
		return nil, apperrors.Wrap(apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()), err)
	}

	installments := make([]models.Installment, len(slices))
	for i, sl := range slices {
		installments[i] = models.Installment{
			Sequence: sl.Sequence,
			DueDate:  sl.DueDate,
			Amount:   sl.Amount,
		}
		tenant.Claim(&installments[i], userID)
	}
	return installments, nil
}

// verifyEntry re-reads the persisted installments of entry and checks they
// sum to its total.
func verifyEntry(tx *gorm.DB, entry *models.FinancialEntry) error {
	var amounts []decimal.Decimal
	if err := tx.Model(&models.Installment{}).
		Scopes(tenant.Scope(entry.UserID)).
		Where("entry_id = ?", entry.ID).
		Pluck("amount", &amounts).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(amounts) != entry.InstallmentCount {
		logger.Get().Errorw("Ledger integrity violated",
			"entry_id", entry.ID, "user_id", entry.UserID,
			"expected_count", entry.InstallmentCount, "actual_count", len(amounts))
		return apperrors.ErrLedgerIntegrity
	}
	if err := ledger.Verify(entry.TotalAmount, amounts); err != nil {
		logger.Get().Errorw("Ledger integrity violated",
			"entry_id", entry.ID, "user_id", entry.UserID, "error", err)
		return apperrors.Wrap(apperrors.ErrLedgerIntegrity, err)
	}
	return nil
}

// createEntry inserts entry and its installments inside tx.
func createEntry(tx *gorm.DB, userID string, in EntryInput, stepMonths int, recurringID *string) (*models.FinancialEntry, error) {
	if err := checkClassification(tx, userID, in.Kind, in.CategoryID, in.SubcategoryID); err != nil {
		return nil, err
	}
	installments, err := buildInstallments(userID, in.TotalAmount, in.InstallmentCount, in.FirstDueDate, stepMonths)
	if err != nil {
		return nil, err
	}

	entry := &models.FinancialEntry{
		Kind:                     in.Kind,
		EntryDate:                in.EntryDate,
		CategoryID:               in.CategoryID,
		SubcategoryID:            in.SubcategoryID,
		Counterparty:             in.Counterparty,
		TotalAmount:              in.TotalAmount,
		FirstDueDate:             in.FirstDueDate,
		InstallmentCount:         in.InstallmentCount,
		AverageInstallmentAmount: ledger.Average(in.TotalAmount, in.InstallmentCount),
		Note:                     in.Note,
		RecurringEntryID:         recurringID,
		Installments:             installments,
	}
	tenant.Claim(entry, userID)

	if err := tx.Create(entry).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := verifyEntry(tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// CreateEntry creates an entry together with its installments.
func (s *entryService) CreateEntry(userID string, in EntryInput) (*models.FinancialEntry, error) {
	if err := normalizeEntry(&in); err != nil {
		return nil, err
	}

	var entry *models.FinancialEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = createEntry(tx, userID, in, 1, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetEntryByID retrieves an entry with its classification and installments.
func (s *entryService) GetEntryByID(userID, entryID string) (*models.FinancialEntry, error) {
	q := s.db.
		Preload("Category").
		Preload("Subcategory").
		Preload("Installments", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") })
	return tenant.Find[models.FinancialEntry](q, userID, entryID, apperrors.ErrEntryNotFound)
}

// GetUserEntries retrieves a paginated, filtered list of entries.
func (s *entryService) GetUserEntries(userID string, filter EntryFilter, page pagination.PageRequest) (*pagination.PageResponse[models.FinancialEntry], error) {
	page.Defaults()

	base := s.db.Model(&models.FinancialEntry{}).Scopes(tenant.Scope(userID))
	if filter.Kind != nil {
		base = base.Where("kind = ?", *filter.Kind)
	}
	if filter.CategoryID != nil {
		base = base.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.FromDate != nil {
		base = base.Where("entry_date >= ?", ledger.Day(*filter.FromDate))
	}
	if filter.ToDate != nil {
		base = base.Where("entry_date <= ?", ledger.Day(*filter.ToDate))
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var entries []models.FinancialEntry
	if err := base.
		Order("entry_date DESC, created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(entries, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateEntry replaces an entry and regenerates all of its installments in
// one transaction. Payment data on the old installments is discarded.
func (s *entryService) UpdateEntry(userID, entryID string, in EntryInput) (*models.FinancialEntry, error) {
	if err := normalizeEntry(&in); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		entry, err := tenant.Find[models.FinancialEntry](tx, userID, entryID, apperrors.ErrEntryNotFound)
		if err != nil {
			return err
		}
		if err := checkClassification(tx, userID, in.Kind, in.CategoryID, in.SubcategoryID); err != nil {
			return err
		}
		installments, err := buildInstallments(userID, in.TotalAmount, in.InstallmentCount, in.FirstDueDate, 1)
		if err != nil {
			return err
		}

		var paid int64
		if err := tx.Model(&models.Installment{}).
			Scopes(tenant.Scope(userID)).
			Where("entry_id = ? AND paid = ?", entry.ID, true).
			Count(&paid).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if paid > 0 {
			logger.Get().Warnw("Entry edit discards paid installments",
				"entry_id", entry.ID, "user_id", userID, "paid_installments", paid)
		}

		if err := deleteInstallments(tx, userID, entry.ID); err != nil {
			return err
		}

		entry.Kind = in.Kind
		entry.EntryDate = in.EntryDate
		entry.CategoryID = in.CategoryID
		entry.SubcategoryID = in.SubcategoryID
		entry.Counterparty = in.Counterparty
		entry.TotalAmount = in.TotalAmount
		entry.FirstDueDate = in.FirstDueDate
		entry.InstallmentCount = in.InstallmentCount
		entry.AverageInstallmentAmount = ledger.Average(in.TotalAmount, in.InstallmentCount)
		entry.Note = in.Note
		if err := tx.Omit("Category", "Subcategory", "Installments").Save(entry).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for i := range installments {
			installments[i].EntryID = entry.ID
		}
		if err := tx.Create(&installments).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return verifyEntry(tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return s.GetEntryByID(userID, entryID)
}

// DeleteEntry removes an entry and its installments.
func (s *entryService) DeleteEntry(userID, entryID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		entry, err := tenant.Find[models.FinancialEntry](tx, userID, entryID, apperrors.ErrEntryNotFound)
		if err != nil {
			return err
		}
		if err := deleteInstallments(tx, userID, entry.ID); err != nil {
			return err
		}
		if err := tx.Delete(entry).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetEntryInstallments lists the installments of an entry in sequence order.
func (s *entryService) GetEntryInstallments(userID, entryID string) ([]models.Installment, error) {
	ok, err := tenant.Exists[models.FinancialEntry](s.db, userID, entryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrEntryNotFound
	}

	var installments []models.Installment
	if err := s.db.Scopes(tenant.Scope(userID)).
		Where("entry_id = ?", entryID).
		Preload("PaymentMethod").
		Order("sequence").
		Find(&installments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return installments, nil
}

// deleteInstallments hard-deletes every installment of an entry so the
// (entry_id, sequence) index is free for regeneration.
func deleteInstallments(tx *gorm.DB, userID, entryID string) error {
	if err := tx.Unscoped().
		Scopes(tenant.Scope(userID)).
		Where("entry_id = ?", entryID).
		Delete(&models.Installment{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
