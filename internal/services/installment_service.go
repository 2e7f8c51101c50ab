package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finora/internal/errors"
	"finora/internal/ledger"
	"finora/internal/models"
	"finora/internal/pagination"
	"finora/internal/tenant"
)

// installmentService handles installment payment tracking.
type installmentService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewInstallmentService creates a new InstallmentServicer.
func NewInstallmentService(db *gorm.DB) InstallmentServicer {
	return &installmentService{db: db, now: time.Now}
}

// GetUserInstallments retrieves a paginated list of installments ordered by
// due date.
func (s *installmentService) GetUserInstallments(userID string, filter InstallmentFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Installment], error) {
	page.Defaults()

	base := s.db.Model(&models.Installment{}).Scopes(tenant.Scope(userID))
	if filter.Paid != nil {
		base = base.Where("paid = ?", *filter.Paid)
	}
	if filter.FromDate != nil {
		base = base.Where("due_date >= ?", ledger.Day(*filter.FromDate))
	}
	if filter.ToDate != nil {
		base = base.Where("due_date <= ?", ledger.Day(*filter.ToDate))
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var installments []models.Installment
	if err := base.
		Preload("PaymentMethod").
		Order("due_date, sequence").
		Scopes(pagination.Paginate(page)).
		Find(&installments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(installments, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetInstallmentByID retrieves an installment owned by userID.
func (s *installmentService) GetInstallmentByID(userID, id string) (*models.Installment, error) {
	return tenant.Find[models.Installment](s.db.Preload("PaymentMethod"), userID, id, apperrors.ErrInstallmentNotFound)
}

// SetPaid marks an installment paid or unpaid. Unpaying clears every
// payment field.
func (s *installmentService) SetPaid(userID, id string, upd PaymentUpdate) (*models.Installment, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		inst, err := tenant.Find[models.Installment](tx, userID, id, apperrors.ErrInstallmentNotFound)
		if err != nil {
			return err
		}
		if _, err := parentEntry(tx, userID, inst); err != nil {
			return err
		}

		if !upd.Paid {
			return tx.Model(inst).Updates(map[string]interface{}{
				"paid":              false,
				"paid_at":           nil,
				"paid_amount":       nil,
				"payment_method_id": nil,
				"payment_note":      nil,
			}).Error
		}

		paidAt := ledger.Day(s.now())
		if upd.PaidAt != nil {
			paidAt = ledger.Day(*upd.PaidAt)
		}
		amount := inst.Amount
		if upd.PaidAmount != nil {
			if upd.PaidAmount.IsNegative() || !ledger.IsCents(*upd.PaidAmount) || !ledger.InRange(*upd.PaidAmount) {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "paid amount must be a non-negative value in cents")
			}
			amount = *upd.PaidAmount
		}
		if upd.PaymentMethodID != nil {
			pm, err := tenant.Find[models.PaymentMethod](tx, userID, *upd.PaymentMethodID, apperrors.ErrPaymentMethodNotFound)
			if err != nil {
				return err
			}
			if !pm.IsActive {
				return apperrors.ErrPaymentMethodInactive
			}
		}

		return tx.Model(inst).Updates(map[string]interface{}{
			"paid":              true,
			"paid_at":           paidAt,
			"paid_amount":       decimal.NewNullDecimal(amount),
			"payment_method_id": upd.PaymentMethodID,
			"payment_note":      upd.PaymentNote,
		}).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetInstallmentByID(userID, id)
}

// Reschedule moves an unpaid installment and changes its amount. The parent
// entry total and average follow so the entry still sums correctly.
func (s *installmentService) Reschedule(userID, id string, dueDate time.Time, amount decimal.Decimal) (*models.Installment, error) {
	if dueDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "due date is required")
	}
	if !amount.IsPositive() || !ledger.IsCents(amount) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive with at most 2 decimal places")
	}
	if !ledger.InRange(amount) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount is too large")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		inst, err := tenant.Find[models.Installment](tx, userID, id, apperrors.ErrInstallmentNotFound)
		if err != nil {
			return err
		}
		if inst.Paid {
			return apperrors.ErrInstallmentPaid
		}
		entry, err := parentEntry(tx, userID, inst)
		if err != nil {
			return err
		}

		if err := tx.Model(inst).Updates(map[string]interface{}{
			"due_date": ledger.Day(dueDate),
			"amount":   amount,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var amounts []decimal.Decimal
		if err := tx.Model(&models.Installment{}).
			Scopes(tenant.Scope(userID)).
			Where("entry_id = ?", entry.ID).
			Pluck("amount", &amounts).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		total := ledger.Sum(amounts)
		entry.TotalAmount = total
		entry.AverageInstallmentAmount = ledger.Average(total, entry.InstallmentCount)
		if err := tx.Model(entry).Updates(map[string]interface{}{
			"total_amount":               entry.TotalAmount,
			"average_installment_amount": entry.AverageInstallmentAmount,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return verifyEntry(tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInstallmentByID(userID, id)
}

// parentEntry loads the entry inst belongs to and rejects it unless it has
// the same owner as the installment.
func parentEntry(tx *gorm.DB, userID string, inst *models.Installment) (*models.FinancialEntry, error) {
	var entry models.FinancialEntry
	if err := tx.Where("id = ?", inst.EntryID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEntryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tenant.Verify(&entry, userID, apperrors.ErrEntryNotFound); err != nil {
		return nil, err
	}
	return &entry, nil
}
