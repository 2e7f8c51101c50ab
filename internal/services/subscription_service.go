package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "finora/internal/errors"
	"finora/internal/ledger"
	"finora/internal/logger"
	"finora/internal/models"
	"finora/internal/tenant"
)

// DefaultTrialDays is the trial length granted on first gated access.
const DefaultTrialDays = 14

// transitions lists the statuses each status may move to. The empty status
// stands for "no subscription yet".
var transitions = map[models.SubscriptionStatus][]models.SubscriptionStatus{
	"":                           {models.SubscriptionTrial, models.SubscriptionActive},
	models.SubscriptionTrial:     {models.SubscriptionActive, models.SubscriptionPastDue, models.SubscriptionCancelled},
	models.SubscriptionActive:    {models.SubscriptionActive, models.SubscriptionPastDue, models.SubscriptionCancelled},
	models.SubscriptionPastDue:   {models.SubscriptionActive, models.SubscriptionCancelled},
	models.SubscriptionCancelled: {models.SubscriptionActive},
}

// CanTransition reports whether a subscription may move from one status to another.
func CanTransition(from, to models.SubscriptionStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transition(sub *models.Subscription, to models.SubscriptionStatus) error {
	if !CanTransition(sub.Status, to) {
		return apperrors.WithMessage(apperrors.ErrInvalidTransition,
			"cannot move subscription from "+string(sub.Status)+" to "+string(to))
	}
	sub.Status = to
	return nil
}

// OverdueDetail is the structured body of a billing-gate rejection.
type OverdueDetail struct {
	Message     string                    `json:"message"`
	Status      models.SubscriptionStatus `json:"status"`
	NextDueDate *string                   `json:"next_due_date"`
	TrialUntil  *string                   `json:"trial_until"`
}

// subscriptionService implements the billing state machine. Overdue
// detection is lazy: it happens when a subscription is read or gated.
type subscriptionService struct {
	db        *gorm.DB
	trialDays int
	now       func() time.Time
}

// NewSubscriptionService creates a new SubscriptionServicer.
func NewSubscriptionService(db *gorm.DB, trialDays int) SubscriptionServicer {
	if trialDays <= 0 {
		trialDays = DefaultTrialDays
	}
	return &subscriptionService{db: db, trialDays: trialDays, now: time.Now}
}

func (s *subscriptionService) today() time.Time {
	return ledger.Day(s.now())
}

// Ensure returns the tenant's subscription, creating a trial when none exists.
func (s *subscriptionService) Ensure(userID string) (*models.Subscription, error) {
	return s.ensure(s.db, userID)
}

func (s *subscriptionService) ensure(tx *gorm.DB, userID string) (*models.Subscription, error) {
	if userID == "" {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, tenant.ErrMissingTenant)
	}

	var sub models.Subscription
	err := tx.Scopes(tenant.Scope(userID)).First(&sub).Error
	if err == nil {
		return &sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	today := s.today()
	trialUntil := today.AddDate(0, 0, s.trialDays)
	sub = models.Subscription{
		PeriodStart: today,
		NextDueDate: &trialUntil,
		TrialUntil:  &trialUntil,
	}
	tenant.Claim(&sub, userID)
	if err := transition(&sub, models.SubscriptionTrial); err != nil {
		return nil, err
	}

	// A concurrent first access may have created the row already.
	res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).Create(&sub)
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		var existing models.Subscription
		if err := tx.Scopes(tenant.Scope(userID)).First(&existing).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return &existing, nil
	}

	logger.Get().Infow("Trial subscription created", "user_id", userID, "trial_until", trialUntil.Format(time.DateOnly))
	return &sub, nil
}

// isOverdue reports whether sub is past its due date and not cancelled.
// A due date of today is still in good standing.
func (s *subscriptionService) isOverdue(sub *models.Subscription) bool {
	return sub.Status != models.SubscriptionCancelled &&
		sub.NextDueDate != nil &&
		ledger.Day(*sub.NextDueDate).Before(s.today())
}

// markOverdue flips an overdue trial or active subscription to past_due.
func (s *subscriptionService) markOverdue(tx *gorm.DB, sub *models.Subscription) error {
	if sub.Status == models.SubscriptionPastDue {
		return nil
	}
	if err := transition(sub, models.SubscriptionPastDue); err != nil {
		return err
	}
	if err := tx.Model(sub).Update("status", sub.Status).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	logger.Get().Infow("Subscription past due", "user_id", sub.UserID, "next_due_date", sub.NextDueDate)
	return nil
}

// Get returns the tenant's subscription after lazy overdue detection.
func (s *subscriptionService) Get(userID string) (*models.Subscription, error) {
	sub, err := s.Ensure(userID)
	if err != nil {
		return nil, err
	}
	if s.isOverdue(sub) {
		if err := s.markOverdue(s.db, sub); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// CheckWriteAccess gates state-changing requests. It provisions a trial on
// first sight and rejects overdue, non-cancelled subscriptions with a
// payment-required error after flipping them to past_due.
func (s *subscriptionService) CheckWriteAccess(userID string) error {
	sub, err := s.Ensure(userID)
	if err != nil {
		return err
	}
	if !s.isOverdue(sub) {
		return nil
	}
	if err := s.markOverdue(s.db, sub); err != nil {
		return err
	}
	return overdueError(sub)
}

func overdueError(sub *models.Subscription) error {
	const msg = "Subscription overdue. Settle the payment to continue."
	return apperrors.WithDetail(apperrors.WithMessage(apperrors.ErrSubscriptionOverdue, msg), OverdueDetail{
		Message:     msg,
		Status:      sub.Status,
		NextDueDate: isoDate(sub.NextDueDate),
		TrialUntil:  isoDate(sub.TrialUntil),
	})
}

func isoDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}

// RecordPayment appends a confirmed payment and activates the subscription.
// The next due date moves one month past the previous one while that is
// still today or later, otherwise one month past today.
func (s *subscriptionService) RecordPayment(userID string, in PaymentInput) (*models.Payment, *models.Subscription, error) {
	if !in.Amount.IsPositive() {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !ledger.IsCents(in.Amount) {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must have at most 2 decimal places")
	}
	if !ledger.InRange(in.Amount) {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount is too large")
	}
	if in.Method == "" {
		in.Method = models.BillingMethodManual
	}
	today := s.today()
	if in.Reference == "" {
		in.Reference = today.Format("2006-01")
	}
	if in.ExternalTransactionID != nil && *in.ExternalTransactionID == "" {
		in.ExternalTransactionID = nil
	}

	var payment *models.Payment
	var sub *models.Subscription
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = s.ensure(tx, userID)
		if err != nil {
			return err
		}
		if sub.Status == models.SubscriptionCancelled {
			return apperrors.ErrSubscriptionCancelled
		}

		if in.ExternalTransactionID != nil {
			var count int64
			if err := tx.Model(&models.Payment{}).
				Where("external_transaction_id = ?", *in.ExternalTransactionID).
				Count(&count).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count > 0 {
				return apperrors.ErrDuplicatePayment
			}
		}

		payment = &models.Payment{
			SubscriptionID:        sub.ID,
			Reference:             in.Reference,
			Amount:                in.Amount,
			PaidAt:                today,
			Method:                in.Method,
			Status:                models.PaymentStatusConfirmed,
			ExternalTransactionID: in.ExternalTransactionID,
		}
		tenant.Claim(payment, userID)
		if err := tx.Create(payment).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := transition(sub, models.SubscriptionActive); err != nil {
			return err
		}
		next := s.advance(sub.NextDueDate, today)
		sub.NextDueDate = &next
		return s.saveBilling(tx, sub)
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Get().Infow("Subscription payment recorded",
		"user_id", userID,
		"reference", payment.Reference,
		"amount", payment.Amount.StringFixed(2),
		"next_due_date", sub.NextDueDate.Format(time.DateOnly),
	)
	return payment, sub, nil
}

func (s *subscriptionService) advance(previous *time.Time, today time.Time) time.Time {
	if previous != nil && !ledger.Day(*previous).Before(today) {
		return ledger.AddMonths(ledger.Day(*previous), 1)
	}
	return ledger.AddMonths(today, 1)
}

// Activate starts or reactivates a subscription. The next due date becomes
// one month from today when it is missing or already past.
func (s *subscriptionService) Activate(userID string, monthlyAmount *decimal.Decimal) (*models.Subscription, error) {
	if monthlyAmount != nil && !monthlyAmount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "monthly amount must be greater than zero")
	}
	if monthlyAmount != nil && !ledger.InRange(*monthlyAmount) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "monthly amount is too large")
	}

	var sub *models.Subscription
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = s.ensure(tx, userID)
		if err != nil {
			return err
		}
		if err := transition(sub, models.SubscriptionActive); err != nil {
			return err
		}
		today := s.today()
		if sub.NextDueDate == nil || ledger.Day(*sub.NextDueDate).Before(today) {
			next := ledger.AddMonths(today, 1)
			sub.NextDueDate = &next
		}
		if monthlyAmount != nil {
			sub.MonthlyAmount = decimal.NewNullDecimal(monthlyAmount.Round(2))
		}
		sub.CancelledAt = nil
		return s.saveBilling(tx, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Cancel moves the subscription to cancelled. Cancelling twice is a no-op.
func (s *subscriptionService) Cancel(userID string) (*models.Subscription, error) {
	var sub *models.Subscription
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = s.ensure(tx, userID)
		if err != nil {
			return err
		}
		if sub.Status == models.SubscriptionCancelled {
			return nil
		}
		if err := transition(sub, models.SubscriptionCancelled); err != nil {
			return err
		}
		now := s.now()
		sub.CancelledAt = &now
		return s.saveBilling(tx, sub)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) saveBilling(tx *gorm.DB, sub *models.Subscription) error {
	err := tx.Model(sub).Select("status", "next_due_date", "monthly_amount", "cancelled_at").Updates(map[string]any{
		"status":         sub.Status,
		"next_due_date":  sub.NextDueDate,
		"monthly_amount": sub.MonthlyAmount,
		"cancelled_at":   sub.CancelledAt,
	}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ListPayments returns the tenant's latest payments, newest first.
func (s *subscriptionService) ListPayments(userID string, limit int) ([]models.Payment, error) {
	if limit < 1 || limit > 120 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit must be between 1 and 120")
	}
	var payments []models.Payment
	if err := s.db.Scopes(tenant.Scope(userID)).
		Order("paid_at DESC, created_at DESC").
		Limit(limit).
		Find(&payments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return payments, nil
}

// Stats summarizes users and subscriptions.
func (s *subscriptionService) Stats() (*BillingStats, error) {
	today := s.today()
	stats := &BillingStats{ByStatus: map[models.SubscriptionStatus]int64{}}

	if err := s.db.Model(&models.User{}).Count(&stats.Users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(&models.User{}).
		Where("last_access_at IS NOT NULL AND last_access_at >= ?", s.now().Add(-7*24*time.Hour)).
		Count(&stats.ActiveLastWeek).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(&models.Subscription{}).
		Where("next_due_date IS NOT NULL AND next_due_date >= ? AND status <> ?", today, models.SubscriptionCancelled).
		Count(&stats.UpToDate).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(&models.Subscription{}).
		Where("next_due_date IS NOT NULL AND next_due_date < ? AND status <> ?", today, models.SubscriptionCancelled).
		Count(&stats.Overdue).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rows []struct {
		Status models.SubscriptionStatus
		Count  int64
	}
	if err := s.db.Model(&models.Subscription{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
	}
	return stats, nil
}
