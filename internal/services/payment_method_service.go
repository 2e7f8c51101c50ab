package services

import (
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finora/internal/errors"
	"finora/internal/ledger"
	"finora/internal/models"
	"finora/internal/tenant"
)

// paymentMethodService handles payment method business logic.
type paymentMethodService struct {
	db *gorm.DB
}

// NewPaymentMethodService creates a new PaymentMethodServicer.
func NewPaymentMethodService(db *gorm.DB) PaymentMethodServicer {
	return &paymentMethodService{db: db}
}

func (s *paymentMethodService) checkName(userID, name, exceptID string) error {
	q := s.db.Model(&models.PaymentMethod{}).
		Scopes(tenant.Scope(userID)).
		Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.WithMessage(apperrors.ErrDuplicateName, "payment method with this name already exists")
	}
	return nil
}

func normalizePaymentMethod(in *PaymentMethodInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "payment method name is required")
	}
	if in.CreditLimit != nil && in.CreditLimit.IsNegative() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "credit limit cannot be negative")
	}
	if in.CreditLimit != nil && !ledger.InRange(*in.CreditLimit) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "credit limit is too large")
	}
	return nil
}

func creditLimit(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d.Round(2))
}

// CreatePaymentMethod creates a payment method.
func (s *paymentMethodService) CreatePaymentMethod(userID string, in PaymentMethodInput) (*models.PaymentMethod, error) {
	if err := normalizePaymentMethod(&in); err != nil {
		return nil, err
	}
	if err := s.checkName(userID, in.Name, ""); err != nil {
		return nil, err
	}

	pm := &models.PaymentMethod{
		Name:        in.Name,
		Type:        in.Type,
		Bank:        in.Bank,
		CreditLimit: creditLimit(in.CreditLimit),
		IsActive:    in.IsActive,
		Note:        in.Note,
	}
	tenant.Claim(pm, userID)

	if err := s.db.Create(pm).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return pm, nil
}

// GetPaymentMethods lists the tenant's payment methods, optionally by status.
func (s *paymentMethodService) GetPaymentMethods(userID string, active *bool) ([]models.PaymentMethod, error) {
	q := s.db.Scopes(tenant.Scope(userID))
	if active != nil {
		q = q.Where("is_active = ?", *active)
	}
	var methods []models.PaymentMethod
	if err := q.Order("name").Find(&methods).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return methods, nil
}

// GetPaymentMethodByID retrieves a payment method owned by userID.
func (s *paymentMethodService) GetPaymentMethodByID(userID, id string) (*models.PaymentMethod, error) {
	return tenant.Find[models.PaymentMethod](s.db, userID, id, apperrors.ErrPaymentMethodNotFound)
}

// UpdatePaymentMethod replaces the editable fields of a payment method.
func (s *paymentMethodService) UpdatePaymentMethod(userID, id string, in PaymentMethodInput) (*models.PaymentMethod, error) {
	pm, err := s.GetPaymentMethodByID(userID, id)
	if err != nil {
		return nil, err
	}
	if err := normalizePaymentMethod(&in); err != nil {
		return nil, err
	}
	if err := s.checkName(userID, in.Name, pm.ID); err != nil {
		return nil, err
	}

	pm.Name = in.Name
	pm.Type = in.Type
	pm.Bank = in.Bank
	pm.CreditLimit = creditLimit(in.CreditLimit)
	pm.IsActive = in.IsActive
	pm.Note = in.Note

	if err := s.db.Save(pm).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return pm, nil
}

// TogglePaymentMethod flips the active flag.
func (s *paymentMethodService) TogglePaymentMethod(userID, id string) (*models.PaymentMethod, error) {
	pm, err := s.GetPaymentMethodByID(userID, id)
	if err != nil {
		return nil, err
	}
	pm.IsActive = !pm.IsActive
	if err := s.db.Model(pm).Update("is_active", pm.IsActive).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return pm, nil
}

// DeletePaymentMethod deletes a payment method no installment refers to.
func (s *paymentMethodService) DeletePaymentMethod(userID, id string) error {
	pm, err := s.GetPaymentMethodByID(userID, id)
	if err != nil {
		return err
	}

	var used int64
	if err := s.db.Model(&models.Installment{}).
		Scopes(tenant.Scope(userID)).
		Where("payment_method_id = ?", pm.ID).
		Count(&used).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if used > 0 {
		return apperrors.ErrPaymentMethodInUse
	}

	if err := s.db.Delete(pm).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
