package services

import (
	"strings"

	"gorm.io/gorm"

	apperrors "finora/internal/errors"
	"finora/internal/models"
	"finora/internal/pagination"
	"finora/internal/tenant"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a new category
func (s *categoryService) CreateCategory(userID, name string, kind models.EntryKind, description string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	// Names are unique per tenant
	var count int64
	if err := s.db.Model(&models.Category{}).
		Scopes(tenant.Scope(userID)).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrDuplicateName, "category with this name already exists")
	}

	category := &models.Category{
		Name:        name,
		Kind:        kind,
		Description: description,
	}
	tenant.Claim(category, userID)

	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

// GetUserCategories retrieves a paginated list of categories for a user,
// optionally filtered by kind, with their subcategories.
func (s *categoryService) GetUserCategories(userID string, kind *models.EntryKind, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	base := s.db.Model(&models.Category{}).Scopes(tenant.Scope(userID))
	if kind != nil {
		base = base.Where("kind = ?", *kind)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := base.
		Preload("Subcategories", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Order("name").
		Scopes(pagination.Paginate(page)).
		Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCategoryByID retrieves a category by ID for a specific user
func (s *categoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	return tenant.Find[models.Category](s.db.Preload("Subcategories"), userID, categoryID, apperrors.ErrCategoryNotFound)
}

// DeleteCategory deletes a category and its subcategories. Categories still
// referenced by entries or recurring templates are kept.
func (s *categoryService) DeleteCategory(userID, categoryID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		category, err := tenant.Find[models.Category](tx, userID, categoryID, apperrors.ErrCategoryNotFound)
		if err != nil {
			return err
		}

		var used int64
		if err := tx.Model(&models.FinancialEntry{}).
			Scopes(tenant.Scope(userID)).
			Where("category_id = ?", category.ID).
			Count(&used).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if used == 0 {
			if err := tx.Model(&models.RecurringEntry{}).
				Scopes(tenant.Scope(userID)).
				Where("category_id = ?", category.ID).
				Count(&used).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if used > 0 {
			return apperrors.ErrCategoryInUse
		}

		if err := tx.Scopes(tenant.Scope(userID)).
			Where("category_id = ?", category.ID).
			Delete(&models.Subcategory{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// CreateSubcategory adds an active subcategory. Names are unique within a category.
func (s *categoryService) CreateSubcategory(userID, categoryID, name string) (*models.Subcategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "subcategory name is required")
	}

	category, err := tenant.Find[models.Category](s.db, userID, categoryID, apperrors.ErrCategoryNotFound)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.Subcategory{}).
		Scopes(tenant.Scope(userID)).
		Where("category_id = ? AND LOWER(name) = ?", category.ID, strings.ToLower(name)).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrDuplicateName, "subcategory with this name already exists")
	}

	sub := &models.Subcategory{
		CategoryID: category.ID,
		Name:       name,
		IsActive:   true,
	}
	tenant.Claim(sub, userID)

	if err := s.db.Create(sub).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return sub, nil
}

// GetSubcategories lists the subcategories of a category.
func (s *categoryService) GetSubcategories(userID, categoryID string, activeOnly bool) ([]models.Subcategory, error) {
	if _, err := tenant.Find[models.Category](s.db, userID, categoryID, apperrors.ErrCategoryNotFound); err != nil {
		return nil, err
	}

	q := s.db.Scopes(tenant.Scope(userID)).Where("category_id = ?", categoryID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var subs []models.Subcategory
	if err := q.Order("name").Find(&subs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return subs, nil
}

// SetSubcategoryActive enables or disables a subcategory.
func (s *categoryService) SetSubcategoryActive(userID, subcategoryID string, active bool) (*models.Subcategory, error) {
	sub, err := tenant.Find[models.Subcategory](s.db, userID, subcategoryID, apperrors.ErrSubcategoryNotFound)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(sub).Update("is_active", active).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	sub.IsActive = active
	return sub, nil
}

// checkClassification validates the category and subcategory of an entry or
// recurring template: both must belong to the tenant, the category must match
// the kind and the subcategory must be active and belong to the category.
func checkClassification(tx *gorm.DB, userID string, kind models.EntryKind, categoryID, subcategoryID *string) error {
	if subcategoryID != nil && categoryID == nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "subcategory requires a category")
	}
	if categoryID == nil {
		return nil
	}

	category, err := tenant.Find[models.Category](tx, userID, *categoryID, apperrors.ErrCategoryNotFound)
	if err != nil {
		return err
	}
	if category.Kind != kind {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category kind does not match entry kind")
	}

	if subcategoryID == nil {
		return nil
	}
	sub, err := tenant.Find[models.Subcategory](tx, userID, *subcategoryID, apperrors.ErrSubcategoryNotFound)
	if err != nil {
		return err
	}
	if sub.CategoryID != category.ID {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "subcategory does not belong to the category")
	}
	if !sub.IsActive {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "subcategory is inactive")
	}
	return nil
}
