package services

import (
	"strings"

	"gorm.io/gorm"

	"finora/internal/auth"
	apperrors "finora/internal/errors"
	"finora/internal/models"
	"finora/internal/pagination"
	"finora/internal/repository"
)

// userService handles account management.
type userService struct {
	db     *gorm.DB
	users  auth.UserRepository
	hasher auth.PasswordHasher
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB, hasher auth.PasswordHasher) UserServicer {
	return &userService{db: db, users: repository.NewUserRepository(db), hasher: hasher}
}

// Register creates an active, non-admin user.
func (s *userService) Register(email, name, password string) (*models.User, error) {
	return s.create(email, name, password, false)
}

// CreateAdmin creates an active administrator. The longer admin password
// rule applies.
func (s *userService) CreateAdmin(email, name, password string) (*models.User, error) {
	return s.create(email, name, password, true)
}

func (s *userService) create(email, name, password string, admin bool) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email and name are required")
	}
	if err := checkStrength(password, admin); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      admin,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID
func (s *userService) GetUser(userID string) (*models.User, error) {
	return s.users.FindByID(userID)
}

// UpdateProfile changes the name and/or email of a user.
func (s *userService) UpdateProfile(userID string, name, email *string) (*models.User, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name cannot be empty")
		}
		fields["name"] = trimmed
	}
	if email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*email))
		if normalized == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email cannot be empty")
		}
		if normalized != user.Email {
			other, err := s.users.FindByEmail(normalized)
			if err == nil && other.ID != user.ID {
				return nil, apperrors.ErrDuplicateEmail
			}
			fields["email"] = normalized
		}
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.users.UpdateFields(userID, fields); err != nil {
		return nil, err
	}
	return s.users.FindByID(userID)
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *userService) ChangePassword(userID, current, newPassword, confirm string) error {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		return apperrors.WithMessage(apperrors.ErrInvalidCredentials, "Current password is incorrect")
	}
	if newPassword != confirm {
		return apperrors.ErrPasswordMismatch
	}
	if err := checkStrength(newPassword, false); err != nil {
		return err
	}
	return s.setPassword(userID, newPassword)
}

// ChangeAdminPassword is the administrator self-service change. Beyond the
// longer length rule it refuses the current password and any password that
// matches another active non-admin user's hash.
//
// The reuse check verifies against every active non-admin user, so its cost
// grows linearly with the user base.
func (s *userService) ChangeAdminPassword(userID, current, newPassword, confirm string) error {
	admin, err := s.users.FindByID(userID)
	if err != nil {
		return err
	}
	if !admin.IsAdmin {
		return apperrors.ErrAdminRequired
	}
	if !s.hasher.Verify(current, admin.PasswordHash) {
		return apperrors.WithMessage(apperrors.ErrInvalidCredentials, "Current password is incorrect")
	}
	if newPassword != confirm {
		return apperrors.ErrPasswordMismatch
	}
	if err := checkStrength(newPassword, true); err != nil {
		return err
	}
	if s.hasher.Verify(newPassword, admin.PasswordHash) {
		return apperrors.WithMessage(apperrors.ErrPasswordReused, "New password must differ from the current one")
	}

	others, err := s.users.ListActiveNonAdmin()
	if err != nil {
		return err
	}
	for _, u := range others {
		if s.hasher.Verify(newPassword, u.PasswordHash) {
			return apperrors.ErrPasswordReused
		}
	}

	return s.setPassword(userID, newPassword)
}

// ResetPassword sets a new password for email without knowing the old one.
// Used by the admin CLI.
func (s *userService) ResetPassword(email, newPassword string) error {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		return err
	}
	if err := checkStrength(newPassword, user.IsAdmin); err != nil {
		return err
	}
	return s.setPassword(user.ID, newPassword)
}

func (s *userService) setPassword(userID, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.users.UpdateFields(userID, map[string]any{"password_hash": hash})
}

// ListUsers retrieves a paginated list of users, optionally filtered by status.
func (s *userService) ListUsers(active *bool, page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	page.Defaults()

	base := s.db.Model(&models.User{})
	if active != nil {
		base = base.Where("is_active = ?", *active)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var users []models.User
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(users, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// Deactivate soft-disables a user. Administrators cannot disable themselves.
func (s *userService) Deactivate(actorID, userID string) error {
	if actorID == userID {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "you cannot deactivate your own account")
	}
	return s.users.UpdateFields(userID, map[string]any{"is_active": false})
}

func checkStrength(password string, admin bool) error {
	var err error
	if admin {
		err = auth.ValidateAdminPasswordStrength(password)
	} else {
		err = auth.ValidatePasswordStrength(password)
	}
	if err != nil {
		return apperrors.WithMessage(apperrors.ErrWeakPassword, strengthMessage(err, admin))
	}
	return nil
}

func strengthMessage(err error, admin bool) string {
	switch err {
	case auth.ErrPasswordTooShort:
		if admin {
			return "Password must be at least 12 characters"
		}
		return "Password must be at least 8 characters"
	case auth.ErrPasswordTooLong:
		return "Password must be at most 72 bytes"
	}
	return "Password must contain upper and lower case letters, a digit and a symbol"
}
