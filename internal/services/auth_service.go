package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"finora/internal/auth"
	apperrors "finora/internal/errors"
	"finora/internal/logger"
	"finora/internal/models"
	"finora/internal/notify"
	"finora/internal/repository"
)

// authService handles login, token resolution and lockout administration.
type authService struct {
	db            *gorm.DB
	authenticator *auth.Authenticator
	guard         *auth.Guard
	alerter       *notify.Alerter
	now           func() time.Time
}

// NewAuthService creates a new AuthServicer. alerter may be nil.
func NewAuthService(db *gorm.DB, hasher auth.PasswordHasher, tokens *auth.TokenCodec, alerter *notify.Alerter) AuthServicer {
	return &authService{
		db:            db,
		authenticator: auth.NewAuthenticator(repository.NewUserRepository(db), hasher, tokens),
		guard:         auth.NewGuard(repository.NewAttemptRepository(db)),
		alerter:       alerter,
		now:           time.Now,
	}
}

// Login checks the lockout, verifies credentials, records the attempt and
// issues a token. A call that trips the lockout is rejected even when its
// credentials were valid.
func (s *authService) Login(req LoginRequest) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.guard.Check(email, req.Admin); err != nil {
		return nil, err
	}

	user, verifyErr := s.authenticator.VerifyCredentials(email, req.Password)
	if verifyErr != nil && !isCode(verifyErr, apperrors.ErrInvalidCredentials.Code) {
		return nil, verifyErr
	}

	rejection := verifyErr
	if rejection == nil {
		switch {
		case !user.IsActive:
			rejection = apperrors.ErrAccountInactive
		case req.Admin && !user.IsAdmin:
			rejection = apperrors.ErrInvalidCredentials
		}
	}

	attempt := auth.Attempt{
		Email:     email,
		Admin:     req.Admin,
		IP:        req.IP,
		UserAgent: req.UserAgent,
		Success:   rejection == nil,
	}
	if user != nil {
		attempt.UserID = &user.ID
	}
	recordErr := s.guard.Record(attempt)
	if req.Admin {
		s.alertAdminAttempt(email, user, req.IP, outcome(rejection, recordErr))
	}
	if recordErr != nil {
		if isCode(recordErr, apperrors.ErrAccountLocked.Code) {
			logger.Get().Warnw("Login locked out", "email", email, "admin", req.Admin, "ip", req.IP)
		}
		return nil, recordErr
	}
	if rejection != nil {
		return nil, rejection
	}

	now := s.now()
	if err := s.authenticator.TouchLastAccess(user.ID, now); err != nil {
		logger.Get().Errorw("Failed to update last access", "user_id", user.ID, "error", err)
	}
	user.LastAccessAt = &now

	result, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func outcome(rejection, recordErr error) string {
	switch {
	case recordErr != nil && isCode(recordErr, apperrors.ErrAccountLocked.Code):
		return "locked"
	case rejection != nil || recordErr != nil:
		return "failed"
	}
	return "succeeded"
}

// alertAdminAttempt notifies operators of every admin login attempt against
// an administrator account, whatever its outcome.
func (s *authService) alertAdminAttempt(email string, user *models.User, ip, result string) {
	if s.alerter == nil {
		return
	}
	if user != nil {
		if !user.IsAdmin {
			return
		}
	} else if !s.authenticator.IsAdminAccount(email) {
		return
	}
	s.alerter.Alert(fmt.Sprintf("Admin login %s: %s from %s at %s",
		result, email, ip, s.now().UTC().Format(time.RFC3339)))
}

// Authenticate resolves a bearer token to its active user.
func (s *authService) Authenticate(token string) (*models.User, error) {
	return s.authenticator.ResolveToken(token)
}

// IssueToken signs a new access token for user.
func (s *authService) IssueToken(user *models.User) (*LoginResult, error) {
	tokens := s.authenticator.Tokens()
	token, err := tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: s.now().Add(tokens.TTL())}, nil
}

// TokenTTL returns the lifetime of issued tokens.
func (s *authService) TokenTTL() time.Duration {
	return s.authenticator.Tokens().TTL()
}

// Unblock clears the lockout for an (email, admin) pair.
func (s *authService) Unblock(email string, admin bool) (int64, error) {
	if strings.TrimSpace(email) == "" {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "email is required")
	}
	return s.guard.Unblock(email, admin)
}

// RecentAttempts returns the latest login attempts, newest first.
func (s *authService) RecentAttempts(email string, limit int) ([]models.LoginAttempt, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	attempts, err := repository.RecentAttempts(s.db, strings.ToLower(strings.TrimSpace(email)), limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return attempts, nil
}

func isCode(err error, code string) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
