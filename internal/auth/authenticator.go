package auth

import (
	"errors"
	"strings"
	"time"

	apperrors "finora/internal/errors"
	"finora/internal/models"
)

// UserRepository is the credential store the auth package reads users from.
// Misses return apperrors.ErrUserNotFound.
type UserRepository interface {
	FindByID(id string) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	Create(user *models.User) error
	UpdateFields(id string, fields map[string]any) error
	ListActiveNonAdmin() ([]models.User, error)
}

// Authenticator checks credentials and resolves bearer tokens to users.
type Authenticator struct {
	users  UserRepository
	hasher PasswordHasher
	tokens *TokenCodec
}

// NewAuthenticator wires the credential store, hasher and token codec.
func NewAuthenticator(users UserRepository, hasher PasswordHasher, tokens *TokenCodec) *Authenticator {
	return &Authenticator{users: users, hasher: hasher, tokens: tokens}
}

// Hasher returns the password hasher.
func (a *Authenticator) Hasher() PasswordHasher { return a.hasher }

// Tokens returns the token codec.
func (a *Authenticator) Tokens() *TokenCodec { return a.tokens }

// VerifyCredentials returns the user when email and password match. The
// user may be inactive; callers decide how to treat that. Unknown emails
// still pay for a hash comparison.
func (a *Authenticator) VerifyCredentials(email, password string) (*models.User, error) {
	user, err := a.users.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			a.hasher.Verify(password, dummyHash)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !a.hasher.Verify(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

// IsAdminAccount reports whether email belongs to an administrator. Lookup
// failures report false.
func (a *Authenticator) IsAdminAccount(email string) bool {
	user, err := a.users.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	return err == nil && user.IsAdmin
}

// ResolveToken decodes token and loads its active user.
func (a *Authenticator) ResolveToken(token string) (*models.User, error) {
	claims, ok := a.tokens.Decode(token)
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}
	user, err := a.users.FindByID(claims.UserID())
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountInactive
	}
	return user, nil
}

// TouchLastAccess records a successful authentication.
func (a *Authenticator) TouchLastAccess(userID string, at time.Time) error {
	return a.users.UpdateFields(userID, map[string]any{"last_access_at": at})
}

// dummyHash is a bcrypt hash of a random string, compared against when the
// email is unknown so both paths cost one bcrypt verification.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z0gNQ1Qm8W3gL4u1XyXe8mGa"
