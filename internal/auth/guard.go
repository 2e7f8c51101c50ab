package auth

import (
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "finora/internal/errors"
	"finora/internal/models"
)

const (
	// FailureThreshold is the number of failures in FailureWindow that locks a pair.
	FailureThreshold = 4
	FailureWindow    = 30 * time.Minute
	LockoutDuration  = 30 * time.Minute
)

// AttemptStore is the login-attempt ledger the guard derives its state from.
type AttemptStore interface {
	// ActiveBlock returns the latest blocked_until after now for the pair, or nil.
	ActiveBlock(email string, admin bool, now time.Time) (*time.Time, error)
	Record(attempt *models.LoginAttempt) error
	// CountFailuresSince counts uncleared failures created at or after since.
	CountFailuresSince(email string, admin bool, since time.Time) (int64, error)
	Block(attemptID string, until time.Time) error
	// Clear removes every blocked_until for the pair, marks its failures as
	// cleared and returns how many blocks were lifted.
	Clear(email string, admin bool) (int64, error)
}

// Attempt describes one login call.
type Attempt struct {
	Email     string
	Admin     bool
	UserID    *string
	IP        string
	UserAgent string
	Success   bool
}

// Guard locks an (email, admin) pair after repeated failed logins. The
// client IP is stored for audit only and never gates.
type Guard struct {
	store AttemptStore
	now   func() time.Time
}

// NewGuard returns a Guard backed by store.
func NewGuard(store AttemptStore) *Guard {
	return &Guard{store: store, now: time.Now}
}

// Check rejects the pair while a lockout is in force. It runs before
// credentials are verified.
func (g *Guard) Check(email string, admin bool) error {
	now := g.now()
	until, err := g.store.ActiveBlock(normalizeEmail(email), admin, now)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if until != nil {
		return lockedError(*until, now)
	}
	return nil
}

// Record appends the attempt and locks the pair when the trailing failure
// count reaches FailureThreshold. A locked pair rejects the current call even
// when its credentials were valid.
func (g *Guard) Record(a Attempt) error {
	now := g.now()
	row := &models.LoginAttempt{
		Email:          normalizeEmail(a.Email),
		IsAdminAttempt: a.Admin,
		UserID:         a.UserID,
		IPAddress:      a.IP,
		UserAgent:      truncate(a.UserAgent, 512),
		Success:        a.Success,
	}
	if err := g.store.Record(row); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	failures, err := g.store.CountFailuresSince(row.Email, a.Admin, now.Add(-FailureWindow))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if failures < FailureThreshold {
		return nil
	}

	until := now.Add(LockoutDuration)
	if err := g.store.Block(row.ID, until); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return lockedError(until, now)
}

// Unblock lifts any lockout for the pair and forgives its failures, so the
// next login starts from an empty failure window.
func (g *Guard) Unblock(email string, admin bool) (int64, error) {
	n, err := g.store.Clear(normalizeEmail(email), admin)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return n, nil
}

// RemainingMinutes rounds the time left until `until` up to whole minutes.
func RemainingMinutes(until, now time.Time) int {
	m := int(math.Ceil(until.Sub(now).Minutes()))
	if m < 1 {
		m = 1
	}
	return m
}

func lockedError(until, now time.Time) error {
	minutes := RemainingMinutes(until, now)
	return apperrors.WithDetail(
		apperrors.WithMessage(apperrors.ErrAccountLocked,
			fmt.Sprintf("Too many failed login attempts. Try again in %d minutes.", minutes)),
		map[string]any{
			"message":           fmt.Sprintf("Too many failed login attempts. Try again in %d minutes.", minutes),
			"remaining_minutes": minutes,
		},
	)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
