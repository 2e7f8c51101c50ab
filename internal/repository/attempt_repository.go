package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"finora/internal/auth"
	"finora/internal/models"
)

// attemptRepository is the GORM-backed login-attempt ledger.
type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository creates a new auth.AttemptStore.
func NewAttemptRepository(db *gorm.DB) auth.AttemptStore {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) ActiveBlock(email string, admin bool, now time.Time) (*time.Time, error) {
	var attempt models.LoginAttempt
	err := r.db.
		Where("email = ? AND is_admin_attempt = ? AND blocked_until IS NOT NULL AND blocked_until > ?", email, admin, now).
		Order("blocked_until DESC").
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return attempt.BlockedUntil, nil
}

func (r *attemptRepository) Record(attempt *models.LoginAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *attemptRepository) CountFailuresSince(email string, admin bool, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.LoginAttempt{}).
		Where("email = ? AND is_admin_attempt = ? AND success = ? AND cleared = ? AND created_at >= ?", email, admin, false, false, since).
		Count(&count).Error
	return count, err
}

func (r *attemptRepository) Block(attemptID string, until time.Time) error {
	return r.db.Model(&models.LoginAttempt{}).Where("id = ?", attemptID).Update("blocked_until", until).Error
}

func (r *attemptRepository) Clear(email string, admin bool) (int64, error) {
	var lifted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.LoginAttempt{}).
			Where("email = ? AND is_admin_attempt = ? AND blocked_until IS NOT NULL", email, admin).
			Update("blocked_until", nil)
		if res.Error != nil {
			return res.Error
		}
		lifted = res.RowsAffected
		return tx.Model(&models.LoginAttempt{}).
			Where("email = ? AND is_admin_attempt = ? AND success = ? AND cleared = ?", email, admin, false, false).
			Update("cleared", true).Error
	})
	return lifted, err
}

// RecentAttempts lists the latest attempts, optionally for one email.
func RecentAttempts(db *gorm.DB, email string, limit int) ([]models.LoginAttempt, error) {
	q := db.Order("created_at DESC").Limit(limit)
	if email != "" {
		q = q.Where("email = ?", email)
	}
	var attempts []models.LoginAttempt
	if err := q.Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}
