// Package tenant confines persistence to rows owned by the authenticated user.
//
// The owner id handed to these helpers must come from the authenticated
// request context. A lookup that misses because the row belongs to someone
// else is reported exactly like a row that does not exist.
package tenant

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "finora/internal/errors"
)

// ErrMissingTenant is attached to a query scoped with an empty owner id.
var ErrMissingTenant = errors.New("tenant scope requires a user id")

// Owned is implemented by every tenant-scoped model.
type Owned interface {
	OwnerID() string
	SetOwner(userID string)
}

// Scope returns a GORM scope restricting a query to userID's rows. An empty
// userID fails the query instead of widening it.
func Scope(userID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if userID == "" {
			_ = db.AddError(ErrMissingTenant)
			return db.Where("1 = 0")
		}
		return db.Where(column("user_id", userID))
	}
}

// Find loads the row of type T with the given id owned by userID.
// Misses, including rows owned by other tenants, return notFound.
func Find[T any](db *gorm.DB, userID, id string, notFound *apperrors.AppError) (*T, error) {
	var rec T
	err := db.Scopes(Scope(userID)).Where(column("id", id)).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &rec, nil
}

// Exists reports whether a row of type T with the given id is owned by userID.
func Exists[T any](db *gorm.DB, userID, id string) (bool, error) {
	var count int64
	err := db.Model(new(T)).Scopes(Scope(userID)).Where(column("id", id)).Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

// Claim stamps rec with its owner before it is created.
func Claim(rec Owned, userID string) {
	rec.SetOwner(userID)
}

// Verify returns notFound unless rec belongs to userID.
func Verify(rec Owned, userID string, notFound *apperrors.AppError) error {
	if rec == nil || userID == "" || rec.OwnerID() != userID {
		return notFound
	}
	return nil
}

func column(name string, value any) clause.Eq {
	return clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: name}, Value: value}
}
