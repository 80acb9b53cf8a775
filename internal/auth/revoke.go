package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/campusconnect/campus/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Revocations persists signed-out token ids.
type Revocations struct {
	db *gorm.DB
}

// NewRevocations returns a revocation list backed by db.
func NewRevocations(db *gorm.DB) *Revocations {
	return &Revocations{db: db}
}

// Revoke blocks the token described by claims until it expires.
func (r *Revocations) Revoke(claims *Claims) error {
	row := models.RevokedToken{
		JTI:    claims.ID,
		UserID: claims.Subject,
	}
	if claims.ExpiresAt != nil {
		row.ExpiresAt = claims.ExpiresAt.Time
	}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("auth: revoke %s: %w", claims.ID, err)
	}
	return nil
}

// IsRevoked reports whether jti was signed out.
func (r *Revocations) IsRevoked(jti string) (bool, error) {
	var row models.RevokedToken
	err := r.db.Where("jti = ?", jti).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("auth: check revocation %s: %w", jti, err)
	}
	return true, nil
}

// PurgeExpired deletes revocations whose tokens would have expired anyway.
func (r *Revocations) PurgeExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at < ?", now).Delete(&models.RevokedToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("auth: purge revocations: %w", res.Error)
	}
	return res.RowsAffected, nil
}
