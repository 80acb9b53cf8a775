// Package slot keeps at most one live interview call per user in the
// database, so a second browser tab or CLI cannot join while a call runs.
package slot

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/models"
)

// DefaultHeartbeatTimeout is how long a slot survives without a heartbeat
// before another connection may reclaim it.
const DefaultHeartbeatTimeout = 90 * time.Second

// ErrHeld is returned when the user already has an active call.
var ErrHeld = errors.New("slot: live call already in progress")

// Acquire claims the user's live slot for sessionID. Stale slots (heartbeat
// older than timeout) are expired first. Re-acquiring a slot the same
// session already holds refreshes it.
func Acquire(db *gorm.DB, userID, sessionID, source string, timeout time.Duration) (*models.LiveSession, error) {
	if timeout <= 0 {
		timeout = DefaultHeartbeatTimeout
	}

	var slot *models.LiveSession
	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := expireStale(tx.Where("user_id = ?", userID), now.Add(-timeout), now); err != nil {
			return err
		}

		var existing models.LiveSession
		result := tx.Where("status = ? AND user_id = ?", models.SlotActive, userID).First(&existing)
		if result.Error == nil {
			if existing.SessionID != sessionID {
				return fmt.Errorf("%w (session %s)", ErrHeld, existing.SessionID)
			}
			existing.LastHeartbeat = now
			existing.Source = source
			if err := tx.Save(&existing).Error; err != nil {
				return fmt.Errorf("refresh slot: %w", err)
			}
			slot = &existing
			return nil
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check existing slot: %w", result.Error)
		}

		// A finished row for this session id is reused so the unique index
		// on session_id holds when a dropped call is rejoined.
		var prior models.LiveSession
		if err := tx.Where("session_id = ?", sessionID).First(&prior).Error; err == nil {
			prior.UserID = userID
			prior.Source = source
			prior.Status = models.SlotActive
			prior.LastHeartbeat = now
			prior.CompletedAt = nil
			if err := tx.Save(&prior).Error; err != nil {
				return fmt.Errorf("reopen slot: %w", err)
			}
			slot = &prior
			return nil
		}

		slot = &models.LiveSession{
			SessionID:     sessionID,
			UserID:        userID,
			Source:        source,
			Status:        models.SlotActive,
			LastHeartbeat: now,
		}
		if err := tx.Create(slot).Error; err != nil {
			return fmt.Errorf("create slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("slot: acquire: %w", err)
	}
	return slot, nil
}

// Release marks the slot completed.
func Release(db *gorm.DB, id uint) error {
	result := db.Model(&models.LiveSession{}).
		Where("id = ? AND status = ?", id, models.SlotActive).
		Updates(map[string]interface{}{
			"status":       models.SlotCompleted,
			"completed_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("slot: release: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("slot: release: slot %d not found or not active", id)
	}
	return nil
}

// Heartbeat refreshes an active slot.
func Heartbeat(db *gorm.DB, id uint) error {
	result := db.Model(&models.LiveSession{}).
		Where("id = ? AND status = ?", id, models.SlotActive).
		Update("last_heartbeat", time.Now())
	if result.Error != nil {
		return fmt.Errorf("slot: heartbeat: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("slot: heartbeat: slot %d not found or not active", id)
	}
	return nil
}

// ExpireStale expires every active slot whose heartbeat is older than
// timeout and returns how many it expired.
func ExpireStale(db *gorm.DB, timeout time.Duration) (int64, error) {
	if timeout <= 0 {
		timeout = DefaultHeartbeatTimeout
	}
	now := time.Now()
	result := db.Model(&models.LiveSession{}).
		Where("status = ? AND last_heartbeat < ?", models.SlotActive, now.Add(-timeout)).
		Updates(map[string]interface{}{
			"status":       models.SlotExpired,
			"completed_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("slot: expire stale: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func expireStale(tx *gorm.DB, cutoff, now time.Time) error {
	err := tx.Model(&models.LiveSession{}).
		Where("status = ? AND last_heartbeat < ?", models.SlotActive, cutoff).
		Updates(map[string]interface{}{
			"status":       models.SlotExpired,
			"completed_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("expire stale slots: %w", err)
	}
	return nil
}
