package models

import "time"

// Live slot states.
const (
	SlotActive    = "active"
	SlotCompleted = "completed"
	SlotExpired   = "expired"
)

// RevokedToken blocks a signed-out JWT until its natural expiry.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"size:36;index"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

// LiveSession tracks a voice-interview call in progress. The slot lock uses
// it to keep at most one active call per user.
type LiveSession struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	SessionID     string    `gorm:"size:36;not null;uniqueIndex"`
	UserID        string    `gorm:"size:36;not null;index"`
	Source        string    `gorm:"size:16;not null"` // "web" or "cli"
	Status        string    `gorm:"size:16;default:active;index"`
	LastHeartbeat time.Time `gorm:"index"`
	CreatedAt     time.Time
	CompletedAt   *time.Time
}
