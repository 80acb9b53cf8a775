package models

import (
	"time"

	"gorm.io/gorm"
)

// Vote directions stored on ThreadVote.Type.
const (
	VoteUp   = "UP"
	VoteDown = "DOWN"
)

// Thread is a discussion question.
type Thread struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	AuthorID    string    `gorm:"size:36;not null;index" json:"authorId"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Tags        []string  `gorm:"type:text;serializer:json" json:"tags"`
	CollegeName string    `gorm:"size:255" json:"collegeName"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`

	Author User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}

func (t *Thread) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// ThreadVote is a user's single up or down vote on a thread.
type ThreadVote struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_vote_user_thread" json:"userId"`
	ThreadID  string    `gorm:"size:36;not null;uniqueIndex:idx_vote_user_thread;index" json:"threadId"`
	Type      string    `gorm:"size:8;not null" json:"type"` // UP or DOWN
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Thread Thread `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE" json:"-"`
}

func (v *ThreadVote) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// SavedThread is a user's bookmark of a thread.
type SavedThread struct {
	UserID    string    `gorm:"primaryKey;size:36" json:"userId"`
	ThreadID  string    `gorm:"primaryKey;size:36;index" json:"threadId"`
	CreatedAt time.Time `json:"createdAt"`

	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Thread Thread `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE" json:"-"`
}
