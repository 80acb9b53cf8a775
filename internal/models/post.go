package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a feed entry.
type Post struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	AuthorID    string    `gorm:"size:36;not null;index" json:"authorId"`
	Content     string    `gorm:"type:text" json:"content"`
	ImageURL    string    `gorm:"size:512" json:"imageUrl"`
	CollegeName string    `gorm:"size:255" json:"collegeName"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`

	Author User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}

func (p *Post) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// PostLike records that a user liked a post. One row per (user, post).
type PostLike struct {
	UserID    string    `gorm:"primaryKey;size:36" json:"userId"`
	PostID    string    `gorm:"primaryKey;size:36;index" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// SavedPost is a user's bookmark of a post.
type SavedPost struct {
	UserID    string    `gorm:"primaryKey;size:36" json:"userId"`
	PostID    string    `gorm:"primaryKey;size:36;index" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// Comment belongs to either a post or a thread. ParentID links a reply to
// the comment it answers on the same post or thread.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	AuthorID  string    `gorm:"size:36;not null;index" json:"authorId"`
	PostID    *string   `gorm:"size:36;index" json:"postId"`
	ThreadID  *string   `gorm:"size:36;index" json:"threadId"`
	ParentID  *string   `gorm:"size:36;index" json:"parentId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`

	Author User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Comment) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
