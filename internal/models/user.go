package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a registered student account.
type User struct {
	ID                        string            `gorm:"primaryKey;size:36" json:"id"`
	Username                  string            `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email                     string            `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash              string            `gorm:"size:255;not null" json:"-"`
	FullName                  string            `gorm:"size:128" json:"fullName"`
	ProfileImageURL           string            `gorm:"size:512" json:"profileImageUrl"`
	CollegeName               string            `gorm:"size:255;index" json:"collegeName"`
	Headline                  string            `gorm:"size:255" json:"headline"`
	About                     string            `gorm:"type:text" json:"about"`
	Tags                      []string          `gorm:"type:text;serializer:json" json:"tags"`
	SocialLinks               map[string]string `gorm:"type:text;serializer:json" json:"socialLinks"`
	ProfileCompletePercentage int               `gorm:"default:0" json:"profileCompletePercentage"`
	TTSProvider               string            `gorm:"size:16;default:auto" json:"ttsProvider"`
	CreatedAt                 time.Time         `json:"createdAt"`
	UpdatedAt                 time.Time         `json:"updatedAt"`

	Education  []Education  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"education,omitempty"`
	Experience []Experience `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"experience,omitempty"`
	Projects   []Project    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"projects,omitempty"`
	Skills     []Skill      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"skills,omitempty"`
	Interests  []Interest   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"interests,omitempty"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// Author is the public projection of a User embedded in posts, threads and
// comments.
type Author struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	FullName        string `json:"fullName"`
	ProfileImageURL string `json:"profileImageUrl"`
	CollegeName     string `json:"collegeName"`
}

// AuthorOf projects u to its public fields.
func AuthorOf(u User) Author {
	return Author{
		ID:              u.ID,
		Username:        u.Username,
		FullName:        u.FullName,
		ProfileImageURL: u.ProfileImageURL,
		CollegeName:     u.CollegeName,
	}
}
