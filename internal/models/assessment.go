package models

import (
	"time"

	"gorm.io/gorm"
)

// Assessment is the stored result of a practice quiz.
type Assessment struct {
	ID               string           `gorm:"primaryKey;size:36" json:"id"`
	UserID           string           `gorm:"size:36;not null;index" json:"userId"`
	CompanyName      string           `gorm:"size:255;default:Practice" json:"companyName"`
	RoleName         string           `gorm:"size:255;default:SDE" json:"roleName"`
	Difficulty       string           `gorm:"size:32;default:moderate" json:"difficulty"`
	OverallScore     float64          `json:"overallScore"`
	CorrectAnswers   int              `json:"correctAnswers"`
	TotalQuestions   int              `json:"totalQuestions"`
	MetricTechnical  float64          `json:"metricTechnical"`
	MetricAccuracy   float64          `json:"metricAccuracy"`
	TopicsCovered    []string         `gorm:"type:text;serializer:json" json:"topicsCovered"`
	Strengths        []string         `gorm:"type:text;serializer:json" json:"strengths"`
	Improvements     string           `gorm:"type:text" json:"improvements"`
	Feedback         string           `gorm:"type:text" json:"feedback"`
	DetailedAnalysis []map[string]any `gorm:"type:text;serializer:json" json:"detailedAnalysis"`
	CreatedAt        time.Time        `gorm:"index" json:"createdAt"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (a *Assessment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
