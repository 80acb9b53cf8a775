package models

import (
	"time"

	"gorm.io/gorm"
)

// Hiring recommendations stored on Interview.Recommendation.
const (
	RecommendStrongYes = "STRONG_YES"
	RecommendYes       = "YES"
	RecommendMaybe     = "MAYBE"
	RecommendNo        = "NO"
)

// TranscriptLine is one caption of a finished call.
type TranscriptLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Interview is the scored record of a completed voice interview.
type Interview struct {
	ID                     string           `gorm:"primaryKey;size:36" json:"id"`
	UserID                 string           `gorm:"size:36;not null;index" json:"userId"`
	SessionID              string           `gorm:"size:36;index" json:"sessionId,omitempty"`
	CompanyName            string           `gorm:"size:255;default:Practice" json:"companyName"`
	JobRole                string           `gorm:"size:255;default:SDE" json:"jobRole"`
	Difficulty             string           `gorm:"size:32;default:moderate" json:"difficulty"`
	InterviewDurationSec   int              `json:"interviewDurationSec"`
	Transcript             []TranscriptLine `gorm:"type:text;serializer:json" json:"transcript"`
	Metadata               map[string]any   `gorm:"type:text;serializer:json" json:"metadata"`
	OverallScore           float64          `json:"overallScore"`
	MetricTechnical        float64          `json:"metricTechnical"`
	MetricBehavioral       float64          `json:"metricBehavioral"`
	MetricCommunication    float64          `json:"metricCommunication"`
	MetricProblemSolving   float64          `json:"metricProblemSolving"`
	MetricCompanyKnowledge float64          `json:"metricCompanyKnowledge"`
	TopicsCovered          []string         `gorm:"type:text;serializer:json" json:"topicsCovered"`
	OverallAssessment      string           `gorm:"type:text" json:"overallAssessment"`
	KeyStrengths           []string         `gorm:"type:text;serializer:json" json:"keyStrengths"`
	AreasForImprovement    []string         `gorm:"type:text;serializer:json" json:"areasForImprovement"`
	Recommendation         string           `gorm:"size:16;default:MAYBE" json:"recommendation"`
	Reasoning              string           `gorm:"type:text" json:"reasoning"`
	CreatedAt              time.Time        `gorm:"index" json:"createdAt"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (i *Interview) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
