package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/campus/internal/auth"
	"github.com/campusconnect/campus/internal/models"
)

// assessmentFrom normalizes a quiz result. Field names are accepted in both
// camelCase and snake_case; counts are floored at zero.
func assessmentFrom(b looseBody) models.Assessment {
	metrics := b.object("metrics")
	technical := b.first("metricTechnical")
	if technical == nil {
		technical = metrics.first("technicalKnowledge", "technical_knowledge")
	}
	accuracy := b.first("metricAccuracy")
	if accuracy == nil {
		accuracy = metrics.first("accuracy")
	}
	detail := b.first("detailedAnalysis")
	if _, ok := detail.([]any); !ok {
		detail = b.first("questionsAnalysis")
	}

	return models.Assessment{
		CompanyName:      b.str("Practice", "companyName"),
		RoleName:         b.str("SDE", "roleName", "jobRole"),
		Difficulty:       b.str("moderate", "difficulty"),
		OverallScore:     b.num("overallScore", "overall_score"),
		CorrectAnswers:   b.count("correctAnswers", "correct_answers"),
		TotalQuestions:   b.count("totalQuestions", "total_questions"),
		MetricTechnical:  toNumber(technical),
		MetricAccuracy:   toNumber(accuracy),
		TopicsCovered:    b.strs("topicsCovered", "topics_covered"),
		Strengths:        b.strs("strengths"),
		Improvements:     b.str("", "improvements", "weaknesses"),
		Feedback:         b.str("", "feedback"),
		DetailedAnalysis: toObjects(detail),
	}
}

func handleAddAssessment(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := bindLoose(c)
		if err != nil {
			s.fail(c, err)
			return
		}
		a := assessmentFrom(b)
		a.UserID = auth.UserID(c)
		if err := s.db.Create(&a).Error; err != nil {
			s.fail(c, fmt.Errorf("api: create assessment: %w", err))
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}

func handleListAssessments(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := []models.Assessment{}
		if err := s.db.Where("user_id = ?", auth.UserID(c)).Order("created_at DESC").Find(&list).Error; err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}
