package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/auth"
	"github.com/campusconnect/campus/internal/call"
	"github.com/campusconnect/campus/internal/interview"
	"github.com/campusconnect/campus/internal/models"
)

var errNoInterviewer = &apiError{status: http.StatusServiceUnavailable, msg: "Interviewer is not configured"}

// interviewFrom normalizes a scored interview posted by the client.
func interviewFrom(b looseBody) (*models.Interview, error) {
	metrics := b.object("metrics")
	if metrics == nil {
		return nil, badRequest("metrics is required")
	}
	iv := &models.Interview{
		CompanyName:            b.str("Practice", "companyName"),
		JobRole:                b.str("SDE", "jobRole"),
		Difficulty:             b.str("moderate", "difficulty"),
		InterviewDurationSec:   int(b.num("interview_duration_sec")),
		Transcript:             []models.TranscriptLine{},
		Metadata:               b.object("metadata"),
		OverallScore:           b.num("overall_score"),
		MetricTechnical:        metrics.num("technical"),
		MetricBehavioral:       metrics.num("behavioral"),
		MetricCommunication:    metrics.num("communication"),
		MetricProblemSolving:   metrics.num("problem_solving"),
		MetricCompanyKnowledge: metrics.num("company_knowledge"),
		TopicsCovered:          b.strs("topics_covered"),
		OverallAssessment:      b.str("", "overall_assessment"),
		KeyStrengths:           b.strs("key_strengths"),
		AreasForImprovement:    b.strs("areas_for_improvement"),
		Recommendation:         interview.NormalizeRecommendation(b.str("MAYBE", "recommendation")),
		Reasoning:              b.str("", "reasoning"),
	}
	if iv.Metadata == nil {
		iv.Metadata = map[string]any{}
	}
	for _, line := range toObjects(b.first("transcript")) {
		speaker, _ := line["speaker"].(string)
		text, _ := line["text"].(string)
		iv.Transcript = append(iv.Transcript, models.TranscriptLine{Speaker: speaker, Text: text})
	}
	return iv, nil
}

func handleAddInterview(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := bindLoose(c)
		if err != nil {
			s.fail(c, err)
			return
		}
		iv, err := interviewFrom(b)
		if err != nil {
			s.fail(c, err)
			return
		}
		iv.UserID = auth.UserID(c)
		if err := s.db.Create(iv).Error; err != nil {
			s.fail(c, fmt.Errorf("api: create interview: %w", err))
			return
		}
		c.JSON(http.StatusCreated, iv)
	}
}

func handleListInterviews(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := []models.Interview{}
		if err := s.db.Where("user_id = ?", auth.UserID(c)).Order("created_at DESC").Find(&list).Error; err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// interviewRecorder stores analyzed calls as Interview rows.
type interviewRecorder struct {
	db *gorm.DB
}

func (r interviewRecorder) RecordInterview(ctx context.Context, iv *models.Interview) error {
	if err := r.db.WithContext(ctx).Create(iv).Error; err != nil {
		return fmt.Errorf("api: record interview %s: %w", iv.SessionID, err)
	}
	return nil
}

// handleStartSession turns the setup form into the caller's active session.
func handleStartSession(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.setup == nil {
			s.fail(c, errNoInterviewer)
			return
		}
		var req call.SetupRequest
		if err := bind(c, &req); err != nil {
			s.fail(c, err)
			return
		}
		sess, err := s.setup.Start(c.Request.Context(), auth.UserID(c), req)
		if err != nil && !errors.Is(err, call.ErrInvalidSetup) {
			log.Printf("api: start session: %v", err)
			s.fail(c, &apiError{status: http.StatusBadGateway, msg: "Could not prepare the interview. Please try again."})
			return
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, sess)
	}
}

func handleActiveSession(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := s.calls.Active(auth.UserID(c))
		if !ok {
			s.fail(c, call.ErrNoActiveSession)
			return
		}
		c.JSON(http.StatusOK, sess)
	}
}

func handleHistory(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := s.calls.History(c.Request.Context(), auth.UserID(c))
		if err != nil {
			s.fail(c, err)
			return
		}
		if list == nil {
			list = []interview.HistoryRecord{}
		}
		c.JSON(http.StatusOK, list)
	}
}

func handleHistoryRecord(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := s.calls.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
		if errors.Is(err, call.ErrNotFound) {
			s.fail(c, notFound("Interview not found"))
			return
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// handleAnalyze runs, or retries, analysis of a finished call.
func handleAnalyze(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.analyst == nil {
			s.fail(c, errNoInterviewer)
			return
		}
		rec, err := s.analyst.Run(c.Request.Context(), auth.UserID(c), c.Param("id"))
		switch {
		case errors.Is(err, call.ErrNotFound):
			s.fail(c, notFound("Interview not found"))
		case err != nil && rec.Status == interview.StatusError:
			c.JSON(http.StatusBadGateway, gin.H{"error": rec.Error, "record": rec})
		case err != nil:
			s.fail(c, err)
		default:
			c.JSON(http.StatusOK, rec)
		}
	}
}

// analyzeInBackground scores a call that just ended.
func (s *Server) analyzeInBackground(rec interview.HistoryRecord) {
	if s.analyst == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.AITimeout())
		defer cancel()
		if _, err := s.analyst.Run(ctx, rec.UserID, rec.ID); err != nil {
			log.Printf("api: analysis of %s: %v", rec.ID, err)
		}
	}()
}
