package call

import (
	"context"
	"fmt"
	"log"

	"github.com/campusconnect/campus/internal/interview"
	"github.com/campusconnect/campus/internal/models"
)

// AnalysisFailedMessage is shown on a history record whose analysis failed.
const AnalysisFailedMessage = "Could not generate analysis. Please contact support."

// Recorder persists scored interviews.
type Recorder interface {
	RecordInterview(ctx context.Context, iv *models.Interview) error
}

// Analyst scores finished calls and files the result.
type Analyst struct {
	analyzer interview.Analyzer
	store    *Store
	recorder Recorder
}

// NewAnalyst returns an Analyst. recorder may be nil.
func NewAnalyst(analyzer interview.Analyzer, store *Store, recorder Recorder) *Analyst {
	return &Analyst{analyzer: analyzer, store: store, recorder: recorder}
}

// Run analyzes history record id. On success the record becomes completed
// and is recorded as an Interview; on failure it becomes error and keeps
// its transcript.
func (a *Analyst) Run(ctx context.Context, userID, id string) (interview.HistoryRecord, error) {
	rec, err := a.store.Get(ctx, userID, id)
	if err != nil {
		return interview.HistoryRecord{}, err
	}
	if rec.Status != interview.StatusAnalyzing {
		rec, err = a.store.UpdateHistory(ctx, userID, id, func(r *interview.HistoryRecord) {
			r.Status = interview.StatusAnalyzing
			r.Error = ""
		})
		if err != nil {
			return interview.HistoryRecord{}, err
		}
	}

	analysis, err := a.analyzer.Analyze(ctx, interview.AnalysisRequest{
		SessionID:   rec.ID,
		Transcript:  rec.Transcript,
		Config:      recordConfig(rec),
		DurationSec: rec.Duration,
	})
	if err != nil {
		log.Printf("call: analyze %s: %v", id, err)
		updated, uerr := a.store.UpdateHistory(ctx, userID, id, func(r *interview.HistoryRecord) {
			r.Status = interview.StatusError
			r.Analysis = nil
			r.Error = AnalysisFailedMessage
		})
		if uerr != nil {
			return interview.HistoryRecord{}, uerr
		}
		return updated, fmt.Errorf("call: analyze %s: %w", id, err)
	}

	updated, err := a.store.UpdateHistory(ctx, userID, id, func(r *interview.HistoryRecord) {
		r.Status = interview.StatusCompleted
		r.Analysis = &analysis
		r.Error = ""
	})
	if err != nil {
		return interview.HistoryRecord{}, err
	}
	if a.recorder != nil {
		if err := a.recorder.RecordInterview(ctx, ToInterview(updated)); err != nil {
			log.Printf("call: record interview %s: %v", id, err)
		}
	}
	return updated, nil
}

func recordConfig(rec interview.HistoryRecord) interview.Config {
	return interview.Config{
		Company:        rec.Company,
		Role:           rec.Role,
		Topics:         rec.Topics,
		Difficulty:     rec.Difficulty,
		ResumeOverview: rec.Metadata.ResumeOverview,
	}
}

// ToInterview converts a completed history record into its stored form.
func ToInterview(rec interview.HistoryRecord) *models.Interview {
	iv := &models.Interview{
		UserID:               rec.UserID,
		SessionID:            rec.ID,
		CompanyName:          rec.Company,
		JobRole:              rec.Role,
		Difficulty:           rec.Difficulty,
		InterviewDurationSec: rec.Duration,
		Metadata: map[string]any{
			"topics":          rec.Topics,
			"resumeOverview":  rec.Metadata.ResumeOverview,
			"transcriptCount": rec.Metadata.TranscriptCount,
		},
		Recommendation: models.RecommendMaybe,
	}
	for _, c := range rec.Transcript {
		iv.Transcript = append(iv.Transcript, models.TranscriptLine{Speaker: string(c.Speaker), Text: c.Text})
	}
	if a := rec.Analysis; a != nil {
		iv.OverallScore = a.OverallScore
		iv.MetricTechnical = a.Metrics.Technical
		iv.MetricBehavioral = a.Metrics.Behavioral
		iv.MetricCommunication = a.Metrics.Communication
		iv.MetricProblemSolving = a.Metrics.ProblemSolving
		iv.MetricCompanyKnowledge = a.Metrics.CompanyKnowledge
		iv.TopicsCovered = a.TopicsCovered
		iv.OverallAssessment = a.OverallAssessment
		iv.KeyStrengths = a.KeyStrengths
		iv.AreasForImprovement = a.AreasForImprovement
		iv.Recommendation = interview.NormalizeRecommendation(a.Recommendation)
		iv.Reasoning = a.Reasoning
	}
	return iv
}
