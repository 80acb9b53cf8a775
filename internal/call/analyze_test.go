package call

import (
	"context"
	"errors"
	"testing"

	"github.com/campusconnect/campus/internal/interview"
	"github.com/campusconnect/campus/internal/models"
)

type fakeAnalyzer struct {
	analysis interview.Analysis
	err      error
	got      interview.AnalysisRequest
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req interview.AnalysisRequest) (interview.Analysis, error) {
	f.got = req
	return f.analysis, f.err
}

type captureRecorder struct {
	recorded []*models.Interview
}

func (c *captureRecorder) RecordInterview(ctx context.Context, iv *models.Interview) error {
	c.recorded = append(c.recorded, iv)
	return nil
}

func seedAnalyzing(t *testing.T, s *Store) {
	t.Helper()
	err := s.AddToHistory(context.Background(), interview.HistoryRecord{
		ID:         "r1",
		UserID:     "u1",
		Company:    "Acme",
		Role:       "SDE",
		Duration:   300,
		Transcript: []interview.Caption{{Speaker: interview.SpeakerAI, Text: "Hi"}, {Speaker: interview.SpeakerYou, Text: "Hello"}},
		Metadata:   interview.Metadata{ResumeOverview: "Go dev", TranscriptCount: 2},
		Status:     interview.StatusAnalyzing,
	})
	if err != nil {
		t.Fatalf("AddToHistory: %v", err)
	}
}

func TestAnalyst_Completes(t *testing.T) {
	store := NewStore(nil)
	seedAnalyzing(t, store)
	analyzer := &fakeAnalyzer{analysis: interview.Analysis{
		OverallScore:   7.5,
		Metrics:        interview.Metrics{Technical: 8},
		Recommendation: "strong_yes",
	}}
	rec := &captureRecorder{}

	got, err := NewAnalyst(analyzer, store, rec).Run(context.Background(), "u1", "r1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Status != interview.StatusCompleted || got.Analysis == nil || got.Analysis.OverallScore != 7.5 {
		t.Errorf("record = %+v", got)
	}
	if analyzer.got.DurationSec != 300 || analyzer.got.Config.ResumeOverview != "Go dev" {
		t.Errorf("analysis request = %+v", analyzer.got)
	}
	if len(rec.recorded) != 1 {
		t.Fatalf("recorded = %d, want 1", len(rec.recorded))
	}
	iv := rec.recorded[0]
	if iv.Recommendation != models.RecommendStrongYes || iv.MetricTechnical != 8 || len(iv.Transcript) != 2 {
		t.Errorf("interview = %+v", iv)
	}
}

func TestAnalyst_FailureKeepsTranscript(t *testing.T) {
	store := NewStore(nil)
	seedAnalyzing(t, store)
	rec := &captureRecorder{}

	got, err := NewAnalyst(&fakeAnalyzer{err: errors.New("engine 500")}, store, rec).Run(context.Background(), "u1", "r1")
	if err == nil {
		t.Fatal("expected error")
	}
	if got.Status != interview.StatusError || got.Error != AnalysisFailedMessage {
		t.Errorf("record = %+v", got)
	}
	if len(got.Transcript) != 2 {
		t.Errorf("transcript = %d captions, want 2", len(got.Transcript))
	}
	if len(rec.recorded) != 0 {
		t.Errorf("failed analysis was recorded")
	}
}

func TestAnalyst_RetryFromError(t *testing.T) {
	store := NewStore(nil)
	seedAnalyzing(t, store)
	analyzer := &fakeAnalyzer{err: errors.New("down")}
	a := NewAnalyst(analyzer, store, nil)
	if _, err := a.Run(context.Background(), "u1", "r1"); err == nil {
		t.Fatal("expected error")
	}

	analyzer.err = nil
	analyzer.analysis = interview.Analysis{OverallScore: 6}
	got, err := a.Run(context.Background(), "u1", "r1")
	if err != nil {
		t.Fatalf("retry Run: %v", err)
	}
	if got.Status != interview.StatusCompleted || got.Error != "" {
		t.Errorf("record = %+v", got)
	}
}

func TestAnalyst_UnknownRecord(t *testing.T) {
	_, err := NewAnalyst(&fakeAnalyzer{}, NewStore(nil), nil).Run(context.Background(), "u1", "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
