package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/campusconnect/campus/internal/call"
	"github.com/campusconnect/campus/internal/interview"
	"github.com/campusconnect/campus/internal/models"
)

func withAI(ai *fakeInterviewer, an *fakeAnalyzer) func(*StartOpts) {
	return func(o *StartOpts) {
		if ai != nil {
			o.Interviewer = ai
		}
		if an != nil {
			o.Analyzer = an
		}
	}
}

func TestAddInterview(t *testing.T) {
	a := newTestAPI(t)
	ana, uid := a.register("ana")

	w := a.do(http.MethodPost, "/api/interviews", ana, map[string]any{"companyName": "Acme"})
	if got := errorOf(t, w); w.Code != http.StatusBadRequest || got != "metrics is required" {
		t.Errorf("missing metrics = %d %q", w.Code, got)
	}

	w = a.do(http.MethodPost, "/api/interviews", ana, map[string]any{
		"metrics":        map[string]any{"technical": 7, "communication": "8"},
		"recommendation": "strong-yes",
		"overall_score":  7.2,
		"transcript": []any{
			map[string]any{"speaker": "ai", "text": "Hi"},
			"garbage",
			map[string]any{"speaker": "user", "text": "Hello"},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add = %d: %s", w.Code, w.Body.String())
	}
	var iv models.Interview
	decodeInto(t, w, &iv)
	if iv.UserID != uid || iv.CompanyName != "Practice" || iv.JobRole != "SDE" {
		t.Errorf("interview = %+v", iv)
	}
	if iv.Recommendation != "STRONG_YES" {
		t.Errorf("recommendation = %q, want STRONG_YES", iv.Recommendation)
	}
	if iv.MetricTechnical != 7 || iv.MetricCommunication != 8 {
		t.Errorf("metrics = %v %v", iv.MetricTechnical, iv.MetricCommunication)
	}
	if len(iv.Transcript) != 2 || iv.Transcript[1].Text != "Hello" {
		t.Errorf("transcript = %+v", iv.Transcript)
	}
	if iv.Metadata == nil {
		t.Error("metadata = nil, want {}")
	}
}

func TestListInterviews_NewestFirst(t *testing.T) {
	a := newTestAPI(t)
	ana, uid := a.register("ana")
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	for i, company := range []string{"Acme", "Globex", "Initech"} {
		iv := models.Interview{UserID: uid, CompanyName: company, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := a.db.Create(&iv).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	var list []models.Interview
	decodeInto(t, a.do(http.MethodGet, "/api/interviews", ana, nil), &list)
	if len(list) != 3 || list[0].CompanyName != "Initech" || list[2].CompanyName != "Acme" {
		t.Errorf("order = %+v", list)
	}
}

func TestSessions_WithoutInterviewer(t *testing.T) {
	a := newTestAPI(t)
	ana, _ := a.register("ana")
	w := a.do(http.MethodPost, "/api/interviews/sessions", ana, map[string]string{"company": "Acme", "role": "SDE"})
	if got := errorOf(t, w); w.Code != http.StatusServiceUnavailable || got != "Interviewer is not configured" {
		t.Errorf("no interviewer = %d %q", w.Code, got)
	}
}

func TestStartSession(t *testing.T) {
	ai := &fakeInterviewer{prompt: "You are interviewing for Acme."}
	a := newTestAPI(t, withAI(ai, nil))
	ana, uid := a.register("ana")

	w := a.do(http.MethodGet, "/api/interviews/sessions/active", ana, nil)
	if got := errorOf(t, w); w.Code != http.StatusNotFound || got != "No active interview session" {
		t.Errorf("no active = %d %q", w.Code, got)
	}

	w = a.do(http.MethodPost, "/api/interviews/sessions", ana, map[string]string{"company": "Acme"})
	if got := errorOf(t, w); w.Code != http.StatusBadRequest || got != "Company and role are required" {
		t.Errorf("missing role = %d %q", w.Code, got)
	}

	w = a.do(http.MethodPost, "/api/interviews/sessions", ana, map[string]any{"company": " Acme ", "role": "SDE", "topics": []string{"graphs"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("start = %d: %s", w.Code, w.Body.String())
	}
	var sess interview.Session
	decodeInto(t, w, &sess)
	if sess.UserID != uid || sess.Config.Company != "Acme" || sess.Config.InterviewPrompt != ai.prompt {
		t.Errorf("session = %+v", sess)
	}
	if sess.Status != interview.StatusInProgress {
		t.Errorf("status = %q", sess.Status)
	}

	var active interview.Session
	decodeInto(t, a.do(http.MethodGet, "/api/interviews/sessions/active", ana, nil), &active)
	if active.ID != sess.ID {
		t.Errorf("active = %s, want %s", active.ID, sess.ID)
	}

	ai.err = errors.New("model overloaded")
	w = a.do(http.MethodPost, "/api/interviews/sessions", ana, map[string]string{"company": "Acme", "role": "SDE"})
	if got := errorOf(t, w); w.Code != http.StatusBadGateway || got != "Could not prepare the interview. Please try again." {
		t.Errorf("prompt failure = %d %q", w.Code, got)
	}
}

func seedHistory(t *testing.T, a *testAPI, uid, id string) {
	t.Helper()
	rec := interview.HistoryRecord{
		ID:         id,
		UserID:     uid,
		Company:    "Acme",
		Role:       "SDE",
		Timestamp:  time.Now().UTC(),
		Duration:   120,
		Transcript: []interview.Caption{{ID: "c1", Speaker: interview.SpeakerAI, Text: "Tell me about yourself."}},
		Status:     interview.StatusAnalyzing,
	}
	if err := a.srv.calls.AddToHistory(context.Background(), rec); err != nil {
		t.Fatalf("AddToHistory: %v", err)
	}
}

func TestHistory(t *testing.T) {
	a := newTestAPI(t)
	ana, uid := a.register("ana")
	bo, _ := a.register("bo")

	w := a.do(http.MethodGet, "/api/interviews/history", ana, nil)
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Errorf("empty history = %d %s", w.Code, w.Body.String())
	}

	seedHistory(t, a, uid, "call-1")
	var list []interview.HistoryRecord
	decodeInto(t, a.do(http.MethodGet, "/api/interviews/history", ana, nil), &list)
	if len(list) != 1 || list[0].ID != "call-1" {
		t.Errorf("history = %+v", list)
	}

	if w := a.do(http.MethodGet, "/api/interviews/history/call-1", bo, nil); w.Code != http.StatusNotFound {
		t.Errorf("other user's record = %d, want 404", w.Code)
	}
	var rec interview.HistoryRecord
	decodeInto(t, a.do(http.MethodGet, "/api/interviews/history/call-1", ana, nil), &rec)
	if rec.Company != "Acme" || len(rec.Transcript) != 1 {
		t.Errorf("record = %+v", rec)
	}
}

func TestAnalyze(t *testing.T) {
	an := &fakeAnalyzer{analysis: interview.Analysis{OverallScore: 8, Recommendation: "YES", Metrics: interview.Metrics{Technical: 8}}}
	a := newTestAPI(t, withAI(nil, an))
	ana, uid := a.register("ana")
	seedHistory(t, a, uid, "call-1")

	w := a.do(http.MethodPost, "/api/interviews/history/nope/analyze", ana, nil)
	if got := errorOf(t, w); w.Code != http.StatusNotFound || got != "Interview not found" {
		t.Errorf("missing record = %d %q", w.Code, got)
	}

	an.err = errors.New("model overloaded")
	w = a.do(http.MethodPost, "/api/interviews/history/call-1/analyze", ana, nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("failed analysis = %d: %s", w.Code, w.Body.String())
	}
	var failed struct {
		Error  string                  `json:"error"`
		Record interview.HistoryRecord `json:"record"`
	}
	decodeInto(t, w, &failed)
	if failed.Error != call.AnalysisFailedMessage || failed.Record.Status != interview.StatusError {
		t.Errorf("failed body = %+v", failed)
	}
	if len(failed.Record.Transcript) != 1 {
		t.Error("failed analysis dropped the transcript")
	}

	an.err = nil
	w = a.do(http.MethodPost, "/api/interviews/history/call-1/analyze", ana, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("retry = %d: %s", w.Code, w.Body.String())
	}
	var rec interview.HistoryRecord
	decodeInto(t, w, &rec)
	if rec.Status != interview.StatusCompleted || rec.Analysis == nil || rec.Analysis.OverallScore != 8 {
		t.Errorf("analyzed record = %+v", rec)
	}

	var stored []models.Interview
	a.db.Where("user_id = ?", uid).Find(&stored)
	if len(stored) != 1 || stored[0].SessionID != "call-1" || stored[0].Recommendation != "YES" {
		t.Errorf("recorded interviews = %+v", stored)
	}
}
