package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/campusconnect/campus/internal/models"
)

func TestAddAssessment_Aliases(t *testing.T) {
	a := newTestAPI(t)
	ana, uid := a.register("ana")

	tests := []struct {
		name  string
		body  map[string]any
		check func(t *testing.T, got models.Assessment)
	}{
		{
			name: "defaults",
			body: map[string]any{},
			check: func(t *testing.T, got models.Assessment) {
				if got.CompanyName != "Practice" || got.RoleName != "SDE" || got.Difficulty != "moderate" {
					t.Errorf("defaults = %q %q %q", got.CompanyName, got.RoleName, got.Difficulty)
				}
			},
		},
		{
			name: "snake case and nested metrics",
			body: map[string]any{
				"overall_score":   "7.5",
				"correct_answers": 8.9,
				"total_questions": -3,
				"topics_covered":  []any{"graphs", 42},
				"metrics":         map[string]any{"technical_knowledge": 6, "accuracy": 80},
				"jobRole":         "Backend",
			},
			check: func(t *testing.T, got models.Assessment) {
				if got.OverallScore != 7.5 {
					t.Errorf("overallScore = %v, want 7.5", got.OverallScore)
				}
				if got.CorrectAnswers != 8 || got.TotalQuestions != 0 {
					t.Errorf("counts = %d/%d, want floored and non-negative", got.CorrectAnswers, got.TotalQuestions)
				}
				if got.MetricTechnical != 6 || got.MetricAccuracy != 80 {
					t.Errorf("metrics = %v %v", got.MetricTechnical, got.MetricAccuracy)
				}
				if got.RoleName != "Backend" {
					t.Errorf("roleName = %q", got.RoleName)
				}
				if len(got.TopicsCovered) != 2 || got.TopicsCovered[1] != "42" {
					t.Errorf("topics = %q", got.TopicsCovered)
				}
			},
		},
		{
			name: "top-level metric wins over nested",
			body: map[string]any{
				"metricTechnical":   9,
				"metrics":           map[string]any{"technicalKnowledge": 1},
				"questionsAnalysis": []any{map[string]any{"q": "two sum"}},
				"weaknesses":        "recursion",
			},
			check: func(t *testing.T, got models.Assessment) {
				if got.MetricTechnical != 9 {
					t.Errorf("metricTechnical = %v, want 9", got.MetricTechnical)
				}
				if len(got.DetailedAnalysis) != 1 || got.DetailedAnalysis[0]["q"] != "two sum" {
					t.Errorf("detailedAnalysis = %v", got.DetailedAnalysis)
				}
				if got.Improvements != "recursion" {
					t.Errorf("improvements = %q", got.Improvements)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(http.MethodPost, "/api/assessments", ana, tt.body)
			if w.Code != http.StatusCreated {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}
			var got models.Assessment
			decodeInto(t, w, &got)
			if got.UserID != uid || got.ID == "" {
				t.Errorf("owner/id = %q/%q", got.UserID, got.ID)
			}
			tt.check(t, got)
		})
	}
}

func TestListAssessments_NewestFirst(t *testing.T) {
	a := newTestAPI(t)
	ana, uid := a.register("ana")
	bo, _ := a.register("bo")
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, company := range []string{"Acme", "Globex"} {
		row := models.Assessment{UserID: uid, CompanyName: company, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := a.db.Create(&row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	var list []models.Assessment
	decodeInto(t, a.do(http.MethodGet, "/api/assessments", ana, nil), &list)
	if len(list) != 2 || list[0].CompanyName != "Globex" {
		t.Errorf("list = %+v", list)
	}
	decodeInto(t, a.do(http.MethodGet, "/api/assessments", bo, nil), &list)
	if len(list) != 0 {
		t.Errorf("other user sees %d assessments", len(list))
	}
}
