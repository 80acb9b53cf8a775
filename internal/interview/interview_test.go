package interview

import (
	"strings"
	"testing"
	"time"
)

func TestNormalizeRecommendation(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"strong_yes", "STRONG_YES"},
		{"strong-yes", "STRONG_YES"},
		{" Yes ", "YES"},
		{"no", "NO"},
		{"maybe", "MAYBE"},
		{"", "MAYBE"},
		{"absolutely", "MAYBE"},
	}
	for _, tt := range tests {
		if got := NormalizeRecommendation(tt.in); got != tt.want {
			t.Errorf("NormalizeRecommendation(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{7.5, 7.5},
		{0, 0},
		{-2, 0},
		{10, 10},
		{85, 8.5},
		{100, 10},
		{250, 10},
	}
	for _, tt := range tests {
		if got := NormalizeScore(tt.in); got != tt.want {
			t.Errorf("NormalizeScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewCaptionID_TimePrefixed(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	a := NewCaptionID(now)
	if !strings.HasPrefix(a, "1700000000123-") {
		t.Errorf("NewCaptionID() = %q, want time prefix", a)
	}
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[NewCaptionID(now)] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d distinct ids out of 50", len(seen))
	}
}

func TestConfigWithDefaults(t *testing.T) {
	got := Config{Company: "  ", Topics: []string{" SQL ", "", "Go"}, Difficulty: "TOUGH"}.WithDefaults()
	if got.Company != DefaultCompany {
		t.Errorf("Company = %q, want %q", got.Company, DefaultCompany)
	}
	if got.Role != DefaultRole {
		t.Errorf("Role = %q, want %q", got.Role, DefaultRole)
	}
	if got.ResumeOverview != DefaultResume {
		t.Errorf("ResumeOverview = %q, want %q", got.ResumeOverview, DefaultResume)
	}
	if got.Difficulty != "tough" {
		t.Errorf("Difficulty = %q, want tough", got.Difficulty)
	}
	if got.TopicsText() != "SQL, Go" {
		t.Errorf("TopicsText() = %q, want %q", got.TopicsText(), "SQL, Go")
	}

	if d := (Config{Difficulty: "insane"}).WithDefaults().Difficulty; d != DefaultDifficulty {
		t.Errorf("Difficulty = %q, want %q", d, DefaultDifficulty)
	}
	if topics := (Config{}).TopicsText(); topics != DefaultTopics {
		t.Errorf("TopicsText() = %q, want %q", topics, DefaultTopics)
	}
}

func TestClampAllotted(t *testing.T) {
	tests := map[int]int{0: 45, -5: 45, 10: 20, 20: 20, 60: 60, 90: 90, 300: 90}
	for in, want := range tests {
		if got := ClampAllotted(in); got != want {
			t.Errorf("ClampAllotted(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestChatRole(t *testing.T) {
	if ChatRole(SpeakerAI) != "assistant" {
		t.Errorf("ChatRole(AI) = %q, want assistant", ChatRole(SpeakerAI))
	}
	if ChatRole(SpeakerYou) != "user" {
		t.Errorf("ChatRole(You) = %q, want user", ChatRole(SpeakerYou))
	}
}
