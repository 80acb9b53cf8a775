// Package interview holds the domain types shared by the voice-interview
// subsystem: session configuration, captions, interviewer turns and
// post-call analysis.
package interview

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// StartSession is the synthetic first message that asks the interviewer for
// an opening line. It is never shown as a caption.
const StartSession = "START_SESSION"

// Speaker attributes a caption to the candidate or the interviewer.
type Speaker string

const (
	SpeakerYou Speaker = "You"
	SpeakerAI  Speaker = "AI"
)

// Status is the lifecycle state of a practice session.
type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusAnalyzing  Status = "analyzing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Defaults used when a setup field is left blank.
const (
	DefaultCompany     = "Tech Company"
	DefaultRole        = "Software Engineer"
	DefaultTopics      = "General"
	DefaultResume      = "No resume provided"
	DefaultDifficulty  = "moderate"
	DefaultAllottedSec = 45
)

// Config is what the candidate entered on the setup form plus the generated
// interview prompt.
type Config struct {
	Company         string   `json:"company"`
	Role            string   `json:"role"`
	Topics          []string `json:"topics"`
	Difficulty      string   `json:"difficulty"`
	ResumeOverview  string   `json:"resumeOverview"`
	InterviewPrompt string   `json:"interviewPrompt"`
}

// WithDefaults returns a trimmed copy of c with blank fields defaulted and
// difficulty limited to basic, moderate or tough.
func (c Config) WithDefaults() Config {
	out := c
	out.Company = orDefault(c.Company, DefaultCompany)
	out.Role = orDefault(c.Role, DefaultRole)
	out.ResumeOverview = orDefault(c.ResumeOverview, DefaultResume)
	out.InterviewPrompt = strings.TrimSpace(c.InterviewPrompt)
	out.Topics = nil
	for _, t := range c.Topics {
		if t = strings.TrimSpace(t); t != "" {
			out.Topics = append(out.Topics, t)
		}
	}
	switch d := strings.ToLower(strings.TrimSpace(c.Difficulty)); d {
	case "basic", "moderate", "tough":
		out.Difficulty = d
	default:
		out.Difficulty = DefaultDifficulty
	}
	return out
}

// TopicsText joins topics for prompts, or returns "General".
func (c Config) TopicsText() string {
	if len(c.Topics) == 0 {
		return DefaultTopics
	}
	return strings.Join(c.Topics, ", ")
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

// Session is one practice interview attempt.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Config    Config    `json:"config"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
}

// Caption is one turn of dialogue.
type Caption struct {
	ID      string  `json:"id"`
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// NewCaptionID returns a time-ordered id with a random suffix.
func NewCaptionID(now time.Time) string {
	return fmt.Sprintf("%d-%06x", now.UnixMilli(), rand.IntN(1<<24))
}

// TurnRequest is one call to the interviewer.
type TurnRequest struct {
	Message            string
	History            []Caption
	Config             Config
	ElapsedSec         int
	EndCallPromptCount int
}

// ChatRole maps a caption speaker onto a chat-completion role.
func ChatRole(s Speaker) string {
	if s == SpeakerAI {
		return "assistant"
	}
	return "user"
}

// ClampAllotted bounds a per-answer time allowance to 20-90 seconds,
// defaulting to 45.
func ClampAllotted(sec int) int {
	switch {
	case sec <= 0:
		return DefaultAllottedSec
	case sec < 20:
		return 20
	case sec > 90:
		return 90
	}
	return sec
}

// DefaultAssessment is used when the interviewer omits its running read.
func DefaultAssessment() TurnAssessment {
	return TurnAssessment{Strengths: []string{}, Improvements: []string{}, Confidence: "medium"}
}

// TurnAssessment is the interviewer's running read on the candidate.
type TurnAssessment struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Confidence   string   `json:"confidence"`
}

// TurnReply is the interviewer's answer to a TurnRequest.
type TurnReply struct {
	Reply              string         `json:"reply"`
	AllottedTimeSec    int            `json:"allotted_time_sec"`
	Assessment         TurnAssessment `json:"assessment"`
	InterviewEnded     bool           `json:"interview_ended"`
	EndCallPrompted    bool           `json:"end_call_prompted"`
	EndCallPromptCount int            `json:"endCallPromptCount"`
}

// Interviewer produces interview prompts and conversational turns.
type Interviewer interface {
	GeneratePrompt(ctx context.Context, cfg Config) (string, error)
	Reply(ctx context.Context, req TurnRequest) (TurnReply, error)
}

// AnalysisRequest carries a finished call to the analyzer.
type AnalysisRequest struct {
	SessionID   string
	Transcript  []Caption
	Config      Config
	DurationSec int
}

// Metrics are per-dimension scores on a 0-10 scale.
type Metrics struct {
	Technical        float64 `json:"technical"`
	Behavioral       float64 `json:"behavioral"`
	Communication    float64 `json:"communication"`
	ProblemSolving   float64 `json:"problem_solving"`
	CompanyKnowledge float64 `json:"company_knowledge"`
}

// Analysis is the scored outcome of a call.
type Analysis struct {
	OverallScore        float64  `json:"overall_score"`
	Metrics             Metrics  `json:"metrics"`
	TopicsCovered       []string `json:"topics_covered"`
	OverallAssessment   string   `json:"overall_assessment"`
	KeyStrengths        []string `json:"key_strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
	Recommendation      string   `json:"recommendation"`
	Reasoning           string   `json:"reasoning"`
}

// Analyzer scores a finished call.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (Analysis, error)
}

// Metadata is the summary block stored alongside a history record.
type Metadata struct {
	Company         string   `json:"company"`
	Role            string   `json:"role"`
	Topics          []string `json:"topics"`
	Difficulty      string   `json:"difficulty"`
	ResumeOverview  string   `json:"resumeOverview"`
	TranscriptCount int      `json:"transcriptCount"`
}

// HistoryRecord is a finished call as kept in interview history.
type HistoryRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Company    string    `json:"company"`
	Role       string    `json:"role"`
	Topics     []string  `json:"topics"`
	Difficulty string    `json:"difficulty"`
	Timestamp  time.Time `json:"timestamp"`
	Duration   int       `json:"duration"`
	Transcript []Caption `json:"transcript"`
	Metadata   Metadata  `json:"metadata"`
	Analysis   *Analysis `json:"analysis"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// NormalizeRecommendation maps free-form recommendations such as
// "strong-yes" onto STRONG_YES, YES, MAYBE or NO, defaulting to MAYBE.
func NormalizeRecommendation(raw string) string {
	r := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(raw)), "-", "_")
	r = strings.ReplaceAll(r, " ", "_")
	switch r {
	case "STRONG_YES", "YES", "MAYBE", "NO":
		return r
	}
	return "MAYBE"
}

// NormalizeScore brings a score onto the 0-10 scale. Values in (10, 100]
// are treated as percentages.
func NormalizeScore(v float64) float64 {
	if v > 10 && v <= 100 {
		v /= 10
	}
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
