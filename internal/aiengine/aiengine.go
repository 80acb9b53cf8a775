// Package aiengine talks to the external AI engine that generates interview
// prompts, answers interview turns and analyzes finished calls.
package aiengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/campusconnect/campus/internal/interview"
)

// defaultReply stands in when the engine answers with an empty reply.
const defaultReply = "Could you explain your approach in more detail?"

// Error is a non-2xx answer from the engine. Detail carries the engine's
// own message when it sent one.
type Error struct {
	Op     string
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("aiengine: %s: %s (status %d)", e.Op, e.Detail, e.Status)
}

// Client is an HTTP client for the engine. It satisfies both
// interview.Interviewer and interview.Analyzer.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for baseURL with a per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type promptRequest struct {
	Company       string `json:"company"`
	RoleName      string `json:"role_name"`
	Topics        string `json:"topics"`
	ResumeSummary string `json:"resume_summary"`
	Difficulty    string `json:"difficulty"`
}

type promptResponse struct {
	InterviewPrompt string `json:"interview_prompt"`
}

// GeneratePrompt asks the engine for a session-specific interviewer prompt.
func (c *Client) GeneratePrompt(ctx context.Context, cfg interview.Config) (string, error) {
	cfg = cfg.WithDefaults()
	var resp promptResponse
	err := c.post(ctx, "/generateIP", "Failed to generate interview prompt", promptRequest{
		Company:       cfg.Company,
		RoleName:      cfg.Role,
		Topics:        cfg.TopicsText(),
		ResumeSummary: cfg.ResumeOverview,
		Difficulty:    cfg.Difficulty,
	}, &resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.InterviewPrompt), nil
}

type turnRequest struct {
	Message              string        `json:"message"`
	History              []chatMessage `json:"history"`
	Company              string        `json:"company"`
	RoleName             string        `json:"role_name"`
	Topics               string        `json:"topics"`
	ResumeSummary        string        `json:"resume_summary"`
	InterviewDurationSec int           `json:"interview_duration_sec"`
	Difficulty           string        `json:"difficulty"`
	EndCallPromptCount   int           `json:"end_call_prompt_count"`
	InterviewPrompt      string        `json:"interview_prompt"`
}

type turnResponse struct {
	Reply           string                    `json:"reply"`
	AllottedTimeSec json.Number               `json:"allotted_time_sec"`
	Assessment      *interview.TurnAssessment `json:"assessment"`
	InterviewEnded  bool                      `json:"interview_ended"`
	EndCallPrompted bool                      `json:"end_call_prompted"`
	Count           *int                      `json:"endCallPromptCount"`
	CountSnake      *int                      `json:"end_call_prompt_count"`
}

// Reply sends one candidate turn and returns the interviewer's answer.
func (c *Client) Reply(ctx context.Context, req interview.TurnRequest) (interview.TurnReply, error) {
	cfg := req.Config.WithDefaults()
	history := make([]chatMessage, 0, len(req.History))
	for _, caption := range req.History {
		history = append(history, chatMessage{Role: interview.ChatRole(caption.Speaker), Content: caption.Text})
	}

	var resp turnResponse
	err := c.post(ctx, "/interviewer", "Failed to get interviewer response", turnRequest{
		Message:              req.Message,
		History:              history,
		Company:              cfg.Company,
		RoleName:             cfg.Role,
		Topics:               cfg.TopicsText(),
		ResumeSummary:        cfg.ResumeOverview,
		InterviewDurationSec: req.ElapsedSec,
		Difficulty:           cfg.Difficulty,
		EndCallPromptCount:   req.EndCallPromptCount,
		InterviewPrompt:      cfg.InterviewPrompt,
	}, &resp)
	if err != nil {
		return interview.TurnReply{}, err
	}
	return resp.normalize(req.EndCallPromptCount), nil
}

func (r turnResponse) normalize(prevCount int) interview.TurnReply {
	out := interview.TurnReply{
		Reply:           strings.TrimSpace(r.Reply),
		InterviewEnded:  r.InterviewEnded,
		EndCallPrompted: r.EndCallPrompted,
		Assessment:      interview.DefaultAssessment(),
	}
	if out.Reply == "" {
		out.Reply = defaultReply
	}
	allotted, _ := r.AllottedTimeSec.Float64()
	out.AllottedTimeSec = interview.ClampAllotted(int(allotted))
	if r.Assessment != nil {
		out.Assessment = *r.Assessment
	}
	switch {
	case r.Count != nil:
		out.EndCallPromptCount = *r.Count
	case r.CountSnake != nil:
		out.EndCallPromptCount = *r.CountSnake
	default:
		out.EndCallPromptCount = prevCount
		if r.EndCallPrompted {
			out.EndCallPromptCount++
		}
	}
	return out
}

type analyzeRequest struct {
	Transcript           []interview.Caption `json:"transcript"`
	RoleName             string              `json:"role_name"`
	Company              string              `json:"company"`
	Topics               []string            `json:"topics"`
	ResumeSummary        string              `json:"resume_summary"`
	InterviewDurationSec int                 `json:"interview_duration_sec"`
}

type analyzeResponse struct {
	interview.Analysis
	Error string `json:"error"`
}

// Analyze scores a finished call.
func (c *Client) Analyze(ctx context.Context, req interview.AnalysisRequest) (interview.Analysis, error) {
	cfg := req.Config.WithDefaults()
	var resp analyzeResponse
	err := c.post(ctx, "/analyze", "Analysis request failed", analyzeRequest{
		Transcript:           req.Transcript,
		RoleName:             cfg.Role,
		Company:              cfg.Company,
		Topics:               cfg.Topics,
		ResumeSummary:        cfg.ResumeOverview,
		InterviewDurationSec: req.DurationSec,
	}, &resp)
	if err != nil {
		return interview.Analysis{}, err
	}
	if resp.Error != "" {
		return interview.Analysis{}, fmt.Errorf("aiengine: analyze: %s", resp.Error)
	}
	return NormalizeAnalysis(resp.Analysis), nil
}

// NormalizeAnalysis rescales scores onto 0-10 and canonicalizes the
// recommendation to lower-case strong_yes, yes, maybe or no.
func NormalizeAnalysis(a interview.Analysis) interview.Analysis {
	a.OverallScore = interview.NormalizeScore(a.OverallScore)
	a.Metrics.Technical = interview.NormalizeScore(a.Metrics.Technical)
	a.Metrics.Behavioral = interview.NormalizeScore(a.Metrics.Behavioral)
	a.Metrics.Communication = interview.NormalizeScore(a.Metrics.Communication)
	a.Metrics.ProblemSolving = interview.NormalizeScore(a.Metrics.ProblemSolving)
	a.Metrics.CompanyKnowledge = interview.NormalizeScore(a.Metrics.CompanyKnowledge)
	a.Recommendation = strings.ToLower(interview.NormalizeRecommendation(a.Recommendation))
	if a.TopicsCovered == nil {
		a.TopicsCovered = []string{}
	}
	if a.KeyStrengths == nil {
		a.KeyStrengths = []string{}
	}
	if a.AreasForImprovement == nil {
		a.AreasForImprovement = []string{}
	}
	return a
}

func (c *Client) post(ctx context.Context, path, fallback string, in, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("aiengine: %s: engine URL is not configured", path)
	}
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("aiengine: %s: encode: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("aiengine: %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("aiengine: %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("aiengine: %s: read: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := fallback
		var e struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &e) == nil && e.Detail != "" {
			detail = e.Detail
		}
		return &Error{Op: strings.TrimPrefix(path, "/"), Status: resp.StatusCode, Detail: detail}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("aiengine: %s: decode: %w", path, err)
	}
	return nil
}
