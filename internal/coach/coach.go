// Package coach runs the interviewer and the post-call analyzer in-process
// against a chat model, as an alternative to the external AI engine.
package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/campusconnect/campus/internal/aiengine"
	"github.com/campusconnect/campus/internal/interview"
	"github.com/campusconnect/campus/internal/llm"
)

const (
	// endCallLimit is how many "any questions?" prompts end the interview.
	endCallLimit = 3

	defaultReply = "Could you explain your approach in more detail?"
	closingReply = "Thank you for your time today. The interview is now complete. Please click End Call."
)

// Coach implements interview.Interviewer and interview.Analyzer on top of
// an llm.Client that was built with JSON output enabled.
type Coach struct {
	chat   llm.Client
	prompt llm.Client
}

// New returns a Coach. chat answers turns and analyzes calls; prompt writes
// interview prompts and may be the same client.
func New(chat, prompt llm.Client) *Coach {
	if prompt == nil {
		prompt = chat
	}
	return &Coach{chat: chat, prompt: prompt}
}

// GeneratePrompt writes a session-specific system prompt for the interviewer.
func (c *Coach) GeneratePrompt(ctx context.Context, cfg interview.Config) (string, error) {
	cfg = cfg.WithDefaults()
	out, err := c.prompt.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: promptWriterInstructions},
		{Role: llm.RoleUser, Content: fmt.Sprintf(promptWriterInputs, cfg.Company, cfg.Role, cfg.TopicsText(), cfg.Difficulty, cfg.ResumeOverview)},
	})
	if err != nil {
		return "", fmt.Errorf("coach: generate prompt: %w", err)
	}
	out = strings.TrimSpace(out)
	// Some models wrap plain-text answers in a JSON object anyway.
	var wrapped struct {
		Prompt string `json:"prompt"`
	}
	if json.Unmarshal([]byte(out), &wrapped) == nil && wrapped.Prompt != "" {
		out = strings.TrimSpace(wrapped.Prompt)
	}
	if out == "" {
		return "", fmt.Errorf("coach: generate prompt: empty prompt")
	}
	return out, nil
}

type turnPayload struct {
	Reply           string                    `json:"reply"`
	AllottedTimeSec json.Number               `json:"allotted_time_sec"`
	InterviewEnded  bool                      `json:"interview_ended"`
	EndCallPrompted bool                      `json:"end_call_prompted"`
	Assessment      *interview.TurnAssessment `json:"assessment"`
}

// Reply answers one candidate turn.
func (c *Coach) Reply(ctx context.Context, req interview.TurnRequest) (interview.TurnReply, error) {
	raw, err := c.chat.Complete(ctx, turnMessages(req))
	if err != nil {
		return interview.TurnReply{}, fmt.Errorf("coach: reply: %w", err)
	}
	var p turnPayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &p); err != nil {
		return interview.TurnReply{}, fmt.Errorf("coach: reply: decode: %w", err)
	}
	return finishTurn(p, req.EndCallPromptCount), nil
}

// turnMessages builds the chat: system prompt, prior turns, a context note
// with the resume and elapsed time, then the new candidate message.
func turnMessages(req interview.TurnRequest) []llm.Message {
	cfg := req.Config.WithDefaults()

	var history []llm.Message
	userTurns := 0
	for _, caption := range req.History {
		text := strings.TrimSpace(caption.Text)
		if text == "" {
			continue
		}
		role := interview.ChatRole(caption.Speaker)
		if role == llm.RoleUser {
			userTurns++
		}
		history = append(history, llm.Message{Role: role, Content: text})
	}
	turnIndex := userTurns
	if req.Message != interview.StartSession {
		turnIndex++
	}

	system := cfg.InterviewPrompt
	if system == "" {
		system = fmt.Sprintf(interviewerInstructions, cfg.Company, cfg.Role, cfg.TopicsText(), cfg.Difficulty, turnIndex, req.EndCallPromptCount)
	}

	msgs := make([]llm.Message, 0, len(history)+3)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	msgs = append(msgs, history...)
	msgs = append(msgs, llm.Message{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf("Candidate resume summary: %s. Interview elapsed seconds: %d.", cfg.ResumeOverview, req.ElapsedSec),
	})
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: req.Message})
	return msgs
}

// finishTurn applies reply defaults and the end-call rule: the third
// prompt to wrap up closes the interview.
func finishTurn(p turnPayload, prevCount int) interview.TurnReply {
	out := interview.TurnReply{
		Reply:           strings.TrimSpace(p.Reply),
		InterviewEnded:  p.InterviewEnded,
		EndCallPrompted: p.EndCallPrompted,
		Assessment:      interview.DefaultAssessment(),
	}
	if out.Reply == "" {
		out.Reply = defaultReply
	}
	allotted, _ := p.AllottedTimeSec.Float64()
	out.AllottedTimeSec = interview.ClampAllotted(int(allotted))
	if p.Assessment != nil {
		out.Assessment = *p.Assessment
	}
	out.EndCallPromptCount = prevCount
	if p.EndCallPrompted {
		out.EndCallPromptCount++
	}
	if out.EndCallPromptCount >= endCallLimit {
		out.Reply = closingReply
		out.InterviewEnded = true
	}
	return out
}

// Analyze scores a finished call.
func (c *Coach) Analyze(ctx context.Context, req interview.AnalysisRequest) (interview.Analysis, error) {
	cfg := req.Config.WithDefaults()
	var transcript strings.Builder
	for _, caption := range req.Transcript {
		fmt.Fprintf(&transcript, "%s: %s\n", caption.Speaker, caption.Text)
	}

	raw, err := c.chat.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: analyzerInstructions},
		{Role: llm.RoleUser, Content: fmt.Sprintf(analyzerInputs, cfg.Role, cfg.Company, cfg.TopicsText(), cfg.ResumeOverview, req.DurationSec, transcript.String())},
	})
	if err != nil {
		return interview.Analysis{}, fmt.Errorf("coach: analyze: %w", err)
	}
	var a interview.Analysis
	if err := json.Unmarshal([]byte(extractJSON(raw)), &a); err != nil {
		return interview.Analysis{}, fmt.Errorf("coach: analyze: decode: %w", err)
	}
	return aiengine.NormalizeAnalysis(a), nil
}

// extractJSON trims code fences and any text around the outermost object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
