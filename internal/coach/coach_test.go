package coach

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/campusconnect/campus/internal/interview"
	"github.com/campusconnect/campus/internal/llm"
)

// scriptedLLM returns canned output and records the last conversation.
type scriptedLLM struct {
	out  string
	err  error
	last []llm.Message
}

func (s *scriptedLLM) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	s.last = messages
	return s.out, s.err
}

func TestReply_BuildsConversation(t *testing.T) {
	model := &scriptedLLM{out: `{"reply":"Why Acme?","allotted_time_sec":60}`}
	c := New(model, nil)

	reply, err := c.Reply(context.Background(), interview.TurnRequest{
		Message: "I built a cache",
		History: []interview.Caption{
			{Speaker: interview.SpeakerAI, Text: "Tell me about a project."},
			{Speaker: interview.SpeakerYou, Text: "  "},
			{Speaker: interview.SpeakerYou, Text: "Sure."},
		},
		Config:     interview.Config{Company: "Acme", Role: "SRE", ResumeOverview: "Go dev"},
		ElapsedSec: 120,
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply.Reply != "Why Acme?" || reply.AllottedTimeSec != 60 {
		t.Errorf("reply = %+v", reply)
	}

	msgs := model.last
	if len(msgs) != 5 {
		t.Fatalf("messages = %d, want 5 (system, 2 history, context, user)", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem || !strings.Contains(msgs[0].Content, "Acme") {
		t.Errorf("system prompt = %q", msgs[0].Content)
	}
	if !strings.Contains(msgs[0].Content, "Turn index: 2") {
		t.Errorf("system prompt should carry turn index 2: %q", msgs[0].Content)
	}
	if msgs[1].Role != llm.RoleAssistant || msgs[2].Role != llm.RoleUser {
		t.Errorf("history roles = %q, %q", msgs[1].Role, msgs[2].Role)
	}
	if msgs[3].Content != "Candidate resume summary: Go dev. Interview elapsed seconds: 120." {
		t.Errorf("context note = %q", msgs[3].Content)
	}
	if msgs[4].Role != llm.RoleUser || msgs[4].Content != "I built a cache" {
		t.Errorf("last message = %+v", msgs[4])
	}
}

func TestReply_InterviewPromptOverridesSystem(t *testing.T) {
	model := &scriptedLLM{out: `{"reply":"Hello!"}`}
	c := New(model, nil)

	_, err := c.Reply(context.Background(), interview.TurnRequest{
		Message: interview.StartSession,
		Config:  interview.Config{InterviewPrompt: "You are Maya."},
	})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if model.last[0].Content != "You are Maya." {
		t.Errorf("system prompt = %q, want session prompt", model.last[0].Content)
	}
}

func TestReply_Defaults(t *testing.T) {
	model := &scriptedLLM{out: "```json\n{\"reply\":\"\",\"allotted_time_sec\":5}\n```"}
	reply, err := New(model, nil).Reply(context.Background(), interview.TurnRequest{Message: "x"})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply.Reply != defaultReply {
		t.Errorf("Reply = %q, want default", reply.Reply)
	}
	if reply.AllottedTimeSec != 20 {
		t.Errorf("AllottedTimeSec = %d, want 20", reply.AllottedTimeSec)
	}
	if reply.Assessment.Confidence != "medium" {
		t.Errorf("Assessment = %+v, want default", reply.Assessment)
	}
}

func TestReply_ThirdEndCallPromptClosesInterview(t *testing.T) {
	model := &scriptedLLM{out: `{"reply":"Any questions for me?","end_call_prompted":true}`}
	c := New(model, nil)

	reply, err := c.Reply(context.Background(), interview.TurnRequest{Message: "no", EndCallPromptCount: 1})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply.EndCallPromptCount != 2 || reply.InterviewEnded {
		t.Errorf("second prompt: count = %d, ended = %v", reply.EndCallPromptCount, reply.InterviewEnded)
	}

	reply, err = c.Reply(context.Background(), interview.TurnRequest{Message: "no", EndCallPromptCount: 2})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply.EndCallPromptCount != 3 || !reply.InterviewEnded || reply.Reply != closingReply {
		t.Errorf("third prompt: %+v", reply)
	}
}

func TestReply_ModelError(t *testing.T) {
	model := &scriptedLLM{err: errors.New("rate limited")}
	if _, err := New(model, nil).Reply(context.Background(), interview.TurnRequest{Message: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestReply_BadJSON(t *testing.T) {
	model := &scriptedLLM{out: "I cannot answer in JSON"}
	if _, err := New(model, nil).Reply(context.Background(), interview.TurnRequest{Message: "x"}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestGeneratePrompt(t *testing.T) {
	chat := &scriptedLLM{}
	writer := &scriptedLLM{out: `{"prompt":"  You are Maya from Acme.  "}`}
	c := New(chat, writer)

	got, err := c.GeneratePrompt(context.Background(), interview.Config{Company: "Acme", Topics: []string{"SQL"}, Difficulty: "tough"})
	if err != nil {
		t.Fatalf("GeneratePrompt: %v", err)
	}
	if got != "You are Maya from Acme." {
		t.Errorf("prompt = %q", got)
	}
	if chat.last != nil {
		t.Error("chat client should not be used for prompt generation")
	}
	if !strings.Contains(writer.last[1].Content, "Difficulty: tough") {
		t.Errorf("inputs = %q", writer.last[1].Content)
	}
}

func TestGeneratePrompt_PlainText(t *testing.T) {
	writer := &scriptedLLM{out: "You are Sam."}
	got, err := New(writer, nil).GeneratePrompt(context.Background(), interview.Config{})
	if err != nil {
		t.Fatalf("GeneratePrompt: %v", err)
	}
	if got != "You are Sam." {
		t.Errorf("prompt = %q", got)
	}
}

func TestAnalyze(t *testing.T) {
	model := &scriptedLLM{out: `{"overall_score": 75, "metrics": {"technical": 8}, "recommendation": "YES", "key_strengths": ["You explained caching well."]}`}
	a, err := New(model, nil).Analyze(context.Background(), interview.AnalysisRequest{
		Transcript:  []interview.Caption{{Speaker: interview.SpeakerAI, Text: "Hi"}, {Speaker: interview.SpeakerYou, Text: "Hello"}},
		Config:      interview.Config{Company: "Acme", Role: "SDE"},
		DurationSec: 600,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.OverallScore != 7.5 || a.Metrics.Technical != 8 {
		t.Errorf("scores = %v / %+v", a.OverallScore, a.Metrics)
	}
	if a.Recommendation != "yes" {
		t.Errorf("Recommendation = %q, want yes", a.Recommendation)
	}
	if !strings.Contains(model.last[1].Content, "AI: Hi\nYou: Hello\n") {
		t.Errorf("transcript not rendered: %q", model.last[1].Content)
	}
}
