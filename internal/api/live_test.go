package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/campusconnect/campus/internal/call"
	"github.com/campusconnect/campus/internal/interview"
	"github.com/campusconnect/campus/internal/live"
	"github.com/campusconnect/campus/internal/models"
)

func dialLive(t *testing.T, ts *httptest.Server, id, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/interviews/live/" + id + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial %s: %v (status %d)", url, err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil returns the first message accepted by match.
func readUntil(t *testing.T, conn *websocket.Conn, match func(live.Message) bool) live.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var m live.Message
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(m) {
			return m
		}
	}
}

func browserOnly(o *StartOpts) {
	o.Config.TTS.ElevenLabsAPIKey = ""
	o.Config.AI.OpenAIAPIKey = ""
	o.Config.Voice.Recognizer = "browser"
}

func TestLive_NoActiveSession(t *testing.T) {
	ai := &fakeInterviewer{prompt: "p", reply: "hi"}
	a := newTestAPI(t, withAI(ai, nil), browserOnly)
	ana, _ := a.register("ana")
	ts := httptest.NewServer(a.h)
	defer ts.Close()

	conn := dialLive(t, ts, "stale-id", ana)
	m := readUntil(t, conn, func(m live.Message) bool { return m.Type == live.TypeNavigate })
	if m.Path != call.JoinPath {
		t.Errorf("navigate to %q, want %q", m.Path, call.JoinPath)
	}
}

func TestLive_Unauthenticated(t *testing.T) {
	a := newTestAPI(t, withAI(&fakeInterviewer{}, nil))
	ts := httptest.NewServer(a.h)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/interviews/live/x"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial without token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("response = %v, want 401", resp)
	}
}

// A full call: greeting, exit, summary navigation and background analysis.
func TestLive_CallLifecycle(t *testing.T) {
	ai := &fakeInterviewer{prompt: "You interview for Acme.", reply: "Welcome! Tell me about yourself."}
	an := &fakeAnalyzer{analysis: interview.Analysis{OverallScore: 7, Recommendation: "yes"}}
	a := newTestAPI(t, withAI(ai, an), browserOnly)
	ana, uid := a.register("ana")
	ts := httptest.NewServer(a.h)
	defer ts.Close()

	var sess interview.Session
	w := a.do(http.MethodPost, "/api/interviews/sessions", ana, map[string]string{"company": "Acme", "role": "SDE"})
	if w.Code != http.StatusCreated {
		t.Fatalf("start session = %d: %s", w.Code, w.Body.String())
	}
	decodeInto(t, w, &sess)

	conn := dialLive(t, ts, sess.ID, ana)
	readUntil(t, conn, func(m live.Message) bool {
		return m.Type == live.TypeSpeak && m.Text == ai.reply
	})

	var held int64
	a.db.Model(&models.LiveSession{}).Where("session_id = ?", sess.ID).Count(&held)
	if held != 1 {
		t.Errorf("live slots = %d, want 1", held)
	}

	if err := conn.WriteJSON(live.Message{Type: live.TypeExit}); err != nil {
		t.Fatalf("send exit: %v", err)
	}
	nav := readUntil(t, conn, func(m live.Message) bool { return m.Type == live.TypeNavigate })
	if nav.Path != call.SummaryPath(sess.ID) {
		t.Errorf("navigate to %q, want %q", nav.Path, call.SummaryPath(sess.ID))
	}
	conn.Close()

	if _, ok := a.srv.calls.Active(uid); ok {
		t.Error("session still active after exit")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var rec interview.HistoryRecord
		decodeInto(t, a.do(http.MethodGet, "/api/interviews/history/"+sess.ID, ana, nil), &rec)
		if rec.Status == interview.StatusCompleted {
			if rec.Analysis == nil || rec.Analysis.OverallScore != 7 {
				t.Errorf("analysis = %+v", rec.Analysis)
			}
			if len(rec.Transcript) == 0 || rec.Transcript[0].Text != ai.reply {
				t.Errorf("transcript = %+v", rec.Transcript)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("history status = %q, want completed", rec.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
