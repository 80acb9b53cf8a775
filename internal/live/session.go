// Package live carries a voice interview over a websocket. The candidate's
// browser supplies speech recognition, audio playback and the screen wake
// lock; this package exposes those as the interfaces the voice controller
// and call room expect, and streams controller state back as JSON events.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/campusconnect/campus/internal/interview"
)

// Outbound event types.
const (
	TypeRecognizerStart = "recognizer.start"
	TypeRecognizerStop  = "recognizer.stop"
	TypeSpeak           = "speak"
	TypeSpeakStop       = "speak.stop"
	TypeWakeAcquire     = "wakelock.acquire"
	TypeWakeRelease     = "wakelock.release"
	TypeCaptions        = "captions"
	TypeLiveCaption     = "live_caption"
	TypeSpeaking        = "speaking"
	TypeReveal          = "reveal"
	TypeNavigate        = "navigate"
	TypeError           = "error"
)

// Inbound event types.
const (
	TypeRecognitionStart  = "recognition.start"
	TypeRecognitionResult = "recognition.result"
	TypeRecognitionEnd    = "recognition.end"
	TypePlaybackStart     = "playback.start"
	TypePlaybackEnd       = "playback.end"
	TypePlaybackError     = "playback.error"
	TypeMic               = "mic"
	TypeVisibility        = "visibility"
	TypeExit              = "exit"
)

// Message is the JSON envelope for every event in both directions.
type Message struct {
	Type       string              `json:"type"`
	Seq        uint64              `json:"seq,omitempty"`
	Transcript string              `json:"transcript,omitempty"`
	Final      bool                `json:"final,omitempty"`
	Text       string              `json:"text,omitempty"`
	Audio      []byte              `json:"audio,omitempty"`
	MIMEType   string              `json:"mimeType,omitempty"`
	Error      string              `json:"error,omitempty"`
	On         *bool               `json:"on,omitempty"`
	Visible    *bool               `json:"visible,omitempty"`
	Path       string              `json:"path,omitempty"`
	CaptionID  string              `json:"captionId,omitempty"`
	Done       bool                `json:"done,omitempty"`
	Speaking   *bool               `json:"speaking,omitempty"`
	Captions   []interview.Caption `json:"captions,omitempty"`
}

// Socket is the part of *websocket.Conn a Session uses.
type Socket interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Controls receives the candidate's call controls. *call.Room satisfies it.
type Controls interface {
	SetMicOn(on bool)
	VisibilityChanged(visible bool)
	Exit()
}

// ErrClosed is returned when writing to a closed session.
var ErrClosed = errors.New("live: session closed")

const writeWait = 10 * time.Second

// Session is one candidate's websocket connection.
type Session struct {
	sock Socket

	// wmu serializes socket writes.
	wmu sync.Mutex

	mu       sync.Mutex
	closed   bool
	rec      *RemoteRecognizer
	player   *RemotePlayer
	controls Controls
	audio    io.Writer
}

// NewSession wraps sock.
func NewSession(sock Socket) *Session {
	s := &Session{sock: sock}
	s.rec = &RemoteRecognizer{s: s}
	s.player = &RemotePlayer{s: s}
	return s
}

// Recognizer returns the browser speech recognizer.
func (s *Session) Recognizer() *RemoteRecognizer { return s.rec }

// Player returns the browser audio player.
func (s *Session) Player() *RemotePlayer { return s.player }

// WakeLock returns the browser screen wake lock.
func (s *Session) WakeLock() WakeLock { return WakeLock{s: s} }

// Bind routes inbound call controls to c.
func (s *Session) Bind(c Controls) {
	s.mu.Lock()
	s.controls = c
	s.mu.Unlock()
}

// StreamAudioTo forwards binary frames from the browser to w, as when a
// server-side recognizer consumes raw microphone audio.
func (s *Session) StreamAudioTo(w io.Writer) {
	s.mu.Lock()
	s.audio = w
	s.mu.Unlock()
}

// Send writes one event.
func (s *Session) Send(m Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("live: marshal %s: %w", m.Type, err)
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	if d, ok := s.sock.(interface{ SetWriteDeadline(time.Time) error }); ok {
		_ = d.SetWriteDeadline(time.Now().Add(writeWait))
	}
	if err := s.sock.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("live: write %s: %w", m.Type, err)
	}
	return nil
}

// send logs instead of returning errors; used from interface methods that
// cannot report them.
func (s *Session) send(m Message) {
	if err := s.Send(m); err != nil && !errors.Is(err, ErrClosed) {
		log.Printf("live: %v", err)
	}
}

// Navigate tells the browser to change route.
func (s *Session) Navigate(path string) {
	s.send(Message{Type: TypeNavigate, Path: path})
}

// CaptionsChanged, LiveCaptionChanged, SpeakingChanged and RevealProgress
// make a Session a voice.Observer.
func (s *Session) CaptionsChanged(captions []interview.Caption) {
	if captions == nil {
		captions = []interview.Caption{}
	}
	s.send(Message{Type: TypeCaptions, Captions: captions})
}

func (s *Session) LiveCaptionChanged(text string) {
	s.send(Message{Type: TypeLiveCaption, Text: text})
}

func (s *Session) SpeakingChanged(speaking bool) {
	s.send(Message{Type: TypeSpeaking, Speaking: &speaking})
}

func (s *Session) RevealProgress(captionID, visible string, done bool) {
	s.send(Message{Type: TypeReveal, CaptionID: captionID, Text: visible, Done: done})
}

// Run reads events until the socket fails or ctx ends, then closes the
// session. A clean close from the browser returns nil.
func (s *Session) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()
	defer s.Close()

	for {
		kind, data, err := s.sock.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("live: read: %w", err)
		}
		if kind == websocket.BinaryMessage {
			s.forwardAudio(data)
			continue
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			log.Printf("live: bad message: %v", err)
			s.send(Message{Type: TypeError, Error: "malformed message"})
			continue
		}
		s.dispatch(m)
	}
}

func (s *Session) forwardAudio(frame []byte) {
	s.mu.Lock()
	w := s.audio
	s.mu.Unlock()
	if w == nil {
		return
	}
	if _, err := w.Write(frame); err != nil {
		log.Printf("live: forward audio: %v", err)
	}
}

func (s *Session) dispatch(m Message) {
	s.mu.Lock()
	controls := s.controls
	s.mu.Unlock()

	switch m.Type {
	case TypeRecognitionStart, TypeRecognitionResult, TypeRecognitionEnd:
		s.rec.handle(m)
	case TypePlaybackStart, TypePlaybackEnd, TypePlaybackError:
		s.player.handle(m)
	case TypeMic:
		if controls != nil && m.On != nil {
			controls.SetMicOn(*m.On)
		}
	case TypeVisibility:
		if controls != nil && m.Visible != nil {
			controls.VisibilityChanged(*m.Visible)
		}
	case TypeExit:
		if controls != nil {
			controls.Exit()
		}
	default:
		log.Printf("live: unknown message type %q", m.Type)
	}
}

// Close closes the socket once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.wmu.Lock()
	_ = s.sock.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.wmu.Unlock()
	_ = s.sock.Close()
}

// WakeLock asks the browser to keep the screen on.
type WakeLock struct{ s *Session }

func (w WakeLock) Acquire() error {
	return w.s.Send(Message{Type: TypeWakeAcquire})
}

func (w WakeLock) Release() {
	w.s.send(Message{Type: TypeWakeRelease})
}
