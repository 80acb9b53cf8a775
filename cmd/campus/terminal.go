package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/campusconnect/campus/internal/voice"
)

// terminalMic is a voice.Recognizer fed by typed lines. Each line is a
// final result, so the controller's silence window decides when a typed
// answer is complete.
type terminalMic struct {
	mu        sync.Mutex
	listener  voice.Listener
	listening bool
}

func (m *terminalMic) SetListener(l voice.Listener) {
	m.mu.Lock()
	m.listener = l
	m.mu.Unlock()
}

func (m *terminalMic) Start() error {
	m.mu.Lock()
	m.listening = true
	l := m.listener
	m.mu.Unlock()
	if l != nil {
		l.RecognitionStarted()
	}
	return nil
}

func (m *terminalMic) Stop() {
	m.mu.Lock()
	was := m.listening
	m.listening = false
	l := m.listener
	m.mu.Unlock()
	if was && l != nil {
		l.RecognitionEnded()
	}
}

// hear delivers a typed line. It reports false while the mic is closed,
// as it is while the interviewer speaks.
func (m *terminalMic) hear(line string) bool {
	m.mu.Lock()
	l := m.listener
	ok := m.listening
	m.mu.Unlock()
	if !ok || l == nil {
		return false
	}
	l.RecognitionResult(voice.Result{Transcript: line, Final: true})
	return true
}

// terminalVoice prints what the interviewer says. Playback finishes as
// soon as the line is written.
type terminalVoice struct {
	out io.Writer
}

func (v terminalVoice) Speak(text string, cb voice.SpeechCallbacks) {
	fmt.Fprintf(v.out, "\nInterviewer: %s\n> ", text)
	if cb.OnStart != nil {
		cb.OnStart()
	}
	if cb.OnEnd != nil {
		cb.OnEnd()
	}
}

func (terminalVoice) Stop() {}

// terminalScreen stands in for the browser: there is no screen to keep
// awake, and navigating away ends the call loop.
type terminalScreen struct {
	once sync.Once
	path string
	done chan struct{}
}

func newTerminalScreen() *terminalScreen {
	return &terminalScreen{done: make(chan struct{})}
}

func (s *terminalScreen) Acquire() error { return nil }
func (s *terminalScreen) Release()       {}

func (s *terminalScreen) Navigate(path string) {
	s.once.Do(func() {
		s.path = path
		close(s.done)
	})
}
