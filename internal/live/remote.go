package live

import (
	"context"
	"errors"
	"sync"

	"github.com/campusconnect/campus/internal/speech"
	"github.com/campusconnect/campus/internal/voice"
)

// RemoteRecognizer drives the browser's speech recognition.
type RemoteRecognizer struct {
	s *Session

	mu       sync.Mutex
	listener voice.Listener
}

func (r *RemoteRecognizer) SetListener(l voice.Listener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

func (r *RemoteRecognizer) Start() error {
	return r.s.Send(Message{Type: TypeRecognizerStart})
}

func (r *RemoteRecognizer) Stop() {
	r.s.send(Message{Type: TypeRecognizerStop})
}

func (r *RemoteRecognizer) handle(m Message) {
	r.mu.Lock()
	l := r.listener
	r.mu.Unlock()
	if l == nil {
		return
	}
	switch m.Type {
	case TypeRecognitionStart:
		l.RecognitionStarted()
	case TypeRecognitionResult:
		l.RecognitionResult(voice.Result{Transcript: m.Transcript, Final: m.Final})
	case TypeRecognitionEnd:
		l.RecognitionEnded()
	}
}

// RemotePlayer plays speech in the browser, either encoded audio from a
// cloud synthesizer or the browser's own voice.
type RemotePlayer struct {
	s *Session

	mu      sync.Mutex
	seq     uint64
	pending voice.SpeechCallbacks
	started bool
}

var _ speech.Player = (*RemotePlayer)(nil)

func (p *RemotePlayer) PlayAudio(audio speech.Audio, cb voice.SpeechCallbacks) {
	p.play(Message{Type: TypeSpeak, Audio: audio.Data, MIMEType: audio.MIMEType}, cb)
}

func (p *RemotePlayer) SpeakText(text string, cb voice.SpeechCallbacks) {
	p.play(Message{Type: TypeSpeak, Text: text}, cb)
}

func (p *RemotePlayer) play(m Message, cb voice.SpeechCallbacks) {
	p.mu.Lock()
	p.seq++
	m.Seq = p.seq
	prev := p.pending
	p.pending = cb
	p.started = false
	p.mu.Unlock()
	if prev.OnError != nil {
		prev.OnError(context.Canceled)
	}

	if err := p.s.Send(m); err != nil {
		if p.take(m.Seq) && cb.OnError != nil {
			cb.OnError(err)
		}
	}
}

// Stop silences playback. The interrupted request ends with
// OnError(context.Canceled).
func (p *RemotePlayer) Stop() {
	p.mu.Lock()
	prev := p.pending
	p.pending = voice.SpeechCallbacks{}
	p.mu.Unlock()
	if prev.OnEnd == nil && prev.OnError == nil {
		return
	}
	p.s.send(Message{Type: TypeSpeakStop})
	if prev.OnError != nil {
		prev.OnError(context.Canceled)
	}
}

// take clears the callbacks for seq and reports whether they were current.
func (p *RemotePlayer) take(seq uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq || (p.pending.OnEnd == nil && p.pending.OnError == nil) {
		return false
	}
	p.pending = voice.SpeechCallbacks{}
	return true
}

func (p *RemotePlayer) handle(m Message) {
	p.mu.Lock()
	if m.Seq != p.seq {
		p.mu.Unlock()
		return
	}
	cb := p.pending
	if m.Type == TypePlaybackStart {
		first := !p.started
		p.started = true
		p.mu.Unlock()
		if first && cb.OnStart != nil {
			cb.OnStart()
		}
		return
	}
	p.mu.Unlock()

	if !p.take(m.Seq) {
		return
	}
	switch m.Type {
	case TypePlaybackEnd:
		if cb.OnEnd != nil {
			cb.OnEnd()
		}
	case TypePlaybackError:
		if cb.OnError != nil {
			msg := m.Error
			if msg == "" {
				msg = "playback failed"
			}
			cb.OnError(errors.New(msg))
		}
	}
}
