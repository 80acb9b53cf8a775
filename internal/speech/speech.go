// Package speech plays the interviewer's replies. Cloud synthesizers
// (ElevenLabs, OpenAI) produce encoded audio that a Player renders on the
// candidate's device; any cloud failure falls back to the device's own
// speech engine.
package speech

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/campusconnect/campus/internal/config"
	"github.com/campusconnect/campus/internal/voice"
)

// Provider names a speech backend preference.
type Provider string

const (
	ProviderBrowser    Provider = "browser"
	ProviderElevenLabs Provider = "elevenlabs"
	ProviderOpenAI     Provider = "openai"
	ProviderAuto       Provider = "auto"
)

// NormalizeProvider lower-cases s and maps anything unrecognized to auto.
func NormalizeProvider(s string) Provider {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderBrowser, ProviderElevenLabs, ProviderOpenAI, ProviderAuto:
		return p
	}
	return ProviderAuto
}

// Audio is an encoded speech clip.
type Audio struct {
	Data     []byte
	MIMEType string
}

// Synthesizer converts text to encoded audio.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Player renders speech on the candidate's device. SpeakText uses the
// device's built-in synthesis.
type Player interface {
	PlayAudio(audio Audio, cb voice.SpeechCallbacks)
	SpeakText(text string, cb voice.SpeechCallbacks)
	Stop()
}

// ErrNoAPIKey is returned when a cloud provider is selected without a key.
var ErrNoAPIKey = errors.New("speech: api key not configured")

// Select returns the cloud synthesizer for pref, or nil when the device
// voice should be used. A user preference overrides the configured one.
func Select(pref string, cfg config.TTSConfig, openAIKey string) Synthesizer {
	p := NormalizeProvider(cfg.Provider)
	if strings.TrimSpace(pref) != "" {
		p = NormalizeProvider(pref)
	}
	switch p {
	case ProviderElevenLabs:
		if cfg.ElevenLabsAPIKey != "" {
			return NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoice, cfg.ElevenLabsModel)
		}
	case ProviderOpenAI:
		if openAIKey != "" {
			return NewOpenAI(openAIKey, cfg.OpenAIVoice, cfg.OpenAIModel)
		}
	case ProviderAuto:
		if cfg.ElevenLabsAPIKey != "" {
			return NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoice, cfg.ElevenLabsModel)
		}
		if openAIKey != "" {
			return NewOpenAI(openAIKey, cfg.OpenAIVoice, cfg.OpenAIModel)
		}
	}
	return nil
}

// DefaultSynthesisTimeout bounds a single cloud synthesis request.
const DefaultSynthesisTimeout = 20 * time.Second

// Speaker implements voice.Speaker on top of a Player, preferring cloud
// audio when a Synthesizer is set.
type Speaker struct {
	player  Player
	cloud   Synthesizer
	timeout time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewSpeaker returns a Speaker. cloud may be nil.
func NewSpeaker(player Player, cloud Synthesizer) *Speaker {
	return &Speaker{player: player, cloud: cloud, timeout: DefaultSynthesisTimeout}
}

// Speak stops any current playback and speaks text. Exactly one of
// cb.OnEnd or cb.OnError fires, and cb.OnStart fires at most once, even when
// playback falls back from cloud audio to the device voice. A request
// superseded by Stop or a later Speak ends with OnError(context.Canceled).
func (s *Speaker) Speak(text string, cb voice.SpeechCallbacks) {
	text = strings.TrimSpace(text)
	cb = once(cb)
	s.Stop()
	if text == "" {
		cb.OnEnd()
		return
	}
	if s.cloud == nil {
		s.player.SpeakText(text, cb)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()
		audio, err := s.cloud.Synthesize(ctx, text)
		if !s.current(gen) {
			cb.OnError(context.Canceled)
			return
		}
		if err != nil {
			log.Printf("speech: %s synthesis failed, using device voice: %v", s.cloud.Name(), err)
			s.player.SpeakText(text, cb)
			return
		}
		s.player.PlayAudio(audio, voice.SpeechCallbacks{
			OnStart: cb.OnStart,
			OnEnd:   cb.OnEnd,
			OnError: func(err error) {
				if !s.current(gen) {
					cb.OnError(err)
					return
				}
				log.Printf("speech: %s playback failed, using device voice: %v", s.cloud.Name(), err)
				s.player.SpeakText(text, cb)
			},
		})
	}()
}

// Stop cancels any in-flight synthesis and silences the player.
func (s *Speaker) Stop() {
	s.mu.Lock()
	s.gen++
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.player.Stop()
}

func (s *Speaker) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// once wraps cb so OnStart fires at most once and OnEnd/OnError together
// fire at most once. Missing callbacks become no-ops.
func once(cb voice.SpeechCallbacks) voice.SpeechCallbacks {
	var started, finished sync.Once
	return voice.SpeechCallbacks{
		OnStart: func() {
			started.Do(func() {
				if cb.OnStart != nil {
					cb.OnStart()
				}
			})
		},
		OnEnd: func() {
			finished.Do(func() {
				if cb.OnEnd != nil {
					cb.OnEnd()
				}
			})
		},
		OnError: func(err error) {
			finished.Do(func() {
				if cb.OnError != nil {
					cb.OnError(err)
				}
			})
		},
	}
}
