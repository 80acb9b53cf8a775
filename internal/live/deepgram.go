package live

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/campusconnect/campus/internal/voice"
)

// Stream is a live transcription connection accepting raw audio.
type Stream interface {
	Write(p []byte) (int, error)
	Stop()
}

// Dialer opens a Stream reporting to cb.
type Dialer func(ctx context.Context, cb api.LiveMessageCallback) (Stream, error)

var initDeepgram sync.Once

// DeepgramDialer returns a Dialer for Deepgram live transcription of
// 16-bit mono PCM at sampleRate.
func DeepgramDialer(apiKey string, sampleRate int) Dialer {
	return func(ctx context.Context, cb api.LiveMessageCallback) (Stream, error) {
		initDeepgram.Do(func() {
			client.Init(client.InitLib{LogLevel: client.LogLevelDefault})
		})
		cOptions := &interfaces.ClientOptions{EnableKeepAlive: true}
		tOptions := &interfaces.LiveTranscriptionOptions{
			Model:          "nova-2",
			Language:       "en-US",
			Punctuate:      true,
			SmartFormat:    true,
			InterimResults: true,
			Encoding:       "linear16",
			SampleRate:     sampleRate,
			Channels:       1,
		}
		dg, err := client.NewWSUsingCallback(ctx, apiKey, cOptions, tOptions, cb)
		if err != nil {
			return nil, fmt.Errorf("live: deepgram client: %w", err)
		}
		if ok := dg.Connect(); !ok {
			return nil, errors.New("live: deepgram connect failed")
		}
		return dg, nil
	}
}

// DeepgramRecognizer transcribes microphone audio streamed from the browser
// as binary frames. Each Start opens a fresh Deepgram connection; audio
// arriving while stopped is dropped.
type DeepgramRecognizer struct {
	dial Dialer

	mu       sync.Mutex
	listener voice.Listener
	stream   Stream
	cancel   context.CancelFunc
	gen      uint64
	ended    bool
}

// NewDeepgramRecognizer returns a recognizer using dial.
func NewDeepgramRecognizer(dial Dialer) *DeepgramRecognizer {
	return &DeepgramRecognizer{dial: dial, ended: true}
}

func (d *DeepgramRecognizer) SetListener(l voice.Listener) {
	d.mu.Lock()
	d.listener = l
	d.mu.Unlock()
}

func (d *DeepgramRecognizer) Start() error {
	d.mu.Lock()
	if d.stream != nil {
		d.mu.Unlock()
		return errors.New("live: recognizer already started")
	}
	d.gen++
	gen := d.gen
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.mu.Unlock()

	stream, err := d.dial(ctx, deepgramEvents{d: d, gen: gen})
	if err != nil {
		cancel()
		return err
	}

	d.mu.Lock()
	if d.gen != gen {
		// Stopped while dialing.
		d.mu.Unlock()
		stream.Stop()
		cancel()
		return nil
	}
	d.stream = stream
	d.ended = false
	l := d.listener
	d.mu.Unlock()
	if l != nil {
		l.RecognitionStarted()
	}
	return nil
}

func (d *DeepgramRecognizer) Stop() {
	d.mu.Lock()
	d.gen++
	stream := d.stream
	cancel := d.cancel
	d.stream = nil
	d.cancel = nil
	d.mu.Unlock()

	if stream != nil {
		stream.Stop()
	}
	if cancel != nil {
		cancel()
	}
	d.end()
}

// Write forwards audio to the open connection.
func (d *DeepgramRecognizer) Write(p []byte) (int, error) {
	d.mu.Lock()
	stream := d.stream
	d.mu.Unlock()
	if stream == nil {
		return len(p), nil
	}
	return stream.Write(p)
}

// end reports RecognitionEnded once per started connection.
func (d *DeepgramRecognizer) end() {
	d.mu.Lock()
	if d.ended {
		d.mu.Unlock()
		return
	}
	d.ended = true
	l := d.listener
	d.mu.Unlock()
	if l != nil {
		l.RecognitionEnded()
	}
}

func (d *DeepgramRecognizer) current(gen uint64) (voice.Listener, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listener, d.gen == gen && d.stream != nil
}

// deepgramEvents adapts Deepgram callbacks for one connection.
type deepgramEvents struct {
	d   *DeepgramRecognizer
	gen uint64
}

func (e deepgramEvents) Message(mr *api.MessageResponse) error {
	if mr == nil || len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	l, ok := e.d.current(e.gen)
	if !ok || l == nil {
		return nil
	}
	text := strings.TrimSpace(mr.Channel.Alternatives[0].Transcript)
	if text == "" && !mr.IsFinal {
		return nil
	}
	l.RecognitionResult(voice.Result{Transcript: text, Final: mr.IsFinal})
	return nil
}

func (e deepgramEvents) Open(*api.OpenResponse) error {
	log.Println("live: connected to Deepgram")
	return nil
}

func (e deepgramEvents) Metadata(*api.MetadataResponse) error { return nil }

func (e deepgramEvents) SpeechStarted(*api.SpeechStartedResponse) error { return nil }

func (e deepgramEvents) UtteranceEnd(*api.UtteranceEndResponse) error { return nil }

func (e deepgramEvents) Close(*api.CloseResponse) error {
	if _, ok := e.d.current(e.gen); ok {
		log.Println("live: Deepgram closed the connection")
		e.d.Stop()
	}
	return nil
}

func (e deepgramEvents) Error(er *api.ErrorResponse) error {
	log.Printf("live: deepgram error %s: %s", er.ErrCode, er.Description)
	return nil
}

func (e deepgramEvents) UnhandledEvent([]byte) error { return nil }
