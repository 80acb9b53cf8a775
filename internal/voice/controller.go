// Package voice implements spoken turn-taking for an interview call. A
// Controller listens through a Recognizer, decides that the candidate has
// finished a turn after a silence window, hands the turn to a handler, and
// plays replies through a Speaker. Listening and speaking never overlap.
package voice

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/campusconnect/campus/internal/interview"
)

// Defaults applied to zero Options fields.
const (
	DefaultSilenceTimeout  = 6 * time.Second
	DefaultMaxUserResponse = 120 * time.Second
	DefaultRestartDelay    = 150 * time.Millisecond
	DefaultWrapUpPrompt    = "Thanks for the detailed answer. Please wrap up your current thought in one sentence."
)

// Result is one speech-recognition hypothesis.
type Result struct {
	Transcript string
	Final      bool
}

// Listener receives recognizer events.
type Listener interface {
	RecognitionStarted()
	RecognitionResult(Result)
	RecognitionEnded()
}

// Recognizer is a single-utterance speech recognizer emitting interim
// results. It reports through the Listener given to SetListener and must
// call RecognitionEnded once after each successful Start.
type Recognizer interface {
	SetListener(Listener)
	Start() error
	Stop()
}

// SpeechCallbacks report the progress of one Speak request. OnStart fires at
// most once; exactly one of OnEnd or OnError fires. A request cut short by
// Stop or a later Speak ends with OnError(context.Canceled).
type SpeechCallbacks struct {
	OnStart func()
	OnEnd   func()
	OnError func(error)
}

// Speaker plays synthesized speech.
type Speaker interface {
	Speak(text string, cb SpeechCallbacks)
	Stop()
}

// SpeakOptions tune a single Speak call. Force speaks even with the mic off.
type SpeakOptions struct {
	Force   bool
	OnEnd   func()
	OnError func(error)
}

// Responder is handed to the turn handler to surface the interviewer's reply.
type Responder interface {
	RespondWithAI(text string, opts SpeakOptions)
	AddCaption(speaker interview.Speaker, text string)
}

// TurnHandler processes one completed candidate turn. It runs on the timer
// goroutine and may block on network calls.
type TurnHandler func(text string, r Responder)

// Observer is told about every visible state change. Calls are made without
// internal locks held.
type Observer interface {
	CaptionsChanged(captions []interview.Caption)
	LiveCaptionChanged(text string)
	SpeakingChanged(speaking bool)
	RevealProgress(captionID, visible string, done bool)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) CaptionsChanged([]interview.Caption) {}
func (NopObserver) LiveCaptionChanged(string)           {}
func (NopObserver) SpeakingChanged(bool)                {}
func (NopObserver) RevealProgress(string, string, bool) {}

// Options configure a Controller.
type Options struct {
	SilenceTimeout  time.Duration
	MaxUserResponse time.Duration
	RestartDelay    time.Duration
	WrapUpPrompt    string
	Clock           Clock
	Observer        Observer
	OnTurn          TurnHandler
}

// Controller owns the recognizer, the speaker and every timer of one call.
type Controller struct {
	rec    Recognizer
	spk    Speaker
	clock  Clock
	obs    Observer
	onTurn TurnHandler

	silenceTimeout  time.Duration
	maxUserResponse time.Duration
	restartDelay    time.Duration
	wrapUp          string

	// recMu orders recognizer Start/Stop calls against speaking transitions
	// so Start is never issued while speech is playing.
	recMu sync.Mutex

	mu               sync.Mutex
	closed           bool
	micOn            bool
	recognizing      bool
	suppressRestart  bool
	speaking         bool
	speechGen        uint64
	turnInFlight     bool
	speechStarted    bool
	captions         []interview.Caption
	live             string
	pending          string
	pendingCaptionID string
	reveal           *reveal

	silenceTimer  Timer
	responseTimer Timer
	restartTimer  Timer
	revealTimer   Timer
}

// New wires a Controller to rec and spk. The mic starts off.
func New(rec Recognizer, spk Speaker, opts Options) *Controller {
	if opts.SilenceTimeout <= 0 {
		opts.SilenceTimeout = DefaultSilenceTimeout
	}
	if opts.MaxUserResponse <= 0 {
		opts.MaxUserResponse = DefaultMaxUserResponse
	}
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = DefaultRestartDelay
	}
	if strings.TrimSpace(opts.WrapUpPrompt) == "" {
		opts.WrapUpPrompt = DefaultWrapUpPrompt
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	c := &Controller{
		rec:             rec,
		spk:             spk,
		clock:           opts.Clock,
		obs:             opts.Observer,
		onTurn:          opts.OnTurn,
		silenceTimeout:  opts.SilenceTimeout,
		maxUserResponse: opts.MaxUserResponse,
		restartDelay:    opts.RestartDelay,
		wrapUp:          opts.WrapUpPrompt,
	}
	rec.SetListener(recognizerEvents{c})
	return c
}

// SetTurnHandler replaces the handler invoked on each completed turn.
func (c *Controller) SetTurnHandler(h TurnHandler) {
	c.mu.Lock()
	c.onTurn = h
	c.mu.Unlock()
}

// Captions returns a copy of the caption list.
func (c *Controller) Captions() []interview.Caption {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.captionsLocked()
}

// LiveCaption returns the current unfinalized hypothesis.
func (c *Controller) LiveCaption() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// Speaking reports whether AI speech is playing.
func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// MicOn reports whether the mic is logically on.
func (c *Controller) MicOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.micOn
}

func (c *Controller) captionsLocked() []interview.Caption {
	out := make([]interview.Caption, len(c.captions))
	copy(out, c.captions)
	return out
}

// SetMicOn turns listening on or off. Turning it off cancels the silence,
// response-length and restart timers.
func (c *Controller) SetMicOn(on bool) {
	c.mu.Lock()
	if c.closed || c.micOn == on {
		c.mu.Unlock()
		return
	}
	c.micOn = on
	if on {
		c.suppressRestart = false
		c.mu.Unlock()
		c.startListening()
		return
	}
	c.stopTimer(&c.silenceTimer)
	c.stopTimer(&c.responseTimer)
	c.stopTimer(&c.restartTimer)
	c.mu.Unlock()
	c.stopListening()
}

func (c *Controller) startListening() {
	c.recMu.Lock()
	defer c.recMu.Unlock()

	c.mu.Lock()
	if c.closed || !c.micOn || c.speaking || c.recognizing {
		c.mu.Unlock()
		return
	}
	c.recognizing = true
	c.mu.Unlock()

	if err := c.rec.Start(); err != nil {
		log.Printf("voice: start recognizer: %v", err)
		c.mu.Lock()
		c.recognizing = false
		c.mu.Unlock()
	}
}

func (c *Controller) stopListening() {
	c.recMu.Lock()
	defer c.recMu.Unlock()

	c.mu.Lock()
	active := c.recognizing
	c.recognizing = false
	c.mu.Unlock()
	if active {
		c.rec.Stop()
	}
}

// Speak plays text, stopping recognition and any playback first. It reports
// whether the request was accepted; blank text, a closed controller, or a
// muted mic without Force are ignored.
func (c *Controller) Speak(text string, opts SpeakOptions) bool {
	text = strings.TrimSpace(text)

	c.recMu.Lock()
	c.mu.Lock()
	if c.closed || text == "" || (!c.micOn && !opts.Force) {
		c.mu.Unlock()
		c.recMu.Unlock()
		return false
	}
	c.suppressRestart = true
	c.speechGen++
	gen := c.speechGen
	wasSpeaking := c.speaking
	c.speaking = true
	active := c.recognizing
	c.recognizing = false
	c.stopTimer(&c.restartTimer)
	c.mu.Unlock()

	if active {
		c.rec.Stop()
	}
	c.spk.Stop()
	c.recMu.Unlock()

	if !wasSpeaking {
		c.obs.SpeakingChanged(true)
	}

	var once sync.Once
	finish := func(err error) {
		once.Do(func() { c.speechFinished(gen, err, opts) })
	}
	c.spk.Speak(text, SpeechCallbacks{
		OnEnd:   func() { finish(nil) },
		OnError: func(err error) { finish(err) },
	})
	return true
}

func (c *Controller) speechFinished(gen uint64, err error, opts SpeakOptions) {
	c.mu.Lock()
	if c.closed || gen != c.speechGen {
		c.mu.Unlock()
		return
	}
	c.speaking = false
	c.suppressRestart = false
	listen := c.micOn
	if c.pending != "" {
		c.schedule(&c.silenceTimer, c.silenceTimeout, c.flush)
	}
	c.mu.Unlock()

	c.completeReveal()
	c.obs.SpeakingChanged(false)

	if err != nil {
		log.Printf("voice: speech failed: %v", err)
		if opts.OnError != nil {
			opts.OnError(err)
		}
	} else if opts.OnEnd != nil {
		opts.OnEnd()
	}
	if listen {
		c.startListening()
	}
}

// RespondWithAI appends an AI caption and speaks it.
func (c *Controller) RespondWithAI(text string, opts SpeakOptions) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	c.AddCaption(interview.SpeakerAI, text)
	c.Speak(text, opts)
}

// AddCaption appends a caption without speaking it. AI captions are
// revealed with the typing effect.
func (c *Controller) AddCaption(speaker interview.Speaker, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	caption := interview.Caption{ID: interview.NewCaptionID(c.clock.Now()), Speaker: speaker, Text: text}
	c.captions = append(c.captions, caption)
	var previous *reveal
	if speaker == interview.SpeakerAI {
		previous = c.startRevealLocked(caption.ID, text)
	}
	snapshot := c.captionsLocked()
	c.mu.Unlock()

	if previous != nil {
		c.obs.RevealProgress(previous.captionID, string(previous.text), true)
	}
	c.obs.CaptionsChanged(snapshot)
}

// StopAll halts recognition and playback, drops any pending utterance and
// cancels every timer except the typing effect, which is completed.
func (c *Controller) StopAll() {
	c.recMu.Lock()
	c.mu.Lock()
	c.suppressRestart = true
	c.stopTimer(&c.silenceTimer)
	c.stopTimer(&c.responseTimer)
	c.stopTimer(&c.restartTimer)
	c.pending = ""
	c.pendingCaptionID = ""
	c.speechStarted = false
	liveChanged := c.live != ""
	c.live = ""
	wasSpeaking := c.speaking
	c.speaking = false
	c.speechGen++
	active := c.recognizing
	c.recognizing = false
	c.mu.Unlock()

	if active {
		c.rec.Stop()
	}
	c.spk.Stop()
	c.recMu.Unlock()

	c.completeReveal()
	if liveChanged {
		c.obs.LiveCaptionChanged("")
	}
	if wasSpeaking {
		c.obs.SpeakingChanged(false)
	}
}

// Close stops everything and turns the controller inert. Safe to call more
// than once.
func (c *Controller) Close() {
	c.StopAll()
	c.mu.Lock()
	c.micOn = false
	c.closed = true
	c.stopTimer(&c.revealTimer)
	c.mu.Unlock()
}

// schedule arms slot to run f after d, replacing any timer already there.
// Callers hold c.mu. A callback whose timer was replaced or stopped does
// nothing.
func (c *Controller) schedule(slot *Timer, d time.Duration, f func()) {
	c.stopTimer(slot)
	var t Timer
	t = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		if *slot != t || c.closed {
			c.mu.Unlock()
			return
		}
		*slot = nil
		c.mu.Unlock()
		f()
	})
	*slot = t
}

func (c *Controller) stopTimer(slot *Timer) {
	if *slot != nil {
		(*slot).Stop()
		*slot = nil
	}
}

func (c *Controller) scheduleSilence() {
	c.mu.Lock()
	if !c.closed {
		c.schedule(&c.silenceTimer, c.silenceTimeout, c.flush)
	}
	c.mu.Unlock()
}

// flush hands the pending utterance to the turn handler once the silence
// window has passed.
func (c *Controller) flush() {
	c.mu.Lock()
	if c.closed || c.speaking || strings.TrimSpace(c.live) != "" || c.turnInFlight {
		c.mu.Unlock()
		return
	}
	text := strings.TrimSpace(c.pending)
	if text == "" {
		c.mu.Unlock()
		return
	}
	c.pending = ""
	c.pendingCaptionID = ""
	c.stopTimer(&c.responseTimer)
	c.speechStarted = false
	c.turnInFlight = true
	handler := c.onTurn
	c.mu.Unlock()

	if handler != nil {
		handler(text, c)
	}

	c.mu.Lock()
	c.turnInFlight = false
	if !c.closed && c.pending != "" && !c.speaking {
		c.schedule(&c.silenceTimer, c.silenceTimeout, c.flush)
	}
	c.mu.Unlock()
}

// interruptLongAnswer asks the candidate to wrap up once their turn has run
// past the response cap, then resumes silence detection.
func (c *Controller) interruptLongAnswer() {
	c.mu.Lock()
	if c.closed || c.speaking || !c.micOn || c.pending == "" {
		c.mu.Unlock()
		return
	}
	prompt := c.wrapUp
	// Recognition stops here, so an interim hypothesis will never be
	// finalized and must not hold back the next flush.
	liveChanged := c.live != ""
	c.live = ""
	c.mu.Unlock()

	c.stopListening()
	if liveChanged {
		c.obs.LiveCaptionChanged("")
	}
	c.Speak(prompt, SpeakOptions{OnEnd: c.scheduleSilence})
}

func (c *Controller) appendYouLocked(text string) {
	if c.pendingCaptionID != "" {
		for i := len(c.captions) - 1; i >= 0; i-- {
			if c.captions[i].ID == c.pendingCaptionID && c.captions[i].Speaker == interview.SpeakerYou {
				c.captions[i].Text = strings.TrimSpace(c.captions[i].Text + " " + text)
				return
			}
		}
	}
	id := interview.NewCaptionID(c.clock.Now())
	c.pendingCaptionID = id
	c.captions = append(c.captions, interview.Caption{ID: id, Speaker: interview.SpeakerYou, Text: text})
}

func (c *Controller) startRevealLocked(captionID, text string) *reveal {
	previous := c.reveal
	c.stopTimer(&c.revealTimer)
	c.reveal = newReveal(captionID, text)
	c.schedule(&c.revealTimer, revealStep, c.revealTick)
	return previous
}

func (c *Controller) revealTick() {
	c.mu.Lock()
	r := c.reveal
	if r == nil {
		c.mu.Unlock()
		return
	}
	visible, done := r.step()
	if done {
		c.reveal = nil
	} else {
		c.schedule(&c.revealTimer, revealStep, c.revealTick)
	}
	c.mu.Unlock()
	c.obs.RevealProgress(r.captionID, visible, done)
}

func (c *Controller) completeReveal() {
	c.mu.Lock()
	r := c.reveal
	c.reveal = nil
	c.stopTimer(&c.revealTimer)
	c.mu.Unlock()
	if r != nil {
		c.obs.RevealProgress(r.captionID, string(r.text), true)
	}
}

// recognizerEvents adapts the Controller to Listener without exporting the
// callbacks on Controller itself.
type recognizerEvents struct{ c *Controller }

func (e recognizerEvents) RecognitionStarted() {
	c := e.c
	c.mu.Lock()
	stray := c.closed || !c.micOn || c.speaking
	if !stray {
		c.recognizing = true
	}
	c.mu.Unlock()
	if stray {
		go c.haltRecognizer()
	}
}

func (c *Controller) haltRecognizer() {
	c.recMu.Lock()
	defer c.recMu.Unlock()
	c.mu.Lock()
	c.recognizing = false
	c.mu.Unlock()
	c.rec.Stop()
}

func (e recognizerEvents) RecognitionEnded() {
	c := e.c
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recognizing = false
	if c.closed || !c.micOn || c.suppressRestart || c.speaking {
		return
	}
	c.schedule(&c.restartTimer, c.restartDelay, c.startListening)
}

func (e recognizerEvents) RecognitionResult(r Result) {
	c := e.c
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopTimer(&c.silenceTimer)

	if !r.Final {
		c.live = r.Transcript
		c.schedule(&c.silenceTimer, c.silenceTimeout, c.flush)
		c.mu.Unlock()
		c.obs.LiveCaptionChanged(r.Transcript)
		return
	}

	liveChanged := c.live != ""
	c.live = ""
	text := strings.TrimSpace(r.Transcript)
	var snapshot []interview.Caption
	if text != "" {
		if c.pending == "" {
			c.pending = text
		} else {
			c.pending += " " + text
		}
		c.appendYouLocked(text)
		snapshot = c.captionsLocked()
		if !c.speechStarted {
			c.speechStarted = true
			c.schedule(&c.responseTimer, c.maxUserResponse, c.interruptLongAnswer)
		}
	}
	if c.pending != "" {
		c.schedule(&c.silenceTimer, c.silenceTimeout, c.flush)
	}
	c.mu.Unlock()

	if liveChanged {
		c.obs.LiveCaptionChanged("")
	}
	if snapshot != nil {
		c.obs.CaptionsChanged(snapshot)
	}
}
