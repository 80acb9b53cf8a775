package call

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/campusconnect/campus/internal/interview"
	"github.com/campusconnect/campus/internal/voice"
)

const (
	// JoinPath is where a candidate without an active session is sent.
	JoinPath = "/interview/join"

	// DefaultExitGrace is the pause before an automatic disconnect.
	DefaultExitGrace = 2 * time.Second

	// silentRepliesToExit is how many near-empty replies after an end-call
	// prompt trigger the automatic disconnect.
	silentRepliesToExit = 3

	fallbackCaption = "I couldn't process that response, can you please rephrase?"
)

// SummaryPath is the route of a finished call's summary.
func SummaryPath(id string) string {
	return "/interview/history/" + id
}

// Navigator moves the candidate's UI to another route.
type Navigator interface {
	Navigate(path string)
}

// WakeLock keeps the candidate's screen on during a call.
type WakeLock interface {
	Acquire() error
	Release()
}

// RoomOptions tune a Room. Voice.OnTurn is replaced by the room.
type RoomOptions struct {
	Voice     voice.Options
	ExitGrace time.Duration
	// OnExit runs after the history record is stored, e.g. to start
	// analysis.
	OnExit func(rec interview.HistoryRecord)
}

// Room is one live interview call.
type Room struct {
	store   *Store
	session interview.Session
	ai      interview.Interviewer
	ctl     *voice.Controller
	wake    WakeLock
	nav     Navigator
	clock   voice.Clock
	grace   time.Duration
	onExit  func(interview.HistoryRecord)

	ctx    context.Context
	cancel context.CancelFunc

	mu                 sync.Mutex
	startedAt          time.Time
	greeted            bool
	exited             bool
	endCallPrompted    bool
	endCallPromptCount int
	silentReplies      int
	exitTimer          voice.Timer
}

// OpenRoom opens the call room for sessionID. If it is not the user's
// active session the candidate is sent to JoinPath and ErrNoActiveSession
// is returned.
func OpenRoom(store *Store, userID, sessionID string, ai interview.Interviewer, rec voice.Recognizer, spk voice.Speaker, wake WakeLock, nav Navigator, opts RoomOptions) (*Room, error) {
	sess, ok := store.Active(userID)
	if !ok || sess.ID != sessionID {
		nav.Navigate(JoinPath)
		return nil, ErrNoActiveSession
	}
	if opts.Voice.Clock == nil {
		opts.Voice.Clock = voice.SystemClock
	}
	if opts.ExitGrace <= 0 {
		opts.ExitGrace = DefaultExitGrace
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Room{
		store:     store,
		session:   sess,
		ai:        ai,
		wake:      wake,
		nav:       nav,
		clock:     opts.Voice.Clock,
		grace:     opts.ExitGrace,
		onExit:    opts.OnExit,
		ctx:       ctx,
		cancel:    cancel,
		startedAt: opts.Voice.Clock.Now(),
	}
	opts.Voice.OnTurn = r.handleTurn
	r.ctl = voice.New(rec, spk, opts.Voice)
	return r, nil
}

// Session returns the call's session.
func (r *Room) Session() interview.Session { return r.session }

// Controller exposes the voice controller for mic toggles and captions.
func (r *Room) Controller() *voice.Controller { return r.ctl }

// SetMicOn toggles listening.
func (r *Room) SetMicOn(on bool) { r.ctl.SetMicOn(on) }

// ElapsedSec is the whole seconds since the room opened.
func (r *Room) ElapsedSec() int {
	r.mu.Lock()
	start := r.startedAt
	r.mu.Unlock()
	return int(r.clock.Now().Sub(start) / time.Second)
}

// Exited reports whether Exit has run.
func (r *Room) Exited() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exited
}

// Enter acquires the wake lock and, for a call with no captions yet, asks
// the interviewer for an opening line and speaks it. The greeting is sent
// at most once; a failed request allows a later retry.
func (r *Room) Enter(ctx context.Context) error {
	if err := r.wake.Acquire(); err != nil {
		log.Printf("call: acquire wake lock: %v", err)
	}

	r.mu.Lock()
	if r.greeted || r.exited || len(r.ctl.Captions()) > 0 {
		r.mu.Unlock()
		return nil
	}
	r.greeted = true
	count := r.endCallPromptCount
	r.mu.Unlock()

	reply, err := r.ai.Reply(ctx, interview.TurnRequest{
		Message:            interview.StartSession,
		History:            []interview.Caption{},
		Config:             r.session.Config,
		ElapsedSec:         0,
		EndCallPromptCount: count,
	})
	if err != nil {
		r.mu.Lock()
		r.greeted = false
		r.mu.Unlock()
		log.Printf("call: greeting for %s: %v", r.session.ID, err)
		return err
	}
	// The greeting only carries the prompt count forward; it never arms the
	// end-call heuristic.
	r.mu.Lock()
	r.endCallPromptCount = reply.EndCallPromptCount
	r.mu.Unlock()
	r.ctl.RespondWithAI(reply.Reply, voice.SpeakOptions{Force: true})
	return nil
}

// handleTurn is the controller's turn handler.
func (r *Room) handleTurn(text string, resp voice.Responder) {
	trimmed := strings.TrimSpace(text)

	r.mu.Lock()
	if r.exited {
		r.mu.Unlock()
		return
	}
	if r.endCallPrompted {
		if len([]rune(trimmed)) < 3 {
			r.silentReplies++
			if r.silentReplies >= silentRepliesToExit {
				if r.exitTimer == nil {
					r.exitTimer = r.clock.AfterFunc(r.grace, r.Exit)
				}
				r.mu.Unlock()
				return
			}
		} else {
			r.silentReplies = 0
		}
	}
	count := r.endCallPromptCount
	r.mu.Unlock()

	reply, err := r.ai.Reply(r.ctx, interview.TurnRequest{
		Message:            text,
		History:            r.ctl.Captions(),
		Config:             r.session.Config,
		ElapsedSec:         r.ElapsedSec(),
		EndCallPromptCount: count,
	})
	if err != nil {
		if r.ctx.Err() == nil {
			log.Printf("call: interviewer turn for %s: %v", r.session.ID, err)
			resp.AddCaption(interview.SpeakerAI, fallbackCaption)
		}
		return
	}
	if r.Exited() {
		return
	}
	resp.RespondWithAI(reply.Reply, voice.SpeakOptions{})
	r.applyReply(reply)
}

func (r *Room) applyReply(reply interview.TurnReply) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endCallPromptCount = reply.EndCallPromptCount
	if reply.EndCallPrompted {
		r.endCallPrompted = true
	}
}

// Exit ends the call exactly once: it releases the wake lock, silences
// audio, files the transcript into history as analyzing, clears the active
// slot and navigates to the summary.
func (r *Room) Exit() {
	r.mu.Lock()
	if r.exited {
		r.mu.Unlock()
		return
	}
	r.exited = true
	if r.exitTimer != nil {
		r.exitTimer.Stop()
		r.exitTimer = nil
	}
	r.mu.Unlock()

	r.cancel()
	r.wake.Release()
	captions := r.ctl.Captions()
	duration := r.ElapsedSec()
	r.ctl.Close()

	cfg := r.session.Config
	rec := interview.HistoryRecord{
		ID:         r.session.ID,
		UserID:     r.session.UserID,
		Company:    cfg.Company,
		Role:       cfg.Role,
		Topics:     cfg.Topics,
		Difficulty: cfg.Difficulty,
		Timestamp:  r.clock.Now().UTC(),
		Duration:   duration,
		Transcript: captions,
		Metadata: interview.Metadata{
			Company:         cfg.Company,
			Role:            cfg.Role,
			Topics:          cfg.Topics,
			Difficulty:      cfg.Difficulty,
			ResumeOverview:  cfg.ResumeOverview,
			TranscriptCount: len(captions),
		},
		Analysis: nil,
		Status:   interview.StatusAnalyzing,
	}
	if err := r.store.AddToHistory(context.Background(), rec); err != nil {
		log.Printf("call: save history %s: %v", rec.ID, err)
	}
	r.store.ClearActive(r.session.UserID)
	r.nav.Navigate(SummaryPath(rec.ID))
	if r.onExit != nil {
		r.onExit(rec)
	}
}

// VisibilityChanged re-acquires the wake lock when the page becomes visible
// during the call.
func (r *Room) VisibilityChanged(visible bool) {
	if !visible || r.Exited() {
		return
	}
	if err := r.wake.Acquire(); err != nil {
		log.Printf("call: re-acquire wake lock: %v", err)
	}
}

// Close tears the room down without recording history, as when the
// candidate's connection drops.
func (r *Room) Close() {
	r.mu.Lock()
	if r.exitTimer != nil {
		r.exitTimer.Stop()
		r.exitTimer = nil
	}
	r.mu.Unlock()
	r.cancel()
	r.ctl.Close()
	r.wake.Release()
}
