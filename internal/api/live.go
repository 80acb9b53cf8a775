package api

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/campus/internal/auth"
	"github.com/campusconnect/campus/internal/call"
	"github.com/campusconnect/campus/internal/live"
	"github.com/campusconnect/campus/internal/models"
	"github.com/campusconnect/campus/internal/slot"
	"github.com/campusconnect/campus/internal/speech"
	"github.com/campusconnect/campus/internal/voice"
)

// handleLive upgrades to a websocket and runs the call room for the
// caller's active session.
func handleLive(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.ai == nil {
			s.fail(c, errNoInterviewer)
			return
		}
		uid, sessionID := auth.UserID(c), c.Param("id")

		conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("api: websocket upgrade: %v", err)
			return
		}
		ls := live.NewSession(conn)
		defer ls.Close()

		if sess, ok := s.calls.Active(uid); !ok || sess.ID != sessionID {
			ls.Navigate(call.JoinPath)
			return
		}

		held, err := slot.Acquire(s.db, uid, sessionID, "web", s.cfg.SlotTimeout())
		if err != nil {
			msg := "Could not join the interview"
			if errors.Is(err, slot.ErrHeld) {
				msg = "A live interview is already in progress"
			}
			log.Printf("api: live slot for %s: %v", uid, err)
			ls.Send(live.Message{Type: live.TypeError, Error: msg})
			return
		}
		defer func() {
			if err := slot.Release(s.db, held.ID); err != nil {
				log.Printf("api: release live slot %d: %v", held.ID, err)
			}
		}()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()
		go s.heartbeat(ctx, held.ID)

		room, err := call.OpenRoom(s.calls, uid, sessionID, s.ai, s.recognizerFor(ls), s.speakerFor(uid, ls), ls.WakeLock(), ls, call.RoomOptions{
			Voice: voice.Options{
				SilenceTimeout:  s.cfg.SilenceTimeout(),
				MaxUserResponse: s.cfg.MaxUserResponse(),
				RestartDelay:    s.cfg.RestartDelay(),
				WrapUpPrompt:    s.cfg.Voice.WrapUpPrompt,
				Observer:        ls,
			},
			OnExit: s.analyzeInBackground,
		})
		if err != nil {
			return
		}
		ls.Bind(room)

		go func() {
			if err := room.Enter(ctx); err != nil {
				ls.Send(live.Message{Type: live.TypeError, Error: "Could not start the interview. Please try again."})
			}
		}()

		if err := ls.Run(ctx); err != nil {
			log.Printf("api: live session %s: %v", sessionID, err)
		}
		if !room.Exited() {
			room.Close()
		}
	}
}

// recognizerFor picks the browser recognizer or, when configured, Deepgram
// fed by the browser's raw audio.
func (s *Server) recognizerFor(ls *live.Session) voice.Recognizer {
	if s.cfg.Voice.Recognizer == "deepgram" && s.dial != nil {
		dg := live.NewDeepgramRecognizer(s.dial)
		ls.StreamAudioTo(dg)
		return dg
	}
	return ls.Recognizer()
}

// speakerFor honours the user's voice preference, falling back to the
// browser's own speech.
func (s *Server) speakerFor(uid string, ls *live.Session) *speech.Speaker {
	var u models.User
	if err := s.db.Select("id", "tts_provider").First(&u, "id = ?", uid).Error; err != nil {
		log.Printf("api: load voice preference for %s: %v", uid, err)
	}
	return speech.NewSpeaker(ls.Player(), speech.Select(u.TTSProvider, s.cfg.TTS, s.cfg.AI.OpenAIAPIKey))
}

// heartbeat keeps the live slot fresh until ctx ends.
func (s *Server) heartbeat(ctx context.Context, id uint) {
	ticker := time.NewTicker(s.cfg.SlotTimeout() / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := slot.Heartbeat(s.db, id); err != nil {
				log.Printf("api: live slot heartbeat %d: %v", id, err)
			}
		}
	}
}
