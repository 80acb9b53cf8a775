package voice

import (
	"strings"
	"time"
)

// Typing-effect pacing.
const (
	revealPerWord = 220 * time.Millisecond
	revealMin     = 2500 * time.Millisecond
	revealMax     = 10000 * time.Millisecond
	revealStep    = 45 * time.Millisecond
)

// RevealDuration is how long the typing effect takes to show text in full.
func RevealDuration(text string) time.Duration {
	d := time.Duration(len(strings.Fields(text))) * revealPerWord
	if d < revealMin {
		return revealMin
	}
	if d > revealMax {
		return revealMax
	}
	return d
}

// reveal tracks the incremental display of one AI caption.
type reveal struct {
	captionID string
	text      []rune
	duration  time.Duration
	elapsed   time.Duration
	shown     int
}

func newReveal(captionID, text string) *reveal {
	return &reveal{captionID: captionID, text: []rune(text), duration: RevealDuration(text)}
}

// step advances by one tick and reports the visible prefix and completion.
func (r *reveal) step() (string, bool) {
	r.elapsed += revealStep
	if r.elapsed >= r.duration {
		r.shown = len(r.text)
		return string(r.text), true
	}
	n := int((int64(len(r.text))*int64(r.elapsed) + int64(r.duration) - 1) / int64(r.duration))
	if n > len(r.text) {
		n = len(r.text)
	}
	r.shown = n
	return string(r.text[:n]), false
}
