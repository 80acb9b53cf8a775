// Package call manages the lifecycle of a practice interview: setup, the
// live call room, exit into history, and post-call analysis.
package call

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/campusconnect/campus/internal/interview"
)

// ErrNoActiveSession is returned when a room is opened for a session that
// is not the user's active one.
var ErrNoActiveSession = errors.New("call: no active session")

// ErrNotFound is returned for an unknown history record.
var ErrNotFound = errors.New("call: history record not found")

// HistoryBackend persists history records beyond the process lifetime.
type HistoryBackend interface {
	Save(ctx context.Context, rec interview.HistoryRecord) error
	List(ctx context.Context, userID string) ([]interview.HistoryRecord, error)
}

// EventKind names a Store change.
type EventKind string

const (
	EventActive         EventKind = "active"
	EventCleared        EventKind = "cleared"
	EventHistoryAdded   EventKind = "history.added"
	EventHistoryUpdated EventKind = "history.updated"
)

// Event is delivered to Store subscribers.
type Event struct {
	Kind    EventKind                `json:"kind"`
	UserID  string                   `json:"userId"`
	Session *interview.Session       `json:"session,omitempty"`
	Record  *interview.HistoryRecord `json:"record,omitempty"`
}

// Store holds each user's active session and interview history. History
// is kept newest first and written through to an optional backend.
type Store struct {
	backend HistoryBackend

	mu      sync.Mutex
	active  map[string]interview.Session
	history map[string][]interview.HistoryRecord
	loaded  map[string]bool
	subs    map[chan Event]struct{}
}

// NewStore returns a Store. backend may be nil for memory-only history.
func NewStore(backend HistoryBackend) *Store {
	return &Store{
		backend: backend,
		active:  make(map[string]interview.Session),
		history: make(map[string][]interview.HistoryRecord),
		loaded:  make(map[string]bool),
		subs:    make(map[chan Event]struct{}),
	}
}

// Active returns the user's active session.
func (s *Store) Active(userID string) (interview.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.active[userID]
	return sess, ok
}

// SetActive makes sess the user's active session, replacing any other.
func (s *Store) SetActive(sess interview.Session) {
	s.mu.Lock()
	s.active[sess.UserID] = sess
	s.mu.Unlock()
	s.publish(Event{Kind: EventActive, UserID: sess.UserID, Session: &sess})
}

// ClearActive empties the user's active slot.
func (s *Store) ClearActive(userID string) {
	s.mu.Lock()
	_, had := s.active[userID]
	delete(s.active, userID)
	s.mu.Unlock()
	if had {
		s.publish(Event{Kind: EventCleared, UserID: userID})
	}
}

// AddToHistory puts rec at the front of the user's history, replacing any
// record with the same id.
func (s *Store) AddToHistory(ctx context.Context, rec interview.HistoryRecord) error {
	if err := s.ensureLoaded(ctx, rec.UserID); err != nil {
		return err
	}
	s.mu.Lock()
	list := s.history[rec.UserID]
	out := make([]interview.HistoryRecord, 0, len(list)+1)
	out = append(out, rec)
	for _, r := range list {
		if r.ID != rec.ID {
			out = append(out, r)
		}
	}
	s.history[rec.UserID] = out
	s.mu.Unlock()

	s.persist(ctx, rec)
	s.publish(Event{Kind: EventHistoryAdded, UserID: rec.UserID, Record: &rec})
	return nil
}

// UpdateHistory applies fn to the record with id and returns the result.
func (s *Store) UpdateHistory(ctx context.Context, userID, id string, fn func(*interview.HistoryRecord)) (interview.HistoryRecord, error) {
	if err := s.ensureLoaded(ctx, userID); err != nil {
		return interview.HistoryRecord{}, err
	}
	s.mu.Lock()
	list := s.history[userID]
	idx := -1
	for i := range list {
		if list[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return interview.HistoryRecord{}, ErrNotFound
	}
	fn(&list[idx])
	rec := list[idx]
	s.mu.Unlock()

	s.persist(ctx, rec)
	s.publish(Event{Kind: EventHistoryUpdated, UserID: userID, Record: &rec})
	return rec, nil
}

// History returns a copy of the user's history, newest first.
func (s *Store) History(ctx context.Context, userID string) ([]interview.HistoryRecord, error) {
	if err := s.ensureLoaded(ctx, userID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]interview.HistoryRecord, len(s.history[userID]))
	copy(out, s.history[userID])
	return out, nil
}

// Get returns one history record.
func (s *Store) Get(ctx context.Context, userID, id string) (interview.HistoryRecord, error) {
	list, err := s.History(ctx, userID)
	if err != nil {
		return interview.HistoryRecord{}, err
	}
	for _, r := range list {
		if r.ID == id {
			return r, nil
		}
	}
	return interview.HistoryRecord{}, ErrNotFound
}

// Reset forgets the user's in-memory state, as on logout. Persisted history
// is reloaded on next access.
func (s *Store) Reset(userID string) {
	s.mu.Lock()
	delete(s.active, userID)
	delete(s.history, userID)
	delete(s.loaded, userID)
	s.mu.Unlock()
	s.publish(Event{Kind: EventCleared, UserID: userID})
}

// Subscribe returns a channel of store events and a cancel func. Slow
// subscribers miss events rather than block writers.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
}

func (s *Store) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Store) ensureLoaded(ctx context.Context, userID string) error {
	s.mu.Lock()
	done := s.loaded[userID] || s.backend == nil
	s.mu.Unlock()
	if done {
		return nil
	}
	list, err := s.backend.List(ctx, userID)
	if err != nil {
		return fmt.Errorf("call: load history: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded[userID] {
		// Records added before the load finished stay in front.
		seen := make(map[string]bool)
		merged := append([]interview.HistoryRecord(nil), s.history[userID]...)
		for _, r := range merged {
			seen[r.ID] = true
		}
		for _, r := range list {
			if !seen[r.ID] {
				merged = append(merged, r)
			}
		}
		s.history[userID] = merged
		s.loaded[userID] = true
	}
	return nil
}

func (s *Store) persist(ctx context.Context, rec interview.HistoryRecord) {
	if s.backend == nil {
		return
	}
	if err := s.backend.Save(ctx, rec); err != nil {
		log.Printf("call: persist history %s: %v", rec.ID, err)
	}
}
