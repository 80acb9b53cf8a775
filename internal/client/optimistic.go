package client

import (
	"context"
	"fmt"
	"sync"
)

// Action is a state transition paired with its inverse. Forward and Inverse
// must return new values rather than modify the state they are given.
type Action[S any] struct {
	Name    string
	Forward func(S) S
	Inverse func(S) S
}

// Reducer holds UI state and applies actions to it. Transition shows an
// action immediately and undoes it if the backing request fails.
type Reducer[S any] struct {
	mu    sync.Mutex
	state S
	subs  map[chan S]struct{}
}

// NewReducer returns a Reducer starting at initial.
func NewReducer[S any](initial S) *Reducer[S] {
	return &Reducer[S]{state: initial, subs: make(map[chan S]struct{})}
}

// State returns the current state.
func (r *Reducer[S]) State() S {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Update applies fn to the state without a request.
func (r *Reducer[S]) Update(fn func(S) S) {
	r.mu.Lock()
	r.state = fn(r.state)
	s := r.state
	r.mu.Unlock()
	r.publish(s)
}

// Transition applies a.Forward, runs request and, if it fails, applies
// a.Inverse to whatever the state has become meanwhile.
func (r *Reducer[S]) Transition(ctx context.Context, a Action[S], request func(context.Context) error) error {
	r.Update(a.Forward)
	if err := request(ctx); err != nil {
		r.Update(a.Inverse)
		return fmt.Errorf("client: %s: %w", a.Name, err)
	}
	return nil
}

// Subscribe returns a channel of states after each change and a cancel
// func. Slow subscribers miss intermediate states.
func (r *Reducer[S]) Subscribe() (<-chan S, func()) {
	ch := make(chan S, 16)
	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()
	return ch, func() {
		r.mu.Lock()
		if _, ok := r.subs[ch]; ok {
			delete(r.subs, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
}

func (r *Reducer[S]) publish(s S) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
