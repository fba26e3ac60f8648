package supportclient

import (
	"context"
	"sync"
)

// Status of a client's relay connection.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Reducer computes the next state of S for action A and the effects E to run afterwards.
type Reducer[S, A, E any] func(S, A) (S, []E)

// Store holds a state value that only changes through its reducer. Actions are applied one at a time by
// Loop; effects run on the same goroutine, in order, after the state is published.
type Store[S, A, E any] struct {
	reduce   Reducer[S, A, E]
	clone    func(S) S
	exec     func(E)
	onChange func(S)

	actions chan A
	done    chan struct{}
	stop    sync.Once

	mu      sync.RWMutex
	state   S
	changed chan struct{}
}

func NewStore[S, A, E any](initial S, reduce Reducer[S, A, E], clone func(S) S) *Store[S, A, E] {
	return &Store[S, A, E]{
		reduce:  reduce,
		clone:   clone,
		actions: make(chan A, 128),
		done:    make(chan struct{}),
		state:   initial,
		changed: make(chan struct{}),
	}
}

// Handle sets the effect executor and the change callback. Call before Loop.
func (s *Store[S, A, E]) Handle(exec func(E), onChange func(S)) {
	s.exec = exec
	s.onChange = onChange
}

func (s *Store[S, A, E]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clone(s.state)
}

// Dispatch queues a. It is a no-op once Loop has returned.
func (s *Store[S, A, E]) Dispatch(a A) {
	select {
	case s.actions <- a:
	case <-s.done:
	}
}

// WaitFor blocks until cond holds for the current state or ctx is done.
func (s *Store[S, A, E]) WaitFor(ctx context.Context, cond func(S) bool) (S, error) {
	for {
		s.mu.RLock()
		st, ch := s.clone(s.state), s.changed
		s.mu.RUnlock()
		if cond(st) {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Loop applies queued actions until ctx is done.
func (s *Store[S, A, E]) Loop(ctx context.Context) error {
	defer s.stop.Do(func() { close(s.done) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a := <-s.actions:
			s.Apply(a)
		}
	}
}

// Apply reduces a immediately. Only effect executors, which already run inside Loop, may call it.
func (s *Store[S, A, E]) Apply(a A) {
	s.mu.Lock()
	next, effects := s.reduce(s.state, a)
	s.state = next
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(s.clone(next))
	}
	if s.exec == nil {
		return
	}
	for _, e := range effects {
		s.exec(e)
	}
}
