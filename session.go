/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sync"
)

type sessionState int

const (
	stateConnected sessionState = iota
	stateNamed
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateConnected:
		return "connected"
	case stateNamed:
		return "named"
	default:
		return "closed"
	}
}

// SendFunc writes one outbound event to the client's transport.
type SendFunc func(Outbound) error

// Session is the per-connection handle shared between the router and
// the transport. Outbound events are queued here and written by the
// session's own delivery goroutine, so a slow client only ever
// stalls itself.
type Session struct {
	id string

	// handling is held while one inbound event is applied and fanned
	// out, and by Disconnect, so no broadcast about this session can
	// follow its departure.
	handling sync.Mutex

	mu      sync.Mutex
	state   sessionState
	queue   chan Outbound
	stopped bool // queue closed to further enqueues
	send    SendFunc
	done    chan struct{}
	failed  func(*Session)
}

func newSession(id string, queueSize int, send SendFunc, failed func(*Session)) *Session {
	return &Session{
		id:     id,
		state:  stateConnected,
		queue:  make(chan Outbound, queueSize),
		send:   send,
		done:   make(chan struct{}),
		failed: failed,
	}
}

func (s *Session) ID() string {
	return s.id
}

// Done is closed once the session is closed and everything queued
// before that has been handed to the transport.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) State() sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// markNamed moves a connected session to named. It is a no-op for
// sessions that are already named or closed.
func (s *Session) markNamed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateConnected {
		return false
	}
	s.state = stateNamed
	return true
}

// close moves the session to closed and returns the state it was in.
// Only the first call reports a state other than closed.
func (s *Session) close() sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state = stateClosed
	s.stopLocked()
	return prev
}

func (s *Session) stopLocked() {
	if !s.stopped {
		s.stopped = true
		close(s.queue)
	}
}

// enqueue hands ev to the delivery goroutine without blocking. A full
// queue closes the session as a slow consumer.
func (s *Session) enqueue(ev Outbound) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}

	select {
	case s.queue <- ev:
		return true
	default:
	}

	s.stopLocked()
	go s.failed(s)

	return false
}

func (s *Session) deliver() {
	defer close(s.done)

	healthy := true
	for ev := range s.queue {
		if !healthy {
			continue
		}
		if err := s.send(ev); err != nil {
			healthy = false
			go s.failed(s)
		}
	}
}
