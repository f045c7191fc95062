/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

const defaultQueueSize = 64

// Router applies inbound events to the registry and fans the results
// out to every other live session.
type Router struct {
	cfg      *Config
	registry *Registry

	mu       sync.RWMutex
	sessions map[string]*Session

	// departures is held exclusively while a departure is unregistered
	// and announced, and shared while a claim takes its backfill and
	// queues it, so backfill never trails a departure notice.
	departures sync.RWMutex
}

func newRouter(cfg *Config, registry *Registry) *Router {
	return &Router{
		cfg:      cfg,
		registry: registry,
		sessions: make(map[string]*Session),
	}
}

func (rt *Router) queueSize() int {
	if rt.cfg == nil || rt.cfg.queueSize <= 0 {
		return defaultQueueSize
	}
	return rt.cfg.queueSize
}

// Connect registers a new connection under a fresh id. send is called
// from the session's delivery goroutine, one event at a time.
func (rt *Router) Connect(send SendFunc) (*Session, error) {
	return rt.connect(uuid.NewString(), send)
}

func (rt *Router) connect(id string, send SendFunc) (*Session, error) {
	s := newSession(id, rt.queueSize(), send, rt.Disconnect)
	go s.deliver()

	if err := rt.registry.Register(id); err != nil {
		logf(rt.cfg, "ERROR: Refusing connection %s (%s): %v", id, classify(err), err)
		s.close()

		return nil, fmt.Errorf("register %s: %w", id, err)
	}

	rt.mu.Lock()
	rt.sessions[id] = s
	rt.mu.Unlock()

	logf(rt.cfg, "PEERS: Connected %s", id)

	return s, nil
}

// Handle routes one inbound event from s. Events from closed sessions
// are dropped. Any other event counts as activity for idle eviction.
func (rt *Router) Handle(s *Session, ev Inbound) {
	if s == nil {
		return
	}

	s.handling.Lock()
	defer s.handling.Unlock()

	if s.State() == stateClosed {
		return
	}

	rt.registry.Touch(s.id)

	switch ev := ev.(type) {
	case ClaimName:
		rt.claimName(s, ev)
	case LocationUpdate:
		rt.updateLocation(s, ev)
	case Notify:
		rt.notify(s, ev)
	default:
		logf(rt.cfg, "PEERS: Ignoring unsupported event %T from %s", ev, s.id)
	}
}

func (rt *Router) claimName(s *Session, ev ClaimName) {
	rt.departures.RLock()
	defer rt.departures.RUnlock()

	p, backfill, peers, err := rt.registry.ClaimAndSnapshot(s.id, ev.Name, ev.Attrs)
	if err != nil {
		if classify(err) == classProtocol {
			rt.drop(s, ev, err)
			return
		}

		logf(rt.cfg, "PEERS: Rejected name %q for %s: %v", ev.Name, s.id, err)
		s.enqueue(NameRejected{Reason: rejectReason(err)})

		return
	}

	s.markNamed()
	logf(rt.cfg, "PEERS: %s claimed name %q", s.id, p.Name)

	rt.fanout(peers, ParticipantJoined{Name: p.Name, Attrs: attrsOrEmpty(p.Attrs)})

	for _, peer := range backfill {
		s.enqueue(locationOf(peer))
	}
}

func (rt *Router) updateLocation(s *Session, ev LocationUpdate) {
	p, err := rt.registry.UpdateLocation(s.id, ev.Latitude, ev.Longitude)
	if err != nil {
		rt.drop(s, ev, err)
		return
	}

	rt.fanout(rt.registry.Peers(s.id), locationOf(p))
}

func (rt *Router) notify(s *Session, ev Notify) {
	if ev.Latitude != nil && ev.Longitude != nil {
		if _, err := rt.registry.UpdateLocation(s.id, *ev.Latitude, *ev.Longitude); err != nil {
			rt.drop(s, LocationUpdate{Latitude: *ev.Latitude, Longitude: *ev.Longitude}, err)
		}
	}

	p, err := rt.registry.RecordNotification(s.id, ev.Text)
	if err != nil {
		rt.drop(s, ev, err)
		return
	}

	rt.fanout(rt.registry.Peers(s.id), NotificationBroadcast{
		ID:    p.ID,
		Name:  p.displayName(),
		Attrs: attrsOrEmpty(p.Attrs),
		Text:  p.LastNotification,
	})
}

func (rt *Router) drop(s *Session, ev Inbound, err error) {
	logf(rt.cfg, "PEERS: Dropped %s from %s (%s): %v", ev.inboundKind(), s.id, classify(err), err)
}

// Disconnect closes s, removes its participant, and tells everyone
// else it left. Calling it again for the same session does nothing.
func (rt *Router) Disconnect(s *Session) {
	if s == nil {
		return
	}

	s.handling.Lock()
	defer s.handling.Unlock()

	if s.close() == stateClosed {
		return
	}

	rt.mu.Lock()
	owned := rt.sessions[s.id] == s
	if owned {
		delete(rt.sessions, s.id)
	}
	rt.mu.Unlock()

	if !owned {
		return
	}

	rt.departures.Lock()
	defer rt.departures.Unlock()

	p, removed := rt.registry.Unregister(s.id)
	if !removed {
		return
	}

	peers := rt.registry.Peers(s.id)

	if p.Named() {
		rt.fanout(peers, ParticipantLeft{Name: p.Name, Attrs: attrsOrEmpty(p.Attrs)})
	}
	rt.fanout(peers, ParticipantDisconnected{ID: p.ID})

	logf(rt.cfg, "PEERS: Disconnected %s", s.id)
}

// fanout queues ev for each listed session. Queueing never blocks, so
// one slow recipient cannot hold up the others.
func (rt *Router) fanout(ids []string, ev Outbound) {
	if len(ids) == 0 {
		return
	}

	targets := make([]*Session, 0, len(ids))

	rt.mu.RLock()
	for _, id := range ids {
		if s, ok := rt.sessions[id]; ok {
			targets = append(targets, s)
		}
	}
	rt.mu.RUnlock()

	for _, s := range targets {
		s.enqueue(ev)
	}
}

func (rt *Router) session(id string) (*Session, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	s, ok := rt.sessions[id]
	return s, ok
}

// CloseAll disconnects every live session.
func (rt *Router) CloseAll() {
	rt.mu.RLock()
	all := make([]*Session, 0, len(rt.sessions))
	for _, s := range rt.sessions {
		all = append(all, s)
	}
	rt.mu.RUnlock()

	for _, s := range all {
		rt.Disconnect(s)
	}
}
