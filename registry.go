/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"container/list"
	"maps"
	"math"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

const (
	minNameRunes    = 2
	maxNameRunes    = 32
	maxMessageRunes = 500
)

// Location is a latitude/longitude pair in degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Participant is a copy of one registry entry. Mutating it has no
// effect on the registry.
type Participant struct {
	ID               string
	Name             string
	Attrs            map[string]string
	Location         *Location
	LastNotification string
	ConnectedAt      time.Time
	LastSeen         time.Time
}

func (p Participant) Named() bool {
	return p.Name != ""
}

// displayName returns nil for unnamed participants so they encode as null.
func (p Participant) displayName() *string {
	if p.Name == "" {
		return nil
	}
	name := p.Name
	return &name
}

type participantEntry struct {
	elem *list.Element
	Participant
}

func (e *participantEntry) snapshot() Participant {
	p := e.Participant
	p.Attrs = maps.Clone(e.Attrs)
	if e.Location != nil {
		loc := *e.Location
		p.Location = &loc
	}
	return p
}

// Stats summarizes the registry at a single point in time.
type Stats struct {
	Connected int `json:"connected"`
	Named     int `json:"named"`
	Located   int `json:"located"`
}

// Registry tracks every connected participant and the names they hold.
// All methods are safe for concurrent use.
type Registry struct {
	mu           sync.Mutex
	participants map[string]*participantEntry
	order        *list.List        // *participantEntry in registration order
	names        map[string]string // folded name -> connection id
	fold         cases.Caser
	now          func() time.Time
}

func newRegistry() *Registry {
	return &Registry{
		participants: make(map[string]*participantEntry),
		order:        list.New(),
		names:        make(map[string]string),
		fold:         cases.Fold(),
		now:          time.Now,
	}
}

func (r *Registry) Register(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[id]; ok {
		return ErrAlreadyRegistered
	}

	now := r.now()
	e := &participantEntry{
		Participant: Participant{
			ID:          id,
			ConnectedAt: now,
			LastSeen:    now,
		},
	}
	e.elem = r.order.PushBack(e)
	r.participants[id] = e

	return nil
}

// ClaimName reserves name for the connection until it unregisters.
func (r *Registry) ClaimName(id, name string, attrs map[string]string) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.claimNameLocked(id, name, attrs)
}

// ClaimAndSnapshot claims a name and, in the same critical section,
// captures the located peers to backfill and the ids to announce to.
func (r *Registry) ClaimAndSnapshot(id, name string, attrs map[string]string) (Participant, []Participant, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.claimNameLocked(id, name, attrs)
	if err != nil {
		return Participant{}, nil, nil, err
	}

	return p, r.snapshotLocked(id), r.peersLocked(id), nil
}

func (r *Registry) claimNameLocked(id, name string, attrs map[string]string) (Participant, error) {
	e, ok := r.participants[id]
	if !ok {
		return Participant{}, ErrUnknownConnection
	}

	name, err := normalizeName(name)
	if err != nil {
		return Participant{}, err
	}

	if e.Name != "" {
		return Participant{}, ErrNameLocked
	}

	key := r.fold.String(name)
	if _, taken := r.names[key]; taken {
		return Participant{}, ErrNameTaken
	}

	r.names[key] = id
	e.Name = name
	e.Attrs = maps.Clone(attrs)
	e.LastSeen = r.now()

	return e.snapshot(), nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)

	n := utf8.RuneCountInString(name)
	if n < minNameRunes {
		return "", ErrNameTooShort
	}
	if n > maxNameRunes {
		return "", ErrInvalidFormat
	}

	for _, c := range name {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '-' {
			continue
		}
		return "", ErrInvalidFormat
	}

	return name, nil
}

func (r *Registry) UpdateLocation(id string, lat, lng float64) (Participant, error) {
	if !finite(lat) || !finite(lng) {
		return Participant{}, ErrInvalidLocation
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.participants[id]
	if !ok {
		return Participant{}, ErrUnknownConnection
	}

	e.Location = &Location{Latitude: lat, Longitude: lng}
	e.LastSeen = r.now()

	return e.snapshot(), nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (r *Registry) RecordNotification(id, text string) (Participant, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Participant{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxMessageRunes {
		return Participant{}, ErrMessageTooLong
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.participants[id]
	if !ok {
		return Participant{}, ErrUnknownConnection
	}

	e.LastNotification = text
	e.LastSeen = r.now()

	return e.snapshot(), nil
}

// Snapshot returns every participant with a known location, in the
// order they connected.
func (r *Registry) Snapshot() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshotLocked("")
}

func (r *Registry) snapshotLocked(exclude string) []Participant {
	out := make([]Participant, 0, len(r.participants))
	r.eachLocked(func(e *participantEntry) {
		if e.ID != exclude && e.Location != nil {
			out = append(out, e.snapshot())
		}
	})
	return out
}

// Peers returns the ids of every registered connection except exclude.
func (r *Registry) Peers(exclude string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.peersLocked(exclude)
}

func (r *Registry) peersLocked(exclude string) []string {
	ids := make([]string, 0, len(r.participants))
	r.eachLocked(func(e *participantEntry) {
		if e.ID != exclude {
			ids = append(ids, e.ID)
		}
	})
	return ids
}

// eachLocked visits entries in registration order.
func (r *Registry) eachLocked(fn func(*participantEntry)) {
	for el := r.order.Front(); el != nil; el = el.Next() {
		fn(el.Value.(*participantEntry))
	}
}

// Unregister removes the participant and frees its name. It reports
// whether anything was removed, so repeated calls are harmless.
func (r *Registry) Unregister(id string) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.participants[id]
	if !ok {
		return Participant{}, false
	}

	delete(r.participants, id)
	r.order.Remove(e.elem)
	if e.Name != "" {
		delete(r.names, r.fold.String(e.Name))
	}

	return e.snapshot(), true
}

// Touch marks the participant as active without changing its state.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.participants[id]; ok {
		e.LastSeen = r.now()
	}
}

// Idle returns the ids of participants not seen since cutoff.
func (r *Registry) Idle(cutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	r.eachLocked(func(e *participantEntry) {
		if e.LastSeen.Before(cutoff) {
			ids = append(ids, e.ID)
		}
	})
	return ids
}

func (r *Registry) Lookup(id string) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.participants[id]
	if !ok {
		return Participant{}, false
	}
	return e.snapshot(), true
}

func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{Connected: len(r.participants), Named: len(r.names)}
	for _, e := range r.participants {
		if e.Location != nil {
			s.Located++
		}
	}
	return s
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.participants)
}
