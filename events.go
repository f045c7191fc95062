/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// Inbound is an event received from a client connection.
type Inbound interface {
	inboundKind() string
}

// ClaimName asks to reserve a display name for the connection.
type ClaimName struct {
	Name  string            `json:"name"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// LocationUpdate publishes the sender's current position.
type LocationUpdate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Notify publishes a short text message. Clients may attach their
// current position, which is recorded as a location update.
type Notify struct {
	Text      string   `json:"text"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (ClaimName) inboundKind() string      { return kindClaimName }
func (LocationUpdate) inboundKind() string { return kindLocation }
func (Notify) inboundKind() string         { return kindNotification }

// Outbound is an event delivered to a client connection.
type Outbound interface {
	Kind() string
}

type NameRejected struct {
	Reason string `json:"reason"`
}

type ParticipantJoined struct {
	Name  string            `json:"name"`
	Attrs map[string]string `json:"attrs"`
}

type LocationBroadcast struct {
	ID        string            `json:"id"`
	Name      *string           `json:"name"`
	Attrs     map[string]string `json:"attrs"`
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
}

type NotificationBroadcast struct {
	ID    string            `json:"id"`
	Name  *string           `json:"name"`
	Attrs map[string]string `json:"attrs"`
	Text  string            `json:"text"`
}

type ParticipantLeft struct {
	Name  string            `json:"name"`
	Attrs map[string]string `json:"attrs"`
}

type ParticipantDisconnected struct {
	ID string `json:"id"`
}

const (
	kindClaimName    = "claim-name"
	kindLocation     = "location"
	kindNotification = "notification"

	kindNameRejected = "name-rejected"
	kindJoined       = "participant-joined"
	kindLeft         = "participant-left"
	kindDisconnected = "participant-disconnected"
)

func (NameRejected) Kind() string            { return kindNameRejected }
func (ParticipantJoined) Kind() string       { return kindJoined }
func (LocationBroadcast) Kind() string       { return kindLocation }
func (NotificationBroadcast) Kind() string   { return kindNotification }
func (ParticipantLeft) Kind() string         { return kindLeft }
func (ParticipantDisconnected) Kind() string { return kindDisconnected }

func locationOf(p Participant) LocationBroadcast {
	ev := LocationBroadcast{
		ID:    p.ID,
		Name:  p.displayName(),
		Attrs: attrsOrEmpty(p.Attrs),
	}
	if p.Location != nil {
		ev.Latitude = p.Location.Latitude
		ev.Longitude = p.Location.Longitude
	}
	return ev
}

func attrsOrEmpty(attrs map[string]string) map[string]string {
	if attrs == nil {
		return map[string]string{}
	}
	return attrs
}
