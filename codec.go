/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	errUnknownKind        = errors.New("unknown event type")
	errMissingCoordinates = errors.New("latitude and longitude are both required")
)

// frame is the JSON envelope carried in every WebSocket text message.
type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event names sent by older map clients.
var inboundAliases = map[string]string{
	"set-name":          kindClaimName,
	"send-location":     kindLocation,
	"send-notification": kindNotification,
}

func decodeInbound(f frame) (Inbound, error) {
	kind := f.Type
	if alias, ok := inboundAliases[kind]; ok {
		kind = alias
	}

	var (
		ev  Inbound
		err error
	)

	switch kind {
	case kindClaimName:
		var claim ClaimName
		err = unmarshalPayload(f.Payload, &claim)
		if err == nil && claim.Attrs == nil {
			claim.Attrs, err = looseAttrs(f.Payload)
		}
		ev = claim
	case kindLocation:
		var loc locationPayload
		if err = unmarshalPayload(f.Payload, &loc); err == nil {
			ev, err = loc.toLocationUpdate()
		}
	case kindNotification:
		var n notifyPayload
		err = unmarshalPayload(f.Payload, &n)
		ev = n.toNotify()
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownKind, f.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}

	return ev, nil
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("missing payload")
	}
	return json.Unmarshal(raw, v)
}

// looseAttrs collects the top-level string fields other than "name",
// which is how older map clients send their avatar tag.
func looseAttrs(raw json.RawMessage) (map[string]string, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	var attrs map[string]string
	for k, v := range fields {
		str, ok := v.(string)
		if !ok || k == "name" {
			continue
		}
		if attrs == nil {
			attrs = make(map[string]string)
		}
		attrs[k] = str
	}
	return attrs, nil
}

type locationPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (l locationPayload) toLocationUpdate() (LocationUpdate, error) {
	if l.Latitude == nil || l.Longitude == nil {
		return LocationUpdate{}, errMissingCoordinates
	}
	return LocationUpdate{Latitude: *l.Latitude, Longitude: *l.Longitude}, nil
}

// notifyPayload accepts both "text" and the older "message" field.
type notifyPayload struct {
	Text      string   `json:"text"`
	Message   string   `json:"message"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (n notifyPayload) toNotify() Notify {
	text := n.Text
	if text == "" {
		text = n.Message
	}
	return Notify{Text: text, Latitude: n.Latitude, Longitude: n.Longitude}
}

func encodeOutbound(ev Outbound) (frame, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return frame{}, fmt.Errorf("encode %s payload: %w", ev.Kind(), err)
	}
	return frame{Type: ev.Kind(), Payload: payload}, nil
}
