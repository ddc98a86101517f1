package models

import "encoding/json"

// UserType identifies which mobile application a session belongs to.
// It is unknown until the backend confirms it through a login or "me" call.
type UserType string

const (
	UserClient UserType = "UserClient"
	UserDriver UserType = "UserDriver"
)

// Valid reports whether the user type has been confirmed by the backend.
func (t UserType) Valid() bool {
	return t == UserClient || t == UserDriver
}

// Ptr returns a pointer to the user type, or nil when it is still unknown,
// so that unidentified sessions serialize as "user": null.
func (t UserType) Ptr() *UserType {
	if !t.Valid() {
		return nil
	}
	return &t
}

// Envelope is the uniform response shape of every backend call and every
// client-facing acknowledgement. Values carries the backend payload verbatim.
type Envelope struct {
	StatusCode int             `json:"statusCode"`
	I18n       string          `json:"i18n"`
	Reason     string          `json:"reason,omitempty"`
	Values     json.RawMessage `json:"values,omitempty"`
}

// EventMessage is the single outbound frame shape emitted to sockets.
type EventMessage struct {
	Type string    `json:"type"`
	User *UserType `json:"user"`
	Data Envelope  `json:"data"`
}

// Frame is one inbound socket frame. Data is interpreted per event:
// a plain string for join-room, a token pair for change-token, and a
// ClientEvent for message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound frame events.
const (
	FrameJoinRoom    = "join-room"
	FrameLeaveRoom   = "leave-room"
	FrameChangeToken = "change-token"
	FrameMessage     = "message"
)

// ClientEvent is the payload of a generic message frame, proxied to the
// backend through the route table.
type ClientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HasBody reports whether the event carries a non-empty payload, which
// drives route resolution.
func (e ClientEvent) HasBody() bool {
	return len(e.Data) > 0 && string(e.Data) != "null" && string(e.Data) != "{}"
}

// TokenChange is the payload of a change-token frame.
type TokenChange struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ServiceUnavailable is the envelope returned for every mutating request
// while the gateway is draining.
func ServiceUnavailable() Envelope {
	return Envelope{
		StatusCode: 503,
		I18n:       "service.unavailable",
		Reason:     "SERVICE_UNAVAILABLE",
	}
}

// UnknownRoute is the envelope synthesized locally when no route matches an
// event type. No network call is made.
func UnknownRoute() Envelope {
	return Envelope{
		StatusCode: 404,
		I18n:       "unknown-request",
		Reason:     "Requête inconnue",
	}
}

// RawValues marshals v into a values payload for an envelope.
func RawValues(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
