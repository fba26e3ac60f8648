// Package protocol defines the realtime events exchanged between the relay and its clients and the
// JSON shapes returned by the query API.
//
// Every websocket frame is an Envelope: {"type": "<event>", "payload": <json>, "ref": "<optional>"}.
package protocol

import (
	"encoding/json"
	"fmt"
)

// client -> server
const (
	EventJoinChat    = "join_chat"
	EventAdminJoin   = "admin_join"
	EventSendMessage = "send_message"
)

// server -> client
const (
	EventReceiveMessage = "receive_message"
	EventChatUpdated    = "chat_updated"
	EventMessageAck     = "message_ack"
	EventError          = "error"
)

// EventTyping travels in both directions.
const EventTyping = "typing"

const (
	SenderUser  = "user"
	SenderAdmin = "admin"
)

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	// Ref is set by a client that wants a message_ack for its send_message.
	Ref string `json:"ref,omitempty"`
}

// NewEnvelope marshals payload into an envelope of the given type. A nil payload is omitted.
func NewEnvelope(eventType string, payload any) (Envelope, error) {
	env := Envelope{Type: eventType}
	if payload == nil {
		return env, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	env.Payload = b

	return env, nil
}

// Decode unmarshals the payload into dst.
func (e Envelope) Decode(dst any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("%s: decode payload: %w", e.Type, err)
	}

	return nil
}
