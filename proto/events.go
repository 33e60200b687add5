package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Live channel event names.
const (
	EventRegister       = "register"
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
	EventTyping         = "typing"
	EventOnlineUsers    = "online_users"
)

var ErrInvalidEvent = errors.New("invalid event")

// Envelope is one websocket text frame: {"event": "...", "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals data into an envelope frame.
func Encode(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %v", event, err)
	}
	return json.Marshal(&Envelope{Event: event, Data: raw})
}

// Inbound is the closed set of events a client receives from the relay:
// *Message, *TypingSignal and PresenceSnapshot.
type Inbound interface {
	inbound()
}

func (*Message) inbound()         {}
func (*TypingSignal) inbound()    {}
func (PresenceSnapshot) inbound() {}

// DecodeInbound parses and validates a frame received by a client.
func DecodeInbound(frame []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	switch env.Event {
	case EventReceiveMessage:
		var m Message
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEvent, env.Event, err)
		}
		if err := ValidateMessage(&m); err != nil {
			return nil, err
		}
		return &m, nil
	case EventTyping:
		var s TypingSignal
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEvent, env.Event, err)
		}
		if err := ValidateTyping(&s); err != nil {
			return nil, err
		}
		return &s, nil
	case EventOnlineUsers:
		var emails []string
		if len(env.Data) > 0 && string(env.Data) != "null" {
			if err := json.Unmarshal(env.Data, &emails); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEvent, env.Event, err)
			}
		}
		out := make(PresenceSnapshot, 0, len(emails))
		for _, e := range emails {
			if e != "" {
				out = append(out, e)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown event %q", ErrInvalidEvent, env.Event)
	}
}

// ValidateMessage checks the fields every message must carry.
func ValidateMessage(m *Message) error {
	if m.From == "" || m.To == "" {
		return fmt.Errorf("%w: message: from and to are required", ErrInvalidEvent)
	}
	if m.From == m.To {
		return fmt.Errorf("%w: message: from equals to: %s", ErrInvalidEvent, m.From)
	}
	return nil
}

func ValidateTyping(s *TypingSignal) error {
	if s.From == "" || s.To == "" {
		return fmt.Errorf("%w: typing: from and to are required", ErrInvalidEvent)
	}
	return nil
}
