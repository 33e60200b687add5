package proto

import (
	"encoding/json"
	"strconv"
	"time"
)

// Role of an identity in the support chat.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleSuperadmin || r == RoleAdmin
}

// Identity of a chat participant. Email is the routing key.
type Identity struct {
	Id    string `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

// SentAtLayout is the layout clients use to write `sentAt`.
const SentAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Message is an immutable chat message between two identities.
// Id is optional on the wire; clients generate one for de-duplication.
type Message struct {
	Id     string `json:"id,omitempty"`
	From   string `json:"from"`
	To     string `json:"to"`
	Body   string `json:"body"`
	SentAt string `json:"sentAt"`
}

// UnmarshalJSON accepts `sentAt` as a string or as epoch milliseconds. Any other value is
// kept as its raw text, which Time reports as unparseable.
func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	var v struct {
		plain
		SentAt json.RawMessage `json:"sentAt"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Message(v.plain)
	m.SentAt = sentAtOf(v.SentAt)
	return nil
}

func sentAtOf(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	if ms, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		return FormatSentAt(time.UnixMilli(ms))
	}
	return string(raw)
}

// FormatSentAt formats t the way `sentAt` is written on the wire.
func FormatSentAt(t time.Time) string {
	return t.UTC().Format(SentAtLayout)
}

// Time parses SentAt. ok is false when the timestamp is unparseable.
func (m *Message) Time() (t time.Time, ok bool) {
	t, err := time.Parse(time.RFC3339Nano, m.SentAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Peer returns the other side of the message relative to self.
func (m *Message) Peer(self string) string {
	if m.From == self {
		return m.To
	}
	return m.From
}

// Between reports whether m belongs to the conversation of a and b, in either direction.
func (m *Message) Between(a, b string) bool {
	return (m.From == a && m.To == b) || (m.From == b && m.To == a)
}

// TypingSignal is an ephemeral "from is typing to to" notification.
type TypingSignal struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PresenceSnapshot is the full set of online emails; each snapshot replaces the previous one.
type PresenceSnapshot []string

// RegisterReq announces an identity to the relay.
type RegisterReq struct {
	UserId string `json:"userId"`
}
