package domain

import "strings"

// Message is one turn of an onboarding or coaching conversation.
// Messages live only as long as the flow that owns them.
type Message struct {
	Role  Role
	Parts []string
}

// NewTextMessage builds a single-part message.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []string{text}}
}

// Text joins all parts of the message.
func (m Message) Text() string {
	return strings.Join(m.Parts, "")
}

// Conversation is an ordered, append-only sequence of messages.
type Conversation []Message

// Append returns a new conversation with msg at the end. The receiver is
// never modified.
func (c Conversation) Append(msg Message) Conversation {
	out := make(Conversation, len(c), len(c)+1)
	copy(out, c)
	return append(out, msg)
}

// Last returns the final message, if any.
func (c Conversation) Last() (Message, bool) {
	if len(c) == 0 {
		return Message{}, false
	}
	return c[len(c)-1], true
}

// TextsBy returns the text of every message authored by role, in order.
func (c Conversation) TextsBy(role Role) []string {
	var out []string
	for _, m := range c {
		if m.Role == role {
			out = append(out, m.Text())
		}
	}
	return out
}
