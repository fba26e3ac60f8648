// Package admin holds the operator-side state: the chat list, one selected conversation and the reply
// box. Reduce is pure; Store executes its effects against the relay.
package admin

import (
	"time"

	"github.com/cwrk-planet/support-relay/pkg/protocol"
	"github.com/cwrk-planet/support-relay/pkg/supportclient"
)

const TypingQuiet = 900 * time.Millisecond

type Status = supportclient.Status

type State struct {
	Status        Status
	Authenticated bool
	Token         string

	Chats []protocol.Chat

	// Selected is the visitor whose thread is shown; "" when none.
	Selected   string
	Messages   []protocol.Message
	UserTyping bool

	// Typing is true while typing(true) has been sent for TypingFor and not yet cleared.
	Typing    bool
	TypingFor string
	TypingSeq uint64

	SendSeq uint64
	Pending map[string]string

	LastError string
}

func (s State) clone() State {
	s.Chats = append([]protocol.Chat(nil), s.Chats...)
	s.Messages = append([]protocol.Message(nil), s.Messages...)
	if s.Pending != nil {
		p := make(map[string]string, len(s.Pending))
		for k, v := range s.Pending {
			p[k] = v
		}
		s.Pending = p
	}
	return s
}

// SelectedChat returns the list entry of the selected visitor.
func (s State) SelectedChat() (protocol.Chat, bool) {
	for _, c := range s.Chats {
		if c.ID == s.Selected {
			return c, true
		}
	}
	return protocol.Chat{}, false
}
