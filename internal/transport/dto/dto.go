// Package dto converts domain values into the wire shapes of pkg/protocol.
package dto

import (
	"github.com/cwrk-planet/support-relay/internal/domain"
	"github.com/cwrk-planet/support-relay/internal/service"
	"github.com/cwrk-planet/support-relay/pkg/protocol"
)

func Message(m domain.Message) protocol.Message {
	return protocol.Message{
		ID:        m.ID,
		Content:   m.Content,
		Sender:    string(m.Sender),
		CreatedAt: m.CreatedAt,
		UserID:    m.UserID,
	}
}

func Messages(ms []domain.Message) []protocol.Message {
	out := make([]protocol.Message, len(ms))
	for i, m := range ms {
		out[i] = Message(m)
	}
	return out
}

// Chat renders a list row. Messages holds zero or one element, the latest message.
func Chat(c service.ChatSummary) protocol.Chat {
	out := protocol.Chat{
		ID:        c.User.ID,
		Name:      c.User.Name,
		CreatedAt: c.User.CreatedAt,
		Messages:  []protocol.Message{},
		Online:    c.Online,
	}
	if c.Latest != nil {
		out.Messages = append(out.Messages, Message(*c.Latest))
	}
	return out
}

func Chats(cs []service.ChatSummary) []protocol.Chat {
	out := make([]protocol.Chat, len(cs))
	for i, c := range cs {
		out[i] = Chat(c)
	}
	return out
}

// UserJoined is the chat_updated payload for a visitor seen for the first time.
func UserJoined(u domain.User) protocol.ChatUpdated {
	created := u.CreatedAt
	return protocol.ChatUpdated{
		UserID:    u.ID,
		ID:        u.ID,
		Name:      u.Name,
		CreatedAt: &created,
	}
}

// LastMessage is the chat_updated payload sent after a stored message.
func LastMessage(m domain.Message) protocol.ChatUpdated {
	pm := Message(m)
	return protocol.ChatUpdated{UserID: m.UserID, LastMessage: &pm}
}
