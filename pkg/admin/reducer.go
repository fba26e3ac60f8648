package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/cwrk-planet/support-relay/pkg/protocol"
	"github.com/cwrk-planet/support-relay/pkg/supportclient"
)

// Reduce applies a to s and returns the new state with the side effects to run. s is not modified.
func Reduce(s State, a Action) (State, []Effect) {
	s = s.clone()

	switch a := a.(type) {
	case Connecting:
		s.Status = supportclient.StatusConnecting
		return s, nil

	case Connected:
		s.Status = supportclient.StatusConnected
		effects := []Effect{Emit{Type: protocol.EventAdminJoin}}
		if s.Authenticated {
			effects = append(effects, FetchChats{})
		}
		if s.Selected != "" {
			effects = append(effects, FetchMessages{UserID: s.Selected})
		}
		return s, effects

	case Disconnected:
		s.Status = supportclient.StatusDisconnected
		s.UserTyping = false
		s.Typing = false
		s.TypingSeq++
		if a.Err != nil {
			s.LastError = a.Err.Error()
		}
		return s, []Effect{CancelTimer{}}

	case Login:
		return s, []Effect{Authenticate{Username: a.Username, Password: a.Password}}

	case LoginSucceeded:
		s.Authenticated = true
		s.Token = a.Token
		s.LastError = ""
		return s, []Effect{FetchChats{}}

	case LoginFailed:
		if errors.Is(a.Err, supportclient.ErrUnauthorized) {
			s.LastError = "Invalid credentials"
		} else {
			s.LastError = "Login failed"
		}
		return s, nil

	case ChatsLoaded:
		s.Chats = a.Chats
		return s, nil

	case ChatsFailed:
		s.LastError = "load chats: " + errText(a.Err)
		return s, nil

	case Select:
		var effects []Effect
		if a.UserID != s.Selected {
			effects = s.stopTyping()
			s.Selected = a.UserID
			s.Messages = nil
			s.UserTyping = false
		}
		if s.Selected == "" {
			return s, effects
		}
		return s, append(effects, FetchMessages{UserID: s.Selected})

	case MessagesLoaded:
		if a.UserID != s.Selected {
			return s, nil
		}
		s.Messages = protocol.MergeMessages(a.Messages, s.Messages)
		return s, nil

	case MessagesFailed:
		if a.UserID == s.Selected {
			s.LastError = "load messages: " + errText(a.Err)
		}
		return s, nil

	case Received:
		return s.receive(a.Envelope)

	case Keystroke:
		if s.Selected == "" || s.Status != supportclient.StatusConnected {
			return s, nil
		}
		s.Typing = true
		s.TypingFor = s.Selected
		s.TypingSeq++
		return s, []Effect{
			Emit{Type: protocol.EventTyping, Payload: typing(s.Selected, true)},
			StartTimer{Seq: s.TypingSeq, After: TypingQuiet},
		}

	case TypingExpired:
		if a.Seq != s.TypingSeq || !s.Typing {
			return s, nil
		}
		s.Typing = false
		return s, []Effect{Emit{Type: protocol.EventTyping, Payload: typing(s.TypingFor, false)}}

	case Reply:
		if strings.TrimSpace(a.Content) == "" || s.Selected == "" {
			return s, nil
		}
		if s.Status != supportclient.StatusConnected {
			s.LastError = "not connected"
			return s, nil
		}
		s.SendSeq++
		ref := "a" + strconv.FormatUint(s.SendSeq, 10)
		if s.Pending == nil {
			s.Pending = map[string]string{}
		}
		s.Pending[ref] = a.Content
		s.Typing = false
		s.TypingSeq++
		return s, []Effect{
			Emit{
				Type:    protocol.EventSendMessage,
				Payload: protocol.SendMessage{UserID: s.Selected, Content: a.Content, Sender: protocol.SenderAdmin},
				Ref:     ref,
			},
			CancelTimer{},
			Emit{Type: protocol.EventTyping, Payload: typing(s.Selected, false)},
		}

	case EmitFailed:
		if content, ok := s.Pending[a.Ref]; ok {
			delete(s.Pending, a.Ref)
			s.LastError = "not sent: " + content
		} else {
			s.LastError = a.Type + ": " + errText(a.Err)
		}
		return s, nil
	}

	return s, nil
}

func (s State) receive(env protocol.Envelope) (State, []Effect) {
	switch env.Type {
	case protocol.EventChatUpdated:
		if s.Authenticated {
			return s, []Effect{FetchChats{}}
		}

	case protocol.EventReceiveMessage:
		var m protocol.Message
		if env.Decode(&m) != nil {
			return s, nil
		}
		if m.UserID == s.Selected {
			s.Messages = protocol.AppendMessage(s.Messages, m)
		}
		if s.Authenticated {
			return s, []Effect{FetchChats{}}
		}

	case protocol.EventMessageAck:
		var ack protocol.MessageAck
		if env.Decode(&ack) != nil {
			return s, nil
		}
		delete(s.Pending, ack.Ref)
		if ack.Message.UserID == s.Selected {
			s.Messages = protocol.AppendMessage(s.Messages, ack.Message)
		}

	case protocol.EventError:
		var e protocol.Error
		if env.Decode(&e) != nil {
			return s, nil
		}
		if content, ok := s.Pending[e.Ref]; ok {
			delete(s.Pending, e.Ref)
			s.LastError = "not sent (" + e.Error + "): " + content
		} else {
			s.LastError = e.Error
		}

	case protocol.EventTyping:
		var ty protocol.Typing
		if env.Decode(&ty) != nil {
			return s, nil
		}
		if ty.Sender == protocol.SenderUser && ty.UserID == s.Selected && s.Selected != "" {
			s.UserTyping = ty.Typing
		}
	}

	return s, nil
}

// stopTyping clears a pending reply-typing indicator and returns the effects announcing it.
func (s *State) stopTyping() []Effect {
	if !s.Typing {
		return nil
	}
	s.Typing = false
	s.TypingSeq++
	return []Effect{
		CancelTimer{},
		Emit{Type: protocol.EventTyping, Payload: typing(s.TypingFor, false)},
	}
}

func typing(userID string, on bool) protocol.Typing {
	return protocol.Typing{UserID: userID, Typing: on, Sender: protocol.SenderAdmin}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
