package widget

import (
	"strconv"
	"strings"

	"github.com/cwrk-planet/support-relay/pkg/protocol"
)

// Reduce applies a to s and returns the new state with the side effects to run. s is not modified.
func Reduce(s State, a Action) (State, []Effect) {
	s = s.clone()

	switch a := a.(type) {
	case Connecting:
		s.Status = StatusConnecting
		return s, nil

	case Connected:
		s.Status = StatusConnected
		s.LastError = ""
		effects := []Effect{Emit{Type: protocol.EventJoinChat, Payload: s.UserID}}
		if !s.HistoryRequested {
			s.HistoryRequested = true
			effects = append(effects, FetchHistory{UserID: s.UserID})
		}
		return s, effects

	case Disconnected:
		s.Status = StatusDisconnected
		s.AdminTyping = false
		s.Typing = false
		s.TypingSeq++
		if a.Err != nil {
			s.LastError = a.Err.Error()
		}
		return s, []Effect{CancelTimer{}}

	case HistoryLoaded:
		s.Messages = protocol.MergeMessages(a.Messages, s.Messages)
		s.HistoryLoaded = true
		return s, nil

	case HistoryFailed:
		// the next connect tries again
		s.HistoryRequested = false
		if a.Err != nil {
			s.LastError = "load history: " + a.Err.Error()
		}
		return s, nil

	case Received:
		return s.receive(a.Envelope)

	case Keystroke:
		if s.Status != StatusConnected {
			return s, nil
		}
		s.Typing = true
		s.TypingSeq++
		return s, []Effect{
			Emit{Type: protocol.EventTyping, Payload: s.typing(true)},
			StartTimer{Seq: s.TypingSeq, After: TypingQuiet},
		}

	case TypingExpired:
		if a.Seq != s.TypingSeq || !s.Typing {
			return s, nil
		}
		s.Typing = false
		return s, []Effect{Emit{Type: protocol.EventTyping, Payload: s.typing(false)}}

	case Send:
		if strings.TrimSpace(a.Content) == "" {
			return s, nil
		}
		if s.Status != StatusConnected {
			s.LastError = "not connected"
			return s, nil
		}
		s.SendSeq++
		ref := "w" + strconv.FormatUint(s.SendSeq, 10)
		if s.Pending == nil {
			s.Pending = map[string]string{}
		}
		s.Pending[ref] = a.Content
		s.Typing = false
		s.TypingSeq++
		return s, []Effect{
			Emit{
				Type:    protocol.EventSendMessage,
				Payload: protocol.SendMessage{UserID: s.UserID, Content: a.Content, Sender: protocol.SenderUser},
				Ref:     ref,
			},
			CancelTimer{},
			Emit{Type: protocol.EventTyping, Payload: s.typing(false)},
		}

	case Toggle:
		s.Open = !s.Open
		return s, nil

	case EmitFailed:
		if content, ok := s.Pending[a.Ref]; ok {
			delete(s.Pending, a.Ref)
			s.LastError = "not sent: " + content
		} else if a.Err != nil {
			s.LastError = a.Type + ": " + a.Err.Error()
		}
		return s, nil
	}

	return s, nil
}

func (s State) receive(env protocol.Envelope) (State, []Effect) {
	switch env.Type {
	case protocol.EventReceiveMessage:
		var m protocol.Message
		if env.Decode(&m) != nil || m.UserID != s.UserID {
			return s, nil
		}
		s.Messages = protocol.AppendMessage(s.Messages, m)

	case protocol.EventMessageAck:
		var ack protocol.MessageAck
		if env.Decode(&ack) != nil {
			return s, nil
		}
		delete(s.Pending, ack.Ref)
		if ack.Message.UserID == s.UserID {
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
		if ty.Sender == protocol.SenderAdmin && ty.UserID == s.UserID {
			s.AdminTyping = ty.Typing
		}
	}

	return s, nil
}

func (s State) typing(on bool) protocol.Typing {
	return protocol.Typing{UserID: s.UserID, Typing: on, Sender: protocol.SenderUser}
}
