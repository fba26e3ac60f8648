// Package widget holds the visitor-side chat state. Every change goes through Reduce, which is pure;
// Store runs it against a live relay connection and executes the effects it returns.
package widget

import (
	"time"

	"github.com/cwrk-planet/support-relay/pkg/protocol"
	"github.com/cwrk-planet/support-relay/pkg/supportclient"
)

// TypingQuiet is how long after the last keystroke typing(false) is sent.
const TypingQuiet = 900 * time.Millisecond

type Status = supportclient.Status

const (
	StatusDisconnected = supportclient.StatusDisconnected
	StatusConnecting   = supportclient.StatusConnecting
	StatusConnected    = supportclient.StatusConnected
)

type State struct {
	UserID string
	Status Status
	Open   bool

	Messages         []protocol.Message
	HistoryRequested bool
	HistoryLoaded    bool

	AdminTyping bool

	// Typing is true between a keystroke and the typing(false) that follows it.
	Typing bool
	// TypingSeq identifies the pending quiet-period timer; expiries carrying an older value are stale.
	TypingSeq uint64

	// SendSeq numbers outgoing sends for their acknowledgement refs.
	SendSeq uint64
	Pending map[string]string

	LastError string
}

func NewState(userID string) State {
	return State{UserID: userID}
}

func (s State) clone() State {
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
