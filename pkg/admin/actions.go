package admin

import (
	"time"

	"github.com/cwrk-planet/support-relay/pkg/protocol"
)

type Action interface{ adminAction() }

type (
	Connecting   struct{}
	Connected    struct{}
	Disconnected struct{ Err error }

	Login struct {
		Username string
		Password string
	}
	LoginSucceeded struct{ Token string }
	LoginFailed    struct{ Err error }

	ChatsLoaded struct{ Chats []protocol.Chat }
	ChatsFailed struct{ Err error }

	Select         struct{ UserID string }
	MessagesLoaded struct {
		UserID   string
		Messages []protocol.Message
	}
	MessagesFailed struct {
		UserID string
		Err    error
	}

	Received struct{ Envelope protocol.Envelope }

	Keystroke     struct{}
	TypingExpired struct{ Seq uint64 }
	Reply         struct{ Content string }

	EmitFailed struct {
		Type string
		Ref  string
		Err  error
	}
)

func (Connecting) adminAction()     {}
func (Connected) adminAction()      {}
func (Disconnected) adminAction()   {}
func (Login) adminAction()          {}
func (LoginSucceeded) adminAction() {}
func (LoginFailed) adminAction()    {}
func (ChatsLoaded) adminAction()    {}
func (ChatsFailed) adminAction()    {}
func (Select) adminAction()         {}
func (MessagesLoaded) adminAction() {}
func (MessagesFailed) adminAction() {}
func (Received) adminAction()       {}
func (Keystroke) adminAction()      {}
func (TypingExpired) adminAction()  {}
func (Reply) adminAction()          {}
func (EmitFailed) adminAction()     {}

type Effect interface{ adminEffect() }

type (
	Emit struct {
		Type    string
		Payload any
		Ref     string
	}
	Authenticate struct {
		Username string
		Password string
	}
	FetchChats    struct{}
	FetchMessages struct{ UserID string }
	StartTimer    struct {
		Seq   uint64
		After time.Duration
	}
	CancelTimer struct{}
)

func (Emit) adminEffect()          {}
func (Authenticate) adminEffect()  {}
func (FetchChats) adminEffect()    {}
func (FetchMessages) adminEffect() {}
func (StartTimer) adminEffect()    {}
func (CancelTimer) adminEffect()   {}
