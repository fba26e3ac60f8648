package widget

import (
	"time"

	"github.com/cwrk-planet/support-relay/pkg/protocol"
)

type Action interface{ widgetAction() }

type (
	Connecting   struct{}
	Connected    struct{}
	Disconnected struct{ Err error }

	HistoryLoaded struct{ Messages []protocol.Message }
	HistoryFailed struct{ Err error }

	// Received carries one frame pushed by the relay.
	Received struct{ Envelope protocol.Envelope }

	Keystroke     struct{}
	TypingExpired struct{ Seq uint64 }
	Send          struct{ Content string }
	Toggle        struct{}

	// EmitFailed reports a frame that could not be written.
	EmitFailed struct {
		Type string
		Ref  string
		Err  error
	}
)

func (Connecting) widgetAction()    {}
func (Connected) widgetAction()     {}
func (Disconnected) widgetAction()  {}
func (HistoryLoaded) widgetAction() {}
func (HistoryFailed) widgetAction() {}
func (Received) widgetAction()      {}
func (Keystroke) widgetAction()     {}
func (TypingExpired) widgetAction() {}
func (Send) widgetAction()          {}
func (Toggle) widgetAction()        {}
func (EmitFailed) widgetAction()    {}

type Effect interface{ widgetEffect() }

type (
	Emit struct {
		Type    string
		Payload any
		Ref     string
	}
	FetchHistory struct{ UserID string }
	StartTimer   struct {
		Seq   uint64
		After time.Duration
	}
	CancelTimer struct{}
)

func (Emit) widgetEffect()         {}
func (FetchHistory) widgetEffect() {}
func (StartTimer) widgetEffect()   {}
func (CancelTimer) widgetEffect()  {}
