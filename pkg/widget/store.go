package widget

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/support-relay/pkg/protocol"
	"github.com/cwrk-planet/support-relay/pkg/supportclient"
)

type Config struct {
	API     *supportclient.API
	Session *supportclient.Session
	UserID  string
	// OnChange is called on the store goroutine after every action.
	OnChange func(State)
}

// Store runs the widget state against a relay connection.
type Store struct {
	*supportclient.Store[State, Action, Effect]

	api     *supportclient.API
	session *supportclient.Session

	ctx   context.Context
	timer *time.Timer
}

func NewStore(cfg Config) *Store {
	s := &Store{
		Store:   supportclient.NewStore[State, Action, Effect](NewState(cfg.UserID), Reduce, State.clone),
		api:     cfg.API,
		session: cfg.Session,
	}
	s.Handle(s.run, cfg.OnChange)
	return s
}

// Run connects to the relay and applies actions until ctx is done.
func (s *Store) Run(ctx context.Context) error {
	s.ctx = ctx

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.session.Run(ctx, supportclient.Handler{
			OnConnecting:   func() { s.Dispatch(Connecting{}) },
			OnConnected:    func() { s.Dispatch(Connected{}) },
			OnEvent:        func(env protocol.Envelope) { s.Dispatch(Received{Envelope: env}) },
			OnDisconnected: func(err error) { s.Dispatch(Disconnected{Err: err}) },
		})
	}()

	err := s.Loop(ctx)
	if s.timer != nil {
		s.timer.Stop()
	}
	wg.Wait()

	return err
}

func (s *Store) run(e Effect) {
	switch e := e.(type) {
	case Emit:
		if err := s.session.Emit(e.Type, e.Payload, e.Ref); err != nil {
			slog.Warn("widget: emit failed", slog.String("type", e.Type), slog.Any("err", err))
			s.Apply(EmitFailed{Type: e.Type, Ref: e.Ref, Err: err})
		}

	case FetchHistory:
		go func() {
			msgs, err := s.api.ListMessages(s.ctx, e.UserID)
			if err != nil {
				slog.Error("widget: fetch history failed", slog.String("user_id", e.UserID), slog.Any("err", err))
				s.Dispatch(HistoryFailed{Err: err})
				return
			}
			s.Dispatch(HistoryLoaded{Messages: msgs})
		}()

	case StartTimer:
		if s.timer != nil {
			s.timer.Stop()
		}
		seq := e.Seq
		s.timer = time.AfterFunc(e.After, func() { s.Dispatch(TypingExpired{Seq: seq}) })

	case CancelTimer:
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
	}
}
