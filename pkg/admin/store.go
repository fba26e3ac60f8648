package admin

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/support-relay/pkg/protocol"
	"github.com/cwrk-planet/support-relay/pkg/supportclient"
)

type Config struct {
	API      *supportclient.API
	Session  *supportclient.Session
	OnChange func(State)
}

// Store runs the operator state against a relay connection.
type Store struct {
	*supportclient.Store[State, Action, Effect]

	api     *supportclient.API
	session *supportclient.Session

	ctx   context.Context
	timer *time.Timer
	// fetching coalesces chat list refreshes: at most one in flight and one queued.
	fetching chan struct{}
}

func NewStore(cfg Config) *Store {
	s := &Store{
		Store:    supportclient.NewStore[State, Action, Effect](State{}, Reduce, State.clone),
		api:      cfg.API,
		session:  cfg.Session,
		fetching: make(chan struct{}, 1),
	}
	s.Handle(s.run, cfg.OnChange)
	return s
}

// Run connects to the relay and applies actions until ctx is done.
func (s *Store) Run(ctx context.Context) error {
	s.ctx = ctx

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = s.session.Run(ctx, supportclient.Handler{
			OnConnecting:   func() { s.Dispatch(Connecting{}) },
			OnConnected:    func() { s.Dispatch(Connected{}) },
			OnEvent:        func(env protocol.Envelope) { s.Dispatch(Received{Envelope: env}) },
			OnDisconnected: func(err error) { s.Dispatch(Disconnected{Err: err}) },
		})
	}()
	go func() {
		defer wg.Done()
		s.chatsLoop(ctx)
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
			slog.Warn("admin: emit failed", slog.String("type", e.Type), slog.Any("err", err))
			s.Apply(EmitFailed{Type: e.Type, Ref: e.Ref, Err: err})
		}

	case Authenticate:
		go func() {
			token, err := s.api.Login(s.ctx, e.Username, e.Password)
			if err != nil {
				s.Dispatch(LoginFailed{Err: err})
				return
			}
			s.Dispatch(LoginSucceeded{Token: token})
		}()

	case FetchChats:
		select {
		case s.fetching <- struct{}{}:
		default:
		}

	case FetchMessages:
		go func() {
			msgs, err := s.api.ListMessages(s.ctx, e.UserID)
			if err != nil {
				slog.Error("admin: fetch messages failed", slog.String("user_id", e.UserID), slog.Any("err", err))
				s.Dispatch(MessagesFailed{UserID: e.UserID, Err: err})
				return
			}
			s.Dispatch(MessagesLoaded{UserID: e.UserID, Messages: msgs})
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

// chatsLoop refetches the chat list whenever a refresh was requested, one request at a time.
func (s *Store) chatsLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.fetching:
		}

		chats, err := s.api.ListChats(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("admin: fetch chats failed", slog.Any("err", err))
			s.Dispatch(ChatsFailed{Err: err})
			continue
		}
		s.Dispatch(ChatsLoaded{Chats: chats})
	}
}
