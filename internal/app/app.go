// Package app wires storage, services and transports into a runnable relay.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/cwrk-planet/support-relay/config"
	"github.com/cwrk-planet/support-relay/internal/events"
	"github.com/cwrk-planet/support-relay/internal/presence"
	"github.com/cwrk-planet/support-relay/internal/security"
	httpserver "github.com/cwrk-planet/support-relay/internal/server/http"
	"github.com/cwrk-planet/support-relay/internal/service"
	grpcx "github.com/cwrk-planet/support-relay/internal/transport/grpc"
	httpx "github.com/cwrk-planet/support-relay/internal/transport/http"
	"github.com/cwrk-planet/support-relay/internal/transport/ws"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

type App struct {
	cfg *config.Config

	Chat    *service.ChatService
	Auth    *service.AuthService
	Hub     *ws.Hub
	Handler http.Handler

	grpc    *grpc.Server
	closers []func()
}

// New builds every component. Close releases what New opened, also after Run returns.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	store, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	opts := []service.Option{}
	if cfg.Redis.Addr != "" {
		rdb, err := presence.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		opts = append(opts, service.WithPresence(presence.NewRedisStore(rdb, cfg.Redis.Prefix, cfg.Redis.PresenceTTL)))
		slog.Info("presence: redis", "addr", cfg.Redis.Addr)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			QueueSize:    cfg.Kafka.QueueSize,
			WriteTimeout: cfg.Kafka.WriteTimeout,
			MaxFailures:  cfg.Kafka.MaxFailures,
			OpenTimeout:  cfg.Kafka.OpenTimeout,
		}, slog.Default())
		a.closers = append(a.closers, func() { _ = pub.Close() })
		opts = append(opts, service.WithPublisher(pub))
		slog.Info("events: kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	a.Chat = service.NewChatService(store.Users, store.Messages, store.Purger, opts...)

	a.Auth, err = newAuthService(cfg.Auth)
	if err != nil {
		return nil, err
	}

	a.Hub = ws.NewHub()
	wsServer := ws.NewServer(a.Hub, a.Chat, ws.Config{
		PingEvery:      cfg.WS.PingEvery,
		WriteWait:      cfg.WS.WriteWait,
		SendBuffer:     cfg.WS.SendBuffer,
		ReadLimit:      cfg.WS.ReadLimit,
		HandlerTimeout: cfg.WS.HandlerTimeout,
		AllowedOrigins: cfg.CORS.Origins,
		// three refreshes per ttl window
		PresenceRefresh: cfg.Redis.PresenceTTL / 3,
	})

	a.Handler = httpx.NewRouter(httpx.Deps{
		Handler:        httpx.NewHandler(a.Chat, a.Auth),
		WS:             wsServer.HandleWS,
		AllowedOrigins: cfg.CORS.Origins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})

	if cfg.GRPC.Addr != "" {
		a.grpc = grpc.NewServer(grpc.ChainUnaryInterceptor(grpcx.UnaryServerInterceptor(cfg.GRPC.DefaultTimeout)))
		grpcx.Register(a.grpc, grpcx.NewServer(a.Chat))
	}

	return a, nil
}

func newAuthService(cfg config.Auth) (*service.AuthService, error) {
	creds, err := security.NewCredentials(cfg.Username, cfg.Password, cfg.PasswordHash, &security.BcryptConfig{Cost: cfg.BcryptCost})
	if err != nil {
		return nil, fmt.Errorf("auth credentials: %w", err)
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		if secret, err = security.RandomBytes(32); err != nil {
			return nil, err
		}
		slog.Warn("auth.jwtSecret not set, tokens will not survive a restart")
	}

	return service.NewAuthService(creds, security.NewJWTSigner(secret, cfg.Issuer, cfg.TokenTTL, 0), nil), nil
}

// Run serves HTTP (and gRPC when enabled) until ctx is done or a listener fails.
func (a *App) Run(ctx context.Context) error {
	var grpcLis net.Listener
	if a.grpc != nil {
		lis, err := net.Listen("tcp", a.cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcLis = lis
	}

	g, ctx := errgroup.WithContext(ctx)

	httpSrv := httpserver.New(httpserver.Config{
		Addr:            a.cfg.HTTP.Addr,
		ReadTimeout:     a.cfg.HTTP.ReadTimeout,
		IdleTimeout:     a.cfg.HTTP.IdleTimeout,
		ShutdownTimeout: a.cfg.HTTP.ShutdownTimeout,
	}, a.Handler, a.Hub.CloseAll)
	g.Go(func() error {
		return httpSrv.Run(ctx)
	})

	if grpcLis != nil {
		g.Go(func() error {
			slog.Info("grpc listening", "addr", grpcLis.Addr().String())
			if err := a.grpc.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			a.grpc.GracefulStop()
			slog.Info("grpc stopped")
			return nil
		})
	}

	return g.Wait()
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
