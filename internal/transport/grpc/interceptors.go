package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cwrk-planet/support-relay/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const mdRequestID = "x-request-id"

// UnaryServerInterceptor bounds calls that carry no deadline, converts panics to codes.Internal and
// writes one log line per call.
func UnaryServerInterceptor(defaultTimeout time.Duration) grpc.UnaryServerInterceptor {
	if defaultTimeout <= 0 {
		defaultTimeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
			defer cancel()
		}

		log := logger.Ctx(ctx).With(slog.String("method", info.FullMethod))
		if rid := requestID(ctx); rid != "" {
			log = log.With(slog.String("req_id", rid))
		}

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				log.Error("grpc handler panicked", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}

			code := status.Code(err)
			attrs := []any{slog.String("code", code.String()), slog.Duration("duration", time.Since(start))}
			switch code {
			case codes.OK:
				log.Info("grpc call", attrs...)
			case codes.Internal, codes.Unknown, codes.DeadlineExceeded:
				log.Error("grpc call", append(attrs, slog.Any("err", err))...)
			default:
				log.Warn("grpc call", append(attrs, slog.Any("err", err))...)
			}
		}()

		return handler(ctx, req)
	}
}

func requestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(mdRequestID); len(v) > 0 {
		return v[0]
	}
	return ""
}
