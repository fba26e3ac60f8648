package grpcx

import (
	"context"
	"strings"

	"github.com/cwrk-planet/support-relay/internal/domain"
	"github.com/cwrk-planet/support-relay/internal/service"
	"github.com/cwrk-planet/support-relay/internal/transport/dto"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ChatQuerier interface {
	ListChats(ctx context.Context) ([]service.ChatSummary, error)
	ListMessages(ctx context.Context, userID string) ([]domain.Message, error)
}

type Server struct {
	chats ChatQuerier
}

func NewServer(chats ChatQuerier) *Server {
	return &Server{chats: chats}
}

func Register(grpcServer *grpc.Server, s *Server) {
	RegisterSupportServiceServer(grpcServer, s)
}

func (s *Server) ListChats(ctx context.Context, _ *ListChatsRequest) (*ListChatsResponse, error) {
	chats, err := s.chats.ListChats(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to fetch chats")
	}
	return &ListChatsResponse{Chats: dto.Chats(chats)}, nil
}

func (s *Server) ListMessages(ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
	if req == nil || strings.TrimSpace(req.UserID) == "" {
		return nil, status.Error(codes.InvalidArgument, "userId is required")
	}
	msgs, err := s.chats.ListMessages(ctx, req.UserID)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to fetch messages")
	}
	return &ListMessagesResponse{Messages: dto.Messages(msgs)}, nil
}
