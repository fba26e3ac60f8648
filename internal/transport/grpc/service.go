package grpcx

import (
	"context"

	"github.com/cwrk-planet/support-relay/pkg/protocol"

	"google.golang.org/grpc"
)

const (
	ServiceName        = "support.v1.SupportService"
	MethodListChats    = "/" + ServiceName + "/ListChats"
	MethodListMessages = "/" + ServiceName + "/ListMessages"
)

type ListChatsRequest struct{}

type ListChatsResponse struct {
	Chats []protocol.Chat `json:"chats"`
}

type ListMessagesRequest struct {
	UserID string `json:"userId"`
}

type ListMessagesResponse struct {
	Messages []protocol.Message `json:"messages"`
}

type SupportServiceServer interface {
	ListChats(ctx context.Context, req *ListChatsRequest) (*ListChatsResponse, error)
	ListMessages(ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SupportServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListChats", Handler: listChatsHandler},
		{MethodName: "ListMessages", Handler: listMessagesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "support/v1/support.json",
}

func RegisterSupportServiceServer(s grpc.ServiceRegistrar, srv SupportServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

func listChatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListChatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SupportServiceServer).ListChats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodListChats}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SupportServiceServer).ListChats(ctx, req.(*ListChatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listMessagesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListMessagesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SupportServiceServer).ListMessages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodListMessages}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SupportServiceServer).ListMessages(ctx, req.(*ListMessagesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the query API with the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ListChats(ctx context.Context, opts ...grpc.CallOption) ([]protocol.Chat, error) {
	out := new(ListChatsResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, MethodListChats, &ListChatsRequest{}, out, opts...); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

func (c *Client) ListMessages(ctx context.Context, userID string, opts ...grpc.CallOption) ([]protocol.Message, error) {
	out := new(ListMessagesResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, MethodListMessages, &ListMessagesRequest{UserID: userID}, out, opts...); err != nil {
		return nil, err
	}
	return out.Messages, nil
}
