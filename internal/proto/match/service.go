package match

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// MatchServiceServer is the server API for MatchService.
type MatchServiceServer interface {
	ExpressPreference(context.Context, *ExpressPreferenceRequest) (*ExpressPreferenceResponse, error)
	Pass(context.Context, *PassRequest) (*PassResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error)
	ListLikes(context.Context, *ListLikesRequest) (*ListLikesResponse, error)
	ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error)
	CountLikedYou(context.Context, *CountLikedYouRequest) (*CountLikedYouResponse, error)
	Discover(context.Context, *DiscoverRequest) (*DiscoverResponse, error)
	PutUser(context.Context, *PutUserRequest) (*PutUserResponse, error)
	GetUser(context.Context, *GetUserRequest) (*GetUserResponse, error)
	DeleteUser(context.Context, *DeleteUserRequest) (*DeleteUserResponse, error)
}

// UnimplementedMatchServiceServer must be embedded to have forward
// compatible implementations.
type UnimplementedMatchServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedMatchServiceServer) ExpressPreference(context.Context, *ExpressPreferenceRequest) (*ExpressPreferenceResponse, error) {
	return nil, unimplemented("ExpressPreference")
}
func (UnimplementedMatchServiceServer) Pass(context.Context, *PassRequest) (*PassResponse, error) {
	return nil, unimplemented("Pass")
}
func (UnimplementedMatchServiceServer) SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error) {
	return nil, unimplemented("SendMessage")
}
func (UnimplementedMatchServiceServer) ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error) {
	return nil, unimplemented("ListMessages")
}
func (UnimplementedMatchServiceServer) MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error) {
	return nil, unimplemented("MarkRead")
}
func (UnimplementedMatchServiceServer) ListLikes(context.Context, *ListLikesRequest) (*ListLikesResponse, error) {
	return nil, unimplemented("ListLikes")
}
func (UnimplementedMatchServiceServer) ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error) {
	return nil, unimplemented("ListConversations")
}
func (UnimplementedMatchServiceServer) CountLikedYou(context.Context, *CountLikedYouRequest) (*CountLikedYouResponse, error) {
	return nil, unimplemented("CountLikedYou")
}
func (UnimplementedMatchServiceServer) Discover(context.Context, *DiscoverRequest) (*DiscoverResponse, error) {
	return nil, unimplemented("Discover")
}
func (UnimplementedMatchServiceServer) PutUser(context.Context, *PutUserRequest) (*PutUserResponse, error) {
	return nil, unimplemented("PutUser")
}
func (UnimplementedMatchServiceServer) GetUser(context.Context, *GetUserRequest) (*GetUserResponse, error) {
	return nil, unimplemented("GetUser")
}
func (UnimplementedMatchServiceServer) DeleteUser(context.Context, *DeleteUserRequest) (*DeleteUserResponse, error) {
	return nil, unimplemented("DeleteUser")
}

// RegisterMatchServiceServer attaches srv to s.
func RegisterMatchServiceServer(s grpc.ServiceRegistrar, srv MatchServiceServer) {
	s.RegisterService(&MatchService_ServiceDesc, srv)
}

// FullMethod returns the gRPC path of a method, e.g. "/muzz.match.v1.MatchService/Pass".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary adapts a typed method to a grpc.MethodHandler over Struct payloads.
func unary[Req, Resp any](method string, call func(MatchServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handle := func(ctx context.Context, raw any) (any, error) {
				req := new(Req)
				if err := FromStruct(raw.(*structpb.Struct), req); err != nil {
					return nil, status.Errorf(codes.InvalidArgument, "malformed %s request: %v", method, err)
				}
				resp, err := call(srv.(MatchServiceServer), ctx, req)
				if err != nil {
					return nil, err
				}
				out, err := ToStruct(resp)
				if err != nil {
					return nil, status.Errorf(codes.Internal, "encode %s response: %v", method, err)
				}
				return out, nil
			}
			if interceptor == nil {
				return handle(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			return interceptor(ctx, in, info, handle)
		},
	}
}

// MatchService_ServiceDesc is the grpc.ServiceDesc for MatchService.
var MatchService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ExpressPreference", MatchServiceServer.ExpressPreference),
		unary("Pass", MatchServiceServer.Pass),
		unary("SendMessage", MatchServiceServer.SendMessage),
		unary("ListMessages", MatchServiceServer.ListMessages),
		unary("MarkRead", MatchServiceServer.MarkRead),
		unary("ListLikes", MatchServiceServer.ListLikes),
		unary("ListConversations", MatchServiceServer.ListConversations),
		unary("CountLikedYou", MatchServiceServer.CountLikedYou),
		unary("Discover", MatchServiceServer.Discover),
		unary("PutUser", MatchServiceServer.PutUser),
		unary("GetUser", MatchServiceServer.GetUser),
		unary("DeleteUser", MatchServiceServer.DeleteUser),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: FileName,
}
