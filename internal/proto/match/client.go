package match

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// MatchServiceClient is the client API for MatchService.
type MatchServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewMatchServiceClient(cc grpc.ClientConnInterface) *MatchServiceClient {
	return &MatchServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	req, err := ToStruct(in)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode %s request: %v", method, err)
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := FromStruct(out, resp); err != nil {
		return nil, status.Errorf(codes.Internal, "decode %s response: %v", method, err)
	}
	return resp, nil
}

func (c *MatchServiceClient) ExpressPreference(ctx context.Context, in *ExpressPreferenceRequest, opts ...grpc.CallOption) (*ExpressPreferenceResponse, error) {
	return invoke[ExpressPreferenceResponse](ctx, c.cc, "ExpressPreference", in, opts...)
}

func (c *MatchServiceClient) Pass(ctx context.Context, in *PassRequest, opts ...grpc.CallOption) (*PassResponse, error) {
	return invoke[PassResponse](ctx, c.cc, "Pass", in, opts...)
}

func (c *MatchServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c.cc, "SendMessage", in, opts...)
}

func (c *MatchServiceClient) ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	return invoke[ListMessagesResponse](ctx, c.cc, "ListMessages", in, opts...)
}

func (c *MatchServiceClient) MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error) {
	return invoke[MarkReadResponse](ctx, c.cc, "MarkRead", in, opts...)
}

func (c *MatchServiceClient) ListLikes(ctx context.Context, in *ListLikesRequest, opts ...grpc.CallOption) (*ListLikesResponse, error) {
	return invoke[ListLikesResponse](ctx, c.cc, "ListLikes", in, opts...)
}

func (c *MatchServiceClient) ListConversations(ctx context.Context, in *ListConversationsRequest, opts ...grpc.CallOption) (*ListConversationsResponse, error) {
	return invoke[ListConversationsResponse](ctx, c.cc, "ListConversations", in, opts...)
}

func (c *MatchServiceClient) CountLikedYou(ctx context.Context, in *CountLikedYouRequest, opts ...grpc.CallOption) (*CountLikedYouResponse, error) {
	return invoke[CountLikedYouResponse](ctx, c.cc, "CountLikedYou", in, opts...)
}

func (c *MatchServiceClient) Discover(ctx context.Context, in *DiscoverRequest, opts ...grpc.CallOption) (*DiscoverResponse, error) {
	return invoke[DiscoverResponse](ctx, c.cc, "Discover", in, opts...)
}

func (c *MatchServiceClient) PutUser(ctx context.Context, in *PutUserRequest, opts ...grpc.CallOption) (*PutUserResponse, error) {
	return invoke[PutUserResponse](ctx, c.cc, "PutUser", in, opts...)
}

func (c *MatchServiceClient) GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*GetUserResponse, error) {
	return invoke[GetUserResponse](ctx, c.cc, "GetUser", in, opts...)
}

func (c *MatchServiceClient) DeleteUser(ctx context.Context, in *DeleteUserRequest, opts ...grpc.CallOption) (*DeleteUserResponse, error) {
	return invoke[DeleteUserResponse](ctx, c.cc, "DeleteUser", in, opts...)
}
