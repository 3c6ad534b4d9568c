package match

import (
	"context"

	"github.com/oggyb/muzz-match/internal/app"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/matchmaker"
	pb "github.com/oggyb/muzz-match/internal/proto/match"
)

// Service implements the Match gRPC API.
// It parses wire ids, delegates to the matching core and keeps the
// received-like counters in Redis in step with the writes it makes.
type Service struct {
	appCtx *app.AppContext
	mm     *matchmaker.Matchmaker

	pb.UnimplementedMatchServiceServer
}

// NewMatchService creates a new Match service with dependencies from AppContext.
func NewMatchService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx, mm: appCtx.Matchmaker}
}

// ExpressPreference records a like and reports whether it completed a match.
//
// Behavior:
//   - Repeating the call is harmless; Created tells whether the like is new.
//   - When the reverse like exists both become matched and the pair's
//     conversation is opened; Channel carries its id.
//   - A new like drops the likee's cached count. The liker's count is
//     dropped too because its pass was cleared.
//
// Example:
//
//	svc.ExpressPreference(ctx, &pb.ExpressPreferenceRequest{LikerID: "1", LikeeID: "2"})
func (s *Service) ExpressPreference(ctx context.Context, req *pb.ExpressPreferenceRequest) (*pb.ExpressPreferenceResponse, error) {
	s.appCtx.Logger.Debug("ExpressPreference called", "liker", req.LikerID, "likee", req.LikeeID)

	likerID, err := parseID("liker_id", req.LikerID)
	if err != nil {
		return nil, err
	}
	likeeID, err := parseID("likee_id", req.LikeeID)
	if err != nil {
		return nil, err
	}

	out, err := s.mm.Reconciler.ExpressPreference(ctx, likerID, likeeID)
	if err != nil {
		s.appCtx.Logger.Error("ExpressPreference failed", "liker", likerID, "likee", likeeID, "err", err)
		return nil, svcErr.Map(err)
	}

	if out.Created {
		// recount rather than increment: a concurrent miss may already have
		// cached a total that includes this like
		s.dropLikeCount(ctx, likeeID)
	}
	s.dropLikeCount(ctx, likerID)

	channel, err := s.mm.Guard.ChannelOf(ctx, out.Like)
	if err != nil {
		// the like is stored; the channel shows up on the next listing
		s.appCtx.Logger.Warn("channel lookup failed", "like", out.Like.ID, "err", err)
		channel = matchmaker.Channel{Status: matchmaker.StatusMatchedNoMessages}
		if !out.Like.IsMatched {
			channel.Status = matchmaker.StatusUnmatched
		}
	}

	return &pb.ExpressPreferenceResponse{
		Like:     toLike(out.Like),
		Created:  out.Created,
		NewMatch: out.NewMatch,
		Channel:  toChannel(channel),
	}, nil
}

// Pass records that the actor is not interested in the recipient.
func (s *Service) Pass(ctx context.Context, req *pb.PassRequest) (*pb.PassResponse, error) {
	s.appCtx.Logger.Debug("Pass called", "actor", req.ActorID, "recipient", req.RecipientID)

	actorID, err := parseID("actor_id", req.ActorID)
	if err != nil {
		return nil, err
	}
	recipientID, err := parseID("recipient_id", req.RecipientID)
	if err != nil {
		return nil, err
	}

	if err := s.mm.Reconciler.Pass(ctx, actorID, recipientID); err != nil {
		return nil, svcErr.Map(err)
	}
	// the recipient's like of the actor may no longer count
	s.dropLikeCount(ctx, actorID)

	return &pb.PassResponse{}, nil
}

// SendMessage appends a message to a conversation the sender belongs to.
func (s *Service) SendMessage(ctx context.Context, req *pb.SendMessageRequest) (*pb.SendMessageResponse, error) {
	senderID, err := parseID("sender_id", req.SenderID)
	if err != nil {
		return nil, err
	}

	msg, err := s.mm.Appender.SendMessage(ctx, req.ConversationID, senderID, req.Text)
	if err != nil {
		s.appCtx.Logger.Error("SendMessage failed", "conversation", req.ConversationID, "sender", senderID, "err", err)
		return nil, svcErr.Map(err)
	}
	return &pb.SendMessageResponse{Message: toMessage(msg)}, nil
}

// ListMessages pages through a conversation oldest first.
func (s *Service) ListMessages(ctx context.Context, req *pb.ListMessagesRequest) (*pb.ListMessagesResponse, error) {
	viewerID, err := parseID("viewer_id", req.ViewerID)
	if err != nil {
		return nil, err
	}

	msgs, next, err := s.mm.Appender.ListMessages(ctx, req.ConversationID, viewerID, deref(req.PaginationToken), req.Limit)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &pb.ListMessagesResponse{Messages: make([]pb.Message, 0, len(msgs)), NextPaginationToken: next}
	for i := range msgs {
		resp.Messages = append(resp.Messages, toMessage(&msgs[i]))
	}
	return resp, nil
}

func (s *Service) MarkRead(ctx context.Context, req *pb.MarkReadRequest) (*pb.MarkReadResponse, error) {
	readerID, err := parseID("reader_id", req.ReaderID)
	if err != nil {
		return nil, err
	}

	n, err := s.mm.Appender.MarkRead(ctx, req.ConversationID, readerID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &pb.MarkReadResponse{Updated: n}, nil
}

// ListLikes returns the user's likes in one direction with their channel.
// Listing repairs half-finished matches and drops likes of deleted users.
func (s *Service) ListLikes(ctx context.Context, req *pb.ListLikesRequest) (*pb.ListLikesResponse, error) {
	s.appCtx.Logger.Debug("ListLikes called", "user", req.UserID, "direction", req.Direction, "token", deref(req.PaginationToken))

	userID, err := parseID("user_id", req.UserID)
	if err != nil {
		return nil, err
	}
	dir, err := matchmaker.ParseDirection(req.Direction)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	views, next, err := s.mm.Guard.ListLikes(ctx, userID, dir, deref(req.PaginationToken), req.Limit)
	if err != nil {
		s.appCtx.Logger.Error("ListLikes failed", "user", userID, "err", err)
		return nil, svcErr.Map(err)
	}

	resp := &pb.ListLikesResponse{Likes: make([]pb.LikeView, 0, len(views)), NextPaginationToken: next}
	for _, v := range views {
		resp.Likes = append(resp.Likes, toLikeView(v))
	}

	s.appCtx.Logger.Debug("ListLikes result", "count", len(resp.Likes), "next_token", deref(next))
	return resp, nil
}

func (s *Service) ListConversations(ctx context.Context, req *pb.ListConversationsRequest) (*pb.ListConversationsResponse, error) {
	userID, err := parseID("user_id", req.UserID)
	if err != nil {
		return nil, err
	}

	convs, err := s.mm.ListConversations(ctx, userID, req.Limit)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &pb.ListConversationsResponse{Conversations: make([]pb.Conversation, 0, len(convs))}
	for i := range convs {
		resp.Conversations = append(resp.Conversations, toConversation(&convs[i]))
	}
	return resp, nil
}

// CountLikedYou returns how many users liked the recipient.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:received:count:userID).
//  2. On a miss falls back to the DB through the core.
//  3. On DB fetch, updates Redis with a 1h TTL.
//
// Example:
//
//	svc.CountLikedYou(ctx, &pb.CountLikedYouRequest{RecipientUserID: "42"})
func (s *Service) CountLikedYou(ctx context.Context, req *pb.CountLikedYouRequest) (*pb.CountLikedYouResponse, error) {
	s.appCtx.Logger.Debug("CountLikedYou called", "recipient", req.RecipientUserID)

	recipientID, err := parseID("recipient_user_id", req.RecipientUserID)
	if err != nil {
		return nil, err
	}

	n, ok, err := s.appCtx.RedisCache.GetLikeCount(ctx, recipientID)
	if err != nil {
		s.appCtx.Logger.Warn("like count cache read failed", "recipient", recipientID, "err", err)
	}
	if ok && n >= 0 {
		return &pb.CountLikedYouResponse{Count: uint64(n)}, nil
	}

	count, err := s.mm.CountReceived(ctx, recipientID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if err := s.appCtx.RedisCache.SetLikeCount(ctx, recipientID, count); err != nil {
		s.appCtx.Logger.Warn("like count cache write failed", "recipient", recipientID, "err", err)
	}
	return &pb.CountLikedYouResponse{Count: uint64(count)}, nil
}

// Discover suggests profiles the user has not liked or passed yet.
func (s *Service) Discover(ctx context.Context, req *pb.DiscoverRequest) (*pb.DiscoverResponse, error) {
	userID, err := parseID("user_id", req.UserID)
	if err != nil {
		return nil, err
	}

	users, err := s.mm.Discover(ctx, userID, req.Limit)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &pb.DiscoverResponse{Users: make([]pb.User, 0, len(users))}
	for i := range users {
		resp.Users = append(resp.Users, toUser(&users[i]))
	}
	return resp, nil
}

func (s *Service) PutUser(ctx context.Context, req *pb.PutUserRequest) (*pb.PutUserResponse, error) {
	user, err := fromUser(req.User)
	if err != nil {
		return nil, err
	}

	saved, err := s.mm.PutUser(ctx, user)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &pb.PutUserResponse{User: toUser(saved)}, nil
}

func (s *Service) GetUser(ctx context.Context, req *pb.GetUserRequest) (*pb.GetUserResponse, error) {
	userID, err := parseID("user_id", req.UserID)
	if err != nil {
		return nil, err
	}

	user, err := s.mm.GetUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &pb.GetUserResponse{User: toUser(user)}, nil
}

// DeleteUser removes a profile and drops the cached counts it was part of:
// its own and those of every user it liked.
func (s *Service) DeleteUser(ctx context.Context, req *pb.DeleteUserRequest) (*pb.DeleteUserResponse, error) {
	userID, err := parseID("user_id", req.UserID)
	if err != nil {
		return nil, err
	}

	// read before deleting: afterwards the likes no longer count anywhere
	likees, err := s.mm.LikeesOf(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if err := s.mm.DeleteUser(ctx, userID); err != nil {
		return nil, svcErr.Map(err)
	}
	s.dropLikeCount(ctx, userID)
	for _, id := range likees {
		s.dropLikeCount(ctx, id)
	}

	return &pb.DeleteUserResponse{}, nil
}

func (s *Service) dropLikeCount(ctx context.Context, userID uint64) {
	if err := s.appCtx.RedisCache.InvalidateLikeCount(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("like count cache invalidation failed", "user", userID, "err", err)
	}
}
