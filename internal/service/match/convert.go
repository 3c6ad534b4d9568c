package match

import (
	"strconv"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/matchmaker"
	pb "github.com/oggyb/muzz-match/internal/proto/match"
)

// parseID parses a decimal user id. Zero is left to the core to reject.
func parseID(field, value string) (uint64, error) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, svcErr.InvalidArgument(field + " must be a valid uint64")
	}
	return id, nil
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toUser(u *db.User) pb.User {
	return pb.User{
		ID:         formatID(u.ID),
		Name:       u.Name,
		Age:        u.Age,
		Bio:        u.Bio,
		ImageURL:   u.ImageURL,
		Gender:     u.Gender,
		LookingFor: u.LookingForSet(),
		Location:   u.Location,
		Interests:  u.InterestSet(),
	}
}

func fromUser(u pb.User) (*db.User, error) {
	var id uint64
	if u.ID != "" {
		var err error
		if id, err = parseID("user.id", u.ID); err != nil {
			return nil, err
		}
	}
	return &db.User{
		ID:         id,
		Name:       u.Name,
		Age:        u.Age,
		Bio:        u.Bio,
		ImageURL:   u.ImageURL,
		Gender:     u.Gender,
		LookingFor: db.EncodeSet(u.LookingFor),
		Location:   u.Location,
		Interests:  db.EncodeSet(u.Interests),
	}, nil
}

func toLike(l *db.Like) pb.Like {
	out := pb.Like{
		ID:              formatID(l.ID),
		LikerID:         formatID(l.LikerID),
		LikeeID:         formatID(l.LikeeID),
		IsMatched:       l.IsMatched,
		CreatedAtUnixMs: l.CreatedAt.UnixMilli(),
	}
	if l.MatchedDate != nil {
		out.MatchedAtUnixMs = l.MatchedDate.UnixMilli()
	}
	return out
}

func toChannel(c matchmaker.Channel) pb.Channel {
	return pb.Channel{Status: c.Status.String(), ConversationID: c.ConversationID}
}

func toLikeView(v matchmaker.LikeView) pb.LikeView {
	out := pb.LikeView{Like: toLike(&v.Like), Channel: toChannel(v.Channel)}
	if v.Counterpart != nil {
		u := toUser(v.Counterpart)
		out.Counterpart = &u
	}
	return out
}

func toMessage(m *db.Message) pb.Message {
	out := pb.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       formatID(m.SenderID),
		ReceiverID:     formatID(m.ReceiverID),
		Text:           m.Text,
		Read:           m.Read,
		SentAtUnixMs:   m.CreatedAt.UnixMilli(),
	}
	if m.ReadAt != nil {
		out.ReadAtUnixMs = m.ReadAt.UnixMilli()
	}
	return out
}

func toConversation(c *db.Conversation) pb.Conversation {
	out := pb.Conversation{
		ID:              c.ID,
		ParticipantIDs:  []string{formatID(c.UserAID), formatID(c.UserBID)},
		LastMessageText: c.LastMessageText,
	}
	if c.LastMessageSentAt != nil {
		out.LastMessageAtUnixMs = c.LastMessageSentAt.UnixMilli()
		out.LastMessageSenderID = formatID(c.LastMessageSenderID)
	}
	return out
}
