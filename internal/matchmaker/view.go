package matchmaker

import (
	"context"
	"errors"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
)

// Status is the closed set of channel states a caller switches on.
type Status uint8

const (
	StatusUnmatched Status = iota
	StatusMatchedNoMessages
	StatusMatchedWithChannel
)

func (s Status) String() string {
	switch s {
	case StatusMatchedNoMessages:
		return "matched_no_messages"
	case StatusMatchedWithChannel:
		return "matched_with_channel"
	default:
		return "unmatched"
	}
}

// Channel tells the caller what it may open for a like.
// ConversationID is set only when it resolves to a stored conversation.
type Channel struct {
	Status         Status
	ConversationID string
}

func channelOf(like *db.Like, conv *db.Conversation) Channel {
	switch {
	case !like.IsMatched:
		return Channel{Status: StatusUnmatched}
	case conv == nil:
		return Channel{Status: StatusMatchedNoMessages}
	case conv.LastMessageSentAt == nil:
		return Channel{Status: StatusMatchedNoMessages, ConversationID: conv.ID}
	default:
		return Channel{Status: StatusMatchedWithChannel, ConversationID: conv.ID}
	}
}

// Direction selects which likes of a user are listed.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
	DirectionMatched  Direction = "matched"
)

// ParseDirection accepts "sent", "received" or "matched"; empty means sent.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case "":
		return DirectionSent, nil
	case DirectionSent, DirectionReceived, DirectionMatched:
		return d, nil
	}
	return "", svcErr.Validation("unknown direction %q", s)
}

// LikeView is a stored like seen from one user, with the other user attached.
// Counterpart is nil when it could not be loaded for a transient reason.
type LikeView struct {
	Like        db.Like
	Counterpart *db.User
	Channel     Channel
}

// Hydrator attaches counterpart profiles to likes. It caches lookups for the
// lifetime of one listing and must not be shared between calls.
type Hydrator struct {
	deps    *deps
	users   map[uint64]*db.User
	missing map[uint64]bool
}

func newHydrator(d *deps) *Hydrator {
	return &Hydrator{deps: d, users: map[uint64]*db.User{}, missing: map[uint64]bool{}}
}

// User loads a profile through the cache. A missing user is ErrNotFound.
func (h *Hydrator) User(ctx context.Context, id uint64) (*db.User, error) {
	if u, ok := h.users[id]; ok {
		return u, nil
	}
	if h.missing[id] {
		return nil, svcErr.NotFound("user %d", id)
	}
	u, err := call(ctx, h.deps.exec, "users.get", func(ctx context.Context) (*db.User, error) {
		return h.deps.stores.Users.Get(ctx, id)
	})
	switch {
	case errors.Is(err, svcErr.ErrNotFound):
		h.missing[id] = true
		return nil, err
	case err != nil:
		return nil, err
	}
	h.users[id] = u
	return u, nil
}

// Hydrate builds the view of like for viewer. It fails only with ErrNotFound,
// when the counterpart no longer exists; other lookup failures leave the view
// without a counterpart.
func (h *Hydrator) Hydrate(ctx context.Context, viewerID uint64, like db.Like) (LikeView, error) {
	view := LikeView{Like: like}
	u, err := h.User(ctx, like.Counterpart(viewerID))
	switch {
	case errors.Is(err, svcErr.ErrNotFound):
		return view, err
	case err != nil:
		h.deps.log.Warn("counterpart not hydrated", "like", like.ID, "err", err)
	default:
		view.Counterpart = u
	}
	return view, nil
}
