package matchmaker

import (
	"context"
	"errors"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
)

// Guard serves like listings and heals what it reads: likes of deleted users
// are pruned, missed matches are completed, half-linked pairs are linked and
// legacy embedded logs are moved into the shared conversation. Healing errors
// are logged and never fail the listing.
type Guard struct {
	*deps
	reconciler *Reconciler
}

// ListLikes returns a page of the user's likes in the given direction,
// newest first.
//
// Behavior:
//   - sent: likes the user made; received: likes of the user, minus passed
//     likers; matched: the user's side of each match.
//   - A like whose counterpart no longer exists is deleted and omitted.
//   - Each view carries the counterpart profile and the channel state.
//
// Example:
//
//	views, next, err := g.ListLikes(ctx, 42, DirectionReceived, "", 20)
func (g *Guard) ListLikes(ctx context.Context, userID uint64, dir Direction, token string, limit int) ([]LikeView, *string, error) {
	if userID == 0 {
		return nil, nil, svcErr.Validation("user id must be set")
	}

	var list func(ctx context.Context, id uint64, token string, limit int) ([]db.Like, *string, error)
	switch dir {
	case DirectionSent, "":
		list = g.stores.Likes.ListByLiker
	case DirectionReceived:
		list = g.stores.Likes.ListByLikee
	case DirectionMatched:
		list = g.stores.Likes.ListMatched
	default:
		return nil, nil, svcErr.Validation("unknown direction %q", dir)
	}

	var (
		likes []db.Like
		next  *string
	)
	err := g.exec.run(ctx, "likes.list", func(ctx context.Context) error {
		var err error
		likes, next, err = list(ctx, userID, token, limit)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	h := newHydrator(g.deps)
	views := make([]LikeView, 0, len(likes))
	for i := range likes {
		view, err := h.Hydrate(ctx, userID, likes[i])
		if errors.Is(err, svcErr.ErrNotFound) {
			g.prune(ctx, &likes[i])
			continue
		}

		like, conv := g.repair(ctx, &likes[i])
		view.Like = *like
		view.Channel = channelOf(like, conv)
		views = append(views, view)
	}
	return views, next, nil
}

// heal checks both users of like and repairs it. pruned reports a deleted like.
func (g *Guard) heal(ctx context.Context, like *db.Like) (pruned bool, err error) {
	for _, id := range []uint64{like.LikerID, like.LikeeID} {
		_, err := call(ctx, g.exec, "users.get", func(ctx context.Context) (*db.User, error) {
			return g.stores.Users.Get(ctx, id)
		})
		if errors.Is(err, svcErr.ErrNotFound) {
			g.prune(ctx, like)
			return true, nil
		}
		if err != nil {
			return false, err
		}
	}
	_, _, err = g.tryRepair(ctx, like)
	return false, err
}

// repair is tryRepair for read paths: on error the last good state is kept.
func (g *Guard) repair(ctx context.Context, like *db.Like) (*db.Like, *db.Conversation) {
	repaired, conv, err := g.tryRepair(ctx, like)
	if err != nil {
		g.log.Warn("like left unrepaired", "like", like.ID, "err", err)
	}
	return repaired, conv
}

// tryRepair converges one like and returns it with its resolved conversation.
// It always returns a usable like, even alongside an error.
func (g *Guard) tryRepair(ctx context.Context, like *db.Like) (*db.Like, *db.Conversation, error) {
	if !like.IsMatched || like.ChannelRef() == "" {
		settled, err := g.reconciler.settle(ctx, like)
		if err != nil {
			if settled != nil {
				like = settled
			}
			return like, nil, err
		}
		if !like.IsMatched && settled.IsMatched {
			g.metrics.Repaired("match")
			g.log.Info("missed match completed", "like", like.ID)
		}
		if like.ChannelRef() == "" && settled.ChannelRef() != "" {
			g.metrics.Repaired("link")
		}
		like = settled
	}
	if !like.IsMatched || like.ChannelRef() == "" {
		return like, nil, nil
	}

	conv, err := g.conversation(ctx, like.ChannelRef())
	if err != nil {
		return like, nil, err
	}
	if conv == nil {
		// dangling ref: relink to the pair's real conversation
		if like, conv, err = g.relink(ctx, like); err != nil || conv == nil {
			return like, nil, err
		}
	}

	if len(like.DirectConversation) > 0 {
		migrated, err := g.migrate(ctx, like.ID)
		if err != nil {
			return like, conv, err
		}
		like = migrated
		if fresh, err := g.conversation(ctx, conv.ID); err == nil && fresh != nil {
			conv = fresh
		}
	}
	return like, conv, nil
}

// ChannelOf reports the channel of like as stored, without repairing it.
func (g *Guard) ChannelOf(ctx context.Context, like *db.Like) (Channel, error) {
	var conv *db.Conversation
	if ref := like.ChannelRef(); like.IsMatched && ref != "" {
		var err error
		if conv, err = g.conversation(ctx, ref); err != nil {
			return Channel{}, err
		}
	}
	return channelOf(like, conv), nil
}

// conversation returns nil, nil when id does not resolve.
func (g *Guard) conversation(ctx context.Context, id string) (*db.Conversation, error) {
	conv, err := call(ctx, g.exec, "conversations.get", func(ctx context.Context) (*db.Conversation, error) {
		return g.stores.Conversations.Get(ctx, id)
	})
	if errors.Is(err, svcErr.ErrNotFound) {
		return nil, nil
	}
	return conv, err
}

func (g *Guard) relink(ctx context.Context, like *db.Like) (*db.Like, *db.Conversation, error) {
	reverse, err := call(ctx, g.exec, "likes.find", func(ctx context.Context) (*db.Like, error) {
		return g.stores.Likes.Find(ctx, like.LikeeID, like.LikerID)
	})
	if errors.Is(err, svcErr.ErrNotFound) {
		return like, nil, nil
	}
	if err != nil {
		return like, nil, err
	}

	id, err := g.reconciler.boot.OnMatch(ctx, like, reverse)
	if err != nil {
		return like, nil, err
	}
	g.metrics.Repaired("relink")

	fresh, _, err := g.reconciler.reload(ctx, like.ID, reverse.ID)
	if err != nil {
		return like, nil, err
	}
	conv, err := g.conversation(ctx, id)
	return fresh, conv, err
}

// migrate moves the legacy embedded log of a like into its conversation and
// clears the column. The clear is conditional on the row being unchanged
// since it was read; a lost race is a Conflict and the whole step is retried
// from a fresh read. Inserting by id makes the repeat harmless.
func (g *Guard) migrate(ctx context.Context, likeID uint64) (*db.Like, error) {
	var (
		out     *db.Like
		cleared bool
	)
	err := g.exec.run(ctx, "likes.migrate_legacy", func(ctx context.Context) error {
		like, err := g.stores.Likes.Get(ctx, likeID)
		if err != nil {
			return err
		}
		out = like
		if len(like.DirectConversation) == 0 {
			return nil
		}
		conv, err := g.stores.Conversations.Get(ctx, like.ChannelRef())
		if err != nil {
			return err
		}

		dc, err := ParseDirectConversation(like.DirectConversation)
		if err != nil {
			g.log.Warn("legacy log unreadable, dropping it", "like", like.ID, "err", err)
		}
		if dc != nil {
			for _, m := range MergeLog(dc.Messages, nil) {
				msg, ok := toMessage(conv, m)
				if !ok {
					continue
				}
				if _, err := g.stores.Messages.Insert(ctx, &msg); err != nil {
					return err
				}
				if err := g.stores.Conversations.UpdateLastMessage(ctx, &msg); err != nil {
					return err
				}
			}
		}

		cleared, err = g.stores.Likes.ClearDirectConversation(ctx, like.ID, like.UpdatedAt)
		if err != nil {
			return err
		}
		if !cleared {
			return svcErr.Conflict("like %d changed during legacy migration", like.ID)
		}
		like.DirectConversation = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cleared {
		g.metrics.Repaired("legacy")
		g.log.Info("legacy log migrated", "like", likeID, "conversation", out.ChannelRef())
	}
	return out, nil
}

// prune deletes a like whose user no longer exists. Failure is only logged;
// the like is omitted either way and the next read retries.
func (g *Guard) prune(ctx context.Context, like *db.Like) {
	err := g.exec.run(ctx, "likes.delete", func(ctx context.Context) error {
		return g.stores.Likes.Delete(ctx, like.ID)
	})
	if err != nil {
		g.log.Warn("orphaned like not deleted", "like", like.ID, "err", err)
		return
	}
	g.metrics.Repaired("prune")
	g.log.Info("orphaned like deleted", "like", like.ID, "liker", like.LikerID, "likee", like.LikeeID)
}
