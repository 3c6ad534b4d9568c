package matchmaker

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/events"
)

// Bootstrapper establishes the one conversation a matched pair shares.
type Bootstrapper struct {
	*deps
	appender *Appender
}

// OnMatch links likeAB and likeBA to the pair's conversation and returns its id.
//
// Behavior:
//   - A ref already on either side is reused when it resolves.
//   - Otherwise the conversation is created-or-fetched by the unique pair key,
//     so any number of concurrent calls end with a single conversation.
//   - Each side is written only while its ref is unset (or dangling).
//   - Only the call that created the conversation greets and emits match.created,
//     even when linking fails afterwards.
//
// When one side's write fails the pair stays half-linked and the error is
// returned; the Guard completes it on the next read.
func (b *Bootstrapper) OnMatch(ctx context.Context, likeAB, likeBA *db.Like) (string, error) {
	if likeAB == nil || likeBA == nil ||
		likeAB.LikerID != likeBA.LikeeID || likeAB.LikeeID != likeBA.LikerID {
		return "", svcErr.Validation("likes are not the two directions of one pair")
	}
	if !likeAB.IsMatched || !likeBA.IsMatched {
		return "", svcErr.Validation("likes %d and %d are not matched", likeAB.ID, likeBA.ID)
	}

	conv, err := b.resolve(ctx, likeAB, likeBA)
	if err != nil {
		return "", err
	}

	created := false
	if conv == nil {
		a, c := likeAB.LikerID, likeAB.LikeeID
		if a > c {
			a, c = c, a
		}
		candidate := &db.Conversation{
			ID:      uuid.NewString(),
			PairKey: db.PairKey(a, c),
			UserAID: a,
			UserBID: c,
		}
		err = b.exec.run(ctx, "conversations.create", func(ctx context.Context) error {
			var err error
			conv, created, err = b.stores.Conversations.CreateIfAbsent(ctx, candidate)
			return err
		})
		if err != nil {
			return "", err
		}
	}
	if created {
		// before linking: a later call finds the conversation and never gets here
		b.onCreated(ctx, conv, likeAB)
	}

	for _, like := range []*db.Like{likeAB, likeBA} {
		if err := b.link(ctx, like, conv.ID); err != nil {
			return "", err
		}
	}
	return conv.ID, nil
}

// resolve returns the conversation referenced by either side, or nil.
func (b *Bootstrapper) resolve(ctx context.Context, likes ...*db.Like) (*db.Conversation, error) {
	for _, like := range likes {
		ref := like.ChannelRef()
		if ref == "" {
			continue
		}
		conv, err := call(ctx, b.exec, "conversations.get", func(ctx context.Context) (*db.Conversation, error) {
			return b.stores.Conversations.Get(ctx, ref)
		})
		if errors.Is(err, svcErr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if conv.HasParticipant(like.LikerID) && conv.HasParticipant(like.LikeeID) {
			return conv, nil
		}
	}
	return nil, nil
}

// link points like at conversationID unless it already does.
func (b *Bootstrapper) link(ctx context.Context, like *db.Like, conversationID string) error {
	current := like.ChannelRef()
	if current == conversationID {
		return nil
	}
	return b.exec.run(ctx, "likes.set_conversation", func(ctx context.Context) error {
		if current == "" {
			_, err := b.stores.Likes.SetConversation(ctx, like.ID, conversationID)
			return err
		}
		_, err := b.stores.Likes.RelinkConversation(ctx, like.ID, current, conversationID)
		return err
	})
}

func (b *Bootstrapper) onCreated(ctx context.Context, conv *db.Conversation, likeAB *db.Like) {
	b.metrics.MatchCreated()
	b.log.Info("match created",
		"conversation", conv.ID, "user_a", conv.UserAID, "user_b", conv.UserBID)

	matchedAt := b.now()
	if likeAB.MatchedDate != nil {
		matchedAt = *likeAB.MatchedDate
	}
	err := b.events.PublishMatch(ctx, events.MatchCreated{
		ConversationID: conv.ID,
		UserAID:        conv.UserAID,
		UserBID:        conv.UserBID,
		MatchedAt:      matchedAt,
	})
	if err != nil {
		b.log.Warn("publish match.created failed", "conversation", conv.ID, "err", err)
	}

	if b.opts.Greeting == "" {
		return
	}
	// sender is likeAB's liker: from ExpressPreference, the user whose like
	// completed the match; from a read-time heal, the owner of the listed like
	if _, err := b.appender.send(ctx, conv, likeAB.LikerID, b.opts.Greeting); err != nil {
		b.log.Warn("greeting not sent", "conversation", conv.ID, "err", err)
	}
}
