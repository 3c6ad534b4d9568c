package matchmaker

import (
	"context"
	"errors"
	"time"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
)

// Reconciler records likes and detects when they complete a mutual match.
type Reconciler struct {
	*deps
	boot *Bootstrapper
}

// Outcome of ExpressPreference.
type Outcome struct {
	// Like is the stored like liker -> likee after reconciliation.
	Like *db.Like
	// Created is false when the like already existed.
	Created bool
	// NewMatch reports a PENDING -> MATCHED transition made by this call.
	NewMatch bool
}

// ExpressPreference records that liker likes likee.
//
// Behavior:
//   - Repeated calls for the same pair reuse the stored like.
//   - A pass liker -> likee is cleared; liking overrides an earlier pass.
//   - When the reverse like exists both rows become MATCHED with the same
//     (earliest) date and the pair's conversation is bootstrapped.
//   - A failed bootstrap does not fail the call; the Guard finishes it.
//
// Example:
//
//	out, err := rec.ExpressPreference(ctx, 1, 2) // user 1 liked user 2
func (r *Reconciler) ExpressPreference(ctx context.Context, likerID, likeeID uint64) (Outcome, error) {
	if err := r.checkPair(ctx, likerID, likeeID); err != nil {
		return Outcome{}, err
	}

	err := r.exec.run(ctx, "passes.clear", func(ctx context.Context) error {
		return r.stores.Passes.ClearPass(ctx, likerID, likeeID)
	})
	if err != nil {
		return Outcome{}, err
	}

	var (
		like    *db.Like
		created bool
	)
	err = r.exec.run(ctx, "likes.create", func(ctx context.Context) error {
		var err error
		like, created, err = r.stores.Likes.CreateIfAbsent(ctx, likerID, likeeID)
		return err
	})
	if err != nil {
		return Outcome{}, err
	}
	if created {
		r.metrics.LikeCreated()
	}

	wasMatched := like.IsMatched
	like, err = r.settle(ctx, like)
	var bootErr *bootstrapError
	switch {
	case errors.As(err, &bootErr):
		// the match is committed; the Guard or the Sweeper links it later
		r.log.Warn("conversation bootstrap incomplete", "like", like.ID, "err", bootErr.err)
	case err != nil:
		return Outcome{}, err
	}

	r.log.Debug("preference expressed",
		"liker", likerID, "likee", likeeID, "created", created, "matched", like.IsMatched)

	return Outcome{Like: like, Created: created, NewMatch: !wasMatched && like.IsMatched}, nil
}

// Pass records that actor is not interested in recipient. It never touches
// the recipient's like of actor.
func (r *Reconciler) Pass(ctx context.Context, actorID, recipientID uint64) error {
	if err := r.checkPair(ctx, actorID, recipientID); err != nil {
		return err
	}
	return r.exec.run(ctx, "passes.record", func(ctx context.Context) error {
		return r.stores.Passes.RecordPass(ctx, actorID, recipientID)
	})
}

// checkPair validates two distinct, existing users.
func (r *Reconciler) checkPair(ctx context.Context, a, b uint64) error {
	if a == 0 || b == 0 {
		return svcErr.Validation("user ids must be set")
	}
	if a == b {
		return svcErr.Validation("user %d cannot target themself", a)
	}
	for _, id := range []uint64{a, b} {
		_, err := call(ctx, r.exec, "users.get", func(ctx context.Context) (*db.User, error) {
			return r.stores.Users.Get(ctx, id)
		})
		if errors.Is(err, svcErr.ErrNotFound) {
			return svcErr.Validation("user %d does not exist", id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// bootstrapError reports a committed match whose conversation is not linked
// on both sides yet.
type bootstrapError struct{ err error }

func (e *bootstrapError) Error() string { return "conversation bootstrap: " + e.err.Error() }
func (e *bootstrapError) Unwrap() error { return e.err }

// settle converges like with its reverse, if the reverse exists:
// both sides MATCHED on the same date, both linked to one conversation.
// It is safe to call any number of times from any number of callers.
// A *bootstrapError comes with the matched like; other errors with nil.
func (r *Reconciler) settle(ctx context.Context, like *db.Like) (*db.Like, error) {
	reverse, err := call(ctx, r.exec, "likes.find", func(ctx context.Context) (*db.Like, error) {
		return r.stores.Likes.Find(ctx, like.LikeeID, like.LikerID)
	})
	if errors.Is(err, svcErr.ErrNotFound) {
		return like, nil
	}
	if err != nil {
		return nil, err
	}

	if !sameMatch(like, reverse) {
		at := earliest(like.MatchedDate, reverse.MatchedDate)
		if at.IsZero() {
			at = r.now()
		}
		for _, id := range []uint64{like.ID, reverse.ID} {
			err := r.exec.run(ctx, "likes.mark_matched", func(ctx context.Context) error {
				return r.stores.Likes.MarkMatched(ctx, id, at)
			})
			if err != nil {
				return nil, err
			}
		}
		if like, reverse, err = r.reload(ctx, like.ID, reverse.ID); err != nil {
			return nil, err
		}
	}

	if like.ChannelRef() != "" && like.ChannelRef() == reverse.ChannelRef() {
		return like, nil
	}

	if _, err := r.boot.OnMatch(ctx, like, reverse); err != nil {
		return like, &bootstrapError{err: err}
	}

	// pick up the ref OnMatch wrote
	if like, _, err = r.reload(ctx, like.ID, reverse.ID); err != nil {
		return nil, err
	}
	return like, nil
}

// reload re-reads two likes by id.
func (r *Reconciler) reload(ctx context.Context, a, b uint64) (*db.Like, *db.Like, error) {
	var out [2]*db.Like
	for i, id := range []uint64{a, b} {
		l, err := call(ctx, r.exec, "likes.get", func(ctx context.Context) (*db.Like, error) {
			return r.stores.Likes.Get(ctx, id)
		})
		if err != nil {
			return nil, nil, err
		}
		out[i] = l
	}
	return out[0], out[1], nil
}

// sameMatch reports whether both sides are already MATCHED on one date.
func sameMatch(a, b *db.Like) bool {
	if !a.IsMatched || !b.IsMatched || a.MatchedDate == nil || b.MatchedDate == nil {
		return false
	}
	return a.MatchedDate.Equal(*b.MatchedDate)
}

func earliest(dates ...*time.Time) time.Time {
	var out time.Time
	for _, d := range dates {
		if d != nil && (out.IsZero() || d.Before(out)) {
			out = *d
		}
	}
	return out
}
