package matchmaker

import (
	"context"
	"strings"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/utils/pagination"
)

// Profile and discovery plumbing around the core. None of it mutates likes
// or conversations.

// Discover returns profiles the user has not acted on yet and who match the
// genders the user is looking for.
func (m *Matchmaker) Discover(ctx context.Context, userID uint64, limit int) ([]db.User, error) {
	user, err := m.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return call(ctx, m.exec, "users.candidates", func(ctx context.Context) ([]db.User, error) {
		return m.stores.Users.Candidates(ctx, user, pagination.Limit(limit))
	})
}

// ListConversations returns the user's conversations, most recently active first.
func (m *Matchmaker) ListConversations(ctx context.Context, userID uint64, limit int) ([]db.Conversation, error) {
	if userID == 0 {
		return nil, svcErr.Validation("user id must be set")
	}
	return call(ctx, m.exec, "conversations.list", func(ctx context.Context) ([]db.Conversation, error) {
		return m.stores.Conversations.ListForUser(ctx, userID, pagination.Limit(limit))
	})
}

// CountReceived counts existing users who liked the user and were not passed.
func (m *Matchmaker) CountReceived(ctx context.Context, userID uint64) (int64, error) {
	if userID == 0 {
		return 0, svcErr.Validation("user id must be set")
	}
	return call(ctx, m.exec, "likes.count_received", func(ctx context.Context) (int64, error) {
		return m.stores.Likes.CountReceived(ctx, userID)
	})
}

// LikeesOf returns everyone the user has liked, across all pages.
func (m *Matchmaker) LikeesOf(ctx context.Context, userID uint64) ([]uint64, error) {
	if userID == 0 {
		return nil, svcErr.Validation("user id must be set")
	}
	var (
		out   []uint64
		token string
	)
	for {
		var (
			likes []db.Like
			next  *string
		)
		err := m.exec.run(ctx, "likes.list", func(ctx context.Context) error {
			var err error
			likes, next, err = m.stores.Likes.ListByLiker(ctx, userID, token, pagination.MaxLimit)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, l := range likes {
			out = append(out, l.LikeeID)
		}
		if next == nil {
			return out, nil
		}
		token = *next
	}
}

func (m *Matchmaker) GetUser(ctx context.Context, id uint64) (*db.User, error) {
	if id == 0 {
		return nil, svcErr.Validation("user id must be set")
	}
	return call(ctx, m.exec, "users.get", func(ctx context.Context) (*db.User, error) {
		return m.stores.Users.Get(ctx, id)
	})
}

// PutUser creates or replaces a profile. A zero id lets the store assign one.
func (m *Matchmaker) PutUser(ctx context.Context, user *db.User) (*db.User, error) {
	user.Name = strings.TrimSpace(user.Name)
	user.Gender = strings.ToUpper(strings.TrimSpace(user.Gender))
	switch {
	case user.Name == "":
		return nil, svcErr.Validation("name must not be empty")
	case user.Age < 18:
		return nil, svcErr.Validation("age must be at least 18")
	case user.Gender == "":
		return nil, svcErr.Validation("gender must be set")
	}
	user.LookingFor = db.EncodeSet(upper(user.LookingForSet()))
	user.Interests = db.EncodeSet(user.InterestSet())

	err := m.exec.run(ctx, "users.save", func(ctx context.Context) error {
		return m.stores.Users.Save(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return m.GetUser(ctx, user.ID)
}

// DeleteUser removes a profile. Likes involving the user are pruned lazily
// by the Guard and the Sweeper.
func (m *Matchmaker) DeleteUser(ctx context.Context, id uint64) error {
	if id == 0 {
		return svcErr.Validation("user id must be set")
	}
	return m.exec.run(ctx, "users.delete", func(ctx context.Context) error {
		return m.stores.Users.Delete(ctx, id)
	})
}

func upper(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(strings.TrimSpace(v))
	}
	return out
}
